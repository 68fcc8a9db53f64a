package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	assert.False(t, repo.Enabled())

	var dest map[string]string
	err := repo.Get(context.Background(), "timetable:faculty:f-1", &dest)
	assert.True(t, appErrors.Is(err, appErrors.ErrCacheMiss))

	require.NoError(t, repo.Set(context.Background(), "timetable:faculty:f-1", map[string]string{"a": "b"}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(context.Background(), "timetable:*"))
	require.NoError(t, repo.Close())
}
