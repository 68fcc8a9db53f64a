package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
	"github.com/noah-isme/faculty-timetable-api/internal/dto"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
)

type memoryCache struct {
	values      map[string]interface{}
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]interface{})}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	v, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if out, ok := dest.(*[]models.TimetableEntryDetail); ok {
		*out = v.([]models.TimetableEntryDetail)
	}
	return nil
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.values[key] = value
	return nil
}

func (c *memoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	c.values = make(map[string]interface{})
	return nil
}

func (f *catalogFixture) timetableService(c CacheRepository) *TimetableService {
	var cacheSvc *CacheService
	if c != nil {
		cacheSvc = NewCacheService(c, nil, time.Minute, zap.NewNop(), true)
	}
	return NewTimetableService(
		f.store.Timetable(), f.store.Faculty(), f.store.Batches(), f.store.Courses(),
		NewConflictService(f.store.Timetable()), cacheSvc, nil, nil,
	)
}

func timetableQuery() dto.TimetableQuery {
	return dto.TimetableQuery{AcademicYear: testScope.AcademicYear, Semester: testScope.Semester}
}

func TestTimetableServicePeriods(t *testing.T) {
	svc := newCatalogFixture(t).timetableService(nil)
	grid := svc.Periods()
	assert.Len(t, grid.Days, 6)
	require.Len(t, grid.Periods, 8)
	assert.Equal(t, "15:50", grid.Periods[7].Start)
}

func TestTimetableServiceReadsUseCache(t *testing.T) {
	f := newCatalogFixture(t)
	rao := f.faculty("Dr. Rao", "rao@example.edu")
	cse := f.batch("CSE-2022")
	dbms := f.course("CS301", models.CourseTypeAcademic, 3)
	f.entry(rao.ID, cse.ID, dbms.ID, calendar.Monday, 3)

	c := newMemoryCache()
	svc := f.timetableService(c)

	entries, err := svc.FacultyTimetable(f.ctx, rao.ID, timetableQuery())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "10:50", entries[0].StartTime)
	assert.Contains(t, c.values, "timetable:faculty:"+rao.ID+":2024-2025:5")

	f.entry(rao.ID, cse.ID, dbms.ID, calendar.Tuesday, 3)
	cached, err := svc.FacultyTimetable(f.ctx, rao.ID, timetableQuery())
	require.NoError(t, err)
	assert.Len(t, cached, 1, "served from cache")

	_, err = svc.FacultyTimetable(f.ctx, rao.ID, dto.TimetableQuery{AcademicYear: "2024-2025"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.BatchTimetable(f.ctx, "missing", timetableQuery())
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestTimetableServiceCheckSlot(t *testing.T) {
	f := newCatalogFixture(t)
	rao := f.faculty("Dr. Rao", "rao@example.edu")
	cse := f.batch("CSE-2022")
	dbms := f.course("CS301", models.CourseTypeAcademic, 3)
	existing := f.entry(rao.ID, cse.ID, dbms.ID, calendar.Monday, 3)
	svc := f.timetableService(nil)

	req := dto.CheckSlotRequest{
		AcademicYear: testScope.AcademicYear, Semester: testScope.Semester,
		FacultyID: rao.ID, BatchID: cse.ID, Day: "monday", Period: 3,
	}
	resp, err := svc.CheckSlot(f.ctx, req)
	require.NoError(t, err)
	assert.True(t, resp.FacultyConflict)
	assert.True(t, resp.BatchConflict)

	req.ExcludeEntryID = existing.ID
	resp, err = svc.CheckSlot(f.ctx, req)
	require.NoError(t, err)
	assert.False(t, resp.FacultyConflict)
	assert.False(t, resp.BatchConflict)

	req.Day = "sunday"
	_, err = svc.CheckSlot(f.ctx, req)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestTimetableServiceEntryLifecycle(t *testing.T) {
	f := newCatalogFixture(t)
	rao := f.faculty("Dr. Rao", "rao@example.edu")
	iyer := f.faculty("Dr. Iyer", "iyer@example.edu")
	cse := f.batch("CSE-2022")
	dbms := f.course("CS301", models.CourseTypeAcademic, 3)
	lab := f.course("CS391", models.CourseTypeLab, 2)
	c := newMemoryCache()
	svc := f.timetableService(c)

	req := dto.TimetableEntryRequest{
		FacultyID: rao.ID, BatchID: cse.ID, CourseID: dbms.ID,
		AcademicYear: testScope.AcademicYear, Semester: testScope.Semester,
		Day: "MONDAY", Period: 2,
	}
	created, err := svc.CreateEntry(f.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "CS301", created.CourseCode)
	assert.Equal(t, "Dr. Rao", created.FacultyName)
	assert.Contains(t, c.invalidated, "timetable:faculty:"+rao.ID+":*")

	clash := req
	clash.FacultyID = iyer.ID
	_, err = svc.CreateEntry(f.ctx, clash)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict), "batch already busy")

	labReq := req
	labReq.CourseID, labReq.Period = lab.ID, 1
	_, err = svc.CreateEntry(f.ctx, labReq)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	moved := req
	moved.Period = 3
	updated, err := svc.UpdateEntry(f.ctx, created.ID, moved)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Period)
	assert.Equal(t, created.ID, updated.ID)

	require.NoError(t, svc.DeleteEntry(f.ctx, created.ID))
	err = svc.DeleteEntry(f.ctx, created.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestTimetableServiceValidateBatch(t *testing.T) {
	f := newCatalogFixture(t)
	rao := f.faculty("Dr. Rao", "rao@example.edu")
	cse := f.batch("CSE-2022")
	lab := f.course("CS391", models.CourseTypeLab, 2)
	f.entry(rao.ID, cse.ID, lab.ID, calendar.Monday, 2)
	f.entry(rao.ID, cse.ID, lab.ID, calendar.Monday, 4)

	resp, err := f.timetableService(nil).ValidateBatch(f.ctx, cse.ID, timetableQuery())
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, models.ConflictDimensionLab, resp.Conflicts[0].Dimension)
}

func TestTimetableServiceExport(t *testing.T) {
	f := newCatalogFixture(t)
	rao := f.faculty("Dr. Rao", "rao@example.edu")
	section := "A"
	cse := models.Batch{BatchName: "CSE-2022", Department: "CSE", Section: &section}
	require.NoError(t, f.store.Batches().Create(f.ctx, &cse))
	dbms := f.course("CS301", models.CourseTypeAcademic, 3)
	f.entry(rao.ID, cse.ID, dbms.ID, calendar.Tuesday, 1)
	svc := f.timetableService(nil)

	csv, err := svc.Export(f.ctx, rao.ID, timetableQuery(), "CSV")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", csv.ContentType)
	assert.Equal(t, "timetable_dr_rao_2024-2025_sem5.csv", csv.Filename)
	assert.Contains(t, string(csv.Payload), "TUESDAY,CS301 | CSE-2022 A,")

	pdf, err := svc.Export(f.ctx, rao.ID, timetableQuery(), "")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, bytes.HasPrefix(pdf.Payload, []byte("%PDF")))

	_, err = svc.Export(f.ctx, rao.ID, timetableQuery(), "xlsx")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
