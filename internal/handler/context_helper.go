package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/faculty-timetable-api/internal/middleware"
	"github.com/noah-isme/faculty-timetable-api/internal/models"
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actingFaculty returns the caller's faculty id, or an error when the caller is not linked to one.
func actingFaculty(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	if claims.FacultyID == "" {
		return "", appErrors.Clone(appErrors.ErrForbidden, "caller is not linked to a faculty profile")
	}
	return claims.FacultyID, nil
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}
