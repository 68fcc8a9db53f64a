package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCourseCodeValidation(t *testing.T) {
	v := NewValidator()
	valid := CreateCourseRequest{Title: "DBMS", Code: "CS301", ContactPeriods: 3, SemesterNo: 5, Type: "ACADEMIC", Department: "CSE"}
	assert.NoError(t, v.Struct(valid))

	longest := valid
	longest.Code = "CS30123"
	assert.NoError(t, v.Struct(longest))

	for _, code := range []string{"1CS30", "CS3", "CS-301", "CS301234"} {
		invalid := valid
		invalid.Code = code
		assert.Error(t, v.Struct(invalid), code)
	}
}

func TestContactPeriodsRange(t *testing.T) {
	v := NewValidator()
	req := CreateCourseRequest{Title: "Lab", Code: "CS391", ContactPeriods: 10, SemesterNo: 5, Type: "LAB", Department: "CSE"}
	assert.Error(t, v.Struct(req))
	req.ContactPeriods = 9
	assert.NoError(t, v.Struct(req))
}

func TestAcademicYear(t *testing.T) {
	assert.True(t, ValidAcademicYear("2024-2025"))
	assert.False(t, ValidAcademicYear("2024-2026"))
	assert.False(t, ValidAcademicYear("2024/2025"))

	v := NewValidator()
	assert.Error(t, v.Struct(GenerateTimetableRequest{FacultyID: "f-1", AcademicYear: "24-25", Semester: 3}))
	assert.NoError(t, v.Struct(GenerateTimetableRequest{FacultyID: "f-1", AcademicYear: "2024-2025", Semester: 3}))
}

func TestSubstituteMustDifferFromRequester(t *testing.T) {
	v := NewValidator()
	req := CreateSubstituteRequest{RequesterID: "f-1", SubstituteID: "f-1", TimetableEntryID: "e-1", RequestDate: "2024-07-15", Reason: "conference"}
	assert.Error(t, v.Struct(req))
	req.SubstituteID = "f-2"
	assert.NoError(t, v.Struct(req))
}
