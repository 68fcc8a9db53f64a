package dto

import "github.com/noah-isme/faculty-timetable-api/internal/models"

// CreateFacultyRequest registers a faculty member.
type CreateFacultyRequest struct {
	Name        string             `json:"name" validate:"required,max=120"`
	Email       string             `json:"email" validate:"required,email"`
	Department  string             `json:"department" validate:"required"`
	Designation models.Designation `json:"designation" validate:"required,oneof=PROFESSOR ASSOCIATE_PROFESSOR ASSISTANT_PROFESSOR"`
	Mobile      *string            `json:"mobile" validate:"omitempty,numeric,len=10"`
}

// UpdateFacultyRequest changes mutable profile fields.
type UpdateFacultyRequest struct {
	Department  *string             `json:"department" validate:"omitempty,min=1"`
	Designation *models.Designation `json:"designation" validate:"omitempty,oneof=PROFESSOR ASSOCIATE_PROFESSOR ASSISTANT_PROFESSOR"`
	Mobile      *string             `json:"mobile" validate:"omitempty,numeric,len=10"`
}

// CreateBatchRequest registers a batch.
type CreateBatchRequest struct {
	BatchName  string  `json:"batchName" validate:"required,max=60"`
	Department string  `json:"department" validate:"required"`
	Section    *string `json:"section" validate:"omitempty,max=10"`
}

// CreateCourseRequest registers a course.
type CreateCourseRequest struct {
	Title          string            `json:"title" validate:"required,max=120"`
	Code           string            `json:"code" validate:"required,coursecode"`
	ContactPeriods int               `json:"contactPeriods" validate:"required,min=1,max=9"`
	SemesterNo     int               `json:"semesterNo" validate:"required,min=1,max=8"`
	Type           models.CourseType `json:"type" validate:"required,oneof=ACADEMIC NON_ACADEMIC LAB"`
	Department     string            `json:"department" validate:"required"`
}

// ImportCoursesRequest is a bulk course import.
type ImportCoursesRequest struct {
	Courses []CreateCourseRequest `json:"courses" validate:"required,min=1,max=500"`
}

// ImportRowError reports why one import row was rejected.
type ImportRowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// CreateAssignmentRequest assigns a course and batch to a faculty member.
type CreateAssignmentRequest struct {
	CourseID string `json:"courseId" validate:"required"`
	BatchID  string `json:"batchId" validate:"required"`
}
