package dto

import "github.com/noah-isme/faculty-timetable-api/internal/models"

// GenerateTimetableRequest asks the generator to (re)build a faculty's week.
type GenerateTimetableRequest struct {
	FacultyID    string `json:"facultyId" validate:"required"`
	AcademicYear string `json:"academicYear" validate:"required,academicyear"`
	Semester     int    `json:"semester" validate:"required,min=1,max=8"`
}

// UnschedulableAssignment reports an assignment the generator could not fully place.
type UnschedulableAssignment struct {
	AssignmentID string            `json:"assignmentId"`
	CourseID     string            `json:"courseId"`
	CourseCode   string            `json:"courseCode"`
	BatchID      string            `json:"batchId"`
	CourseType   models.CourseType `json:"courseType"`
	Required     int               `json:"required"`
	Placed       int               `json:"placed"`
	Code         string            `json:"code"`
	Message      string            `json:"message"`
}

// CoverageWarning lists critical periods still missing after repair.
type CoverageWarning struct {
	MissingPeriods []int  `json:"missingPeriods"`
	Message        string `json:"message"`
}

// GenerateTimetableResponse returns the persisted week plus any non-fatal findings.
type GenerateTimetableResponse struct {
	FacultyID    string                        `json:"facultyId"`
	AcademicYear string                        `json:"academicYear"`
	Semester     int                           `json:"semester"`
	Entries      []models.TimetableEntryDetail `json:"entries"`
	Warnings     []UnschedulableAssignment     `json:"warnings"`
	Coverage     *CoverageWarning              `json:"coverageWarning,omitempty"`
	RepairMoves  int                           `json:"repairMoves"`
}

// TimetableQuery filters timetable reads.
type TimetableQuery struct {
	AcademicYear string `form:"academicYear" validate:"required,academicyear"`
	Semester     int    `form:"semester" validate:"required,min=1,max=8"`
}

// CheckSlotRequest asks whether a faculty member and batch are free in a slot.
type CheckSlotRequest struct {
	AcademicYear   string `json:"academicYear" validate:"required,academicyear"`
	Semester       int    `json:"semester" validate:"required,min=1,max=8"`
	FacultyID      string `json:"facultyId" validate:"required_without=BatchID"`
	BatchID        string `json:"batchId" validate:"required_without=FacultyID"`
	Day            string `json:"day" validate:"required"`
	Period         int    `json:"periodNumber" validate:"required,min=1,max=8"`
	ExcludeEntryID string `json:"excludeEntryId"`
}

// CheckSlotResponse returns the two conflict predicates.
type CheckSlotResponse struct {
	FacultyConflict bool `json:"facultyConflict"`
	BatchConflict   bool `json:"batchConflict"`
}

// TimetableEntryRequest creates or moves a single entry by hand.
type TimetableEntryRequest struct {
	FacultyID    string `json:"facultyId" validate:"required"`
	BatchID      string `json:"batchId" validate:"required"`
	CourseID     string `json:"courseId" validate:"required"`
	AcademicYear string `json:"academicYear" validate:"required,academicyear"`
	Semester     int    `json:"semester" validate:"required,min=1,max=8"`
	Day          string `json:"day" validate:"required"`
	Period       int    `json:"periodNumber" validate:"required,min=1,max=8"`
}

// TimetableValidationResponse lists conflicts found in a persisted timetable.
type TimetableValidationResponse struct {
	Valid     bool                  `json:"valid"`
	Conflicts []models.SlotConflict `json:"conflicts"`
}

// PeriodGridResponse exposes the weekly grid.
type PeriodGridResponse struct {
	Days    []string      `json:"days"`
	Periods []PeriodEntry `json:"periods"`
}

// PeriodEntry is a period with its clock range.
type PeriodEntry struct {
	Number int    `json:"number"`
	Start  string `json:"start"`
	End    string `json:"end"`
}
