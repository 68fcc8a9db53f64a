package models

import (
	"time"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
)

// TimetableScope identifies one academic year and semester.
type TimetableScope struct {
	AcademicYear string `json:"academicYear"`
	Semester     int    `json:"semester"`
}

// TimetableEntry places a course taught by a faculty member to a batch in one weekly slot.
type TimetableEntry struct {
	ID           string           `db:"id" json:"id"`
	FacultyID    string           `db:"faculty_id" json:"facultyId"`
	BatchID      string           `db:"batch_id" json:"batchId"`
	CourseID     string           `db:"course_id" json:"courseId"`
	AcademicYear string           `db:"academic_year" json:"academicYear"`
	Semester     int              `db:"semester" json:"semester"`
	Day          calendar.Weekday `db:"day" json:"day"`
	Period       int              `db:"period" json:"periodNumber"`
	CreatedAt    time.Time        `db:"created_at" json:"createdAt"`
}

// Scope returns the academic year and semester of the entry.
func (e TimetableEntry) Scope() TimetableScope {
	return TimetableScope{AcademicYear: e.AcademicYear, Semester: e.Semester}
}

// TimetableEntryDetail is the read projection of an entry with display fields joined in.
type TimetableEntryDetail struct {
	TimetableEntry
	CourseCode  string     `db:"course_code" json:"courseCode"`
	CourseName  string     `db:"course_name" json:"courseName"`
	CourseType  CourseType `db:"course_type" json:"courseType"`
	FacultyName string     `db:"faculty_name" json:"facultyName"`
	BatchName   string     `db:"batch_name" json:"batchName"`
	Section     *string    `db:"section" json:"section,omitempty"`
	StartTime   string     `db:"-" json:"startTime"`
	EndTime     string     `db:"-" json:"endTime"`
}

// FillTimes sets the period clock times from the calendar.
func (d *TimetableEntryDetail) FillTimes() {
	if p, ok := calendar.PeriodByNumber(d.Period); ok {
		d.StartTime = p.Start
		d.EndTime = p.End
	}
}

// Conflict dimensions.
const (
	ConflictDimensionFaculty = "FACULTY"
	ConflictDimensionBatch   = "BATCH"
	ConflictDimensionLab     = "LAB_RULE"
)

// SlotConflict describes a collision or placement rule violation.
type SlotConflict struct {
	Dimension string           `json:"dimension"`
	Day       calendar.Weekday `json:"day"`
	Period    int              `json:"periodNumber"`
	EntryIDs  []string         `json:"entryIds,omitempty"`
	Message   string           `json:"message"`
}
