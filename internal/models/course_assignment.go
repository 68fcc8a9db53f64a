package models

import "time"

// CourseAssignment binds a faculty member to a course taught to a batch.
type CourseAssignment struct {
	ID        string    `db:"id" json:"id"`
	FacultyID string    `db:"faculty_id" json:"facultyId"`
	CourseID  string    `db:"course_id" json:"courseId"`
	BatchID   string    `db:"batch_id" json:"batchId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// CourseAssignmentDetail enriches an assignment with course and batch attributes.
type CourseAssignmentDetail struct {
	CourseAssignment
	FacultyName    string     `db:"faculty_name" json:"facultyName"`
	CourseCode     string     `db:"course_code" json:"courseCode"`
	CourseTitle    string     `db:"course_title" json:"courseTitle"`
	CourseType     CourseType `db:"course_type" json:"courseType"`
	ContactPeriods int        `db:"contact_periods" json:"contactPeriods"`
	BatchName      string     `db:"batch_name" json:"batchName"`
	Section        *string    `db:"section" json:"section,omitempty"`
}
