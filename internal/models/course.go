package models

import "time"

// CourseType drives placement rules in the generator.
type CourseType string

const (
	CourseTypeAcademic    CourseType = "ACADEMIC"
	CourseTypeNonAcademic CourseType = "NON_ACADEMIC"
	CourseTypeLab         CourseType = "LAB"
)

// Course is a subject taught for a number of periods per week.
type Course struct {
	ID             string     `db:"id" json:"id"`
	Title          string     `db:"title" json:"title"`
	Code           string     `db:"code" json:"code"`
	ContactPeriods int        `db:"contact_periods" json:"contactPeriods"`
	SemesterNo     int        `db:"semester_no" json:"semesterNo"`
	Type           CourseType `db:"type" json:"type"`
	Department     string     `db:"department" json:"department"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}

// CourseFilter narrows course listings.
type CourseFilter struct {
	Department string
	SemesterNo int
	Type       CourseType
}
