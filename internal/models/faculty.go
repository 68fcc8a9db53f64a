package models

import "time"

// Designation is the academic rank of a faculty member.
type Designation string

const (
	DesignationProfessor          Designation = "PROFESSOR"
	DesignationAssociateProfessor Designation = "ASSOCIATE_PROFESSOR"
	DesignationAssistantProfessor Designation = "ASSISTANT_PROFESSOR"
)

// Faculty is a teaching staff member.
type Faculty struct {
	ID          string      `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Email       string      `db:"email" json:"email"`
	Department  string      `db:"department" json:"department"`
	Designation Designation `db:"designation" json:"designation"`
	Mobile      *string     `db:"mobile" json:"mobile,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
}

// FacultyFilter narrows faculty listings.
type FacultyFilter struct {
	Department string
	Search     string
	Page       int
	PageSize   int
}
