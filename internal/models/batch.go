package models

import "time"

// Batch is a cohort of students following one timetable.
type Batch struct {
	ID         string    `db:"id" json:"id"`
	BatchName  string    `db:"batch_name" json:"batchName"`
	Department string    `db:"department" json:"department"`
	Section    *string   `db:"section" json:"section,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
