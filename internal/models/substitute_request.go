package models

import (
	"time"

	"github.com/noah-isme/faculty-timetable-api/internal/calendar"
)

// SubstituteStatus is the lifecycle state of a substitute request.
type SubstituteStatus string

const (
	SubstituteStatusPending  SubstituteStatus = "PENDING"
	SubstituteStatusApproved SubstituteStatus = "APPROVED"
	SubstituteStatusRejected SubstituteStatus = "REJECTED"
)

// Terminal reports whether no further transitions are allowed.
func (s SubstituteStatus) Terminal() bool {
	return s == SubstituteStatusApproved || s == SubstituteStatusRejected
}

// SubstituteRequest asks another faculty member to cover one entry on one date.
type SubstituteRequest struct {
	ID               string           `db:"id" json:"id"`
	RequesterID      string           `db:"requester_id" json:"requesterId"`
	SubstituteID     string           `db:"substitute_id" json:"substituteId"`
	TimetableEntryID string           `db:"timetable_entry_id" json:"timetableEntryId"`
	RequestDate      time.Time        `db:"request_date" json:"requestDate"`
	Reason           string           `db:"reason" json:"reason"`
	Status           SubstituteStatus `db:"status" json:"status"`
	ResponseMessage  *string          `db:"response_message" json:"responseMessage,omitempty"`
	TokenDigest      string           `db:"token_digest" json:"-"`
	TokenExpiresAt   time.Time        `db:"token_expires_at" json:"-"`
	TokenUsed        bool             `db:"token_used" json:"-"`
	CreatedAt        time.Time        `db:"created_at" json:"createdAt"`
	ResolvedAt       *time.Time       `db:"resolved_at" json:"resolvedAt,omitempty"`
}

// SubstituteRequestDetail adds the display fields shown on confirmation screens and emails.
type SubstituteRequestDetail struct {
	SubstituteRequest
	RequesterName   string           `db:"requester_name" json:"requesterName"`
	RequesterEmail  string           `db:"requester_email" json:"requesterEmail"`
	SubstituteName  string           `db:"substitute_name" json:"substituteName"`
	SubstituteEmail string           `db:"substitute_email" json:"substituteEmail"`
	CourseCode      string           `db:"course_code" json:"courseCode"`
	CourseName      string           `db:"course_name" json:"courseName"`
	BatchName       string           `db:"batch_name" json:"batchName"`
	Section         *string          `db:"section" json:"section,omitempty"`
	Day             calendar.Weekday `db:"day" json:"day"`
	Period          int              `db:"period" json:"periodNumber"`
	StartTime       string           `db:"-" json:"startTime"`
	EndTime         string           `db:"-" json:"endTime"`
}

// FillTimes sets the period clock times from the calendar.
func (d *SubstituteRequestDetail) FillTimes() {
	if p, ok := calendar.PeriodByNumber(d.Period); ok {
		d.StartTime = p.Start
		d.EndTime = p.End
	}
}

// ResolveSubstituteParams carries a conditional status transition.
type ResolveSubstituteParams struct {
	ID              string
	Status          SubstituteStatus
	ResponseMessage string
	ResolvedAt      time.Time
	// TokenDigest, when set, restricts the update to an unused, unexpired token.
	TokenDigest string
}
