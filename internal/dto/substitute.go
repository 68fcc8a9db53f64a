package dto

import "github.com/noah-isme/faculty-timetable-api/internal/models"

// FilterFacultyRequest searches substitute candidates for one entry on one date.
type FilterFacultyRequest struct {
	RequestingFacultyID  string `json:"requestingFacultyId" validate:"required"`
	TimetableEntryID     string `json:"timetableEntryId" validate:"required"`
	RequestDate          string `json:"requestDate" validate:"required"`
	Day                  string `json:"day"`
	BatchID              string `json:"batchId"`
	FilterByAvailability bool   `json:"filterByAvailability"`
	FilterByBatch        bool   `json:"filterByBatch"`
}

// CandidateFaculty is one potential substitute.
type CandidateFaculty struct {
	Faculty      models.Faculty `json:"faculty"`
	Available    bool           `json:"available"`
	HandlesBatch bool           `json:"handlesBatch"`
}

// CreateSubstituteRequest records a substitute request.
type CreateSubstituteRequest struct {
	RequesterID      string `json:"requesterId" validate:"required"`
	SubstituteID     string `json:"substituteId" validate:"required,nefield=RequesterID"`
	TimetableEntryID string `json:"timetableEntryId" validate:"required"`
	RequestDate      string `json:"requestDate" validate:"required"`
	Day              string `json:"day"`
	Reason           string `json:"reason" validate:"required,max=500"`
}

// CreateSubstituteResponse returns the created request and soft warnings.
type CreateSubstituteResponse struct {
	Request  *models.SubstituteRequestDetail `json:"request"`
	Warnings []string                        `json:"-"`
}

// ResolveSubstituteRequest is the authenticated decision on a request.
type ResolveSubstituteRequest struct {
	Status          models.SubstituteStatus `form:"status" json:"status" validate:"required,oneof=APPROVED REJECTED"`
	ResponseMessage string                  `form:"responseMessage" json:"responseMessage" validate:"max=500"`
}

// ProcessTokenQuery is the email-link decision.
type ProcessTokenQuery struct {
	Token    string `form:"token" validate:"required"`
	Approved *bool  `form:"approved" validate:"required"`
}
