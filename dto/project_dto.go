package dto

import (
	"github.com/monitoria-simple/models"
)

// ProjectFilter represents filter criteria for projects
type ProjectFilter struct {
	Status   string `form:"status"`
	Year     int    `form:"year"`
	Term     string `form:"term"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// ProjectListResponse represents paginated project list response
type ProjectListResponse struct {
	Projects   []models.Project `json:"projects"`
	TotalCount int64            `json:"totalCount"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}

// ProjectRequest is the payload for creating or editing a draft project
type ProjectRequest struct {
	Title                 string `json:"title" binding:"required"`
	Description           string `json:"description"`
	DepartmentID          string `json:"departmentId" binding:"required"`
	Year                  int    `json:"year" binding:"required"`
	Term                  string `json:"term" binding:"required"`
	ProposalType          string `json:"proposalType" binding:"required"`
	ScholarshipsRequested int    `json:"scholarshipsRequested"`
	VolunteersRequested   int    `json:"volunteersRequested"`
}

// ApproveProjectRequest grants scholarships while approving
type ApproveProjectRequest struct {
	ScholarshipsGranted *int    `json:"scholarshipsGranted" binding:"required"`
	Feedback            *string `json:"feedback"`
}

// RejectProjectRequest carries the mandatory rejection reason
type RejectProjectRequest struct {
	Reason string `json:"reason"`
}

// RevisionRequest carries the message sent back to the professor
type RevisionRequest struct {
	Message string `json:"message"`
}

// AwaitSignatureRequest names the slot a project is parked on
type AwaitSignatureRequest struct {
	Role string `json:"role" binding:"required"`
}

// SignRequest carries the signature blob (base64 in JSON)
type SignRequest struct {
	Signature []byte `json:"signature"`
}

// DocumentURLResponse is a presigned download link
type DocumentURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expiresIn"`
}
