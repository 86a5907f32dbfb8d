package dto

import "github.com/monitoria-simple/models"

// AuditFilter narrows the audit listing
type AuditFilter struct {
	EntityType string `form:"entityType"`
	EntityID   string `form:"entityId"`
	ActorID    string `form:"actorId"`
	Page       int    `form:"page"`
	PageSize   int    `form:"pageSize"`
}

// AuditListResponse is a page of audit entries
type AuditListResponse struct {
	Entries    []models.AuditEntry `json:"entries"`
	TotalCount int64               `json:"totalCount"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
}
