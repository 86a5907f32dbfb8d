package dto

import "github.com/monitoria-simple/models"

// ApplyRequest is a student's candidacy to a project
type ApplyRequest struct {
	PeriodID     string `json:"periodId" binding:"required"`
	IntendedSlot string `json:"intendedSlot" binding:"required"`
}

// EvaluateRequest carries the grades used to compute the final score
type EvaluateRequest struct {
	DisciplineGrade *float64 `json:"disciplineGrade" binding:"required"`
	SelectionGrade  *float64 `json:"selectionGrade" binding:"required"`
	GPA             *float64 `json:"gpa" binding:"required"`
}

// SelectionRequest closes the selection of a project in a period
type SelectionRequest struct {
	Mode        string   `json:"mode" binding:"required"`
	Bolsistas   []string `json:"bolsistas"`
	Voluntarios []string `json:"voluntarios"`
}

// PreviewEntry is one line of a ranked selection preview
type PreviewEntry struct {
	Rank          int                      `json:"rank"`
	ApplicationID string                   `json:"applicationId"`
	StudentID     string                   `json:"studentId"`
	IntendedSlot  models.SlotType          `json:"intendedSlot"`
	Score         *float64                 `json:"score"`
	Outcome       models.ApplicationStatus `json:"outcome"`
}

// SelectionPreview is the ranked order a selection would produce
type SelectionPreview struct {
	ProjectID           string         `json:"projectId"`
	PeriodID            string         `json:"periodId"`
	ScholarshipsGranted int            `json:"scholarshipsGranted"`
	VolunteersRequested int            `json:"volunteersRequested"`
	Closed              bool           `json:"closed"`
	Entries             []PreviewEntry `json:"entries"`
}

// MinutesRequest edits the free-text fields of unsigned minutes
type MinutesRequest struct {
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

// PublishRequest controls notification fan-out on publish
type PublishRequest struct {
	Notify *bool `json:"notify"`
}

// PublishSummary reports what a publish call did
type PublishSummary struct {
	ProjectID string `json:"projectId"`
	PeriodID  string `json:"periodId"`
	Published int    `json:"published"`
	Created   int    `json:"created"`
	Sent      int    `json:"sent"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}
