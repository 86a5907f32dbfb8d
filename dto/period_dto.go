package dto

import "time"

// PeriodRequest is the payload for creating or editing an enrollment period
type PeriodRequest struct {
	Year            int       `json:"year" binding:"required"`
	Term            string    `json:"term" binding:"required"`
	StartsAt        time.Time `json:"startsAt" binding:"required"`
	EndsAt          time.Time `json:"endsAt" binding:"required"`
	EditalNumber    string    `json:"editalNumber"`
	ScholarshipPool int       `json:"scholarshipPool"`
}

// AllocationSummary reports scholarship usage for one year/term
type AllocationSummary struct {
	Year        int                    `json:"year"`
	Term        string                 `json:"term"`
	PeriodID    string                 `json:"periodId,omitempty"`
	Pool        int                    `json:"pool"`
	Granted     int                    `json:"granted"`
	Remaining   *int                   `json:"remaining"`
	Departments []DepartmentAllocation `json:"departments"`
}

// DepartmentAllocation is one row of the allocation summary
type DepartmentAllocation struct {
	DepartmentID string `json:"departmentId"`
	Projects     int    `json:"projects"`
	Granted      int    `json:"granted"`
}
