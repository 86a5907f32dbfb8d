package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var projectStatuses = []ProjectStatus{
	ProjectStatusDraft,
	ProjectStatusSubmitted,
	ProjectStatusApproved,
	ProjectStatusRejected,
	ProjectStatusPendingProfessorSignature,
	ProjectStatusPendingAdminSignature,
}

func TestProjectTransitionTable(t *testing.T) {
	allowed := map[ProjectStatus][]ProjectStatus{
		ProjectStatusDraft: {ProjectStatusSubmitted},
		ProjectStatusSubmitted: {
			ProjectStatusApproved, ProjectStatusRejected, ProjectStatusDraft,
			ProjectStatusPendingProfessorSignature, ProjectStatusPendingAdminSignature,
		},
		ProjectStatusPendingProfessorSignature: {ProjectStatusSubmitted},
		ProjectStatusPendingAdminSignature:     {ProjectStatusSubmitted},
	}

	for _, from := range projectStatuses {
		for _, to := range projectStatuses {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, ProjectStatus("UNKNOWN").CanTransition(ProjectStatusDraft))
}

func TestApplicationTransitionTable(t *testing.T) {
	assert.True(t, ApplicationSubmitted.CanTransition(ApplicationSelectedBolsista))
	assert.True(t, ApplicationSubmitted.CanTransition(ApplicationRejectedByProfessor))
	assert.False(t, ApplicationSubmitted.CanTransition(ApplicationConfirmed))
	assert.True(t, ApplicationSelectedVoluntario.CanTransition(ApplicationConfirmed))
	assert.True(t, ApplicationSelectedBolsista.CanTransition(ApplicationDeclinedByStudent))
	assert.False(t, ApplicationSelectedBolsista.CanTransition(ApplicationSelectedVoluntario))

	for _, terminal := range []ApplicationStatus{ApplicationRejectedByProfessor, ApplicationConfirmed, ApplicationDeclinedByStudent} {
		assert.False(t, terminal.CanTransition(ApplicationSubmitted), terminal)
		assert.False(t, terminal.CanTransition(ApplicationConfirmed), terminal)
	}
}

func TestSlotIntent(t *testing.T) {
	assert.True(t, SlotAny.AcceptsBolsista())
	assert.True(t, SlotBolsista.AcceptsBolsista())
	assert.False(t, SlotVoluntario.AcceptsBolsista())
	assert.False(t, SlotType("PAID").Valid())
}

func TestProjectHelpers(t *testing.T) {
	p := Project{}
	assert.Zero(t, p.Granted())
	assert.False(t, p.SignedBy(RoleProfessor))

	granted := 3
	now := time.Now()
	p.ScholarshipsGranted = &granted
	p.AdminSignedAt = &now
	assert.Equal(t, 3, p.Granted())
	assert.True(t, p.SignedBy(RoleAdmin))
	assert.False(t, p.SignedBy(RoleStudent))
}

func TestProjectHelpersOnReturnedValues(t *testing.T) {
	granted := 2
	now := time.Now()
	load := func() Project {
		return Project{ScholarshipsGranted: &granted, ProfessorSignedAt: &now}
	}

	assert.Equal(t, 2, load().Granted())
	assert.True(t, load().SignedBy(RoleProfessor))
	assert.False(t, load().SignedBy(RoleAdmin))
	assert.True(t, func() EnrollmentPeriod {
		return EnrollmentPeriod{StartsAt: now, EndsAt: now.Add(time.Hour)}
	}().IsOpen(now))
}

func TestPeriodWindowIsInclusive(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p := EnrollmentPeriod{StartsAt: start, EndsAt: start.Add(time.Hour)}

	assert.True(t, p.IsOpen(start))
	assert.True(t, p.IsOpen(start.Add(time.Hour)))
	assert.False(t, p.IsOpen(start.Add(-time.Nanosecond)))
	assert.False(t, p.IsOpen(start.Add(time.Hour+time.Nanosecond)))
}

func TestDocumentKindAndKeys(t *testing.T) {
	assert.Equal(t, DocumentAdminSigned, SignedDocumentKindFor(RoleAdmin))
	assert.Equal(t, DocumentProfessorSigned, SignedDocumentKindFor(RoleProfessor))
	assert.Equal(t, "a-1:selection-result", IdempotencyKeyFor("a-1", EventSelectionResult))
}
