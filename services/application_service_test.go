package services

import (
	"context"
	"testing"
	"time"

	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRequiresApprovedProject(t *testing.T) {
	env := newTestEnv(t)
	period := env.createPeriod(t, 0)
	project := env.submittedProject(t, professor, 2, 1)

	_, err := env.svc.Applications.Apply(context.Background(), student("s1"), project.ID, period.ID, models.SlotAny)
	assert.True(t, IsKind(err, KindStateTransition))
}

func TestApplyRequiresOpenPeriod(t *testing.T) {
	env := newTestEnv(t)
	period := env.createPeriod(t, 0)
	project := env.approvedProject(t, 2, 1, 1)

	env.clock.Advance(31 * 24 * time.Hour)
	_, err := env.svc.Applications.Apply(context.Background(), student("s1"), project.ID, period.ID, models.SlotAny)
	assert.True(t, IsKind(err, KindStateTransition))
}

func TestApplyWindowBoundsAreInclusive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()
	period, err := env.svc.Periods.Create(ctx, admin, dto.PeriodRequest{
		Year:     2024,
		Term:     string(models.TermFirst),
		StartsAt: now,
		EndsAt:   now.Add(time.Hour),
	})
	require.NoError(t, err)
	project := env.approvedProject(t, 2, 1, 1)

	_, err = env.svc.Applications.Apply(ctx, student("s1"), project.ID, period.ID, models.SlotAny)
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	_, err = env.svc.Applications.Apply(ctx, student("s2"), project.ID, period.ID, models.SlotAny)
	require.NoError(t, err)
}

func TestApplyRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	period := env.createPeriod(t, 0)
	project := env.approvedProject(t, 2, 1, 1)

	first, err := env.svc.Applications.Apply(ctx, student("s1"), project.ID, period.ID, models.SlotAny)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationSubmitted, first.Status)

	_, err = env.svc.Applications.Apply(ctx, student("s1"), project.ID, period.ID, models.SlotBolsista)
	assert.True(t, IsKind(err, KindConflict))

	apps, err := env.store.Applications().FindByStudent(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestApplyRejectedOnceRoundIsClosed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project, period, _ := env.closedRound(t)

	_, err := env.svc.Applications.Apply(ctx, student("s3"), project.ID, period.ID, models.SlotAny)
	assert.True(t, IsKind(err, KindConflict))

	apps, err := env.store.Applications().FindByStudent(ctx, "s3")
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestApplyValidatesSlotOffer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	period := env.createPeriod(t, 0)
	volunteersOnly := env.approvedProject(t, 2, 1, 0)

	_, err := env.svc.Applications.Apply(ctx, student("s1"), volunteersOnly.ID, period.ID, models.SlotBolsista)
	assert.True(t, IsKind(err, KindValidation))

	_, err = env.svc.Applications.Apply(ctx, student("s1"), volunteersOnly.ID, period.ID, "PAID")
	assert.True(t, IsKind(err, KindValidation))

	_, err = env.svc.Applications.Apply(ctx, professor, volunteersOnly.ID, period.ID, models.SlotAny)
	assert.True(t, IsKind(err, KindForbidden))
}

func TestConfirmAndDeclineOnlyFromSelected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	period := env.createPeriod(t, 0)
	project := env.approvedProject(t, 2, 1, 1)

	a1 := env.applyScored(t, "s1", project, period, models.SlotAny, 9)
	a2 := env.applyScored(t, "s2", project, period, models.SlotAny, 8)
	a3 := env.applyScored(t, "s3", project, period, models.SlotAny, 7)

	_, err := env.svc.Applications.Confirm(ctx, student("s1"), a1.ID)
	assert.True(t, IsKind(err, KindStateTransition))

	_, err = env.svc.Selection.SelectRanked(ctx, professor, project.ID, period.ID)
	require.NoError(t, err)

	_, err = env.svc.Applications.Confirm(ctx, student("s2"), a1.ID)
	assert.True(t, IsKind(err, KindForbidden))

	confirmed, err := env.svc.Applications.Confirm(ctx, student("s1"), a1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationConfirmed, confirmed.Status)
	assert.NotNil(t, confirmed.DecidedAt)

	declined, err := env.svc.Applications.Decline(ctx, student("s2"), a2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationDeclinedByStudent, declined.Status)

	_, err = env.svc.Applications.Confirm(ctx, student("s2"), a2.ID)
	assert.True(t, IsKind(err, KindStateTransition))

	_, err = env.svc.Applications.Confirm(ctx, student("s3"), a3.ID)
	assert.True(t, IsKind(err, KindStateTransition))
}

func TestOneScholarshipPerStudentPerPeriod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	period := env.createPeriod(t, 0)
	first := env.approvedProject(t, 1, 0, 1)
	second := env.approvedProject(t, 1, 0, 1)

	a1 := env.applyScored(t, "s1", first, period, models.SlotBolsista, 9)
	a2 := env.applyScored(t, "s1", second, period, models.SlotBolsista, 9)

	_, err := env.svc.Selection.SelectRanked(ctx, professor, first.ID, period.ID)
	require.NoError(t, err)
	_, err = env.svc.Selection.SelectRanked(ctx, professor, second.ID, period.ID)
	require.NoError(t, err)

	_, err = env.svc.Applications.Confirm(ctx, student("s1"), a1.ID)
	require.NoError(t, err)

	_, err = env.svc.Applications.Confirm(ctx, student("s1"), a2.ID)
	assert.True(t, IsKind(err, KindConflict))
	assert.Equal(t, models.ApplicationSelectedBolsista, env.application(t, a2.ID).Status)

	_, err = env.svc.Applications.Decline(ctx, student("s1"), a2.ID)
	assert.NoError(t, err)
}

func TestApplicationListsAndAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	period := env.createPeriod(t, 0)
	project := env.approvedProject(t, 2, 1, 1)

	a1, err := env.svc.Applications.Apply(ctx, student("s1"), project.ID, period.ID, models.SlotAny)
	require.NoError(t, err)
	_, err = env.svc.Applications.Apply(ctx, student("s2"), project.ID, period.ID, models.SlotVoluntario)
	require.NoError(t, err)

	list, err := env.svc.Applications.ListForProject(ctx, professor, project.ID, period.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = env.svc.Applications.ListForProject(ctx, otherProf, project.ID, "")
	assert.True(t, IsKind(err, KindForbidden))

	mine, err := env.svc.Applications.ListForStudent(ctx, student("s1"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a1.ID, mine[0].ID)

	_, err = env.svc.Applications.Get(ctx, student("s2"), a1.ID)
	assert.True(t, IsKind(err, KindForbidden))
	_, err = env.svc.Applications.Get(ctx, professor, a1.ID)
	assert.NoError(t, err)
}
