package services

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func score(v float64) *float64 {
	return &v
}

func TestFinalScore(t *testing.T) {
	assert.Equal(t, 8.5, FinalScore(8.5, 8.5, 8.5))
	assert.Equal(t, 7.7, FinalScore(8, 7, 8))
	assert.Equal(t, 6.67, FinalScore(6.66, 6.66, 6.72))
}

func TestRankOrdering(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	apps := []models.Application{
		{ID: "late-85", StudentID: "s3", FinalScore: score(8.5), SubmittedAt: base.Add(2 * time.Hour)},
		{ID: "unscored", StudentID: "s0", SubmittedAt: base},
		{ID: "top", StudentID: "s9", FinalScore: score(9.0), SubmittedAt: base.Add(5 * time.Hour)},
		{ID: "early-85", StudentID: "s4", FinalScore: score(8.5), SubmittedAt: base.Add(time.Hour)},
		{ID: "tie-b", StudentID: "s2", FinalScore: score(7.0), SubmittedAt: base},
		{ID: "tie-a", StudentID: "s1", FinalScore: score(7.0), SubmittedAt: base},
	}

	ranked := Rank(apps)

	ids := make([]string, len(ranked))
	for i, a := range ranked {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{"top", "early-85", "late-85", "tie-a", "tie-b", "unscored"}, ids)
	assert.Equal(t, "late-85", apps[0].ID, "input must not be reordered")
}

func TestRankIsIndependentOfInputOrder(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var apps []models.Application
	for i := 0; i < 30; i++ {
		a := models.Application{
			ID:          string(rune('a'+i%26)) + string(rune('0'+i/26)),
			StudentID:   string(rune('z' - i%26)),
			SubmittedAt: base.Add(time.Duration(i%4) * time.Minute),
		}
		if i%5 != 0 {
			a.FinalScore = score(float64(i % 3))
		}
		apps = append(apps, a)
	}
	expected := Rank(apps)

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 20; round++ {
		shuffled := append([]models.Application(nil), apps...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, expected, Rank(shuffled))
	}
}

func TestRankedSelectionScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	period := env.createPeriod(t, 0)
	project := env.approvedProject(t, 2, 1, 2)

	top := env.applyScored(t, "s-top", project, period, models.SlotAny, 9.0)
	early := env.applyScored(t, "s-early", project, period, models.SlotAny, 8.5)
	late := env.applyScored(t, "s-late", project, period, models.SlotAny, 8.5)
	last := env.applyScored(t, "s-last", project, period, models.SlotAny, 7.0)

	minutes, err := env.svc.Selection.SelectRanked(ctx, professor, project.ID, period.ID)
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationSelectedBolsista, env.application(t, top.ID).Status)
	assert.Equal(t, models.ApplicationSelectedBolsista, env.application(t, early.ID).Status)
	assert.Equal(t, models.ApplicationSelectedVoluntario, env.application(t, late.ID).Status)
	assert.Equal(t, models.ApplicationRejectedByProfessor, env.application(t, last.ID).Status)
	assert.Equal(t, models.SlotVoluntario, *env.application(t, late.ID).AssignedSlot)

	require.Len(t, minutes.Entries, 4)
	expected := []string{top.ID, early.ID, late.ID, last.ID}
	for i, e := range minutes.Entries {
		assert.Equal(t, i+1, e.Rank)
		assert.Equal(t, expected[i], e.ApplicationID)
	}
	assert.Equal(t, models.SelectionRanked, minutes.Mode)
	assert.False(t, minutes.Signed)
}

func TestRankedSelectionHonoursIntent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	period := env.createPeriod(t, 0)
	project := env.approvedProject(t, 1, 1, 1)

	volunteer := env.applyScored(t, "s1", project, period, models.SlotVoluntario, 10)
	bolsista := env.applyScored(t, "s2", project, period, models.SlotBolsista, 6)
	unscored, err := env.svc.Applications.Apply(ctx, student("s3"), project.ID, period.ID, models.SlotAny)
	require.NoError(t, err)

	_, err = env.svc.Selection.SelectRanked(ctx, professor, project.ID, period.ID)
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationSelectedVoluntario, env.application(t, volunteer.ID).Status)
	assert.Equal(t, models.ApplicationSelectedBolsista, env.application(t, bolsista.ID).Status)
	assert.Equal(t, models.ApplicationRejectedByProfessor, env.application(t, unscored.ID).Status)
}

func TestSecondSelectionConflictsAndChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	period := env.createPeriod(t, 0)
	project := env.approvedProject(t, 2, 1, 1)

	a1 := env.applyScored(t, "s1", project, period, models.SlotAny, 9)
	a2 := env.applyScored(t, "s2", project, period, models.SlotAny, 8)

	_, err := env.svc.Selection.SelectRanked(ctx, professor, project.ID, period.ID)
	require.NoError(t, err)
	before := []models.Application{env.application(t, a1.ID), env.application(t, a2.ID)}

	_, err = env.svc.Selection.SelectRanked(ctx, professor, project.ID, period.ID)
	assert.True(t, IsKind(err, KindConflict))

	_, err = env.svc.Selection.SelectDirected(ctx, professor, project.ID, period.ID, []string{a2.ID}, nil)
	assert.True(t, IsKind(err, KindConflict))

	after := []models.Application{env.application(t, a1.ID), env.application(t, a2.ID)}
	assert.Equal(t, before, after)

	_, err = env.svc.Selection.Evaluate(ctx, professor, a1.ID, 1, 1, 1)
	assert.Error(t, err)
}

func TestDirectedSelection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	period := env.createPeriod(t, 0)
	project := env.approvedProject(t, 2, 1, 1)

	high := env.applyScored(t, "s1", project, period, models.SlotAny, 9)
	low := env.applyScored(t, "s2", project, period, models.SlotAny, 5)
	mid := env.applyScored(t, "s3", project, period, models.SlotAny, 7)

	minutes, err := env.svc.Selection.SelectDirected(ctx, professor, project.ID, period.ID, []string{low.ID}, []string{high.ID})
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationSelectedBolsista, env.application(t, low.ID).Status)
	assert.Equal(t, models.ApplicationSelectedVoluntario, env.application(t, high.ID).Status)
	assert.Equal(t, models.ApplicationRejectedByProfessor, env.application(t, mid.ID).Status)
	assert.Equal(t, models.SelectionDirected, minutes.Mode)
	assert.Equal(t, high.ID, minutes.Entries[0].ApplicationID)
	assert.Equal(t, models.ApplicationSelectedVoluntario, minutes.Entries[0].Outcome)
}

func TestDirectedSelectionValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	period := env.createPeriod(t, 0)
	project := env.approvedProject(t, 2, 1, 1)
	other := env.approvedProject(t, 2, 1, 1)

	a1 := env.applyScored(t, "s1", project, period, models.SlotAny, 9)
	a2 := env.applyScored(t, "s2", project, period, models.SlotAny, 8)
	foreign := env.applyScored(t, "s3", other, period, models.SlotAny, 8)

	cases := []struct {
		name        string
		bolsistas   []string
		voluntarios []string
		kind        ErrorKind
	}{
		{"overlapping sets", []string{a1.ID}, []string{a1.ID}, KindValidation},
		{"duplicate id", nil, []string{a2.ID, a2.ID}, KindValidation},
		{"too many bolsistas", []string{a1.ID, a2.ID}, nil, KindCapacityExceeded},
		{"too many voluntarios", nil, []string{a1.ID, a2.ID}, KindCapacityExceeded},
		{"foreign application", []string{foreign.ID}, nil, KindValidation},
		{"unknown application", nil, []string{"nope"}, KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Selection.SelectDirected(ctx, professor, project.ID, period.ID, tc.bolsistas, tc.voluntarios)
			assert.True(t, IsKind(err, tc.kind), "got %v", err)
			assert.Equal(t, models.ApplicationSubmitted, env.application(t, a1.ID).Status)
			assert.Equal(t, models.ApplicationSubmitted, env.application(t, a2.ID).Status)
		})
	}

	_, err := env.store.Selections().FindRound(ctx, project.ID, period.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestSelectionRequiresApprovedProjectAndOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	period := env.createPeriod(t, 0)
	submitted := env.submittedProject(t, professor, 2, 1)
	approved := env.approvedProject(t, 2, 1, 1)

	_, err := env.svc.Selection.SelectRanked(ctx, professor, submitted.ID, period.ID)
	assert.True(t, IsKind(err, KindStateTransition))

	_, err = env.svc.Selection.SelectRanked(ctx, otherProf, approved.ID, period.ID)
	assert.True(t, IsKind(err, KindForbidden))

	_, err = env.svc.Selection.SelectRanked(ctx, admin, approved.ID, period.ID)
	assert.NoError(t, err)
}

func TestEvaluateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	period := env.createPeriod(t, 0)
	project := env.approvedProject(t, 2, 1, 1)
	application, err := env.svc.Applications.Apply(ctx, student("s1"), project.ID, period.ID, models.SlotAny)
	require.NoError(t, err)

	_, err = env.svc.Selection.Evaluate(ctx, professor, application.ID, 11, 5, 5)
	assert.True(t, IsKind(err, KindValidation))

	_, err = env.svc.Selection.Evaluate(ctx, otherProf, application.ID, 5, 5, 5)
	assert.True(t, IsKind(err, KindForbidden))

	evaluated, err := env.svc.Selection.Evaluate(ctx, professor, application.ID, 8, 7, 8)
	require.NoError(t, err)
	assert.Equal(t, 7.7, *evaluated.FinalScore)
}

func TestPreviewDoesNotWrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	period := env.createPeriod(t, 0)
	project := env.approvedProject(t, 2, 1, 1)
	a1 := env.applyScored(t, "s1", project, period, models.SlotAny, 9)
	env.applyScored(t, "s2", project, period, models.SlotAny, 8)

	preview, err := env.svc.Selection.Preview(ctx, professor, project.ID, period.ID)
	require.NoError(t, err)

	require.Len(t, preview.Entries, 2)
	assert.Equal(t, a1.ID, preview.Entries[0].ApplicationID)
	assert.Equal(t, models.ApplicationSelectedBolsista, preview.Entries[0].Outcome)
	assert.Equal(t, models.ApplicationSelectedVoluntario, preview.Entries[1].Outcome)
	assert.False(t, preview.Closed)
	assert.Equal(t, models.ApplicationSubmitted, env.application(t, a1.ID).Status)
}

func TestConcurrentSelectionsCommitOnce(t *testing.T) {
	env := newTestEnv(t)
	period := env.createPeriod(t, 0)
	project := env.approvedProject(t, 2, 2, 2)
	for _, id := range []string{"s1", "s2", "s3", "s4", "s5"} {
		env.applyScored(t, id, project, period, models.SlotAny, 5)
	}

	const callers = 6
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Selection.SelectRanked(context.Background(), professor, project.ID, period.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.True(t, IsKind(err, KindConflict))
		}
	}
	assert.Equal(t, 1, ok)

	apps, err := env.store.Applications().FindByProjectPeriod(context.Background(), project.ID, period.ID)
	require.NoError(t, err)
	counts := map[models.ApplicationStatus]int{}
	for _, a := range apps {
		counts[a.Status]++
	}
	assert.Equal(t, 2, counts[models.ApplicationSelectedBolsista])
	assert.Equal(t, 2, counts[models.ApplicationSelectedVoluntario])
	assert.Equal(t, 1, counts[models.ApplicationRejectedByProfessor])
}

func TestSelectionWritesOneBatchedAuditEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	period := env.createPeriod(t, 0)
	project := env.approvedProject(t, 2, 1, 1)
	env.applyScored(t, "s1", project, period, models.SlotAny, 9)
	env.applyScored(t, "s2", project, period, models.SlotAny, 8)

	_, err := env.svc.Selection.SelectRanked(ctx, professor, project.ID, period.ID)
	require.NoError(t, err)

	entries, _, err := env.store.Audit().List(ctx, repositories.AuditFilter{EntityType: EntityProject, EntityID: project.ID})
	require.NoError(t, err)
	selects := 0
	for _, e := range entries {
		if e.Action == ActionSelect {
			selects++
			assert.Contains(t, string(e.Metadata), `"mode":"RANKED"`)
		}
	}
	assert.Equal(t, 1, selects)
}
