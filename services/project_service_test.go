package services

import (
	"context"
	"testing"

	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProjectStartsAsDraft(t *testing.T) {
	env := newTestEnv(t)

	project, err := env.svc.Projects.Create(context.Background(), professor, projectRequest(2, 1))

	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusDraft, project.Status)
	assert.Equal(t, professor.UserID, project.ProfessorID)
	assert.Nil(t, project.ScholarshipsGranted)
}

func TestCreateProjectValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Projects.Create(ctx, student("s1"), projectRequest(1, 1))
	assert.True(t, IsKind(err, KindForbidden))

	req := projectRequest(1, 1)
	req.Term = "SUMMER"
	_, err = env.svc.Projects.Create(ctx, professor, req)
	assert.True(t, IsKind(err, KindValidation))

	req = projectRequest(-1, 0)
	_, err = env.svc.Projects.Create(ctx, professor, req)
	assert.True(t, IsKind(err, KindValidation))
}

func TestSubmitOnlyByOwnerFromDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	project, err := env.svc.Projects.Create(ctx, professor, projectRequest(2, 1))
	require.NoError(t, err)

	_, err = env.svc.Projects.Submit(ctx, otherProf, project.ID)
	assert.True(t, IsKind(err, KindForbidden))

	submitted, err := env.svc.Projects.Submit(ctx, professor, project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusSubmitted, submitted.Status)

	_, err = env.svc.Projects.Submit(ctx, professor, project.ID)
	assert.True(t, IsKind(err, KindStateTransition))
}

func TestSubmitArchivesOriginalDocument(t *testing.T) {
	env := newTestEnv(t)
	project := env.submittedProject(t, professor, 2, 1)

	docs, err := env.svc.Signing.Documents(context.Background(), professor, project.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.DocumentOriginal, docs[0].Kind)
	assert.Len(t, docs[0].Checksum, 64)
}

func TestSubmitSurvivesDocumentStoreOutage(t *testing.T) {
	env := newTestEnv(t)
	env.documents.failures = 100

	project := env.submittedProject(t, professor, 2, 1)

	assert.Equal(t, models.ProjectStatusSubmitted, env.project(t, project.ID).Status)
	docs, err := env.store.Documents().FindByProject(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDraftCannotBeApprovedOrRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	project, err := env.svc.Projects.Create(ctx, professor, projectRequest(2, 1))
	require.NoError(t, err)

	_, err = env.svc.Projects.Approve(ctx, admin, project.ID, 1, nil)
	assert.True(t, IsKind(err, KindStateTransition))

	_, err = env.svc.Projects.Reject(ctx, admin, project.ID, "incomplete")
	assert.True(t, IsKind(err, KindStateTransition))
}

func TestApproveSetsGrantOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := env.submittedProject(t, professor, 3, 1)
	feedback := "ok"

	_, err := env.svc.Projects.Approve(ctx, professor, project.ID, 1, nil)
	assert.True(t, IsKind(err, KindForbidden))

	approved, err := env.svc.Projects.Approve(ctx, admin, project.ID, 2, &feedback)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusApproved, approved.Status)
	require.NotNil(t, approved.ScholarshipsGranted)
	assert.Equal(t, 2, *approved.ScholarshipsGranted)
	assert.Equal(t, "ok", *approved.AdminFeedback)

	_, err = env.svc.Projects.Approve(ctx, admin, project.ID, 3, nil)
	assert.True(t, IsKind(err, KindStateTransition))
	assert.Equal(t, 2, *env.project(t, project.ID).ScholarshipsGranted)
}

func TestApproveBeyondRequestLeavesProjectSubmitted(t *testing.T) {
	env := newTestEnv(t)
	project := env.submittedProject(t, professor, 3, 1)

	_, err := env.svc.Projects.Approve(context.Background(), admin, project.ID, 5, nil)

	assert.True(t, IsKind(err, KindCapacityExceeded))
	stored := env.project(t, project.ID)
	assert.Equal(t, models.ProjectStatusSubmitted, stored.Status)
	assert.Nil(t, stored.ScholarshipsGranted)
}

func TestApproveNegativeGrant(t *testing.T) {
	env := newTestEnv(t)
	project := env.submittedProject(t, professor, 3, 1)

	_, err := env.svc.Projects.Approve(context.Background(), admin, project.ID, -1, nil)
	assert.True(t, IsKind(err, KindValidation))
}

func TestRejectRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := env.submittedProject(t, professor, 1, 1)

	_, err := env.svc.Projects.Reject(ctx, admin, project.ID, "  ")
	assert.True(t, IsKind(err, KindValidation))

	rejected, err := env.svc.Projects.Reject(ctx, admin, project.ID, "out of scope")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusRejected, rejected.Status)
	assert.Nil(t, rejected.ScholarshipsGranted)

	_, err = env.svc.Projects.Approve(ctx, admin, project.ID, 1, nil)
	assert.True(t, IsKind(err, KindStateTransition))
}

func TestRequestRevisionReturnsToDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := env.submittedProject(t, professor, 1, 1)

	revised, err := env.svc.Projects.RequestRevision(ctx, admin, project.ID, "add schedule")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusDraft, revised.Status)
	assert.Equal(t, "add schedule", *revised.RevisionMessage)

	req := projectRequest(2, 1)
	req.Title = "Monitoria de Cálculo I (rev)"
	updated, err := env.svc.Projects.UpdateDraft(ctx, professor, project.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.ScholarshipsRequested)

	resubmitted, err := env.svc.Projects.Submit(ctx, professor, project.ID)
	require.NoError(t, err)
	assert.Nil(t, resubmitted.RevisionMessage)
}

func TestUpdateDraftRejectedOutsideDraft(t *testing.T) {
	env := newTestEnv(t)
	project := env.submittedProject(t, professor, 1, 1)

	_, err := env.svc.Projects.UpdateDraft(context.Background(), professor, project.ID, projectRequest(1, 1))
	assert.True(t, IsKind(err, KindStateTransition))
}

func TestAwaitAndResumeSignature(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := env.submittedProject(t, professor, 1, 1)

	parked, err := env.svc.Projects.AwaitSignature(ctx, admin, project.ID, models.RoleProfessor)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusPendingProfessorSignature, parked.Status)

	_, err = env.svc.Projects.ResumeAfterSignature(ctx, professor, project.ID)
	assert.True(t, IsKind(err, KindStateTransition))

	_, err = env.svc.Signing.Sign(ctx, professor, project.ID, models.RoleProfessor, []byte("sig"))
	require.NoError(t, err)

	resumed, err := env.svc.Projects.ResumeAfterSignature(ctx, professor, project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusSubmitted, resumed.Status)

	_, err = env.svc.Projects.AwaitSignature(ctx, admin, project.ID, models.RoleProfessor)
	assert.True(t, IsKind(err, KindConflict))
}

func TestArchiveRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft, err := env.svc.Projects.Create(ctx, professor, projectRequest(1, 1))
	require.NoError(t, err)
	submitted := env.submittedProject(t, professor, 1, 1)

	err = env.svc.Projects.Archive(ctx, professor, submitted.ID)
	assert.True(t, IsKind(err, KindStateTransition))

	require.NoError(t, env.svc.Projects.Archive(ctx, professor, draft.ID))
	require.NoError(t, env.svc.Projects.Archive(ctx, admin, submitted.ID))

	_, err = env.svc.Projects.Get(ctx, admin, draft.ID)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestListScopesByRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.approvedProject(t, 2, 1, 1)
	_, err := env.svc.Projects.Create(ctx, professor, projectRequest(1, 1))
	require.NoError(t, err)
	_, err = env.svc.Projects.Create(ctx, otherProf, projectRequest(1, 1))
	require.NoError(t, err)

	all, err := env.svc.Projects.List(ctx, admin, dto.ProjectFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.TotalCount)

	own, err := env.svc.Projects.List(ctx, professor, dto.ProjectFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, own.TotalCount)

	open, err := env.svc.Projects.List(ctx, student("s1"), dto.ProjectFilter{Status: string(models.ProjectStatusDraft)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, open.TotalCount)
	assert.Equal(t, models.ProjectStatusApproved, open.Projects[0].Status)
	assert.Equal(t, 1, open.TotalPages)
}

func TestGetAccessControl(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := env.submittedProject(t, professor, 1, 1)

	_, err := env.svc.Projects.Get(ctx, otherProf, project.ID)
	assert.True(t, IsKind(err, KindForbidden))
	_, err = env.svc.Projects.Get(ctx, student("s1"), project.ID)
	assert.True(t, IsKind(err, KindForbidden))
	_, err = env.svc.Projects.Get(ctx, admin, project.ID)
	assert.NoError(t, err)
}

func TestEveryTransitionIsAudited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := env.approvedProject(t, 2, 1, 1)

	entries, _, err := env.store.Audit().List(ctx, repositories.AuditFilter{EntityType: EntityProject, EntityID: project.ID})
	require.NoError(t, err)

	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.ElementsMatch(t, []string{ActionCreate, ActionSubmit, ActionStoreDocument, ActionApprove}, actions)
}
