package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/lib/notifier"
	"github.com/monitoria-simple/lib/renderer"
	"github.com/monitoria-simple/lib/storage"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/repositories/memory"
	"github.com/stretchr/testify/require"
)

var (
	admin     = models.Identity{UserID: "admin-1", Role: models.RoleAdmin}
	professor = models.Identity{UserID: "prof-1", Role: models.RoleProfessor}
	otherProf = models.Identity{UserID: "prof-2", Role: models.RoleProfessor}
)

func student(id string) models.Identity {
	return models.Identity{UserID: id, Role: models.RoleStudent}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeDocuments is an in-memory document store that can fail the first puts
type fakeDocuments struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failures int
	puts     int
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{objects: map[string][]byte{}}
}

func (f *fakeDocuments) Put(ctx context.Context, data []byte, meta storage.Metadata) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.failures > 0 {
		f.failures--
		return "", errors.New("store unavailable")
	}
	ref := fmt.Sprintf("%s/%s-%d", meta.ProjectID, meta.Kind, f.puts)
	f.objects[ref] = append([]byte(nil), data...)
	return ref, nil
}

func (f *fakeDocuments) Get(ctx context.Context, ref string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[ref]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (f *fakeDocuments) PresignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	return "https://docs.test/" + ref, nil
}

// flakyNotifier fails the first failuresPerKey sends of every key
type flakyNotifier struct {
	mu             sync.Mutex
	failuresPerKey int
	attempts       map[string]int
	delivered      map[string]int
}

func newFlakyNotifier(failuresPerKey int) *flakyNotifier {
	return &flakyNotifier{
		failuresPerKey: failuresPerKey,
		attempts:       map[string]int{},
		delivered:      map[string]int{},
	}
}

func (n *flakyNotifier) Send(ctx context.Context, msg notifier.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attempts[msg.IdempotencyKey]++
	if n.attempts[msg.IdempotencyKey] <= n.failuresPerKey {
		return errors.New("notifier unavailable")
	}
	n.delivered[msg.IdempotencyKey]++
	return nil
}

type testEnv struct {
	store     *memory.Store
	svc       *Services
	clock     *testClock
	documents *fakeDocuments
	notifier  *flakyNotifier
}

func newTestEnvWith(t *testing.T, n *flakyNotifier, maxAttempts uint) *testEnv {
	t.Helper()

	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	store.SetClock(clock.Now)

	log := logger.Discard()
	documents := newFakeDocuments()
	archive := NewDocumentArchive(renderer.NewTextRenderer(), documents, RetryConfig{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}, log)
	dispatcher := notifier.NewDispatcher(n, notifier.DispatcherConfig{
		MaxAttempts:     maxAttempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		AttemptTimeout:  time.Second,
	}, log)

	svc := New(store, archive, dispatcher, NewAuthService("test-secret", time.Hour), log)
	svc.Audit.now = clock.Now
	svc.Periods.now = clock.Now
	svc.Signing.now = clock.Now
	svc.Applications.now = clock.Now
	svc.Selection.now = clock.Now
	svc.Minutes.now = clock.Now
	svc.Results.now = clock.Now
	svc.Auth.now = clock.Now

	return &testEnv{store: store, svc: svc, clock: clock, documents: documents, notifier: n}
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, newFlakyNotifier(0), 3)
}

func (e *testEnv) createPeriod(t *testing.T, pool int) models.EnrollmentPeriod {
	t.Helper()
	now := e.clock.Now()
	period, err := e.svc.Periods.Create(context.Background(), admin, dto.PeriodRequest{
		Year:            2024,
		Term:            string(models.TermFirst),
		StartsAt:        now.Add(-24 * time.Hour),
		EndsAt:          now.Add(30 * 24 * time.Hour),
		EditalNumber:    "01/2024",
		ScholarshipPool: pool,
	})
	require.NoError(t, err)
	return period
}

func projectRequest(requested, volunteers int) dto.ProjectRequest {
	return dto.ProjectRequest{
		Title:                 "Monitoria de Cálculo I",
		DepartmentID:          "dept-mat",
		Year:                  2024,
		Term:                  string(models.TermFirst),
		ProposalType:          string(models.ProposalIndividual),
		ScholarshipsRequested: requested,
		VolunteersRequested:   volunteers,
	}
}

func (e *testEnv) submittedProject(t *testing.T, owner models.Identity, requested, volunteers int) models.Project {
	t.Helper()
	ctx := context.Background()
	project, err := e.svc.Projects.Create(ctx, owner, projectRequest(requested, volunteers))
	require.NoError(t, err)
	project, err = e.svc.Projects.Submit(ctx, owner, project.ID)
	require.NoError(t, err)
	return project
}

func (e *testEnv) approvedProject(t *testing.T, requested, volunteers, granted int) models.Project {
	t.Helper()
	project := e.submittedProject(t, professor, requested, volunteers)
	project, err := e.svc.Projects.Approve(context.Background(), admin, project.ID, granted, nil)
	require.NoError(t, err)
	return project
}

// applyScored files an application and evaluates it so its final score
// equals score
func (e *testEnv) applyScored(t *testing.T, studentID string, project models.Project, period models.EnrollmentPeriod, slot models.SlotType, score float64) models.Application {
	t.Helper()
	ctx := context.Background()
	application, err := e.svc.Applications.Apply(ctx, student(studentID), project.ID, period.ID, slot)
	require.NoError(t, err)
	e.clock.Advance(time.Minute)

	application, err = e.svc.Selection.Evaluate(ctx, professor, application.ID, score, score, score)
	require.NoError(t, err)
	return application
}

func (e *testEnv) application(t *testing.T, id string) models.Application {
	t.Helper()
	application, err := e.store.Applications().FindByID(context.Background(), id)
	require.NoError(t, err)
	return application
}

func (e *testEnv) project(t *testing.T, id string) models.Project {
	t.Helper()
	project, err := e.store.Projects().FindByID(context.Background(), id)
	require.NoError(t, err)
	return project
}
