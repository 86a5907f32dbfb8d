// Package memory is an in-process implementation of repositories.Store.
//
// A transaction holds the store mutex for its whole duration and works on
// the live maps; the state is snapshotted on begin and restored if the
// callback fails. That gives serialisable semantics, which is all the
// service layer assumes of the postgres row locks.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/repositories"
)

type state struct {
	projects      map[string]models.Project
	periods       map[string]models.EnrollmentPeriod
	applications  map[string]models.Application
	rounds        map[string]models.SelectionRound
	minutes       map[string]models.Minutes
	documents     map[string]models.SignedDocument
	documentOrder []string
	audit         []models.AuditEntry
	notifications map[string]models.NotificationDelivery
}

func newState() *state {
	return &state{
		projects:      map[string]models.Project{},
		periods:       map[string]models.EnrollmentPeriod{},
		applications:  map[string]models.Application{},
		rounds:        map[string]models.SelectionRound{},
		minutes:       map[string]models.Minutes{},
		documents:     map[string]models.SignedDocument{},
		notifications: map[string]models.NotificationDelivery{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.projects {
		c.projects[k] = v
	}
	for k, v := range s.periods {
		c.periods[k] = v
	}
	for k, v := range s.applications {
		c.applications[k] = v
	}
	for k, v := range s.rounds {
		c.rounds[k] = v
	}
	for k, v := range s.minutes {
		v.Entries = append([]models.MinutesEntry(nil), v.Entries...)
		c.minutes[k] = v
	}
	for k, v := range s.documents {
		c.documents[k] = v
	}
	c.documentOrder = append([]string(nil), s.documentOrder...)
	c.audit = append([]models.AuditEntry(nil), s.audit...)
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	return c
}

type shared struct {
	mu    sync.Mutex
	data  *state
	clock func() time.Time
}

// Store is the in-memory repositories.Store
type Store struct {
	sh   *shared
	inTx bool
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{sh: &shared{data: newState(), clock: time.Now}}
}

// SetClock overrides the clock used for created/updated timestamps
func (s *Store) SetClock(clock func() time.Time) {
	s.sh.clock = clock
}

// run executes fn with exclusive access to the state
func (s *Store) run(fn func(d *state) error) error {
	if s.inTx {
		return fn(s.sh.data)
	}
	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()
	return fn(s.sh.data)
}

func (s *Store) now() time.Time {
	return s.sh.clock()
}

// WithTransaction runs fn under the store lock, rolling back on error
func (s *Store) WithTransaction(ctx context.Context, fn func(tx repositories.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.sh.data.clone()
	tx := &Store{sh: s.sh, inTx: true}
	if err := fn(tx); err != nil {
		s.sh.data = snapshot
		return err
	}
	return nil
}

func (s *Store) Projects() repositories.ProjectRepository           { return projectRepo{s} }
func (s *Store) Periods() repositories.PeriodRepository             { return periodRepo{s} }
func (s *Store) Applications() repositories.ApplicationRepository   { return applicationRepo{s} }
func (s *Store) Selections() repositories.SelectionRepository       { return selectionRepo{s} }
func (s *Store) Minutes() repositories.MinutesRepository            { return minutesRepo{s} }
func (s *Store) Documents() repositories.DocumentRepository         { return documentRepo{s} }
func (s *Store) Audit() repositories.AuditRepository                { return auditRepo{s} }
func (s *Store) Notifications() repositories.NotificationRepository { return notificationRepo{s} }

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func paginate[T any](items []T, page, pageSize int) []T {
	page, pageSize = repositories.NormalizePage(page, pageSize)
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type projectRepo struct{ s *Store }

func (r projectRepo) FindByID(ctx context.Context, id string) (models.Project, error) {
	var out models.Project
	err := r.s.run(func(d *state) error {
		p, ok := d.projects[id]
		if !ok || p.DeletedAt.Valid {
			return repositories.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r projectRepo) FindForUpdate(ctx context.Context, id string) (models.Project, error) {
	return r.FindByID(ctx, id)
}

func (r projectRepo) FindWithPagination(ctx context.Context, filter repositories.ProjectFilter) ([]models.Project, int64, error) {
	var out []models.Project
	var total int64
	err := r.s.run(func(d *state) error {
		var matched []models.Project
		search := strings.ToLower(filter.Search)
		for _, p := range d.projects {
			if p.DeletedAt.Valid {
				continue
			}
			if filter.ProfessorID != "" && p.ProfessorID != filter.ProfessorID {
				continue
			}
			if filter.Status != "" && p.Status != filter.Status {
				continue
			}
			if filter.Year != 0 && p.Year != filter.Year {
				continue
			}
			if filter.Term != "" && p.Term != filter.Term {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(p.Title), search) &&
				!strings.Contains(strings.ToLower(p.Description), search) {
				continue
			}
			matched = append(matched, p)
		}
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].ID < matched[j].ID
		})
		total = int64(len(matched))
		out = paginate(matched, filter.Page, filter.PageSize)
		return nil
	})
	return out, total, err
}

func (r projectRepo) Create(ctx context.Context, project models.Project) (models.Project, error) {
	err := r.s.run(func(d *state) error {
		project.ID = newID(project.ID)
		if _, exists := d.projects[project.ID]; exists {
			return repositories.ErrDuplicate
		}
		now := r.s.now()
		project.CreatedAt, project.UpdatedAt = now, now
		d.projects[project.ID] = project
		return nil
	})
	return project, err
}

func (r projectRepo) Update(ctx context.Context, project models.Project) error {
	return r.s.run(func(d *state) error {
		if _, ok := d.projects[project.ID]; !ok {
			return repositories.ErrNotFound
		}
		project.UpdatedAt = r.s.now()
		d.projects[project.ID] = project
		return nil
	})
}

func (r projectRepo) Delete(ctx context.Context, id string) error {
	return r.s.run(func(d *state) error {
		p, ok := d.projects[id]
		if !ok || p.DeletedAt.Valid {
			return repositories.ErrNotFound
		}
		p.DeletedAt.Time = r.s.now()
		p.DeletedAt.Valid = true
		d.projects[id] = p
		return nil
	})
}

func (r projectRepo) SumGranted(ctx context.Context, year int, term models.Term, excludeID string) (int, error) {
	total := 0
	err := r.s.run(func(d *state) error {
		for _, p := range d.projects {
			if p.DeletedAt.Valid || p.ID == excludeID || p.Year != year || p.Term != term ||
				p.Status != models.ProjectStatusApproved {
				continue
			}
			total += p.Granted()
		}
		return nil
	})
	return total, err
}

func (r projectRepo) GrantedByDepartment(ctx context.Context, year int, term models.Term) ([]repositories.DepartmentAllocation, error) {
	var out []repositories.DepartmentAllocation
	err := r.s.run(func(d *state) error {
		byDept := map[string]*repositories.DepartmentAllocation{}
		for _, p := range d.projects {
			if p.DeletedAt.Valid || p.Year != year || p.Term != term || p.Status != models.ProjectStatusApproved {
				continue
			}
			row, ok := byDept[p.DepartmentID]
			if !ok {
				row = &repositories.DepartmentAllocation{DepartmentID: p.DepartmentID}
				byDept[p.DepartmentID] = row
			}
			row.Projects++
			row.Granted += p.Granted()
		}
		for _, row := range byDept {
			out = append(out, *row)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].DepartmentID < out[j].DepartmentID })
		return nil
	})
	return out, err
}

type periodRepo struct{ s *Store }

func (r periodRepo) FindByID(ctx context.Context, id string) (models.EnrollmentPeriod, error) {
	var out models.EnrollmentPeriod
	err := r.s.run(func(d *state) error {
		p, ok := d.periods[id]
		if !ok {
			return repositories.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r periodRepo) FindForUpdate(ctx context.Context, id string) (models.EnrollmentPeriod, error) {
	return r.FindByID(ctx, id)
}

func (r periodRepo) FindByYearTerm(ctx context.Context, year int, term models.Term) (models.EnrollmentPeriod, error) {
	var out models.EnrollmentPeriod
	err := r.s.run(func(d *state) error {
		for _, p := range d.periods {
			if p.Year == year && p.Term == term {
				out = p
				return nil
			}
		}
		return repositories.ErrNotFound
	})
	return out, err
}

func (r periodRepo) FindOpenAt(ctx context.Context, at time.Time) ([]models.EnrollmentPeriod, error) {
	var out []models.EnrollmentPeriod
	err := r.s.run(func(d *state) error {
		for _, p := range d.periods {
			if p.IsOpen(at) {
				out = append(out, p)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
		return nil
	})
	return out, err
}

func (r periodRepo) List(ctx context.Context) ([]models.EnrollmentPeriod, error) {
	var out []models.EnrollmentPeriod
	err := r.s.run(func(d *state) error {
		for _, p := range d.periods {
			out = append(out, p)
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Year != out[j].Year {
				return out[i].Year > out[j].Year
			}
			return out[i].Term > out[j].Term
		})
		return nil
	})
	return out, err
}

func (r periodRepo) Create(ctx context.Context, period models.EnrollmentPeriod) (models.EnrollmentPeriod, error) {
	err := r.s.run(func(d *state) error {
		for _, p := range d.periods {
			if p.Year == period.Year && p.Term == period.Term {
				return repositories.ErrDuplicate
			}
		}
		period.ID = newID(period.ID)
		now := r.s.now()
		period.CreatedAt, period.UpdatedAt = now, now
		d.periods[period.ID] = period
		return nil
	})
	return period, err
}

func (r periodRepo) Update(ctx context.Context, period models.EnrollmentPeriod) error {
	return r.s.run(func(d *state) error {
		if _, ok := d.periods[period.ID]; !ok {
			return repositories.ErrNotFound
		}
		for _, p := range d.periods {
			if p.ID != period.ID && p.Year == period.Year && p.Term == period.Term {
				return repositories.ErrDuplicate
			}
		}
		period.UpdatedAt = r.s.now()
		d.periods[period.ID] = period
		return nil
	})
}

type applicationRepo struct{ s *Store }

func sortApplications(apps []models.Application) {
	sort.Slice(apps, func(i, j int) bool {
		if !apps[i].SubmittedAt.Equal(apps[j].SubmittedAt) {
			return apps[i].SubmittedAt.Before(apps[j].SubmittedAt)
		}
		return apps[i].StudentID < apps[j].StudentID
	})
}

func (r applicationRepo) filter(match func(models.Application) bool) ([]models.Application, error) {
	var out []models.Application
	err := r.s.run(func(d *state) error {
		for _, a := range d.applications {
			if match(a) {
				out = append(out, a)
			}
		}
		sortApplications(out)
		return nil
	})
	return out, err
}

func (r applicationRepo) FindByID(ctx context.Context, id string) (models.Application, error) {
	var out models.Application
	err := r.s.run(func(d *state) error {
		a, ok := d.applications[id]
		if !ok {
			return repositories.ErrNotFound
		}
		out = a
		return nil
	})
	return out, err
}

func (r applicationRepo) FindByProjectPeriod(ctx context.Context, projectID, periodID string) ([]models.Application, error) {
	return r.filter(func(a models.Application) bool {
		return a.ProjectID == projectID && a.PeriodID == periodID
	})
}

func (r applicationRepo) FindByProject(ctx context.Context, projectID string) ([]models.Application, error) {
	return r.filter(func(a models.Application) bool { return a.ProjectID == projectID })
}

func (r applicationRepo) FindByStudent(ctx context.Context, studentID string) ([]models.Application, error) {
	out, err := r.filter(func(a models.Application) bool { return a.StudentID == studentID })
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, err
}

func (r applicationRepo) Exists(ctx context.Context, projectID, studentID, periodID string) (bool, error) {
	found, err := r.filter(func(a models.Application) bool {
		return a.ProjectID == projectID && a.StudentID == studentID && a.PeriodID == periodID
	})
	return len(found) > 0, err
}

func (r applicationRepo) CountConfirmedSlot(ctx context.Context, studentID, periodID string, slot models.SlotType) (int64, error) {
	found, err := r.filter(func(a models.Application) bool {
		return a.StudentID == studentID && a.PeriodID == periodID && a.Status == models.ApplicationConfirmed &&
			a.AssignedSlot != nil && *a.AssignedSlot == slot
	})
	return int64(len(found)), err
}

func (r applicationRepo) Create(ctx context.Context, application models.Application) (models.Application, error) {
	err := r.s.run(func(d *state) error {
		for _, a := range d.applications {
			if a.ProjectID == application.ProjectID && a.StudentID == application.StudentID &&
				a.PeriodID == application.PeriodID {
				return repositories.ErrDuplicate
			}
		}
		application.ID = newID(application.ID)
		application.UpdatedAt = r.s.now()
		d.applications[application.ID] = application
		return nil
	})
	return application, err
}

func (r applicationRepo) Update(ctx context.Context, application models.Application) error {
	return r.s.run(func(d *state) error {
		if _, ok := d.applications[application.ID]; !ok {
			return repositories.ErrNotFound
		}
		application.UpdatedAt = r.s.now()
		d.applications[application.ID] = application
		return nil
	})
}

type selectionRepo struct{ s *Store }

func roundKey(projectID, periodID string) string {
	return projectID + "/" + periodID
}

func (r selectionRepo) FindRound(ctx context.Context, projectID, periodID string) (models.SelectionRound, error) {
	var out models.SelectionRound
	err := r.s.run(func(d *state) error {
		round, ok := d.rounds[roundKey(projectID, periodID)]
		if !ok {
			return repositories.ErrNotFound
		}
		out = round
		return nil
	})
	return out, err
}

func (r selectionRepo) CreateRound(ctx context.Context, round models.SelectionRound) (models.SelectionRound, error) {
	err := r.s.run(func(d *state) error {
		key := roundKey(round.ProjectID, round.PeriodID)
		if _, exists := d.rounds[key]; exists {
			return repositories.ErrDuplicate
		}
		round.ID = newID(round.ID)
		d.rounds[key] = round
		return nil
	})
	return round, err
}

type minutesRepo struct{ s *Store }

func (r minutesRepo) FindByID(ctx context.Context, id string) (models.Minutes, error) {
	var out models.Minutes
	err := r.s.run(func(d *state) error {
		m, ok := d.minutes[id]
		if !ok {
			return repositories.ErrNotFound
		}
		m.Entries = append([]models.MinutesEntry(nil), m.Entries...)
		out = m
		return nil
	})
	return out, err
}

func (r minutesRepo) FindForUpdate(ctx context.Context, id string) (models.Minutes, error) {
	return r.FindByID(ctx, id)
}

func (r minutesRepo) FindByProjectPeriod(ctx context.Context, projectID, periodID string) (models.Minutes, error) {
	var out models.Minutes
	err := r.s.run(func(d *state) error {
		for _, m := range d.minutes {
			if m.ProjectID == projectID && m.PeriodID == periodID {
				m.Entries = append([]models.MinutesEntry(nil), m.Entries...)
				out = m
				return nil
			}
		}
		return repositories.ErrNotFound
	})
	return out, err
}

func (r minutesRepo) Create(ctx context.Context, minutes models.Minutes) (models.Minutes, error) {
	err := r.s.run(func(d *state) error {
		for _, m := range d.minutes {
			if m.ProjectID == minutes.ProjectID && m.PeriodID == minutes.PeriodID {
				return repositories.ErrDuplicate
			}
		}
		minutes.ID = newID(minutes.ID)
		entries := append([]models.MinutesEntry(nil), minutes.Entries...)
		for i := range entries {
			entries[i].ID = newID(entries[i].ID)
			entries[i].MinutesID = minutes.ID
		}
		minutes.Entries = entries
		stored := minutes
		stored.Entries = append([]models.MinutesEntry(nil), entries...)
		d.minutes[minutes.ID] = stored
		return nil
	})
	return minutes, err
}

func (r minutesRepo) Update(ctx context.Context, minutes models.Minutes) error {
	return r.s.run(func(d *state) error {
		current, ok := d.minutes[minutes.ID]
		if !ok {
			return repositories.ErrNotFound
		}
		minutes.Entries = current.Entries
		d.minutes[minutes.ID] = minutes
		return nil
	})
}

type documentRepo struct{ s *Store }

func (r documentRepo) Create(ctx context.Context, doc models.SignedDocument) (models.SignedDocument, error) {
	err := r.s.run(func(d *state) error {
		doc.ID = newID(doc.ID)
		doc.CreatedAt = r.s.now()
		if _, exists := d.documents[doc.ID]; !exists {
			d.documentOrder = append(d.documentOrder, doc.ID)
		}
		d.documents[doc.ID] = doc
		return nil
	})
	return doc, err
}

func (r documentRepo) FindByID(ctx context.Context, id string) (models.SignedDocument, error) {
	var out models.SignedDocument
	err := r.s.run(func(d *state) error {
		doc, ok := d.documents[id]
		if !ok {
			return repositories.ErrNotFound
		}
		out = doc
		return nil
	})
	return out, err
}

func (r documentRepo) FindByProject(ctx context.Context, projectID string) ([]models.SignedDocument, error) {
	var out []models.SignedDocument
	err := r.s.run(func(d *state) error {
		for _, id := range d.documentOrder {
			if doc := d.documents[id]; doc.ProjectID == projectID {
				out = append(out, doc)
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
		return nil
	})
	return out, err
}

type auditRepo struct{ s *Store }

func (r auditRepo) Append(ctx context.Context, entry models.AuditEntry) (models.AuditEntry, error) {
	err := r.s.run(func(d *state) error {
		entry.ID = newID(entry.ID)
		if entry.Timestamp.IsZero() {
			entry.Timestamp = r.s.now()
		}
		d.audit = append(d.audit, entry)
		return nil
	})
	return entry, err
}

func (r auditRepo) List(ctx context.Context, filter repositories.AuditFilter) ([]models.AuditEntry, int64, error) {
	var out []models.AuditEntry
	var total int64
	err := r.s.run(func(d *state) error {
		var matched []models.AuditEntry
		for i := len(d.audit) - 1; i >= 0; i-- {
			e := d.audit[i]
			if filter.EntityType != "" && e.EntityType != filter.EntityType {
				continue
			}
			if filter.EntityID != "" && e.EntityID != filter.EntityID {
				continue
			}
			if filter.ActorID != "" && e.ActorID != filter.ActorID {
				continue
			}
			matched = append(matched, e)
		}
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
		total = int64(len(matched))
		out = paginate(matched, filter.Page, filter.PageSize)
		return nil
	})
	return out, total, err
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) FindByProjectPeriod(ctx context.Context, projectID, periodID string) ([]models.NotificationDelivery, error) {
	var out []models.NotificationDelivery
	err := r.s.run(func(d *state) error {
		for _, n := range d.notifications {
			if n.ProjectID == projectID && n.PeriodID == periodID {
				out = append(out, n)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ApplicationID < out[j].ApplicationID })
		return nil
	})
	return out, err
}

func (r notificationRepo) Create(ctx context.Context, delivery models.NotificationDelivery) (models.NotificationDelivery, error) {
	err := r.s.run(func(d *state) error {
		for _, n := range d.notifications {
			if n.IdempotencyKey == delivery.IdempotencyKey {
				return repositories.ErrDuplicate
			}
		}
		delivery.ID = newID(delivery.ID)
		now := r.s.now()
		delivery.CreatedAt, delivery.UpdatedAt = now, now
		d.notifications[delivery.ID] = delivery
		return nil
	})
	return delivery, err
}

func (r notificationRepo) Update(ctx context.Context, delivery models.NotificationDelivery) error {
	return r.s.run(func(d *state) error {
		if _, ok := d.notifications[delivery.ID]; !ok {
			return repositories.ErrNotFound
		}
		delivery.UpdatedAt = r.s.now()
		d.notifications[delivery.ID] = delivery
		return nil
	})
}
