package services

import (
	"context"
	"strings"
	"time"

	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/lib/metrics"
	"github.com/monitoria-simple/lib/renderer"
	"github.com/monitoria-simple/lib/storage"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/repositories"
)

// MinutesService builds, annotates and signs selection minutes
type MinutesService struct {
	store   repositories.Store
	audit   *AuditService
	archive *DocumentArchive
	log     *logger.Logger
	now     func() time.Time
}

// NewMinutesService creates a new minutes service instance
func NewMinutesService(store repositories.Store, audit *AuditService, archive *DocumentArchive, log *logger.Logger) *MinutesService {
	return &MinutesService{store: store, audit: audit, archive: archive, log: log, now: time.Now}
}

// Build snapshots the outcomes of a selection inside its transaction
func (s *MinutesService) Build(ctx context.Context, tx repositories.Store, actor models.Identity, project models.Project, periodID string, mode models.SelectionMode, outcomes []Outcome) (models.Minutes, error) {
	entries := make([]models.MinutesEntry, 0, len(outcomes))
	for _, o := range outcomes {
		var score *float64
		if o.Application.FinalScore != nil {
			v := *o.Application.FinalScore
			score = &v
		}
		entries = append(entries, models.MinutesEntry{
			Rank:          o.Rank,
			ApplicationID: o.Application.ID,
			StudentID:     o.Application.StudentID,
			Score:         score,
			Outcome:       o.Status,
		})
	}

	minutes, err := tx.Minutes().Create(ctx, models.Minutes{
		ProjectID:   project.ID,
		PeriodID:    periodID,
		Mode:        mode,
		GeneratedBy: actor.UserID,
		GeneratedAt: s.now().UTC(),
		Entries:     entries,
	})
	if err != nil {
		return models.Minutes{}, storeError(err, "minutes", project.ID)
	}
	return minutes, nil
}

func (s *MinutesService) authorize(ctx context.Context, store repositories.Store, actor models.Identity, minutes models.Minutes) (models.Project, error) {
	project, err := store.Projects().FindByID(ctx, minutes.ProjectID)
	if err != nil {
		return models.Project{}, storeError(err, "project", minutes.ProjectID)
	}
	if !canManage(actor, project) {
		return models.Project{}, ForbiddenError("you don't have permission to access these minutes")
	}
	return project, nil
}

// Get retrieves minutes by ID
func (s *MinutesService) Get(ctx context.Context, actor models.Identity, minutesID string) (models.Minutes, error) {
	minutes, err := s.store.Minutes().FindByID(ctx, minutesID)
	if err != nil {
		return models.Minutes{}, storeError(err, "minutes", minutesID)
	}
	if _, err := s.authorize(ctx, s.store, actor, minutes); err != nil {
		return models.Minutes{}, err
	}
	return minutes, nil
}

// FindByProjectPeriod retrieves the minutes of a project in a period
func (s *MinutesService) FindByProjectPeriod(ctx context.Context, actor models.Identity, projectID, periodID string) (models.Minutes, error) {
	minutes, err := s.store.Minutes().FindByProjectPeriod(ctx, projectID, periodID)
	if err != nil {
		return models.Minutes{}, storeError(err, "minutes", projectID)
	}
	if _, err := s.authorize(ctx, s.store, actor, minutes); err != nil {
		return models.Minutes{}, err
	}
	return minutes, nil
}

// Annotate edits location and notes while the minutes are unsigned
func (s *MinutesService) Annotate(ctx context.Context, actor models.Identity, minutesID, location, notes string) (models.Minutes, error) {
	var result models.Minutes
	err := s.store.WithTransaction(ctx, func(tx repositories.Store) error {
		minutes, err := tx.Minutes().FindForUpdate(ctx, minutesID)
		if err != nil {
			return storeError(err, "minutes", minutesID)
		}
		if _, err := s.authorize(ctx, tx, actor, minutes); err != nil {
			return err
		}
		if minutes.Signed {
			return ConflictError("minutes %s are signed and can no longer be edited", minutesID)
		}
		minutes.Location = strings.TrimSpace(location)
		minutes.Notes = strings.TrimSpace(notes)
		if err := tx.Minutes().Update(ctx, minutes); err != nil {
			return storeError(err, "minutes", minutesID)
		}
		result = minutes
		return s.audit.Record(ctx, tx, actor.UserID, ActionAnnotateMinutes, EntityMinutes, minutesID, nil)
	})
	if err != nil {
		return models.Minutes{}, err
	}
	return result, nil
}

// Sign freezes the minutes and stores the rendered artefact. The signed flag
// is re-checked under the row lock.
func (s *MinutesService) Sign(ctx context.Context, actor models.Identity, minutesID string) (models.Minutes, error) {
	minutes, err := s.store.Minutes().FindByID(ctx, minutesID)
	if err != nil {
		return models.Minutes{}, storeError(err, "minutes", minutesID)
	}
	project, err := s.authorize(ctx, s.store, actor, minutes)
	if err != nil {
		return models.Minutes{}, err
	}
	if minutes.Signed {
		return models.Minutes{}, ConflictError("minutes %s are already signed", minutesID)
	}

	signedAt := s.now().UTC()
	data, err := s.archive.Renderer().RenderMinutes(renderer.MinutesDocument{
		Minutes:      minutes,
		ProjectTitle: project.Title,
		SignerID:     actor.UserID,
		SignedAt:     signedAt,
	})
	if err != nil {
		return models.Minutes{}, InternalError(err, "failed to render minutes")
	}
	ref, checksum, err := s.archive.Put(ctx, data, storage.Metadata{
		ProjectID:   minutes.ProjectID,
		Kind:        string(models.DocumentSelectionMinutes),
		ContentType: "text/plain",
	})
	if err != nil {
		return models.Minutes{}, err
	}

	var result models.Minutes
	err = s.store.WithTransaction(ctx, func(tx repositories.Store) error {
		locked, err := tx.Minutes().FindForUpdate(ctx, minutesID)
		if err != nil {
			return storeError(err, "minutes", minutesID)
		}
		if locked.Signed {
			return ConflictError("minutes %s are already signed", minutesID)
		}
		if locked.Location != minutes.Location || locked.Notes != minutes.Notes {
			return ConflictError("minutes %s changed while signing, retry", minutesID)
		}

		signer := actor.UserID
		doc, err := tx.Documents().Create(ctx, models.SignedDocument{
			ProjectID:  locked.ProjectID,
			Kind:       models.DocumentSelectionMinutes,
			SignerID:   &signer,
			StorageRef: ref,
			Checksum:   checksum,
		})
		if err != nil {
			return storeError(err, "document", "")
		}

		locked.Signed = true
		locked.SignedAt = &signedAt
		locked.SignerID = &signer
		locked.DocumentID = &doc.ID
		if err := tx.Minutes().Update(ctx, locked); err != nil {
			return storeError(err, "minutes", minutesID)
		}
		result = locked
		return s.audit.Record(ctx, tx, actor.UserID, ActionSignMinutes, EntityMinutes, minutesID, map[string]interface{}{
			"documentId": doc.ID,
			"projectId":  locked.ProjectID,
			"periodId":   locked.PeriodID,
		})
	})
	if err != nil {
		return models.Minutes{}, err
	}

	metrics.RecordSignature(string(models.DocumentSelectionMinutes))
	s.log.FromContext(ctx).
		WithField("minutes_id", minutesID).
		WithField("project_id", result.ProjectID).
		Info("minutes signed")
	return result, nil
}
