package services

import (
	"context"
	"errors"
	"time"

	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/lib/notifier"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/repositories"
)

// Dispatcher delivers one notification with retries
type Dispatcher interface {
	Dispatch(ctx context.Context, msg notifier.Message) notifier.Result
}

// ResultsService publishes selection results and fans out notifications
type ResultsService struct {
	store      repositories.Store
	audit      *AuditService
	dispatcher Dispatcher
	log        *logger.Logger
	now        func() time.Time
}

// NewResultsService creates a new results service instance
func NewResultsService(store repositories.Store, audit *AuditService, dispatcher Dispatcher, log *logger.Logger) *ResultsService {
	return &ResultsService{store: store, audit: audit, dispatcher: dispatcher, log: log, now: time.Now}
}

// Publish marks the applications of signed minutes as published and, when
// notify is set, queues one notification per application. Delivery happens
// after commit; a failed delivery never undoes the publish. Calling Publish
// again only retries deliveries that are not SENT yet.
func (s *ResultsService) Publish(ctx context.Context, actor models.Identity, projectID, periodID string, notify bool) (dto.PublishSummary, error) {
	summary := dto.PublishSummary{ProjectID: projectID, PeriodID: periodID}

	err := s.store.WithTransaction(ctx, func(tx repositories.Store) error {
		project, err := tx.Projects().FindForUpdate(ctx, projectID)
		if err != nil {
			return storeError(err, "project", projectID)
		}
		if !canManage(actor, project) {
			return ForbiddenError("you don't have permission to publish results for this project")
		}

		minutes, err := tx.Minutes().FindByProjectPeriod(ctx, projectID, periodID)
		if errors.Is(err, repositories.ErrNotFound) {
			return StateTransitionError("project %s has no minutes for period %s", projectID, periodID)
		}
		if err != nil {
			return storeError(err, "minutes", projectID)
		}
		if !minutes.Signed {
			return StateTransitionError("minutes %s must be signed before publishing", minutes.ID)
		}

		existing := map[string]bool{}
		if notify {
			deliveries, err := tx.Notifications().FindByProjectPeriod(ctx, projectID, periodID)
			if err != nil {
				return storeError(err, "notification", projectID)
			}
			for _, d := range deliveries {
				existing[d.IdempotencyKey] = true
			}
		}

		publishedAt := s.now().UTC()
		for _, entry := range minutes.Entries {
			application, err := tx.Applications().FindByID(ctx, entry.ApplicationID)
			if err != nil {
				return storeError(err, "application", entry.ApplicationID)
			}
			if !application.Published {
				application.Published = true
				application.PublishedAt = &publishedAt
				if err := tx.Applications().Update(ctx, application); err != nil {
					return storeError(err, "application", application.ID)
				}
				summary.Published++
			}

			key := models.IdempotencyKeyFor(application.ID, models.EventSelectionResult)
			if !notify || existing[key] {
				continue
			}
			if _, err := tx.Notifications().Create(ctx, models.NotificationDelivery{
				IdempotencyKey: key,
				ApplicationID:  application.ID,
				ProjectID:      projectID,
				PeriodID:       periodID,
				Recipient:      application.StudentID,
				TemplateID:     models.EventSelectionResult,
				Status:         models.DeliveryPending,
			}); err != nil {
				return storeError(err, "notification", key)
			}
			summary.Created++
		}

		if summary.Published == 0 && summary.Created == 0 {
			return nil
		}
		return s.audit.Record(ctx, tx, actor.UserID, ActionPublish, EntityProject, projectID, map[string]interface{}{
			"periodId":  periodID,
			"minutesId": minutes.ID,
			"published": summary.Published,
			"queued":    summary.Created,
		})
	})
	if err != nil {
		return dto.PublishSummary{}, err
	}

	s.log.FromContext(ctx).
		WithField("project_id", projectID).
		WithField("period_id", periodID).
		WithField("published", summary.Published).
		WithField("queued", summary.Created).
		Info("results published")

	s.deliver(ctx, projectID, periodID, &summary)
	return summary, nil
}

// deliver sends every outstanding delivery of the publish. Delivery state
// changes are written one row at a time, outside the publish transaction.
func (s *ResultsService) deliver(ctx context.Context, projectID, periodID string, summary *dto.PublishSummary) {
	entry := s.log.FromContext(ctx).WithField("project_id", projectID).WithField("period_id", periodID)

	deliveries, err := s.store.Notifications().FindByProjectPeriod(ctx, projectID, periodID)
	if err != nil {
		entry.WithError(err).Error("failed to load notification outbox")
		return
	}
	minutes, err := s.store.Minutes().FindByProjectPeriod(ctx, projectID, periodID)
	if err != nil {
		entry.WithError(err).Error("failed to load minutes for notifications")
		return
	}
	outcomes := make(map[string]models.MinutesEntry, len(minutes.Entries))
	for _, e := range minutes.Entries {
		outcomes[e.ApplicationID] = e
	}

	for _, delivery := range deliveries {
		if delivery.Status == models.DeliverySent {
			summary.Skipped++
			continue
		}

		data := map[string]interface{}{
			"projectId":     projectID,
			"periodId":      periodID,
			"applicationId": delivery.ApplicationID,
		}
		if e, ok := outcomes[delivery.ApplicationID]; ok {
			data["outcome"] = e.Outcome
			data["rank"] = e.Rank
			if e.Score != nil {
				data["score"] = *e.Score
			}
		}

		result := s.dispatcher.Dispatch(ctx, notifier.Message{
			TemplateID:     delivery.TemplateID,
			Recipient:      delivery.Recipient,
			Data:           data,
			IdempotencyKey: delivery.IdempotencyKey,
		})

		delivery.Attempts += result.Attempts
		if result.Err != nil {
			delivery.Status = models.DeliveryFailed
			delivery.LastError = result.Err.Error()
			summary.Failed++
			entry.WithField("idempotency_key", delivery.IdempotencyKey).
				WithError(result.Err).
				Warn("notification delivery failed, will retry on next publish")
		} else {
			sentAt := s.now().UTC()
			delivery.Status = models.DeliverySent
			delivery.LastError = ""
			delivery.SentAt = &sentAt
			summary.Sent++
		}

		if err := s.store.Notifications().Update(ctx, delivery); err != nil {
			entry.WithField("idempotency_key", delivery.IdempotencyKey).
				WithError(err).
				Error("failed to record notification outcome")
		}
	}
}

// Deliveries lists the notification outbox of a publish
func (s *ResultsService) Deliveries(ctx context.Context, actor models.Identity, projectID, periodID string) ([]models.NotificationDelivery, error) {
	project, err := s.store.Projects().FindByID(ctx, projectID)
	if err != nil {
		return nil, storeError(err, "project", projectID)
	}
	if !canManage(actor, project) {
		return nil, ForbiddenError("you don't have permission to access this project")
	}
	deliveries, err := s.store.Notifications().FindByProjectPeriod(ctx, projectID, periodID)
	if err != nil {
		return nil, storeError(err, "notification", projectID)
	}
	return deliveries, nil
}
