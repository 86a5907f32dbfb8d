package services

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/lib/metrics"
	"github.com/monitoria-simple/lib/renderer"
	"github.com/monitoria-simple/lib/storage"
)

// RetryConfig bounds retries against external collaborators
type RetryConfig struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the production retry bounds
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     4,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// DocumentArchive renders artefacts and writes them to the document store
type DocumentArchive struct {
	renderer renderer.Renderer
	store    storage.Store
	retry    RetryConfig
	log      *logger.Logger
}

// NewDocumentArchive creates a document archive over the given collaborators
func NewDocumentArchive(r renderer.Renderer, store storage.Store, retry RetryConfig, log *logger.Logger) *DocumentArchive {
	if retry.MaxAttempts == 0 {
		retry.MaxAttempts = 1
	}
	return &DocumentArchive{renderer: r, store: store, retry: retry, log: log}
}

// Put stores data with bounded exponential backoff and returns the
// reference and checksum
func (a *DocumentArchive) Put(ctx context.Context, data []byte, meta storage.Metadata) (string, string, error) {
	b := backoff.NewExponentialBackOff()
	if a.retry.InitialInterval > 0 {
		b.InitialInterval = a.retry.InitialInterval
	}
	if a.retry.MaxInterval > 0 {
		b.MaxInterval = a.retry.MaxInterval
	}

	ref, err := backoff.Retry(ctx, func() (string, error) {
		return a.store.Put(ctx, data, meta)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(a.retry.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.RecordRetry("document_store")
			a.log.FromContext(ctx).
				WithField("project_id", meta.ProjectID).
				WithField("kind", meta.Kind).
				WithError(err).
				Warn("document store put failed, retrying")
		}),
	)
	if err != nil {
		return "", "", InternalError(err, "failed to store document")
	}
	return ref, storage.Checksum(data), nil
}

// URL returns a presigned download URL for ref
func (a *DocumentArchive) URL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	url, err := a.store.PresignedURL(ctx, ref, ttl)
	if err != nil {
		return "", InternalError(err, "failed to presign document")
	}
	return url, nil
}

// Renderer exposes the configured renderer
func (a *DocumentArchive) Renderer() renderer.Renderer {
	return a.renderer
}
