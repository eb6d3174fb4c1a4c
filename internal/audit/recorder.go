package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/consentry/consentry/internal/idgen"
	"github.com/consentry/consentry/internal/metrics"
	"github.com/consentry/consentry/internal/retry"
)

// Recorder writes audit entries asynchronously. Record returns immediately;
// the write happens on a background goroutine with bounded retries.
type Recorder struct {
	store  Store
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewRecorder creates a new async audit recorder.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record queues an audit entry. Never blocks, never returns an error.
func (r *Recorder) Record(orgID, action, resourceType, resourceID, userIdentifier string, changes map[string]any) {
	entry := &Entry{
		ID:             idgen.WithPrefix("aud_"),
		OrganizationID: orgID,
		Action:         action,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		UserIdentifier: userIdentifier,
		Changes:        changes,
		CreatedAt:      time.Now(),
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := retry.Do(ctx, 3, 100*time.Millisecond, func() error {
			return r.store.Append(ctx, entry)
		})
		if err != nil {
			metrics.AuditWriteFailuresTotal.Inc()
			r.logger.Error("audit write failed",
				"action", action,
				"organization_id", orgID,
				"error", err)
		}
	}()
}

// Close waits for in-flight audit writes to finish.
func (r *Recorder) Close() {
	r.wg.Wait()
}
