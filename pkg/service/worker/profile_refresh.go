package worker

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/service/slack"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
)

// RefreshStats describes the outcome of the refresh cycles run so far
type RefreshStats struct {
	LastAttempt time.Time
	LastSuccess time.Time
	Updated     int
}

// ProfileRefreshWorker keeps profile display names in sync with the Slack
// workspace directory. Profiles are matched by e-mail address; roles and
// client IDs are never touched.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
type ProfileRefreshWorker struct {
	repo         interfaces.Repository
	slackService slack.Service
	interval     time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}

	mu    sync.RWMutex
	stats RefreshStats
}

// NewProfileRefreshWorker creates a new worker for refreshing profile names
func NewProfileRefreshWorker(repo interfaces.Repository, slackSvc slack.Service, interval time.Duration) *ProfileRefreshWorker {
	return &ProfileRefreshWorker{
		repo:         repo,
		slackService: slackSvc,
		interval:     interval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins the background refresh loop. It does not block server startup.
func (w *ProfileRefreshWorker) Start(ctx context.Context) error {
	logging.Default().Info("Profile refresh worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *ProfileRefreshWorker) Stop() {
	logging.Default().Info("Profile refresh worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Profile refresh worker stopped")
}

// Stats returns a snapshot of the refresh statistics
func (w *ProfileRefreshWorker) Stats() RefreshStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *ProfileRefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if _, err := w.Refresh(ctx); err != nil {
		logging.Default().Error("Initial profile refresh failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.Refresh(ctx); err != nil {
				logging.Default().Error("Profile refresh failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			logging.Default().Info("Profile refresh worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Profile refresh worker context cancelled")
			return
		}
	}
}

// Refresh runs one cycle and returns the number of profiles updated. On a
// Slack API failure the stored profiles are left as they are.
func (w *ProfileRefreshWorker) Refresh(ctx context.Context) (int, error) {
	startTime := time.Now().UTC()

	w.mu.Lock()
	w.stats.LastAttempt = startTime
	w.mu.Unlock()

	slackUsers, err := w.slackService.ListUsers(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list Slack users from API")
	}

	byEmail := make(map[string]*slack.User, len(slackUsers))
	for _, u := range slackUsers {
		if u.Email == "" {
			continue
		}
		byEmail[strings.ToLower(u.Email)] = u
	}

	profiles, err := w.repo.Profile().List(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list profiles")
	}

	var changed []*model.Profile
	for _, p := range profiles {
		u, ok := byEmail[strings.ToLower(p.Email)]
		if !ok {
			continue
		}
		name := u.DisplayName()
		if name == "" || name == p.Name {
			continue
		}
		p.Name = name
		p.UpdatedAt = startTime
		changed = append(changed, p)
	}

	if len(changed) > 0 {
		if err := w.repo.Profile().SaveMany(ctx, changed); err != nil {
			return 0, goerr.Wrap(err, "failed to save profiles", goerr.V("count", len(changed)))
		}
	}

	w.mu.Lock()
	w.stats.LastSuccess = startTime
	w.stats.Updated += len(changed)
	w.mu.Unlock()

	logging.Default().Info("Profile refresh completed",
		"slack_users", len(slackUsers),
		"updated", len(changed),
		"duration", time.Since(startTime).String())

	return len(changed), nil
}
