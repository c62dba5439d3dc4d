package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/hostportal/backend/internal/domain/entities"
	"github.com/zatekoja/hostportal/backend/internal/domain/providers"
	"github.com/zatekoja/hostportal/backend/internal/domain/repositories"
)

const (
	analyticsWriteTimeout = 5 * time.Second
	maxRedirectStats      = 500
)

// DropCounter counts redirect events that were lost
type DropCounter interface {
	IncAnalyticsDropped()
}

// RedirectAnalyticsService records redirects issued by the gateway. With an
// event bus, events are published and persisted by the subscriber started in
// Start; without one they are written directly in the background.
type RedirectAnalyticsService struct {
	repo          repositories.RedirectAnalyticsRepository
	eventBus      providers.EventBus
	drops         DropCounter
	retentionDays int

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewRedirectAnalyticsService creates a new redirect analytics service. eventBus
// and drops may be nil.
func NewRedirectAnalyticsService(
	repo repositories.RedirectAnalyticsRepository,
	eventBus providers.EventBus,
	drops DropCounter,
	retentionDays int,
) *RedirectAnalyticsService {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedirectAnalyticsService{
		repo:          repo,
		eventBus:      eventBus,
		drops:         drops,
		retentionDays: retentionDays,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Track records a redirect event without blocking the request
func (s *RedirectAnalyticsService) Track(event *entities.RedirectEvent) {
	if s == nil || event == nil {
		return
	}

	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		s.dropped(event, fmt.Errorf("analytics service stopped"))
		return
	}
	s.wg.Add(1)
	s.mu.RUnlock()

	go func() {
		defer s.wg.Done()

		// the request context is gone by the time this runs
		ctx, cancel := context.WithTimeout(context.Background(), analyticsWriteTimeout)
		defer cancel()

		var err error
		if s.eventBus != nil {
			err = s.eventBus.Publish(ctx, providers.EventChannelRedirects, event)
		} else {
			err = s.repo.LogEvent(ctx, event)
		}
		if err != nil {
			s.dropped(event, err)
		}
	}()
}

// Start subscribes to redirect events and persists them. It is a no-op
// without an event bus.
func (s *RedirectAnalyticsService) Start() error {
	if s.eventBus == nil {
		log.Info().Msg("redirect analytics writing directly, no event bus configured")
		return nil
	}

	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelRedirects)
	if err != nil {
		return fmt.Errorf("failed to subscribe to redirect events: %w", err)
	}

	s.wg.Add(1)
	go s.processEvents(eventChan)
	log.Info().Str("channel", providers.EventChannelRedirects).Msg("redirect analytics service started")
	return nil
}

// Stop cancels the subscriber and waits for in-flight writes
func (s *RedirectAnalyticsService) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	log.Info().Msg("redirect analytics service stopped")
}

func (s *RedirectAnalyticsService) processEvents(eventChan <-chan *entities.RedirectEvent) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.persist(event)
		}
	}
}

func (s *RedirectAnalyticsService) persist(event *entities.RedirectEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), analyticsWriteTimeout)
	defer cancel()

	if err := s.repo.LogEvent(ctx, event); err != nil {
		s.dropped(event, err)
		return
	}
	log.Debug().Str("event_id", event.ID).Str("target_portal", string(event.TargetPortal)).Msg("redirect event stored")
}

func (s *RedirectAnalyticsService) dropped(event *entities.RedirectEvent, err error) {
	if s.drops != nil {
		s.drops.IncAnalyticsDropped()
	}
	log.Warn().Err(err).Str("event_id", event.ID).Str("path", event.Path).Msg("failed to record redirect event")
}

// TopRedirects returns the most frequent redirects since the given time
func (s *RedirectAnalyticsService) TopRedirects(ctx context.Context, since time.Time, limit int) ([]*entities.RedirectStat, error) {
	if limit <= 0 || limit > maxRedirectStats {
		limit = maxRedirectStats
	}
	return s.repo.TopRedirects(ctx, since, limit)
}

// Prune deletes events older than the retention window. A non-positive
// window keeps everything.
func (s *RedirectAnalyticsService) Prune(ctx context.Context) (int64, error) {
	if s.retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	deleted, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("pruned redirect events")
	return deleted, nil
}
