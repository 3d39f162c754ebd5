package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/captainspark/backend/internal/assets"
	"github.com/captainspark/backend/internal/player"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlayerSettings configures lesson playback
type PlayerSettings struct {
	FadeDuration time.Duration
	// ReadinessWait bounds how long a forward move waits for the next slide's assets
	ReadinessWait  time.Duration
	PreloadTimeout time.Duration
	// SignedURLTTL is the lifetime of resolved URLs; older sessions are re-resolved
	SignedURLTTL time.Duration
	SessionTTL   time.Duration
}

// trackerEntry is a process-local readiness tracker of one session
type trackerEntry struct {
	tracker  *assets.Tracker
	lastUsed time.Time
}

// playerService runs player sessions. Session data lives in the store;
// readiness trackers live in this process and are rebuilt when missing.
type playerService struct {
	resolver player.LessonResolver
	progress player.ProgressRecorder
	store    player.Store
	cache    *assets.Cache
	settings PlayerSettings
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	trackers map[string]*trackerEntry
}

// NewPlayerService creates a new player service
func NewPlayerService(
	resolver player.LessonResolver,
	progress player.ProgressRecorder,
	store player.Store,
	cache *assets.Cache,
	settings PlayerSettings,
	logger *zap.Logger,
) *playerService {
	return &playerService{
		resolver: resolver,
		progress: progress,
		store:    store,
		cache:    cache,
		settings: settings,
		logger:   logger,
		now:      time.Now,
		trackers: make(map[string]*trackerEntry),
	}
}

// tracker returns the session's tracker and whether it was just created
func (s *playerService) tracker(sessionID string) (*assets.Tracker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.settings.SessionTTL > 0 {
		for id, e := range s.trackers {
			if now.Sub(e.lastUsed) > s.settings.SessionTTL {
				e.tracker.Close()
				delete(s.trackers, id)
			}
		}
	}

	if e, ok := s.trackers[sessionID]; ok {
		e.lastUsed = now
		return e.tracker, false
	}
	t := assets.NewTracker(s.cache, s.settings.PreloadTimeout, s.logger)
	s.trackers[sessionID] = &trackerEntry{tracker: t, lastUsed: now}
	return t, true
}

func (s *playerService) release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.trackers[sessionID]; ok {
		e.tracker.Close()
		delete(s.trackers, sessionID)
	}
}

func (s *playerService) deps(tracker *assets.Tracker) player.Deps {
	return player.Deps{
		Resolver:     s.resolver,
		Readiness:    tracker,
		Progress:     s.progress,
		Logger:       s.logger,
		Now:          s.now,
		FadeDuration: s.settings.FadeDuration,
	}
}

// Start opens a session on a lesson. localIndex is the client's last known position, or nil.
func (s *playerService) Start(ctx context.Context, learnerID, lessonID string, localIndex *int) (*player.Snapshot, error) {
	id := uuid.NewString()
	tracker, _ := s.tracker(id)
	session := player.New(id, lessonID, learnerID, s.deps(tracker))

	if err := session.Load(ctx, localIndex); err != nil {
		s.release(id)
		return nil, err
	}

	data := session.Data()
	if err := s.store.Save(ctx, &data); err != nil {
		s.release(id)
		return nil, err
	}

	s.logger.Info("Player session started",
		zap.String("session_id", id),
		zap.String("lesson_id", lessonID),
		zap.String("learner_id", learnerID),
		zap.Int("index", data.Index),
	)

	s.awaitReady(ctx, tracker)
	snap := session.Snapshot()
	return &snap, nil
}

// load restores a session owned by learnerID. Only sessions still playing
// get a registered tracker. refreshed reports that the lesson URLs were re-signed.
func (s *playerService) load(ctx context.Context, learnerID, sessionID string) (session *player.Session, tracker *assets.Tracker, refreshed bool, err error) {
	data, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, false, err
	}
	if data.LearnerID != learnerID {
		return nil, nil, false, ErrSessionForbidden
	}

	active := data.State == player.StateReady || data.State == player.StateTransitioning
	if !active || data.Lesson == nil {
		tracker = assets.NewTracker(s.cache, s.settings.PreloadTimeout, s.logger)
		return player.Restore(*data, s.deps(tracker)), tracker, false, nil
	}

	tracker, fresh := s.tracker(sessionID)

	if s.settings.SignedURLTTL > 0 && s.now().Sub(data.Lesson.ResolvedAt) >= s.settings.SignedURLTTL {
		lesson, err := s.resolver.ResolveLesson(ctx, data.LessonID)
		if err != nil {
			s.logger.Warn("Failed to refresh lesson URLs", zap.String("session_id", sessionID), zap.Error(err))
		} else if len(lesson.Slides) == len(data.Lesson.Slides) {
			data.Lesson = lesson
			fresh = true
			refreshed = true
		}
	}

	if fresh {
		tracker.Track(data.Lesson.Slides, data.Index)
	}

	return player.Restore(*data, s.deps(tracker)), tracker, refreshed, nil
}

// awaitReady gives the next slide's preload up to ReadinessWait to finish
func (s *playerService) awaitReady(ctx context.Context, tracker *assets.Tracker) {
	if s.settings.ReadinessWait <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.settings.ReadinessWait)
	defer cancel()
	_ = tracker.Wait(ctx)
}

// apply runs a transition on a stored session and saves the result
func (s *playerService) apply(ctx context.Context, learnerID, sessionID string, forward bool, fn func(*player.Session) error) (*player.Snapshot, error) {
	session, tracker, _, err := s.load(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}

	if forward {
		s.awaitReady(ctx, tracker)
	}

	if err := fn(session); err != nil {
		return nil, err
	}

	data := session.Data()
	if err := s.store.Save(ctx, &data); err != nil {
		return nil, fmt.Errorf("failed to save player session: %w", err)
	}

	if data.State == player.StateComplete || data.State == player.StateExitedToOverview {
		s.release(sessionID)
	}

	snap := session.Snapshot()
	return &snap, nil
}

// Get returns the session snapshot
func (s *playerService) Get(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error) {
	session, _, refreshed, err := s.load(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}
	if refreshed {
		data := session.Data()
		if err := s.store.Save(ctx, &data); err != nil {
			s.logger.Warn("Failed to save refreshed player session", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	snap := session.Snapshot()
	return &snap, nil
}

// Advance moves to the next slide, completing the lesson from the last one
func (s *playerService) Advance(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error) {
	return s.apply(ctx, learnerID, sessionID, true, func(p *player.Session) error {
		return p.Advance(ctx)
	})
}

// Retreat moves to the previous slide, exiting to the overview from the first one
func (s *playerService) Retreat(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error) {
	return s.apply(ctx, learnerID, sessionID, false, func(p *player.Session) error {
		return p.Retreat(ctx)
	})
}

// Rewind restarts the current video
func (s *playerService) Rewind(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error) {
	return s.apply(ctx, learnerID, sessionID, false, func(p *player.Session) error {
		return p.Rewind()
	})
}

// VideoEnded reports the natural end of the current video
func (s *playerService) VideoEnded(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error) {
	return s.apply(ctx, learnerID, sessionID, true, func(p *player.Session) error {
		return p.VideoEnded(ctx)
	})
}

// Answer selects an answer on the current quiz
func (s *playerService) Answer(ctx context.Context, learnerID, sessionID string, index int) (*player.Snapshot, error) {
	return s.apply(ctx, learnerID, sessionID, false, func(p *player.Session) error {
		return p.Answer(index)
	})
}

// TryAgain clears a wrong answer
func (s *playerService) TryAgain(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error) {
	return s.apply(ctx, learnerID, sessionID, false, func(p *player.Session) error {
		return p.TryAgain()
	})
}

// Continue confirms a correct answer and moves on
func (s *playerService) Continue(ctx context.Context, learnerID, sessionID string) (*player.Snapshot, error) {
	return s.apply(ctx, learnerID, sessionID, true, func(p *player.Session) error {
		return p.Continue(ctx)
	})
}
