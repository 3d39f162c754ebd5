package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/captainspark/backend/internal/models"
	"github.com/captainspark/backend/internal/repositories"
	"github.com/captainspark/backend/internal/storage"
	"github.com/captainspark/backend/internal/tasks"
	"github.com/captainspark/backend/libs/auth/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minKidAge = 3
	maxKidAge = 18
)

// emailRegex validates email format
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// LearnerRepository is the interface that wraps methods for learners table data access
type LearnerRepository interface {
	// Method Create inserts a new learner.
	//
	// If the email is already registered, repositories.ErrEmailTaken will be returned.
	Create(ctx context.Context, learner *models.Learner) error
	// Method GetByID retrieves a learner by ID.
	//
	// If learner with such ID does not exist, repositories.ErrLearnerNotFound will be returned.
	GetByID(ctx context.Context, id string) (*models.Learner, error)
	// Method GetByEmail retrieves a learner by email.
	//
	// If learner with such email does not exist, repositories.ErrLearnerNotFound will be returned.
	GetByEmail(ctx context.Context, email string) (*models.Learner, error)
	// Method ExistsByEmail checks if a learner with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Method UpdateAudio stores the object paths of the welcome narration.
	UpdateAudio(ctx context.Context, id, parentAudio, kidAudio string) error
}

// MagicLinkRepository is the interface that wraps methods for magic_links table data access
type MagicLinkRepository interface {
	// Method Create stores a new magic link.
	Create(ctx context.Context, link *models.MagicLink) error
	// Method GetByTokenHash retrieves a magic link by the hash of its token.
	//
	// If there is no such link, repositories.ErrMagicLinkNotFound will be returned.
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.MagicLink, error)
	// Method MarkUsed consumes the link.
	//
	// If the link was already consumed, repositories.ErrMagicLinkUsed will be returned.
	MarkUsed(ctx context.Context, id string, usedAt time.Time) error
}

// Synthesizer turns text into speech audio
type Synthesizer interface {
	Enabled() bool
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// AudioStore stores narration and signs its URLs
type AudioStore interface {
	Put(ctx context.Context, objectPath string, r io.Reader, contentType string) error
	SignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error)
}

// TokenIssuer issues access tokens
type TokenIssuer interface {
	GenerateAccessToken(subject string, role service.Role) (string, error)
}

// AccountSettings configures onboarding and sign-in
type AccountSettings struct {
	// PublicURL is the web client base URL the sign-in link points to
	PublicURL       string
	MagicLinkExpiry time.Duration
	DefaultRedirect string
	TTSTimeout      time.Duration
	SignedURLTTL    time.Duration
}

// accountService handles onboarding, magic link sign-in and profiles
type accountService struct {
	learnerRepo   LearnerRepository
	magicLinkRepo MagicLinkRepository
	tts           Synthesizer
	audio         AudioStore
	tokens        TokenIssuer
	queue         tasks.Enqueuer
	settings      AccountSettings
	logger        *zap.Logger
	now           func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(
	learnerRepo LearnerRepository,
	magicLinkRepo MagicLinkRepository,
	tts Synthesizer,
	audio AudioStore,
	tokens TokenIssuer,
	queue tasks.Enqueuer,
	settings AccountSettings,
	logger *zap.Logger,
) *accountService {
	return &accountService{
		learnerRepo:   learnerRepo,
		magicLinkRepo: magicLinkRepo,
		tts:           tts,
		audio:         audio,
		tokens:        tokens,
		queue:         queue,
		settings:      settings,
		logger:        logger,
		now:           time.Now,
	}
}

// CreateAccount registers a learner, records the welcome narration and sends a sign-in link.
// Re-submitting the same form for an existing account sends a fresh link instead.
func (s *accountService) CreateAccount(ctx context.Context, req *models.CreateAccountRequest) (*models.Learner, error) {
	learner, err := s.validateAccount(req)
	if err != nil {
		return nil, err
	}

	exists, err := s.learnerRepo.ExistsByEmail(ctx, learner.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return s.repeatRegistration(ctx, learner)
	}

	if err := s.learnerRepo.Create(ctx, learner); err != nil {
		return nil, err
	}

	s.recordWelcome(ctx, learner)

	if err := s.issueMagicLink(ctx, learner); err != nil {
		return nil, err
	}

	s.logger.Info("Learner registered", zap.String("learner_id", learner.ID))
	return learner, nil
}

// repeatRegistration handles a sign-up for a registered address. When the form
// matches the stored account (a retry after the link could not be sent) a new
// link is issued; any other sign-up is rejected as taken.
func (s *accountService) repeatRegistration(ctx context.Context, learner *models.Learner) (*models.Learner, error) {
	existing, err := s.learnerRepo.GetByEmail(ctx, learner.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrLearnerNotFound) {
			return nil, repositories.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to get learner: %w", err)
	}

	if existing.ParentName != learner.ParentName || existing.KidName != learner.KidName || existing.KidAge != learner.KidAge {
		return nil, repositories.ErrEmailTaken
	}

	if err := s.issueMagicLink(ctx, existing); err != nil {
		return nil, err
	}

	s.logger.Info("Repeated registration, sign-in link re-sent", zap.String("learner_id", existing.ID))
	return existing, nil
}

func (s *accountService) validateAccount(req *models.CreateAccountRequest) (*models.Learner, error) {
	parentName := strings.TrimSpace(req.ParentName)
	if parentName == "" {
		return nil, invalidf("parent name cannot be empty")
	}
	kidName := strings.TrimSpace(req.KidName)
	if kidName == "" {
		return nil, invalidf("kid name cannot be empty")
	}
	if req.KidAge < minKidAge || req.KidAge > maxKidAge {
		return nil, invalidf("kid age must be between %d and %d", minKidAge, maxKidAge)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailRegex.MatchString(email) {
		return nil, invalidf("invalid email format")
	}

	return &models.Learner{
		ID:         uuid.NewString(),
		Email:      email,
		ParentName: parentName,
		KidName:    kidName,
		KidAge:     req.KidAge,
	}, nil
}

// recordWelcome narrates both greetings concurrently. Failures only leave the audio unset.
func (s *accountService) recordWelcome(ctx context.Context, learner *models.Learner) {
	if s.tts == nil || !s.tts.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.settings.TTSTimeout)
	defer cancel()

	greetings := []struct {
		who  string
		text string
	}{
		{who: "parent", text: "Hi " + learner.ParentName + "!"},
		{who: "kid", text: "Hi " + learner.KidName + "!"},
	}
	paths := make([]string, len(greetings))

	var g errgroup.Group
	for i, greeting := range greetings {
		g.Go(func() error {
			audio, err := s.tts.Synthesize(ctx, greeting.text)
			if err == nil {
				objectPath := storage.WelcomeAudioPath(learner.ID, greeting.who)
				err = s.audio.Put(ctx, objectPath, bytes.NewReader(audio), "audio/mpeg")
				if err == nil {
					paths[i] = objectPath
				}
			}
			if err != nil {
				s.logger.Warn("Failed to record welcome narration",
					zap.String("learner_id", learner.ID),
					zap.String("who", greeting.who),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	g.Wait()

	if paths[0] == "" && paths[1] == "" {
		return
	}
	if err := s.learnerRepo.UpdateAudio(ctx, learner.ID, paths[0], paths[1]); err != nil {
		s.logger.Warn("Failed to store welcome narration", zap.String("learner_id", learner.ID), zap.Error(err))
		return
	}
	learner.ParentAudio, learner.KidAudio = paths[0], paths[1]
}

// RequestLogin sends a sign-in link to a registered address
func (s *accountService) RequestLogin(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return invalidf("email cannot be empty")
	}

	learner, err := s.learnerRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrLearnerNotFound) {
			return ErrEmailNotFound
		}
		return fmt.Errorf("failed to get learner: %w", err)
	}

	return s.issueMagicLink(ctx, learner)
}

func (s *accountService) issueMagicLink(ctx context.Context, learner *models.Learner) error {
	token := uuid.NewString()
	expiresAt := s.now().Add(s.settings.MagicLinkExpiry)

	link := &models.MagicLink{
		ID:           uuid.NewString(),
		LearnerID:    learner.ID,
		TokenHash:    hashToken(token),
		RedirectPath: s.settings.DefaultRedirect,
		ExpiresAt:    expiresAt,
	}
	if err := s.magicLinkRepo.Create(ctx, link); err != nil {
		return err
	}

	task, err := tasks.NewMagicLinkEmailTask(tasks.MagicLinkEmailPayload{
		Email:      learner.Email,
		ParentName: learner.ParentName,
		KidName:    learner.KidName,
		Link:       s.settings.PublicURL + "/auth/verify?token=" + url.QueryEscape(token),
		ExpiresAt:  expiresAt,
	})
	if err == nil {
		_, err = s.queue.EnqueueContext(ctx, task)
	}
	if err != nil {
		s.logger.Error("Failed to queue magic link email", zap.String("learner_id", learner.ID), zap.Error(err))
		return ErrMagicLinkDelivery
	}

	return nil
}

// VerifyMagicLink consumes a sign-in link and issues a learner access token
func (s *accountService) VerifyMagicLink(ctx context.Context, token string) (*models.VerifyResponse, error) {
	if token == "" {
		return nil, ErrInvalidMagicLink
	}

	link, err := s.magicLinkRepo.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, repositories.ErrMagicLinkNotFound) {
			return nil, ErrInvalidMagicLink
		}
		return nil, fmt.Errorf("failed to get magic link: %w", err)
	}

	now := s.now()
	if link.UsedAt != nil || !now.Before(link.ExpiresAt) {
		return nil, ErrInvalidMagicLink
	}

	if err := s.magicLinkRepo.MarkUsed(ctx, link.ID, now); err != nil {
		if errors.Is(err, repositories.ErrMagicLinkUsed) {
			return nil, ErrInvalidMagicLink
		}
		return nil, err
	}

	accessToken, err := s.tokens.GenerateAccessToken(link.LearnerID, service.RoleLearner)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	redirect := link.RedirectPath
	if redirect == "" {
		redirect = s.settings.DefaultRedirect
	}

	return &models.VerifyResponse{
		AccessToken: accessToken,
		Redirect:    redirect,
		LearnerID:   link.LearnerID,
	}, nil
}

// GetProfile returns the learner's profile with signed narration URLs
func (s *accountService) GetProfile(ctx context.Context, learnerID string) (*models.Profile, error) {
	learner, err := s.learnerRepo.GetByID(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{
		ID:             learner.ID,
		KidName:        learner.KidName,
		ParentName:     learner.ParentName,
		XP:             learner.XP,
		StreakCount:    learner.StreakCount,
		LastStreakDate: learner.LastStreakDate,
	}

	var g errgroup.Group
	sign := func(objectPath string, dst *string) {
		if objectPath == "" {
			return
		}
		g.Go(func() error {
			signed, err := s.audio.SignedURL(ctx, objectPath, s.settings.SignedURLTTL)
			if err != nil {
				s.logger.Warn("Failed to sign narration URL", zap.String("path", objectPath), zap.Error(err))
				return nil
			}
			*dst = signed
			return nil
		})
	}
	sign(learner.ParentAudio, &profile.ParentAudioURL)
	sign(learner.KidAudio, &profile.KidAudioURL)
	g.Wait()

	return profile, nil
}

// hashToken returns the hex SHA-256 of a magic link token
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
