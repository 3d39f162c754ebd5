package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/captainspark/backend/internal/models"
	"github.com/captainspark/backend/internal/repositories"
	"github.com/captainspark/backend/internal/tasks"
	"github.com/captainspark/backend/libs/auth/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockMagicLinkRepository is a mock implementation of MagicLinkRepository
type mockMagicLinkRepository struct {
	links     map[string]*models.MagicLink
	createErr error
	markErr   error
}

func (m *mockMagicLinkRepository) Create(ctx context.Context, link *models.MagicLink) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.links == nil {
		m.links = make(map[string]*models.MagicLink)
	}
	m.links[link.TokenHash] = link
	return nil
}

func (m *mockMagicLinkRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.MagicLink, error) {
	link, ok := m.links[tokenHash]
	if !ok {
		return nil, repositories.ErrMagicLinkNotFound
	}
	return link, nil
}

func (m *mockMagicLinkRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time) error {
	if m.markErr != nil {
		return m.markErr
	}
	for _, link := range m.links {
		if link.ID == id {
			if link.UsedAt != nil {
				return repositories.ErrMagicLinkUsed
			}
			link.UsedAt = &usedAt
			return nil
		}
	}
	return repositories.ErrMagicLinkUsed
}

// mockSynthesizer is a mock implementation of Synthesizer
type mockSynthesizer struct {
	enabled bool
	failFor string
	mu      sync.Mutex
	texts   []string
}

func (m *mockSynthesizer) Enabled() bool {
	return m.enabled
}

func (m *mockSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.failFor != "" && strings.Contains(text, m.failFor) {
		return nil, errors.New("tts api returned status 500")
	}
	return []byte("mp3:" + text), nil
}

// mockAudioStore is a mock implementation of AudioStore
type mockAudioStore struct {
	mu      sync.Mutex
	objects map[string]string
	signErr error
}

func (m *mockAudioStore) Put(ctx context.Context, objectPath string, r io.Reader, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string]string)
	}
	m.objects[objectPath] = string(data)
	return nil
}

func (m *mockAudioStore) SignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error) {
	if m.signErr != nil {
		return "", m.signErr
	}
	return "https://cdn.test/" + objectPath + "?sig=1", nil
}

// mockTokenIssuer is a mock implementation of TokenIssuer
type mockTokenIssuer struct {
	subject string
	role    service.Role
}

func (m *mockTokenIssuer) GenerateAccessToken(subject string, role service.Role) (string, error) {
	m.subject = subject
	m.role = role
	return "token-" + subject, nil
}

var testAccountSettings = AccountSettings{
	PublicURL:       "https://app.test",
	MagicLinkExpiry: 15 * time.Minute,
	DefaultRedirect: "/lesson/intro",
	TTSTimeout:      time.Second,
	SignedURLTTL:    time.Hour,
}

func newTestAccountService(learners *mockLearnerRepository, links *mockMagicLinkRepository, tts *mockSynthesizer, audio *mockAudioStore, queue *mockEnqueuer) (*accountService, *mockTokenIssuer) {
	tokens := &mockTokenIssuer{}
	svc := NewAccountService(learners, links, tts, audio, tokens, queue, testAccountSettings, zap.NewNop())
	return svc, tokens
}

func TestNewAccountService(t *testing.T) {
	svc, _ := newTestAccountService(&mockLearnerRepository{}, &mockMagicLinkRepository{}, &mockSynthesizer{}, &mockAudioStore{}, &mockEnqueuer{})

	assert.NotNil(t, svc)
	assert.NotNil(t, svc.now)
}

func TestAccountService_CreateAccount_Validation(t *testing.T) {
	valid := models.CreateAccountRequest{ParentName: "Alex", KidName: "Sam", KidAge: 7, Email: "parent@example.com"}

	tests := []struct {
		name          string
		modify        func(r *models.CreateAccountRequest)
		exists        bool
		expectedError string
		validation    bool
	}{
		{name: "blank parent", modify: func(r *models.CreateAccountRequest) { r.ParentName = "   " }, expectedError: "parent name cannot be empty", validation: true},
		{name: "blank kid", modify: func(r *models.CreateAccountRequest) { r.KidName = "" }, expectedError: "kid name cannot be empty", validation: true},
		{name: "too young", modify: func(r *models.CreateAccountRequest) { r.KidAge = 2 }, expectedError: "kid age must be between 3 and 18", validation: true},
		{name: "too old", modify: func(r *models.CreateAccountRequest) { r.KidAge = 19 }, expectedError: "kid age must be between 3 and 18", validation: true},
		{name: "bad email", modify: func(r *models.CreateAccountRequest) { r.Email = "parent@" }, expectedError: "invalid email format", validation: true},
		{name: "duplicate email", modify: func(r *models.CreateAccountRequest) {}, exists: true, expectedError: "email already registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.modify(&req)
			learners := &mockLearnerRepository{exists: tt.exists}
			queue := &mockEnqueuer{}
			svc, _ := newTestAccountService(learners, &mockMagicLinkRepository{}, &mockSynthesizer{}, &mockAudioStore{}, queue)

			_, err := svc.CreateAccount(context.Background(), &req)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
			assert.Equal(t, tt.validation, IsValidation(err))
			assert.Nil(t, learners.created)
			assert.Empty(t, queue.tasks)
		})
	}
}

func TestAccountService_CreateAccount(t *testing.T) {
	learners := &mockLearnerRepository{}
	links := &mockMagicLinkRepository{}
	tts := &mockSynthesizer{enabled: true}
	audio := &mockAudioStore{}
	queue := &mockEnqueuer{}
	svc, _ := newTestAccountService(learners, links, tts, audio, queue)

	learner, err := svc.CreateAccount(context.Background(), &models.CreateAccountRequest{
		ParentName: " Alex ",
		KidName:    "Sam",
		KidAge:     7,
		Email:      "Parent@Example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "parent@example.com", learner.Email)
	assert.Equal(t, "Alex", learner.ParentName)
	assert.NotEmpty(t, learner.ID)

	assert.ElementsMatch(t, []string{"Hi Alex!", "Hi Sam!"}, tts.texts)
	parentPath := "audio/welcome/" + learner.ID + "-parent.mp3"
	kidPath := "audio/welcome/" + learner.ID + "-kid.mp3"
	assert.Equal(t, "mp3:Hi Alex!", audio.objects[parentPath])
	assert.Equal(t, "mp3:Hi Sam!", audio.objects[kidPath])
	assert.Equal(t, parentPath, learners.parentAudio)
	assert.Equal(t, kidPath, learners.kidAudio)

	require.Len(t, links.links, 1)
	require.Len(t, queue.tasks, 1)
	payload, err := tasks.ParseMagicLinkEmail(queue.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, "parent@example.com", payload.Email)
	assert.True(t, strings.HasPrefix(payload.Link, "https://app.test/auth/verify?token="))

	// The emailed token hashes to the stored link
	token := strings.TrimPrefix(payload.Link, "https://app.test/auth/verify?token=")
	_, ok := links.links[hashToken(token)]
	assert.True(t, ok)
}

func TestAccountService_CreateAccount_NarrationIsBestEffort(t *testing.T) {
	tests := []struct {
		name          string
		tts           *mockSynthesizer
		expectedKid   bool
		expectUpdates int
	}{
		{name: "tts disabled", tts: &mockSynthesizer{}, expectUpdates: 0},
		{name: "one greeting fails", tts: &mockSynthesizer{enabled: true, failFor: "Alex"}, expectedKid: true, expectUpdates: 1},
		{name: "both greetings fail", tts: &mockSynthesizer{enabled: true, failFor: "Hi"}, expectUpdates: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			learners := &mockLearnerRepository{}
			queue := &mockEnqueuer{}
			svc, _ := newTestAccountService(learners, &mockMagicLinkRepository{}, tt.tts, &mockAudioStore{}, queue)

			learner, err := svc.CreateAccount(context.Background(), &models.CreateAccountRequest{
				ParentName: "Alex", KidName: "Sam", KidAge: 7, Email: "parent@example.com",
			})

			require.NoError(t, err)
			assert.Equal(t, tt.expectUpdates, learners.audioUpdates)
			assert.Empty(t, learners.parentAudio)
			assert.Equal(t, tt.expectedKid, learner.KidAudio != "")
			assert.Len(t, queue.tasks, 1)
		})
	}
}

func TestAccountService_CreateAccount_DeliveryFailure(t *testing.T) {
	queue := &mockEnqueuer{err: errors.New("redis down")}
	svc, _ := newTestAccountService(&mockLearnerRepository{}, &mockMagicLinkRepository{}, &mockSynthesizer{}, &mockAudioStore{}, queue)

	_, err := svc.CreateAccount(context.Background(), &models.CreateAccountRequest{
		ParentName: "Alex", KidName: "Sam", KidAge: 7, Email: "parent@example.com",
	})

	assert.ErrorIs(t, err, ErrMagicLinkDelivery)
}

func TestAccountService_CreateAccount_RepeatedRegistration(t *testing.T) {
	stored := &models.Learner{ID: "u1", Email: "parent@example.com", ParentName: "Alex", KidName: "Sam", KidAge: 7}

	tests := []struct {
		name          string
		req           models.CreateAccountRequest
		expectedError error
		expectedTasks int
	}{
		{
			name:          "same form re-sends the link",
			req:           models.CreateAccountRequest{ParentName: "Alex", KidName: "Sam", KidAge: 7, Email: "Parent@example.com"},
			expectedTasks: 1,
		},
		{
			name:          "different kid is rejected",
			req:           models.CreateAccountRequest{ParentName: "Alex", KidName: "Mia", KidAge: 7, Email: "parent@example.com"},
			expectedError: repositories.ErrEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			learners := &mockLearnerRepository{learner: stored, exists: true}
			links := &mockMagicLinkRepository{}
			queue := &mockEnqueuer{}
			svc, _ := newTestAccountService(learners, links, &mockSynthesizer{enabled: true}, &mockAudioStore{}, queue)

			learner, err := svc.CreateAccount(context.Background(), &tt.req)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, learner)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "u1", learner.ID)
			}
			assert.Nil(t, learners.created)
			assert.Zero(t, learners.audioUpdates)
			assert.Len(t, queue.tasks, tt.expectedTasks)
		})
	}
}

func TestAccountService_RequestLogin(t *testing.T) {
	tests := []struct {
		name          string
		learner       *models.Learner
		email         string
		expectedError error
		expectedTasks int
	}{
		{name: "registered", learner: &models.Learner{ID: "u1", Email: "parent@example.com"}, email: "parent@example.com", expectedTasks: 1},
		{name: "unknown email", email: "who@example.com", expectedError: ErrEmailNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := &mockEnqueuer{}
			svc, _ := newTestAccountService(&mockLearnerRepository{learner: tt.learner}, &mockMagicLinkRepository{}, &mockSynthesizer{}, &mockAudioStore{}, queue)

			err := svc.RequestLogin(context.Background(), tt.email)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, queue.tasks, tt.expectedTasks)
		})
	}

	svc, _ := newTestAccountService(&mockLearnerRepository{}, &mockMagicLinkRepository{}, &mockSynthesizer{}, &mockAudioStore{}, &mockEnqueuer{})
	assert.True(t, IsValidation(svc.RequestLogin(context.Background(), "  ")))
}

func TestAccountService_VerifyMagicLink(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	usedAt := now.Add(-time.Minute)

	tests := []struct {
		name          string
		link          *models.MagicLink
		token         string
		expectedError error
	}{
		{
			name:  "valid link",
			link:  &models.MagicLink{ID: "m1", LearnerID: "u1", TokenHash: hashToken("tok"), RedirectPath: "/lesson/abc", ExpiresAt: now.Add(time.Minute)},
			token: "tok",
		},
		{
			name:          "unknown token",
			token:         "nope",
			expectedError: ErrInvalidMagicLink,
		},
		{
			name:          "expired",
			link:          &models.MagicLink{ID: "m1", LearnerID: "u1", TokenHash: hashToken("tok"), ExpiresAt: now},
			token:         "tok",
			expectedError: ErrInvalidMagicLink,
		},
		{
			name:          "already used",
			link:          &models.MagicLink{ID: "m1", LearnerID: "u1", TokenHash: hashToken("tok"), ExpiresAt: now.Add(time.Minute), UsedAt: &usedAt},
			token:         "tok",
			expectedError: ErrInvalidMagicLink,
		},
		{
			name:          "empty token",
			expectedError: ErrInvalidMagicLink,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := &mockMagicLinkRepository{links: map[string]*models.MagicLink{}}
			if tt.link != nil {
				links.links[tt.link.TokenHash] = tt.link
			}
			svc, tokens := newTestAccountService(&mockLearnerRepository{}, links, &mockSynthesizer{}, &mockAudioStore{}, &mockEnqueuer{})
			svc.now = func() time.Time { return now }

			resp, err := svc.VerifyMagicLink(context.Background(), tt.token)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "token-u1", resp.AccessToken)
			assert.Equal(t, "/lesson/abc", resp.Redirect)
			assert.Equal(t, service.RoleLearner, tokens.role)
			assert.NotNil(t, tt.link.UsedAt)
		})
	}
}

func TestAccountService_VerifyMagicLink_SingleUse(t *testing.T) {
	links := &mockMagicLinkRepository{}
	queue := &mockEnqueuer{}
	svc, _ := newTestAccountService(&mockLearnerRepository{learner: &models.Learner{ID: "u1", Email: "parent@example.com"}}, links, &mockSynthesizer{}, &mockAudioStore{}, queue)

	require.NoError(t, svc.RequestLogin(context.Background(), "parent@example.com"))
	payload, err := tasks.ParseMagicLinkEmail(queue.tasks[0])
	require.NoError(t, err)
	token := strings.TrimPrefix(payload.Link, testAccountSettings.PublicURL+"/auth/verify?token=")

	resp, err := svc.VerifyMagicLink(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "/lesson/intro", resp.Redirect)

	_, err = svc.VerifyMagicLink(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidMagicLink)
}

func TestAccountService_GetProfile(t *testing.T) {
	learners := &mockLearnerRepository{learner: &models.Learner{
		ID:          "u1",
		KidName:     "Sam",
		ParentName:  "Alex",
		XP:          210,
		StreakCount: 3,
		ParentAudio: "audio/welcome/u1-parent.mp3",
	}}
	svc, _ := newTestAccountService(learners, &mockMagicLinkRepository{}, &mockSynthesizer{}, &mockAudioStore{}, &mockEnqueuer{})

	profile, err := svc.GetProfile(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, 210, profile.XP)
	assert.Equal(t, "https://cdn.test/audio/welcome/u1-parent.mp3?sig=1", profile.ParentAudioURL)
	assert.Empty(t, profile.KidAudioURL)

	learners.learner = nil
	_, err = svc.GetProfile(context.Background(), "u2")
	assert.ErrorIs(t, err, repositories.ErrLearnerNotFound)
}
