package models

import "time"

// Learner is a child account created through onboarding.
// Parent details are kept alongside for the welcome narration and emails.
type Learner struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	ParentName     string     `json:"parentName"`
	KidName        string     `json:"kidName"`
	KidAge         int        `json:"kidAge"`
	ParentAudio    string     `json:"-"`
	KidAudio       string     `json:"-"`
	XP             int        `json:"xp"`
	StreakCount    int        `json:"streakCount"`
	LastStreakDate *time.Time `json:"lastStreakDate,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// CreateAccountRequest represents the onboarding form
type CreateAccountRequest struct {
	ParentName string `json:"parentName" example:"Alex"`
	KidName    string `json:"kidName" example:"Sam"`
	KidAge     int    `json:"kidAge" example:"7"`
	Email      string `json:"email" example:"parent@example.com"`
}

// LoginRequest asks for a magic link
type LoginRequest struct {
	Email string `json:"email" example:"parent@example.com"`
}

// VerifyRequest exchanges a magic link token for a session
type VerifyRequest struct {
	Token string `json:"token"`
}

// VerifyResponse is returned when a magic link is accepted
type VerifyResponse struct {
	AccessToken string `json:"accessToken"`
	Redirect    string `json:"redirect"`
	LearnerID   string `json:"learnerId"`
}

// Profile is the learner view of their own account
type Profile struct {
	ID             string     `json:"id"`
	KidName        string     `json:"kidName"`
	ParentName     string     `json:"parentName"`
	XP             int        `json:"xp"`
	StreakCount    int        `json:"streakCount"`
	LastStreakDate *time.Time `json:"lastStreakDate,omitempty"`
	ParentAudioURL string     `json:"parentAudioUrl,omitempty"`
	KidAudioURL    string     `json:"kidAudioUrl,omitempty"`
}

// MagicLink is a single use login link
type MagicLink struct {
	ID           string     `json:"id"`
	LearnerID    string     `json:"learnerId"`
	TokenHash    string     `json:"-"`
	RedirectPath string     `json:"redirectPath"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	UsedAt       *time.Time `json:"usedAt,omitempty"`
}
