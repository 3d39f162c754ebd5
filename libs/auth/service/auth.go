package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the access level carried in an access token
type Role string

const (
	// RoleLearner is issued after a magic link is verified
	RoleLearner Role = "learner"
	// RoleEditor is issued after a CMS password login
	RoleEditor Role = "editor"
)

// rank orders roles so an editor may call learner endpoints
func (r Role) rank() int {
	switch r {
	case RoleLearner:
		return 1
	case RoleEditor:
		return 2
	default:
		return 0
	}
}

// Covers reports whether r grants at least the access of required
func (r Role) Covers(required Role) bool {
	return r.rank() > 0 && r.rank() >= required.rank()
}

const (
	tokenTypeAccess = "access"
	tokenTypeMedia  = "media"
)

// TokenGenerator handles JWT token generation and validation
type TokenGenerator struct {
	secret            string
	accessTokenExpiry time.Duration
	editorTokenExpiry time.Duration
}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator(secret string, accessExpiry, editorExpiry time.Duration) *TokenGenerator {
	return &TokenGenerator{
		secret:            secret,
		accessTokenExpiry: accessExpiry,
		editorTokenExpiry: editorExpiry,
	}
}

// GenerateAccessToken creates an access token for subject with the given role.
// Editor tokens use the shorter editor expiry.
func (tg *TokenGenerator) GenerateAccessToken(subject string, role Role) (string, error) {
	expiry := tg.accessTokenExpiry
	if role == RoleEditor {
		expiry = tg.editorTokenExpiry
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": string(role),
		"exp":  now.Add(expiry).Unix(),
		"iat":  now.Unix(),
		"type": tokenTypeAccess,
	}

	tokenString, err := tg.sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

// AccessTokenExpiry returns the lifetime of learner tokens, used for cookie max-age
func (tg *TokenGenerator) AccessTokenExpiry() time.Duration {
	return tg.accessTokenExpiry
}

// ValidateAccessToken validates an access token and returns the subject and role
func (tg *TokenGenerator) ValidateAccessToken(tokenString string) (string, Role, error) {
	claims, err := tg.parse(tokenString, tokenTypeAccess)
	if err != nil {
		return "", "", err
	}

	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return "", "", fmt.Errorf("sub not found in token")
	}

	role, ok := claims["role"].(string)
	if !ok || Role(role).rank() == 0 {
		return "", "", fmt.Errorf("role not found in token")
	}

	return subject, Role(role), nil
}

// GenerateMediaToken signs access to a single stored object for ttl
func (tg *TokenGenerator) GenerateMediaToken(path string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"path": path,
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
		"type": tokenTypeMedia,
	}

	tokenString, err := tg.sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign media token: %w", err)
	}
	return tokenString, nil
}

// ValidateMediaToken returns the object path a media token grants access to
func (tg *TokenGenerator) ValidateMediaToken(tokenString string) (string, error) {
	claims, err := tg.parse(tokenString, tokenTypeMedia)
	if err != nil {
		return "", err
	}

	path, ok := claims["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("path not found in token")
	}
	return path, nil
}

func (tg *TokenGenerator) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(tg.secret))
}

func (tg *TokenGenerator) parse(tokenString, expectedType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tg.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != expectedType {
		return nil, fmt.Errorf("token is not a %s token", expectedType)
	}

	return claims, nil
}
