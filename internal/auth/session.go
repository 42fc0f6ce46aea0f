// Package auth tracks whether a visitor holds an access credential.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// TokenSource supplies the bearer token for authenticated backend calls.
type TokenSource interface {
	Bearer(ctx context.Context) (string, error)
}

// Session reads and writes the visitor's token blob. The backend is the
// authority on token validity; the session only inspects expiry so a stale
// token is treated as absent instead of producing a network round trip.
type Session struct {
	bucket storage.Bucket
	now    func() time.Time
}

// NewSession creates a session over the visitor's storage bucket.
func NewSession(bucket storage.Bucket) *Session {
	return &Session{bucket: bucket, now: time.Now}
}

// SaveTokensInput is the payload accepted by Save.
type SaveTokensInput struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type" validate:"omitempty,oneof=bearer Bearer"`
}

// Tokens returns the stored tokens, or nil when there are none.
func (s *Session) Tokens(ctx context.Context) (*domain.Tokens, error) {
	var tokens domain.Tokens
	found, err := storage.GetJSON(ctx, s.bucket, storage.KeyAuthTokens, &tokens)
	if err != nil {
		return nil, apperrors.Backend("could not read session", err)
	}
	if !found || tokens.AccessToken == "" {
		return nil, nil
	}
	return &tokens, nil
}

// Save stores a new credential set.
func (s *Session) Save(ctx context.Context, in SaveTokensInput) error {
	if err := validator.Validate(in); err != nil {
		return err
	}
	tokenType := in.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	tokens := domain.Tokens{
		AccessToken:  in.AccessToken,
		RefreshToken: in.RefreshToken,
		TokenType:    strings.ToLower(tokenType),
	}
	if err := storage.SetJSON(ctx, s.bucket, storage.KeyAuthTokens, tokens); err != nil {
		return apperrors.Backend("could not save session", err)
	}
	return nil
}

// Clear forgets the credential.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.bucket.Delete(ctx, storage.KeyAuthTokens); err != nil {
		return apperrors.Backend("could not clear session", err)
	}
	return nil
}

// Authenticated reports whether a usable access token is present.
func (s *Session) Authenticated(ctx context.Context) bool {
	_, err := s.Bearer(ctx)
	return err == nil
}

// Bearer returns the access token, or an Unauthorized error when none is
// present or it has expired.
func (s *Session) Bearer(ctx context.Context) (string, error) {
	tokens, err := s.Tokens(ctx)
	if err != nil {
		return "", err
	}
	if tokens == nil {
		return "", apperrors.Unauthorized("please sign in to continue")
	}
	if claims, ok := parseClaims(tokens.AccessToken); ok {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && !s.now().Before(exp.Time) {
			return "", apperrors.Unauthorized("your session has expired, please sign in again")
		}
	}
	return tokens.AccessToken, nil
}

// Subject returns the user id carried by a JWT access token, or "" for
// opaque tokens and anonymous visitors.
func (s *Session) Subject(ctx context.Context) string {
	tokens, err := s.Tokens(ctx)
	if err != nil || tokens == nil {
		return ""
	}
	claims, ok := parseClaims(tokens.AccessToken)
	if !ok {
		return ""
	}
	if userID, _ := claims["user_id"].(string); userID != "" {
		return userID
	}
	sub, _ := claims.GetSubject()
	return sub
}

// parseClaims decodes a JWT without checking its signature. Non-JWT tokens
// report false.
func parseClaims(token string) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}
