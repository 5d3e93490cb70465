package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const stateTokenType = "oauth_state"

// ErrInvalidState is returned for a state parameter that is malformed, forged or expired
var ErrInvalidState = errors.New("invalid oauth state")

// StateManager signs and verifies the OAuth state parameter
type StateManager struct {
	secret []byte
	ttl    time.Duration
}

// NewStateManager creates a new state manager
func NewStateManager(secret string, ttl time.Duration) *StateManager {
	return &StateManager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate returns a signed state carrying a fresh nonce
func (m *StateManager) Generate() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"typ": stateTokenType,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(m.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	state, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}

	return state, nil
}

// Validate verifies state and returns its nonce
func (m *StateManager) Validate(state string) (string, error) {
	token, err := jwt.Parse(state, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidState
	}

	if claims["typ"] != stateTokenType {
		return "", fmt.Errorf("%w: wrong token type", ErrInvalidState)
	}

	nonce, ok := claims["jti"].(string)
	if !ok || nonce == "" {
		return "", fmt.Errorf("%w: missing nonce", ErrInvalidState)
	}

	return nonce, nil
}

// TTL returns the state lifetime
func (m *StateManager) TTL() time.Duration {
	return m.ttl
}
