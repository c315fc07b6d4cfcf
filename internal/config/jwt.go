package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// TokenIssuer is the issuer claim written into every session token.
const TokenIssuer = "resumind"

// JWTConfig holds the settings for signing and validating session tokens.
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// NewJWTConfig reads JWT_SECRET (required) and JWT_EXPIRATION_HOURS (default: 24).
func NewJWTConfig() (*JWTConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	hours := 24
	if v := os.Getenv("JWT_EXPIRATION_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %v", err)
		}
		hours = n
	}
	if hours < 1 {
		return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", hours)
	}

	return &JWTConfig{
		Secret:     secret,
		Expiration: time.Duration(hours) * time.Hour,
		Issuer:     TokenIssuer,
	}, nil
}
