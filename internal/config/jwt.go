package config

import (
	"fmt"
)

// AuthConfig controls bearer-token authentication of the HTTP API.
type AuthConfig struct {
	// Enabled validates bearer tokens when they are present.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Required rejects requests without a token. Only meaningful when Enabled.
	Required        bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Secret          string `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty"`
	Issuer          string `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	ExpirationHours int    `json:"expiration_hours,omitempty" yaml:"expiration_hours,omitempty"`
}

// JWTConfig holds configuration for JWT token validation and development token minting.
type JWTConfig struct {
	Secret          string
	Issuer          string
	ExpirationHours int
}

// JWT returns the validated JWT configuration for this auth section.
func (a AuthConfig) JWT() (*JWTConfig, error) {
	cfg := &JWTConfig{
		Secret:          a.Secret,
		Issuer:          a.Issuer,
		ExpirationHours: a.ExpirationHours,
	}
	if cfg.ExpirationHours == 0 {
		cfg.ExpirationHours = 24
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if len(c.Secret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
