package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envConfig maps MEDIKEEP_* environment variables onto the overridable
// settings. Unset variables leave the existing Config values in place.
type envConfig struct {
	EndpointAddr         string        `envconfig:"ENDPOINT_ADDR"`
	DatabaseDSN          string        `envconfig:"DATABASE_DSN"`
	SecretKey            string        `envconfig:"SECRET_KEY"`
	AccessTokenValidity  time.Duration `envconfig:"ACCESS_TOKEN_VALIDITY"`
	RefreshTokenValidity time.Duration `envconfig:"REFRESH_TOKEN_VALIDITY"`
	InvitationValidity   time.Duration `envconfig:"INVITATION_VALIDITY"`
}

func parseEnv(cfg *Config) {
	var ec envConfig
	if err := envconfig.Process("medikeep", &ec); err != nil {
		panic(err)
	}

	if ec.EndpointAddr != "" {
		cfg.EndpointAddr = ec.EndpointAddr
	}
	if ec.DatabaseDSN != "" {
		cfg.DatabaseDSN = ec.DatabaseDSN
	}
	if ec.SecretKey != "" {
		cfg.SecretKey = ec.SecretKey
	}
	if ec.AccessTokenValidity != 0 {
		cfg.AccessTokenValidityDuration = ec.AccessTokenValidity
	}
	if ec.RefreshTokenValidity != 0 {
		cfg.RefreshTokenValidityDuration = ec.RefreshTokenValidity
	}
	if ec.InvitationValidity != 0 {
		cfg.InvitationValidityDuration = ec.InvitationValidity
	}
}
