package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvConfig lists the environment variables understood by the server.
// Unset variables leave the corresponding field alone.
type EnvConfig struct {
	Port                  string        `env:"PORT"`
	DatabaseDSN           string        `env:"DATABASE_DSN"`
	SecretKey             string        `env:"JWT_SECRET"`
	TokenValidityDuration time.Duration `env:"TOKEN_VALIDITY_DURATION"`
	BcryptCost            int           `env:"BCRYPT_COST"`
	SendGridAPIKey        string        `env:"SENDGRID_API_KEY"`
	EmailFrom             string        `env:"EMAIL_FROM"`
	S3RootUser            string        `env:"S3_ROOT_USER"`
	S3RootPassword        string        `env:"S3_ROOT_PASSWORD"`
	S3Bucket              string        `env:"S3_BUCKET"`
	S3Region              string        `env:"S3_REGION"`
	S3BaseEndpoint        string        `env:"S3_BASE_ENDPOINT"`
}

// parseEnv overlays environment variables onto config. PORT may be a bare
// port number ("3000") or a full listen address.
func parseEnv(config *Config) error {
	e := EnvConfig{
		DatabaseDSN:           config.DatabaseDSN,
		SecretKey:             config.SecretKey,
		TokenValidityDuration: config.TokenValidityDuration,
		BcryptCost:            config.BcryptCost,
		SendGridAPIKey:        config.SendGridAPIKey,
		EmailFrom:             config.EmailFrom,
		S3RootUser:            config.S3RootUser,
		S3RootPassword:        config.S3RootPassword,
		S3Bucket:              config.S3Bucket,
		S3Region:              config.S3Region,
		S3BaseEndpoint:        config.S3BaseEndpoint,
	}

	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	if e.Port != "" {
		if strings.Contains(e.Port, ":") {
			config.EndpointAddrHTTP = e.Port
		} else {
			config.EndpointAddrHTTP = ":" + e.Port
		}
	}
	config.DatabaseDSN = e.DatabaseDSN
	config.SecretKey = e.SecretKey
	config.TokenValidityDuration = e.TokenValidityDuration
	config.BcryptCost = e.BcryptCost
	config.SendGridAPIKey = e.SendGridAPIKey
	config.EmailFrom = e.EmailFrom
	config.S3RootUser = e.S3RootUser
	config.S3RootPassword = e.S3RootPassword
	config.S3Bucket = e.S3Bucket
	config.S3Region = e.S3Region
	config.S3BaseEndpoint = e.S3BaseEndpoint
	return nil
}
