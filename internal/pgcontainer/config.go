package pgcontainer

import "time"

// Config holds the settings of a throwaway PostgreSQL container.
type Config struct {
	// Image is the Docker image to run.
	Image string
	// User, Password and Database are passed to the image's POSTGRES_* variables.
	User     string
	Password string
	Database string
	// StartTimeout bounds image pull, start and the wait for the server to accept connections.
	StartTimeout time.Duration
}

// DefaultConfig returns settings for a small, local-only PostgreSQL.
func DefaultConfig() Config {
	return Config{
		Image:        "postgres:16-alpine",
		User:         "users",
		Password:     "users",
		Database:     "users",
		StartTimeout: 2 * time.Minute,
	}
}
