package config

import "time"

// SetPathForTest points the config at a file without going through flags
func (a *AppConfig) SetPathForTest(path string) {
	a.path = path
}

// NewAuthForTest creates an Auth config for testing purposes
func NewAuthForTest(jwksURL, noAuthUID, noAuthRole, noAuthClient string) *Auth {
	return &Auth{
		jwksURL:      jwksURL,
		noAuthUID:    noAuthUID,
		noAuthRole:   noAuthRole,
		noAuthClient: noAuthClient,
	}
}

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(botToken, notifyChannel string, interval time.Duration) *Slack {
	return &Slack{
		botToken:        botToken,
		notifyChannel:   notifyChannel,
		refreshInterval: interval,
	}
}

// NewRealtimeForTest creates a Realtime config for testing purposes
func NewRealtimeForTest(backend, redisURL string) *Realtime {
	return &Realtime{
		backend:  backend,
		redisURL: redisURL,
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend string) *Repository {
	return &Repository{backend: backend}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}
