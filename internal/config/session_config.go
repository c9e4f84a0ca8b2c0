package config

import "time"

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSigningSecret() string {
	return GetEnv("SIGNING_SECRET", "")
}

func (Session) GetIssuer() string {
	return GetEnv("ISSUER", "go-server-session")
}

func (Session) GetSessionTTL() time.Duration {
	return GetDurationEnv("SESSION_TTL", 24*time.Hour)
}

func (Session) GetBearerTTL() time.Duration {
	return GetDurationEnv("BEARER_TTL", 15*time.Minute)
}

func (Session) GetSweepInterval() time.Duration {
	return GetDurationEnv("SWEEP_INTERVAL", 5*time.Minute)
}

func (Session) GetDemoUsername() string {
	return GetEnv("DEMO_USERNAME", "demo")
}

// GetDemoPassword returns the configured demo password. Empty means the
// server generates one at startup.
func (Session) GetDemoPassword() string {
	return GetEnv("DEMO_PASSWORD", "")
}
