package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	ClientConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// SessionConfig holds the settings of the development session API server.
type SessionConfig interface {
	GetSigningSecret() string
	GetIssuer() string
	GetSessionTTL() time.Duration
	GetBearerTTL() time.Duration
	GetSweepInterval() time.Duration
	GetDemoUsername() string
	GetDemoPassword() string
}

// ClientConfig holds the settings used by sessionctl to reach the session API
// and to choose where the session snapshot is persisted.
type ClientConfig interface {
	GetSessionAPIURL() string
	GetSessionStore() StoreType
	GetRedisAddr() string
	GetRedisPrefix() string
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	Client
}

func New() Config {
	return mainConfig{}
}
