package config

import "strings"

// StoreType selects the backend holding the persisted session snapshot.
type StoreType string

const (
	StoreFile   StoreType = "file"
	StoreMemory StoreType = "memory"
	StoreRedis  StoreType = "redis"
)

type Client struct{}

var _ ClientConfig = Client{}

func (Client) GetSessionAPIURL() string {
	return strings.TrimRight(GetEnv("SESSION_API_URL", "http://localhost:8080"), "/")
}

func (Client) GetSessionStore() StoreType {
	switch st := StoreType(strings.ToLower(GetEnv("SESSION_STORE", string(StoreFile)))); st {
	case StoreFile, StoreMemory, StoreRedis:
		return st
	default:
		return StoreFile
	}
}

func (Client) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Client) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "")
}
