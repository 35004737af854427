package config

import "path/filepath"

// Token store backends.
const (
	TokenStoreFile  = "file"
	TokenStoreRedis = "redis"
)

type StorageConfig interface {
	GetTokenStore() string
	GetTokenStorePath() string
	GetTokenStoreKey() string
	GetRedisURL() string
	GetRedisPrefix() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetTokenStore() string {
	return GetEnv("TOKEN_STORE", TokenStoreFile)
}

func (Storage) GetTokenStorePath() string {
	return GetEnv("TOKEN_STORE_PATH", filepath.Join(".", "data", "session.yaml"))
}

// GetTokenStoreKey is the secret durable values are sealed with. Empty stores them unsealed.
func (Storage) GetTokenStoreKey() string {
	return GetEnv("TOKEN_STORE_KEY", "")
}

func (Storage) GetRedisURL() string {
	return GetEnv("REDIS_URL", "redis://localhost:6379/0")
}

func (Storage) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "crud-session:")
}
