package config

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	StorageConfig
	SecurityConfig
	ResourceConfig
}

type EnvConfig interface {
	GetPort() string
	GetListenAddr() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Storage
	Security
	Resource
}

func New() Config {
	return mainConfig{}
}
