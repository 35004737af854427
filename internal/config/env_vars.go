package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar    = "PORT"
	listenAddrVar = "LISTEN_ADDR"
	loopbackHost  = "127.0.0.1"
	appNameVar    = "APP_NAME"
	baseURLVar    = "BASE_URL"
	envEnvVar     = "ENV"
	defaultEnv    = "DEV"
	defaultAppURL = "http://localhost:8080"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

// GetPort returns the port number only, without a host or leading colon.
func (EnvVars) GetPort() string {
	return strings.TrimPrefix(GetEnv(portEnvVar, "8080"), ":")
}

// GetListenAddr is the address the server binds to. The session belongs to whoever can
// reach the server, so it defaults to loopback on PORT.
func (e EnvVars) GetListenAddr() string {
	return GetEnv(listenAddrVar, net.JoinHostPort(loopbackHost, e.GetPort()))
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "CRUD Session")
}

// GetBaseURL returns the public URL of this application (e.g., "http://localhost:8080").
// The default redirect URI is derived from it.
func (EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(GetEnv(baseURLVar, defaultAppURL), "/")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envEnvVar, defaultEnv)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvDuration parses envVar with time.ParseDuration, falling back to defaultValue
// when it is unset or unparsable.
func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

// GetEnvBool parses envVar with strconv.ParseBool, falling back to defaultValue.
func GetEnvBool(envVar string, defaultValue bool) bool {
	b, err := strconv.ParseBool(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return b
}

// GetEnvList splits envVar on commas and spaces, falling back to defaultValue when empty.
func GetEnvList(envVar string, defaultValue []string) []string {
	fields := strings.FieldsFunc(os.Getenv(envVar), func(r rune) bool {
		return r == ',' || r == ' '
	})
	if len(fields) == 0 {
		return defaultValue
	}
	return fields
}
