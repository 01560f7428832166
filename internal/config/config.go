// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for server settings.
//
// IMPORTANT: When changing defaults, only modify this file.
package config

import (
	"os"
	"strconv"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{Port: 3000}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()
	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	return cfg
}

// StoreConfig holds room persistence settings.
type StoreConfig struct {
	Dir string
}

// DefaultStore returns the default persistence configuration.
func DefaultStore() StoreConfig {
	return StoreConfig{Dir: "data/rooms"}
}

// StoreFromEnv returns persistence configuration with environment overrides.
func StoreFromEnv() StoreConfig {
	cfg := DefaultStore()
	if d := os.Getenv("ROOM_STORE_DIR"); d != "" {
		cfg.Dir = d
	}
	return cfg
}

// DebugConfig holds debug/observability server settings.
type DebugConfig struct {
	Enabled    bool
	ListenAddr string
}

// DefaultDebug returns the default debug server configuration.
func DefaultDebug() DebugConfig {
	return DebugConfig{Enabled: true, ListenAddr: "127.0.0.1:6060"}
}

// DebugFromEnv returns debug configuration with environment overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}
	if addr := os.Getenv("DEBUG_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	return cfg
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server ServerConfig
	Store  StoreConfig
	Debug  DebugConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server: ServerFromEnv(),
		Store:  StoreFromEnv(),
		Debug:  DebugFromEnv(),
	}
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
