package models

import "time"

// CorsConfig is the database-backed CORS policy, hot-reloaded by the server.
// AllowedOrigins is comma-separated; MaxAge is the preflight cache in seconds.
type CorsConfig struct {
	ConfigKey        string    `json:"config_key"`
	AllowedOrigins   string    `json:"allowed_origins"`
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
