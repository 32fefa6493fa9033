package models

import "time"

// RatelimitConfig is a database-backed rate limit rule; the reloader polls
// the "default" key. Rate uses the limiter notation, e.g. "5-S" for five
// requests per second or "100-M" for a hundred per minute.
type RatelimitConfig struct {
	ConfigKey string    `json:"config_key"`
	Rate      string    `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
