package models

import "time"

// HealthResponse is the payload of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// SystemStatus is the payload of GET /api/v1/status.
type SystemStatus struct {
	Service    string                 `json:"service"`
	Version    string                 `json:"version"`
	Status     string                 `json:"status"`
	Uptime     string                 `json:"uptime"`
	Timestamp  time.Time              `json:"timestamp"`
	Categories int                    `json:"categories"`
	Scheduler  map[string]interface{} `json:"scheduler,omitempty"`
}

// TrackerStatus describes one category tracker for the status API.
type TrackerStatus struct {
	Name          string    `json:"name"`
	Cycles        int64     `json:"cycles"`
	Failures      int64     `json:"failures"`
	NewItems      int64     `json:"new_items"`
	Matches       int       `json:"matches"`
	LastCycle     time.Time `json:"last_cycle"`
	LastError     string    `json:"last_error,omitempty"`
	SpeedupActive bool      `json:"speedup_active"`
	Stopped       bool      `json:"stopped"`
}

// PurchaseStatus summarizes purchase activity for the status API.
type PurchaseStatus struct {
	Attempts  int64    `json:"attempts"`
	Successes int64    `json:"successes"`
	Failures  int64    `json:"failures"`
	Cancelled int64    `json:"cancelled"`
	Purchased []string `json:"purchased"`
}

// RefreshResponse acknowledges a manual refresh trigger.
type RefreshResponse struct {
	Triggered int       `json:"triggered"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}
