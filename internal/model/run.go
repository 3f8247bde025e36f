package model

import "time"

// RunStatus represents the current state of a relocation run in the catalog.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Doublet names the event pair of a relocation run.
type Doublet struct {
	Master Event  `json:"master"`
	Slave  *Event `json:"slave,omitempty"` // catalog location, if known
	Label  string `json:"label"`
}

// Run represents a single relocation run stored in the catalog.
type Run struct {
	ID        string    `json:"id"`
	Doublet   Doublet   `json:"doublet"`
	Status    RunStatus `json:"status"`
	Solution  *Solution `json:"solution,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
