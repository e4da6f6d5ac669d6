package types

import "time"

type TaskOutcome struct {
	Status   TaskStatus
	Reason   string
	Err      error
	Duration time.Duration
}

func (o TaskOutcome) Succeeded() bool {
	return o.Status == TaskStatusSuccess
}

// PublishPayload is handed to the external publish operation as JSON.
type PublishPayload struct {
	Extension  PackageConfig `json:"extension"`
	ID         string        `json:"id"`
	Resolution Resolution    `json:"resolution"`
	WorkDir    string        `json:"workDir"`
	Version    string        `json:"version,omitempty"`
	Force      bool          `json:"force,omitempty"`
}
