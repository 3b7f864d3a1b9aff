// File: internal/api/types.go
package api

import (
	"github.com/xkilldash9x/guestpass/internal/jobs"
)

// Response is the JSON envelope of every API reply.
type Response struct {
	Status  string      `json:"status"` // "running", "success", "error"
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// JobService is the part of jobs.Service the handlers use.
type JobService interface {
	Start(target string) (jobs.Job, error)
	Get(id string) (jobs.Job, bool)
	List() []jobs.Job
}
