// File: internal/jobs/registry.go
package jobs

import (
	"sync"
	"time"

	"github.com/xkilldash9x/guestpass/internal/autofill"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Job is one triggered run.
type Job struct {
	ID         string           `json:"id"`
	Target     string           `json:"target"`
	Status     Status           `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Report     *autofill.Report `json:"report,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Registry tracks active and recent jobs in memory.
type Registry struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
	// limit caps how many finished jobs are retained. Zero keeps everything.
	limit int
}

func NewRegistry(limit int) *Registry {
	return &Registry{jobs: make(map[string]*Job), limit: limit}
}

// Register adds a job and evicts the oldest finished jobs beyond the limit.
func (r *Registry) Register(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	r.order = append(r.order, job.ID)
	r.pruneLocked()
}

func (r *Registry) pruneLocked() {
	if r.limit <= 0 || len(r.order) <= r.limit {
		return
	}
	excess := len(r.order) - r.limit
	kept := r.order[:0]
	for _, id := range r.order {
		if excess > 0 && r.jobs[id].Status.Terminal() {
			delete(r.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

// Get returns a copy of the job with id.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns copies of all retained jobs, newest first.
func (r *Registry) List() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Job, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, *r.jobs[r.order[i]])
	}
	return out
}

// update applies fn to the job under the write lock. Finished jobs are never
// moved back to an earlier status; fn is not called for them and false is
// returned.
func (r *Registry) update(id string, fn func(*Job)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return false
	}
	fn(job)
	return true
}
