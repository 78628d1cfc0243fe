package api

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	resultOK        = "ok"
	resultNoReviews = "no_reviews"
	resultError     = "error"
)

type InitResult struct {
	Status        string    `json:"status"`
	AppID         string    `json:"appId,omitempty"`
	Name          string    `json:"name,omitempty"`
	TotalReviews  int       `json:"totalReviews,omitempty"`
	TotalAnalyzed int       `json:"totalAnalyzed,omitempty"`
	CacheHits     int       `json:"cacheHits,omitempty"`
	Message       string    `json:"message,omitempty"`
	Error         string    `json:"error,omitempty"`
	CompletedAt   time.Time `json:"completedAt"`
}

type Job struct {
	ID         string      `json:"jobId"`
	Running    bool        `json:"running"`
	Progress   int         `json:"progress"`
	Total      int         `json:"total"`
	Percentage int         `json:"percentage"`
	Error      string      `json:"error,omitempty"`
	LastResult *InitResult `json:"lastResult,omitempty"`
	StartedAt  time.Time   `json:"startedAt"`
}

// jobs tracks at most one init job per app.
type jobs struct {
	mu    sync.Mutex
	byApp map[string]*Job
}

func newJobs() *jobs {
	return &jobs{byApp: map[string]*Job{}}
}

// start registers a new running job. When one is already running it returns
// a copy of that job and false.
func (j *jobs) start(appID string) (Job, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if cur, ok := j.byApp[appID]; ok && cur.Running {
		return *cur, false
	}
	job := &Job{ID: uuid.New().String(), Running: true, StartedAt: time.Now().UTC()}
	j.byApp[appID] = job
	return *job, true
}

func (j *jobs) progress(appID string, done, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if job, ok := j.byApp[appID]; ok {
		// workers finish out of order
		if done > job.Progress {
			job.Progress = done
		}
		job.Total = total
	}
}

func (j *jobs) finish(appID string, res InitResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.byApp[appID]
	if !ok {
		return
	}
	job.Running = false
	job.Error = res.Error
	job.LastResult = &res
}

func (j *jobs) get(appID string) (Job, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.byApp[appID]
	if !ok {
		return Job{}, false
	}
	out := *job
	if out.Total > 0 {
		out.Percentage = int(float64(out.Progress)/float64(out.Total)*100 + 0.5)
	}
	return out, true
}
