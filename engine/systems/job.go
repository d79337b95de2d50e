package systems

import (
	"fmt"

	"github.com/alseid-engine/anima/engine/core"
	"github.com/alseid-engine/anima/engine/jobs"
	"github.com/alseid-engine/anima/engine/renderer/metadata"
)

// JobSystem adapts the renderer's metadata.JobTask callback style onto
// the work-stealing scheduler in engine/jobs. Each submitted task
// becomes a single-invocation job; priority and job-type routing are
// not yet implemented by the underlying scheduler, so all tasks share
// one worker pool regardless of metadata.JobPriority or metadata.JobType.
type JobSystem struct {
	manager *jobs.Manager
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

// NewJobSystem starts a JobSystem with numWorkers workers. channelSize
// is accepted for backward compatibility with callers that sized the
// old channel-based queue; it has no effect on the new scheduler.
func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	return &JobSystem{
		manager: jobs.NewManager(numWorkers),
	}, nil
}

// Shutdown waits for in-flight work to finish and stops the workers.
func (js *JobSystem) Shutdown() error {
	js.manager.Shutdown()
	return nil
}

// Update is a no-op; the scheduler drives itself.
func (js *JobSystem) Update() {}

// AddWorkNonBlocking submits jt without blocking the caller.
func (js *JobSystem) AddWorkNonBlocking(jt metadata.JobTask) {
	go js.Submit(jt)
}

// Submit dispatches jt as a job and returns once it has been handed
// to the scheduler. It does not wait for jt to finish executing.
func (js *JobSystem) Submit(jt metadata.JobTask) {
	js.manager.Dispatch(jobs.NewSimpleJob(func() {
		paramsChan := make(chan interface{}, 1)

		err := jt.OnStart(jt.InputParams, paramsChan)
		if err != nil {
			core.LogError(err.Error())
			if jt.OnFailure != nil {
				jt.OnFailure(paramsChan)
			}
		} else if jt.OnComplete != nil {
			jt.OnComplete(paramsChan)
		}

		if jt.OnCompletionCallback != nil {
			jt.OnCompletionCallback()
		}
	}))
}
