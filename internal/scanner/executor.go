package scanner

import "sync"

// executor runs posted tasks one at a time on a single goroutine, so control
// operations and the scan body never overlap. Stopping discards queued tasks
// and waits for the task currently running to return.
type executor struct {
	mu      sync.Mutex
	tasks   chan func()
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

func newExecutor() *executor {
	return &executor{}
}

func (e *executor) start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.tasks = make(chan func(), 64)
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.running = true

	go func(tasks chan func(), stopCh, doneCh chan struct{}) {
		defer close(doneCh)
		for {
			// Stop takes priority over queued work: once stop begins,
			// no further task may run.
			select {
			case <-stopCh:
				return
			default:
			}
			select {
			case <-stopCh:
				return
			case task := <-tasks:
				task()
			}
		}
	}(e.tasks, e.stopCh, e.doneCh)
}

// post queues a task. Returns false when the executor is stopped or the
// queue is full.
func (e *executor) post(task func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return false
	}
	select {
	case e.tasks <- task:
		return true
	default:
		return false
	}
}

// stop waits for the current task to finish and discards the rest.
func (e *executor) stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	doneCh := e.doneCh
	e.mu.Unlock()

	<-doneCh
}
