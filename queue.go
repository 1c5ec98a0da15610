package riakpb

import "sync"

// taskQueue is the FIFO of tasks waiting for dispatch. Any goroutine may
// push; only the event loop pops.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []*Task
	closed bool
}

// pushBack appends t. Returns false once the queue is closed.
func (q *taskQueue) pushBack(t *Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, t)
	return true
}

// pushFront puts a requeued task back at the head.
func (q *taskQueue) pushFront(t *Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, nil)
	copy(q.tasks[1:], q.tasks)
	q.tasks[0] = t
	return true
}

func (q *taskQueue) popFront() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil
	}
	t := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	if len(q.tasks) == 0 {
		q.tasks = nil
	}
	return t
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// close rejects further pushes and returns what was still queued.
func (q *taskQueue) close() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	tasks := q.tasks
	q.tasks = nil
	return tasks
}
