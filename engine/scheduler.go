package engine

import (
	"log/slog"

	"github.com/quilllang/quill/async"
	"github.com/quilllang/quill/runtime"
)

// CheckpointStore is the host-supplied persistence hook Scheduler.
// SaveCheckpoint delegates to, keeping the actual storage backend out of
// this package entirely.
type CheckpointStore interface {
	Save(instanceID runtime.InstanceID, checkpointID uint64, bytes []byte) error
}

// pooledScheduler is the reference runtime.Scheduler implementation
// returned by NewScheduler: a fixed-size goroutine pool runs Blocking tasks,
// event-context tasks run inline on a per-token serial queue (spec §5's
// "resume invocations are serialized" per instance), and SaveCheckpoint
// delegates to a CheckpointStore.
type pooledScheduler struct {
	log   *slog.Logger
	store CheckpointStore
	work  chan runtime.Task

	events map[runtime.ThreadContextToken]chan func()
}

// NewScheduler starts a pooledScheduler with poolSize blocking workers.
func NewScheduler(poolSize int, store CheckpointStore, log *slog.Logger) *pooledScheduler {
	if poolSize <= 0 {
		poolSize = 1
	}
	s := &pooledScheduler{
		log:    log,
		store:  store,
		work:   make(chan runtime.Task, poolSize*4),
		events: make(map[runtime.ThreadContextToken]chan func()),
	}
	for i := 0; i < poolSize; i++ {
		go s.workerLoop()
	}
	return s
}

func (s *pooledScheduler) workerLoop() {
	for task := range s.work {
		if t, ok := task.(*async.Task); ok {
			t.Run()
		}
	}
}

// ScheduleBlocking enqueues task onto the blocking pool.
func (s *pooledScheduler) ScheduleBlocking(task runtime.Task) {
	s.log.Debug("scheduling blocking task", "source", task.SourceID(), "offset", task.SourceOffset())
	s.work <- task
}

// ScheduleEvent runs task's event-thread work on ctxToken's private serial
// queue, starting one lazily if this token hasn't been seen.
func (s *pooledScheduler) ScheduleEvent(ctxToken runtime.ThreadContextToken, task runtime.Task) {
	q, ok := s.events[ctxToken]
	if !ok {
		q = make(chan func(), 16)
		s.events[ctxToken] = q
		go func() {
			for fn := range q {
				fn()
			}
		}()
	}
	s.log.Debug("scheduling event task", "source", task.SourceID(), "offset", task.SourceOffset())
	q <- func() {
		t, ok := task.(*async.Task)
		if !ok || t.NonBlockingInit == nil {
			return
		}
		t.NonBlockingInit(ctxToken, t.Data, t.Resume)
	}
}

// ThreadContext returns a fixed token: the reference scheduler has a
// single event-thread identity, since cmd/quillrun is not itself an
// event-loop host. An embedding host with real per-connection event
// threads supplies its own Scheduler instead of this one.
func (s *pooledScheduler) ThreadContext() runtime.ThreadContextToken { return "default" }

// SaveCheckpoint delegates to the configured CheckpointStore and invokes
// resume with the store's error (if any), per spec §4.4's "resume's error,
// if non-nil, is rethrown at the checkpoint call site".
func (s *pooledScheduler) SaveCheckpoint(instanceID runtime.InstanceID, checkpointID uint64, bytes []byte,
	source string, offset int, data any, resume func(any, error)) {
	s.log.Info("saving checkpoint", "instance_id", instanceID.String(), "checkpoint_id", checkpointID,
		"source", source, "offset", offset)
	err := s.store.Save(instanceID, checkpointID, bytes)
	resume(data, err)
}

var _ runtime.Scheduler = (*pooledScheduler)(nil)
