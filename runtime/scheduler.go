package runtime

// ThreadContextToken identifies the event-thread context a non-blocking
// resume must be switched back onto (spec §5's "resume invocations are
// serialized" per instance). Hosts are free to make this any comparable
// value; the runtime only threads it through.
type ThreadContextToken any

// Task is satisfied by *async.Task; declared here as a minimal interface
// (rather than importing package async directly) to avoid runtime
// importing the package that itself will need to import runtime for
// RuntimeState snapshots.
type Task interface {
	SourceID() string
	SourceOffset() int
}

// Scheduler is the host contract (spec §6): schedule-blocking,
// schedule-on-event-thread, save-checkpoint, and a thread-context probe.
type Scheduler interface {
	// ScheduleBlocking hands a Blocking task to the host's blocking
	// pool. The host must eventually call the task's resume.
	ScheduleBlocking(task Task)

	// ScheduleEvent hands a Non-blocking task's initiator invocation to
	// the host, to run on the event-thread context identified by
	// ctxToken.
	ScheduleEvent(ctxToken ThreadContextToken, task Task)

	// ThreadContext returns a token identifying the calling thread's
	// event context, captured at suspension time so resumption can be
	// switched back onto it.
	ThreadContext() ThreadContextToken

	// SaveCheckpoint delegates a Checkpoint task's serialized bytes to
	// the host's persistence hook. The host decides when (or whether)
	// to call resume; resume's error, if non-nil, is rethrown at the
	// checkpoint call site on the next cascade.
	SaveCheckpoint(instanceID InstanceID, checkpointID uint64, bytes []byte,
		source string, offset int, data any, resume func(any, error))
}
