package tracing

import (
	"sync"
	"time"

	"github.com/sarchlab/joskern/datarecording"
	"github.com/sarchlab/joskern/sim"
	"github.com/tebeka/atexit"
)

// Recorder is a hook that stores every accepted invocation in a
// DataRecorder.
type Recorder struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder
	filter  Filter

	sessionID  string
	start      time.Time
	seq        uint64
	terminated bool
}

// NewRecorder creates the trace tables in backend and returns a hook that
// fills them.
func NewRecorder(
	backend datarecording.DataRecorder,
	filter Filter,
) *Recorder {
	backend.CreateTable(SessionTable, Session{})
	backend.CreateTable(EventTable, Event{})

	r := &Recorder{
		backend:   backend,
		filter:    filter,
		sessionID: sim.GetIDGenerator().Generate(),
		start:     time.Now(),
	}

	atexit.Register(func() {
		r.Terminate()
	})

	return r
}

// Func records the invocation.
func (r *Recorder) Func(ctx sim.HookCtx) {
	if r.filter != nil && !r.filter(ctx) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.terminated {
		return
	}

	r.seq++

	r.backend.InsertData(EventTable, Event{
		ID:     sim.GetIDGenerator().Generate(),
		Seq:    r.seq,
		Time:   time.Since(r.start).Seconds(),
		Kind:   ctx.Pos.Name,
		CPU:    ctx.CPU,
		Env:    envString(ctx.Env),
		Detail: detailString(ctx.Detail),
	})
}

// NumEvents returns the number of events recorded so far.
func (r *Recorder) NumEvents() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.seq
}

// Terminate writes the session index and flushes the backend. Later
// invocations are ignored.
func (r *Recorder) Terminate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.terminated {
		return
	}

	r.terminated = true

	r.backend.InsertData(SessionTable, Session{
		ID:      r.sessionID,
		Started: r.start.Format(time.RFC3339Nano),
		Ended:   time.Now().Format(time.RFC3339Nano),
		Events:  r.seq,
	})
	r.backend.Flush()
}
