// Package tracing turns kernel hook invocations into persistent records and
// counters.
package tracing

import (
	"fmt"

	"github.com/sarchlab/joskern/sim"
)

// Event is one kernel hook invocation as stored in a trace.
type Event struct {
	ID     string
	Seq    uint64
	Time   float64
	Kind   string
	CPU    int
	Env    string
	Detail string
}

// EventTable is the table that holds the events of a trace.
const EventTable = "kernel_events"

// SessionTable indexes the tracing sessions stored in a database.
const SessionTable = "trace_sessions"

// Session is one tracing session, from the first to the last event.
type Session struct {
	ID      string
	Started string
	Ended   string
	Events  uint64
}

// A Filter decides whether an invocation should be traced.
type Filter func(ctx sim.HookCtx) bool

// Only accepts invocations at the given positions.
func Only(positions ...*sim.HookPos) Filter {
	return func(ctx sim.HookCtx) bool {
		for _, p := range positions {
			if ctx.Pos == p {
				return true
			}
		}

		return false
	}
}

// All accepts every invocation.
func All(sim.HookCtx) bool {
	return true
}

func envString(id int32) string {
	if id == 0 {
		return ""
	}

	return fmt.Sprintf("%08x", uint32(id))
}

func detailString(detail any) string {
	if detail == nil {
		return ""
	}

	return fmt.Sprint(detail)
}
