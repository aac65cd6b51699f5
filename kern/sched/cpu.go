package sched

import (
	"sync/atomic"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/mem/phys"
)

// CPUStatus is the run state of a CPU.
type CPUStatus uint32

// CPU run states.
const (
	CPUUnused CPUStatus = iota
	CPUStarted
	CPUHalted
)

func (s CPUStatus) String() string {
	switch s {
	case CPUUnused:
		return "UNUSED"
	case CPUStarted:
		return "STARTED"
	case CPUHalted:
		return "HALTED"
	default:
		return "UNKNOWN"
	}
}

// CPU is the scheduling state of one processor. Fields other than the
// status are protected by the big kernel lock.
type CPU struct {
	ID int

	// CurEnv is the environment the CPU is running, if any.
	CurEnv *env.Env

	// CR3 is the frame of the page directory in use.
	CR3 phys.Frame

	status     atomic.Uint32
	lastSlot   int
	interrupts chan struct{}
}

// NewCPU creates a started CPU that has not run any environment yet.
func NewCPU(id int, kernPgdir phys.Frame) *CPU {
	c := &CPU{
		ID:         id,
		CR3:        kernPgdir,
		lastSlot:   -1,
		interrupts: make(chan struct{}, 1),
	}
	c.status.Store(uint32(CPUStarted))

	return c
}

// Status returns the CPU run state. It can be read without the lock.
func (c *CPU) Status() CPUStatus {
	return CPUStatus(c.status.Load())
}

func (c *CPU) setStatus(s CPUStatus) {
	c.status.Store(uint32(s))
}

// LastSlot returns the table slot of the environment this CPU ran most
// recently, or -1.
func (c *CPU) LastSlot() int {
	return c.lastSlot
}

// Interrupt raises the CPU's interrupt line. An interrupt raised while the
// CPU is not halted stays pending until the next halt.
func (c *CPU) Interrupt() {
	select {
	case c.interrupts <- struct{}{}:
	default:
	}
}
