// Package env defines user environments, the table that holds them, and the
// view of the machine that user-mode code runs against.
package env

import (
	"github.com/sarchlab/joskern/mem/vm"
)

// Status is the lifecycle state of an environment.
type Status int

// Environment states.
const (
	Free Status = iota
	Dying
	Runnable
	Running
	NotRunnable
)

func (s Status) String() string {
	switch s {
	case Free:
		return "FREE"
	case Dying:
		return "DYING"
	case Runnable:
		return "RUNNABLE"
	case Running:
		return "RUNNING"
	case NotRunnable:
		return "NOT_RUNNABLE"
	default:
		return "UNKNOWN"
	}
}

// DefaultPriority is the priority of environments created without a parent.
// Lower values are scheduled first.
const DefaultPriority uint8 = 0x7f

// NoCPU is the CPU of an environment that is not running anywhere.
const NoCPU = -1

// PushRegs are the general purpose registers saved on a trap.
type PushRegs struct {
	EDI, ESI, EBP, OESP, EBX, EDX, ECX, EAX uint32
}

// Trapframe is the user register state saved when an environment enters
// the kernel. Entry is where user code resumes when the environment is run
// next.
type Trapframe struct {
	Regs   PushRegs
	EIP    uint32
	EFlags uint32
	ESP    uint32
	Entry  Entry
}

// UTrapframe is what the kernel pushes on the user exception stack before
// invoking the page fault upcall.
type UTrapframe struct {
	FaultVA vm.VA
	Err     vm.FaultCode
	Regs    PushRegs
	EIP     uint32
	EFlags  uint32
	ESP     uint32
}

// Env is one user environment.
type Env struct {
	ID       EnvID
	ParentID EnvID
	Status   Status
	CPU      int
	Priority uint8
	Runs     int

	Trapframe     Trapframe
	Pgdir         *vm.PageDirectory
	PgfaultUpcall Upcall

	// User is the process-local state living in the environment's address
	// space. It is copied, not shared, when the environment is forked.
	User UserState

	nextFree *Env
}

// RunningOn returns true if the environment is running on the given CPU.
func (e *Env) RunningOn(cpu int) bool {
	return e.Status == Running && e.CPU == cpu
}
