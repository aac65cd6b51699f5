// Package lib is the user-level library programs link against: process
// startup, page fault handling and copy-on-write fork.
package lib

import (
	"errors"
	"fmt"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/mem/vm"
)

const (
	pu  = vm.PermPresent | vm.PermUser
	puw = pu | vm.PermWritable
)

// A Main is the body of a user program.
type Main func(m env.Machine, p *Process)

// PgfaultHandler handles a page fault on behalf of a process.
type PgfaultHandler func(m env.Machine, p *Process, utf env.UTrapframe) error

// errNoHandler is reported when the upcall runs before a handler is set.
var errNoHandler = errors.New("page fault upcall without a handler")

// Process is the library state of a user program. It lives in the
// program's address space, so a forked child starts with a copy.
type Process struct {
	// Thisenv is the identifier of the environment running the process.
	Thisenv env.EnvID

	pgfaultHandler PgfaultHandler
}

// NewProcess returns the state of a freshly loaded program.
func NewProcess() *Process {
	return &Process{}
}

// Clone returns a copy of the process state.
func (p *Process) Clone() env.UserState {
	c := *p
	return &c
}

// Start turns a program body into an environment entry point. It resolves
// Thisenv before running umain.
func Start(umain Main) env.Entry {
	return func(m env.Machine, u env.UserState) {
		p := u.(*Process)
		p.Thisenv = m.GetEnvID()
		umain(m, p)
	}
}

// Exit destroys the calling environment.
func Exit(m env.Machine) {
	_ = m.EnvDestroy(0)
}

// Fatal prints a diagnostic for a fatal user error and exits.
func Fatal(m env.Machine, p *Process, err error) {
	m.Cputs(fmt.Sprintf("[%08x] user panic: %v\n", uint32(p.Thisenv), err))
	Exit(m)
}

// SetPgfaultHandler installs the page fault handler of the process. The
// first call allocates the exception stack and registers the upcall with
// the kernel.
func SetPgfaultHandler(m env.Machine, p *Process, handler PgfaultHandler) error {
	if p.pgfaultHandler == nil {
		err := m.PageAlloc(0, vm.UXSTACKTOP-vm.PageSize, puw)
		if err != nil {
			return fmt.Errorf("set_pgfault_handler: page_alloc: %w", err)
		}

		err = m.EnvSetPgfaultUpcall(0, pgfaultUpcall)
		if err != nil {
			return fmt.Errorf("set_pgfault_handler: set upcall: %w", err)
		}
	}

	p.pgfaultHandler = handler

	return nil
}

// pgfaultUpcall is the entry point registered with the kernel. It hands
// the fault to the handler of the process that took it.
func pgfaultUpcall(m env.Machine, u env.UserState, utf env.UTrapframe) error {
	p, ok := u.(*Process)
	if !ok || p.pgfaultHandler == nil {
		return errNoHandler
	}

	return p.pgfaultHandler(m, p, utf)
}
