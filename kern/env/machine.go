package env

import "github.com/sarchlab/joskern/mem/vm"

// Syscalls is the system call gate as seen from user mode. Every call acts
// on behalf of the environment that is currently running.
type Syscalls interface {
	GetEnvID() EnvID
	GetEnvPriority() uint8
	Cputs(s string)

	Exofork() (EnvID, error)
	EnvDestroy(id EnvID) error
	EnvSetStatus(id EnvID, status Status) error
	EnvSetTrapframe(id EnvID, tf Trapframe) error
	EnvSetPgfaultUpcall(id EnvID, upcall Upcall) error
	EnvSetPriority(id EnvID, priority uint8) error

	PageAlloc(id EnvID, va vm.VA, perm vm.Perm) error
	PageMap(srcID EnvID, srcVA vm.VA, dstID EnvID, dstVA vm.VA, perm vm.Perm) error
	PageUnmap(id EnvID, va vm.VA) error
}

// Memory is the current environment's address space as user-mode code sees
// it: accesses are checked by the MMU, and faults are delivered to the
// environment's upcall before the access is retried.
type Memory interface {
	Load(va vm.VA, n int) ([]byte, error)
	Store(va vm.VA, data []byte) error

	// UVPD and UVPT are the read-only windows onto the environment's own
	// page directory and page table entries.
	UVPD(va vm.VA) vm.Perm
	UVPT(va vm.VA) vm.Perm

	// Arch describes the translation layout user code was built for.
	Arch() vm.Arch
}

// Machine bundles everything user-mode code can reach.
type Machine interface {
	Syscalls
	Memory
}

// Entry is user code the kernel resumes into. When it returns, the
// environment exits.
type Entry func(m Machine, u UserState)

// Upcall is the user-mode page fault entry point. It runs on the exception
// stack with the fault described by utf. A non-nil error is a fatal user
// error.
type Upcall func(m Machine, u UserState, utf UTrapframe) error

// UserState is the process-local data of a user program.
type UserState interface {
	// Clone returns an independent copy, as the data would be after the
	// address space is duplicated.
	Clone() UserState
}
