package lib

import (
	"errors"
	"fmt"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/mem/vm"
)

// ErrNotSupported is returned by SFork.
var ErrNotSupported = errors.New("sfork not supported")

// flagIF is the interrupt-enable bit of EFLAGS.
const flagIF = 0x200

// duppage maps page number pn of the caller into child at the same
// address. Writable and copy-on-write pages become copy-on-write in both
// address spaces. Read-only pages are shared.
func duppage(m env.Machine, child env.EnvID, pn uint32) error {
	va := vm.PageAddr(pn)

	if !m.UVPT(va).HasAny(vm.PermWritable | vm.PermCOW) {
		err := m.PageMap(0, va, child, va, pu)
		if err != nil {
			return fmt.Errorf("duppage: share %08x with %s: %w",
				uint32(va), child, err)
		}

		return nil
	}

	// The child must be mapped before the parent's page turns
	// copy-on-write.
	err := m.PageMap(0, va, child, va, pu|vm.PermCOW)
	if err != nil {
		return fmt.Errorf("duppage: map %08x into %s: %w",
			uint32(va), child, err)
	}

	err = m.PageMap(0, va, 0, va, pu|vm.PermCOW)
	if err != nil {
		return fmt.Errorf("duppage: remap %08x: %w", uint32(va), err)
	}

	return nil
}

// Fork creates a child process with a copy-on-write copy of the caller's
// address space and returns the child's identifier. The child starts in
// childMain once it is scheduled.
func Fork(m env.Machine, p *Process, childMain Main) (env.EnvID, error) {
	return fork(m, p, childMain, false, 0)
}

// ForkPriority is Fork with the child's scheduling priority set before it
// becomes runnable.
func ForkPriority(
	m env.Machine,
	p *Process,
	priority uint8,
	childMain Main,
) (env.EnvID, error) {
	return fork(m, p, childMain, true, priority)
}

// SFork would share the address space with the child.
func SFork(env.Machine, *Process, Main) (env.EnvID, error) {
	return 0, ErrNotSupported
}

func fork(
	m env.Machine,
	p *Process,
	childMain Main,
	setPriority bool,
	priority uint8,
) (env.EnvID, error) {
	if err := SetPgfaultHandler(m, p, pgfault); err != nil {
		return 0, fmt.Errorf("fork: %w", err)
	}

	child, err := m.Exofork()
	if err != nil {
		return 0, fmt.Errorf("fork: exofork: %w", err)
	}

	if err := setupChild(m, child, childMain, setPriority, priority); err != nil {
		// A half-built child must not keep its slot and frames.
		_ = m.EnvDestroy(child)
		return 0, fmt.Errorf("fork: %w", err)
	}

	return child, nil
}

func setupChild(
	m env.Machine,
	child env.EnvID,
	childMain Main,
	setPriority bool,
	priority uint8,
) error {
	err := m.EnvSetTrapframe(child, env.Trapframe{
		EIP:    uint32(vm.UTEXT),
		EFlags: flagIF,
		ESP:    uint32(vm.USTACKTOP),
		Entry:  Start(childMain),
	})
	if err != nil {
		return fmt.Errorf("set trapframe of %s: %w", child, err)
	}

	if err := copyAddressSpace(m, child); err != nil {
		return err
	}

	err = m.PageAlloc(child, vm.UXSTACKTOP-vm.PageSize, puw)
	if err != nil {
		return fmt.Errorf("exception stack of %s: %w", child, err)
	}

	if err := m.EnvSetPgfaultUpcall(child, pgfaultUpcall); err != nil {
		return fmt.Errorf("set upcall of %s: %w", child, err)
	}

	if setPriority {
		if err := m.EnvSetPriority(child, priority); err != nil {
			return fmt.Errorf("set priority of %s: %w", child, err)
		}
	}

	if err := m.EnvSetStatus(child, env.Runnable); err != nil {
		return fmt.Errorf("start %s: %w", child, err)
	}

	return nil
}

// copyAddressSpace duplicates every user page below the normal stack top.
// Page tables that are not present are skipped whole.
func copyAddressSpace(m env.Machine, child env.EnvID) error {
	span := vm.VA(vm.TableSpan(m.Arch()))

	for va := vm.VA(0); va < vm.USTACKTOP; {
		if !m.UVPD(va).Has(vm.PermPresent) {
			va += span
			continue
		}

		if m.UVPT(va).Has(pu) {
			if err := duppage(m, child, vm.PageNum(va)); err != nil {
				return err
			}
		}

		va += vm.PageSize
	}

	return nil
}
