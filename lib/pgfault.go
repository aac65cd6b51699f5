package lib

import (
	"errors"
	"fmt"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/mem/vm"
)

// ErrProtocolViolation is returned for a fault the copy-on-write handler
// does not understand: anything but a write to a copy-on-write page.
var ErrProtocolViolation = errors.New("not a write to a copy-on-write page")

// pgfault gives the faulting environment a private writable copy of a
// copy-on-write page.
func pgfault(m env.Machine, _ *Process, utf env.UTrapframe) error {
	addr := utf.FaultVA

	if !utf.Err.IsWrite() || !m.UVPT(addr).Has(vm.PermCOW) {
		return fmt.Errorf("pgfault: va %08x, err %s, pte %s: %w",
			uint32(addr), utf.Err, m.UVPT(addr), ErrProtocolViolation)
	}

	addr = addr.RoundDown()

	if err := m.PageAlloc(0, vm.PFTEMP, puw); err != nil {
		return fmt.Errorf("pgfault: page_alloc: %w", err)
	}

	data, err := m.Load(addr, vm.PageSize)
	if err != nil {
		return fmt.Errorf("pgfault: read %08x: %w", uint32(addr), err)
	}

	if err := m.Store(vm.PFTEMP, data); err != nil {
		return fmt.Errorf("pgfault: copy %08x: %w", uint32(addr), err)
	}

	if err := m.PageMap(0, vm.PFTEMP, 0, addr, puw); err != nil {
		return fmt.Errorf("pgfault: page_map: %w", err)
	}

	if err := m.PageUnmap(0, vm.PFTEMP); err != nil {
		return fmt.Errorf("pgfault: page_unmap: %w", err)
	}

	return nil
}
