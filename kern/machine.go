package kern

import (
	"fmt"
	"runtime"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/mem/vm"
)

// machine is what user code running on a CPU sees. Each call into it is a
// trap into the kernel.
type machine struct {
	k   *Kernel
	cpu *CPU
	e   *env.Env
}

// enter takes the big kernel lock on behalf of the running environment.
// An environment destroyed while it was running never returns to user
// mode.
func (m *machine) enter() {
	m.k.lock.Lock()

	if m.e.Status == env.Dying {
		m.k.lock.Unlock()
		runtime.Goexit()
	}
}

func (m *machine) leave() {
	m.k.lock.Unlock()
}

func (m *machine) GetEnvID() env.EnvID {
	m.enter()
	defer m.leave()

	return m.k.syscalls.GetEnvID(m.e)
}

func (m *machine) GetEnvPriority() uint8 {
	m.enter()
	defer m.leave()

	return m.k.syscalls.GetEnvPriority(m.e)
}

func (m *machine) Cputs(s string) {
	m.enter()
	defer m.leave()

	m.k.syscalls.Cputs(m.e, s)
}

func (m *machine) Exofork() (env.EnvID, error) {
	m.enter()
	defer m.leave()

	return m.k.syscalls.Exofork(m.e)
}

func (m *machine) EnvDestroy(id env.EnvID) error {
	m.enter()

	err := m.k.syscalls.EnvDestroy(m.e, id)
	dying := m.e.Status == env.Dying

	m.leave()

	if dying {
		runtime.Goexit()
	}

	return err
}

func (m *machine) EnvSetStatus(id env.EnvID, status env.Status) error {
	m.enter()
	defer m.leave()

	err := m.k.syscalls.EnvSetStatus(m.e, id, status)
	if err == nil && status == env.Runnable {
		m.k.kick()
	}

	return err
}

func (m *machine) EnvSetTrapframe(id env.EnvID, tf env.Trapframe) error {
	m.enter()
	defer m.leave()

	return m.k.syscalls.EnvSetTrapframe(m.e, id, tf)
}

func (m *machine) EnvSetPgfaultUpcall(id env.EnvID, upcall env.Upcall) error {
	m.enter()
	defer m.leave()

	return m.k.syscalls.EnvSetPgfaultUpcall(m.e, id, upcall)
}

func (m *machine) EnvSetPriority(id env.EnvID, priority uint8) error {
	m.enter()
	defer m.leave()

	return m.k.syscalls.EnvSetPriority(m.e, id, priority)
}

func (m *machine) PageAlloc(id env.EnvID, va vm.VA, perm vm.Perm) error {
	m.enter()
	defer m.leave()

	return m.k.syscalls.PageAlloc(m.e, id, va, perm)
}

func (m *machine) PageMap(
	srcID env.EnvID, srcVA vm.VA,
	dstID env.EnvID, dstVA vm.VA,
	perm vm.Perm,
) error {
	m.enter()
	defer m.leave()

	return m.k.syscalls.PageMap(m.e, srcID, srcVA, dstID, dstVA, perm)
}

func (m *machine) PageUnmap(id env.EnvID, va vm.VA) error {
	m.enter()
	defer m.leave()

	return m.k.syscalls.PageUnmap(m.e, id, va)
}

func (m *machine) Arch() vm.Arch {
	return m.k.arch
}

func (m *machine) UVPD(va vm.VA) vm.Perm {
	return m.e.Pgdir.DirPerm(va)
}

func (m *machine) UVPT(va vm.VA) vm.Perm {
	page, ok := m.e.Pgdir.Find(va)
	if !ok {
		return 0
	}

	return page.Perm
}

// Load reads n bytes of user memory at va.
func (m *machine) Load(va vm.VA, n int) ([]byte, error) {
	data := make([]byte, 0, n)

	for n > 0 {
		chunk := min(n, int(vm.PageSize-va.Offset()))

		paddr := m.translate(va, false)

		b, err := m.k.frames.Storage().Read(paddr, uint64(chunk))
		if err != nil {
			return nil, err
		}

		data = append(data, b...)
		va += vm.VA(chunk)
		n -= chunk
	}

	return data, nil
}

// Store writes data to user memory at va.
func (m *machine) Store(va vm.VA, data []byte) error {
	for len(data) > 0 {
		chunk := min(len(data), int(vm.PageSize-va.Offset()))

		paddr := m.translate(va, true)

		err := m.k.frames.Storage().Write(paddr, data[:chunk])
		if err != nil {
			return err
		}

		va += vm.VA(chunk)
		data = data[chunk:]
	}

	return nil
}

// translate resolves a user access, delivering a page fault to the
// environment if the MMU refuses it. The access is retried once after the
// upcall returns.
func (m *machine) translate(va vm.VA, write bool) uint64 {
	for attempt := 0; ; attempt++ {
		m.enter()
		paddr, code, ok := m.e.Pgdir.Access(va, write, true)
		m.leave()

		if ok {
			return paddr
		}

		if attempt > 0 {
			m.kill(va, "fault not resolved by upcall")
		}

		if err := m.k.traps.PageFault(m, m.e, va, code); err != nil {
			runtime.Goexit()
		}
	}
}

func (m *machine) kill(va vm.VA, reason string) {
	m.enter()
	m.k.logger.Warn("user fault",
		"env", m.e.ID,
		"va", fmt.Sprintf("%08x", uint32(va)),
		"reason", reason)
	m.k.envs.Destroy(m.e)
	m.leave()

	runtime.Goexit()
}
