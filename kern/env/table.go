package env

import (
	"errors"
	"fmt"

	"github.com/sarchlab/joskern/mem/phys"
	"github.com/sarchlab/joskern/mem/vm"
)

// Errors reported by the environment table.
var (
	ErrBadEnv    = errors.New("environment does not exist or is not accessible")
	ErrNoFreeEnv = errors.New("no free environment slot")
)

// Table is the fixed-size arena of environment slots.
type Table struct {
	arch   vm.Arch
	frames *phys.Allocator
	envs   []Env
	free   *Env
}

// NewTable creates a table of n free slots whose environments get address
// spaces in the given layout.
func NewTable(n int, arch vm.Arch, frames *phys.Allocator) *Table {
	if n <= 0 || n > MaxEnvs {
		panic(fmt.Sprintf("table size %d out of range", n))
	}

	t := &Table{
		arch:   arch,
		frames: frames,
		envs:   make([]Env, n),
	}

	for i := n - 1; i >= 0; i-- {
		t.envs[i].ID = EnvID(i)
		t.envs[i].CPU = NoCPU
		t.envs[i].nextFree = t.free
		t.free = &t.envs[i]
	}

	return t
}

// Len returns the number of slots.
func (t *Table) Len() int {
	return len(t.envs)
}

// At returns the environment in slot i, whatever its state.
func (t *Table) At(i int) *Env {
	return &t.envs[i]
}

// Alloc takes a slot from the free list and sets it up with an empty
// address space. The environment starts NOT_RUNNABLE.
func (t *Table) Alloc(parentID EnvID) (*Env, error) {
	e := t.free
	if e == nil {
		return nil, ErrNoFreeEnv
	}

	pgdir, err := vm.NewPageDirectory(t.arch, t.frames)
	if err != nil {
		return nil, err
	}

	t.free = e.nextFree

	*e = Env{
		ID:       nextEnvID(e.ID, e.ID.Index()),
		ParentID: parentID,
		Status:   NotRunnable,
		CPU:      NoCPU,
		Priority: DefaultPriority,
		Pgdir:    pgdir,
	}

	return e, nil
}

// Lookup converts an identifier into an environment. Identifier zero means
// the caller. With checkPerm, only the caller itself and its immediate
// children are accessible.
func (t *Table) Lookup(id EnvID, caller *Env, checkPerm bool) (*Env, error) {
	if id == 0 {
		if caller == nil {
			return nil, ErrBadEnv
		}

		return caller, nil
	}

	e := &t.envs[id.Index()%len(t.envs)]
	if e.Status == Free || e.ID != id {
		return nil, ErrBadEnv
	}

	if checkPerm && e != caller && (caller == nil || e.ParentID != caller.ID) {
		return nil, ErrBadEnv
	}

	return e, nil
}

// Destroy ends an environment. An environment that is running cannot be
// torn down under the CPU executing it, so it is only marked DYING and
// reaped by that CPU. Destroy returns true if the slot was freed.
func (t *Table) Destroy(e *Env) bool {
	if e.Status == Running {
		e.Status = Dying
		return false
	}

	t.Free(e)

	return true
}

// Free releases the environment's address space and returns its slot to
// the free list.
func (t *Table) Free(e *Env) {
	if e.Status == Free {
		return
	}

	if e.Pgdir != nil {
		e.Pgdir.Release()
	}

	id := e.ID
	*e = Env{ID: id, CPU: NoCPU, Status: Free, nextFree: t.free}
	t.free = e
}

// Count returns the number of environments in each state.
func (t *Table) Count() map[Status]int {
	counts := make(map[Status]int)
	for i := range t.envs {
		counts[t.envs[i].Status]++
	}

	return counts
}
