package kern

import (
	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/mem/vm"
)

// EnvInfo is a snapshot of one environment.
type EnvInfo struct {
	ID       env.EnvID `json:"id"`
	ParentID env.EnvID `json:"parent_id"`
	Status   string    `json:"status"`
	CPU      int       `json:"cpu"`
	Priority uint8     `json:"priority"`
	Runs     int       `json:"runs"`
	Pages    int       `json:"pages"`
}

// CPUInfo is a snapshot of one CPU.
type CPUInfo struct {
	ID     int       `json:"id"`
	Status string    `json:"status"`
	CurEnv env.EnvID `json:"cur_env"`
}

// MemInfo summarizes physical memory use.
type MemInfo struct {
	Frames     int `json:"frames"`
	FreeFrames int `json:"free_frames"`
}

// Envs returns the environments that are not free.
func (k *Kernel) Envs() []EnvInfo {
	k.lock.Lock()
	defer k.lock.Unlock()

	var infos []EnvInfo

	for i := 0; i < k.envs.Len(); i++ {
		e := k.envs.At(i)
		if e.Status == env.Free {
			continue
		}

		infos = append(infos, EnvInfo{
			ID:       e.ID,
			ParentID: e.ParentID,
			Status:   e.Status.String(),
			CPU:      e.CPU,
			Priority: e.Priority,
			Runs:     e.Runs,
			Pages:    len(e.Pgdir.Pages(vm.UTOP)),
		})
	}

	return infos
}

// CPUStates returns a snapshot of every CPU.
func (k *Kernel) CPUStates() []CPUInfo {
	k.lock.Lock()
	defer k.lock.Unlock()

	infos := make([]CPUInfo, 0, len(k.cpus))
	for _, c := range k.cpus {
		info := CPUInfo{ID: c.ID, Status: c.Status().String()}
		if c.CurEnv != nil {
			info.CurEnv = c.CurEnv.ID
		}

		infos = append(infos, info)
	}

	return infos
}

// Memory returns the physical memory usage.
func (k *Kernel) Memory() MemInfo {
	return MemInfo{
		Frames:     k.frames.NumFrames(),
		FreeFrames: k.frames.NumFree(),
	}
}

// Mappings returns the user pages of an environment.
func (k *Kernel) Mappings(id env.EnvID) ([]vm.Page, error) {
	k.lock.Lock()
	defer k.lock.Unlock()

	e, err := k.envs.Lookup(id, nil, false)
	if err != nil {
		return nil, err
	}

	return e.Pgdir.Pages(vm.UTOP), nil
}

// Admin returns privileged access to the page table of an environment, or
// of the kernel if id is zero.
func (k *Kernel) Admin(id env.EnvID) (vm.Admin, error) {
	if id == 0 {
		return vm.AdminAccess(k.kernPgdir), nil
	}

	k.lock.Lock()
	defer k.lock.Unlock()

	e, err := k.envs.Lookup(id, nil, false)
	if err != nil {
		return vm.Admin{}, err
	}

	return vm.AdminAccess(e.Pgdir), nil
}
