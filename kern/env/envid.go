package env

import "fmt"

// Environment identifiers carry the slot index in the low bits and a
// generation number from GenShift upwards, so that an identifier held past
// the destruction of its environment no longer matches the reused slot.
const (
	LogMaxEnvs = 10
	MaxEnvs    = 1 << LogMaxEnvs
	GenShift   = 12
)

// EnvID identifies an environment. Zero in a system call argument means
// the calling environment.
type EnvID int32

// Index returns the table slot the identifier refers to.
func (id EnvID) Index() int {
	return int(id) & (MaxEnvs - 1)
}

func (id EnvID) String() string {
	return fmt.Sprintf("%08x", int32(id))
}

func nextEnvID(prev EnvID, index int) EnvID {
	generation := (int32(prev) + (1 << GenShift)) &^ (MaxEnvs - 1)
	if generation <= 0 {
		generation = 1 << GenShift
	}

	return EnvID(generation | int32(index))
}
