package syscall

import (
	"errors"
	"fmt"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/mem/phys"
)

// Errno is a system call failure. Its value is the negative code user
// programs receive.
type Errno int

// System call error codes.
const (
	EUnspecified Errno = -1
	EBadEnv      Errno = -2
	EInval       Errno = -3
	ENoMem       Errno = -4
	ENoFreeEnv   Errno = -5
	EFault       Errno = -6
)

var errnoText = map[Errno]string{
	EUnspecified: "unspecified error",
	EBadEnv:      "bad environment",
	EInval:       "invalid parameter",
	ENoMem:       "out of memory",
	ENoFreeEnv:   "out of environments",
	EFault:       "segmentation fault",
}

func (e Errno) Error() string {
	text, ok := errnoText[e]
	if !ok {
		text = "unknown error"
	}

	return fmt.Sprintf("%s (%d)", text, int(e))
}

// Code returns the negative error code.
func (e Errno) Code() int {
	return int(e)
}

// errnoOf maps an internal failure to the code handed to user space.
func errnoOf(err error) Errno {
	var errno Errno

	switch {
	case err == nil:
		return 0
	case errors.As(err, &errno):
		return errno
	case errors.Is(err, env.ErrBadEnv):
		return EBadEnv
	case errors.Is(err, env.ErrNoFreeEnv):
		return ENoFreeEnv
	case errors.Is(err, phys.ErrNoMem):
		return ENoMem
	default:
		return EUnspecified
	}
}
