package vm

import "strings"

// FaultCode is the error code the MMU reports with a page fault.
type FaultCode uint32

// Page fault error code bits.
const (
	// FaultProtection means the page was present but the access violated its
	// protection. Without it the page was not present.
	FaultProtection FaultCode = 1 << iota
	// FaultWrite means the faulting access was a write.
	FaultWrite
	// FaultUser means the access happened in user mode.
	FaultUser
)

// IsWrite returns true if the fault was caused by a write.
func (c FaultCode) IsWrite() bool {
	return c&FaultWrite != 0
}

func (c FaultCode) String() string {
	parts := []string{"not-present"}
	if c&FaultProtection != 0 {
		parts[0] = "protection"
	}

	if c.IsWrite() {
		parts = append(parts, "write")
	} else {
		parts = append(parts, "read")
	}

	if c&FaultUser != 0 {
		parts = append(parts, "user")
	} else {
		parts = append(parts, "kernel")
	}

	return strings.Join(parts, "/")
}
