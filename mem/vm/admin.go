package vm

import "errors"

// ErrClearPresent is returned when an administrative change would leave a
// mapped frame behind a non-present entry.
var ErrClearPresent = errors.New("cannot clear the present bit of a mapping")

// Admin is the privileged view of a page directory used by the debug
// monitor. It reads and patches entries in place, bypassing reference
// counting and permission validation. Changes take effect on the next
// translation.
type Admin struct {
	d *PageDirectory
}

// AdminAccess grants privileged access to a page directory.
func AdminAccess(d *PageDirectory) Admin {
	return Admin{d: d}
}

// Inspect returns the mapping of the page containing va.
func (a Admin) Inspect(va VA) (Page, bool) {
	return a.d.Find(va)
}

// SetPerm clears the flags in clear and then sets the flags in set on the
// entry of a present page. The present bit cannot be cleared. It returns
// the mapping before and after the change.
func (a Admin) SetPerm(va VA, set, clear Perm) (before, after Page, err error) {
	a.d.Lock()
	defer a.d.Unlock()

	if clear.Has(PermPresent) {
		return Page{}, Page{}, ErrClearPresent
	}

	before, ok := a.d.find(va)
	if !ok {
		return Page{}, Page{}, ErrNotMapped
	}

	pte, _ := a.d.walk(va, false)
	perm := before.Perm&^clear | set
	*pte = a.d.arch.MakePTE(before.Frame, perm)

	after, _ = a.d.find(va)

	return before, after, nil
}
