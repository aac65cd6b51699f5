// Package monitor implements the interactive kernel monitor entered when
// the system runs out of work.
package monitor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/joskern/kern"
	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/mem/vm"
)

// Kernel is what the monitor inspects.
type Kernel interface {
	Arch() vm.Arch
	Envs() []kern.EnvInfo
	CPUStates() []kern.CPUInfo
	Memory() kern.MemInfo
	Admin(id env.EnvID) (vm.Admin, error)
}

type command struct {
	name string
	desc string
	run  func(m *Monitor, args []string) bool
}

var commands []command

func init() {
	commands = []command{
		{"help", "Display this list of commands", (*Monitor).help},
		{"kerninfo", "Display information about the kernel", (*Monitor).kerninfo},
		{"envs", "List the environments", (*Monitor).envs},
		{"space", "Select the address space to inspect (0 for the kernel)", (*Monitor).space},
		{"showmappings", "Display the physical page mappings and corresponding permission bits", (*Monitor).showmappings},
		{"setperms", "Set the perm of the page of that virtual address", (*Monitor).setperms},
		{"exit", "Leave the monitor", (*Monitor).exit},
	}
}

// Monitor is a line-oriented diagnostic prompt.
type Monitor struct {
	k      Kernel
	in     *bufio.Scanner
	out    io.Writer
	target env.EnvID
}

// New creates a monitor that reads commands from in and writes to out.
func New(k Kernel, in io.Reader, out io.Writer) *Monitor {
	return &Monitor{
		k:   k,
		in:  bufio.NewScanner(in),
		out: out,
	}
}

func (m *Monitor) printf(format string, args ...any) {
	fmt.Fprintf(m.out, format, args...)
}

// Prompt runs commands until exit is entered, the input ends or the
// context is done.
func (m *Monitor) Prompt(ctx context.Context) {
	m.printf("Welcome to the JOS kernel monitor!\n")
	m.printf("Type 'help' for a list of commands.\n")

	for ctx.Err() == nil {
		m.printf("K> ")

		if !m.in.Scan() {
			return
		}

		if !m.Exec(m.in.Text()) {
			return
		}
	}
}

// Exec runs one command line. It returns false if the monitor should
// exit.
func (m *Monitor) Exec(line string) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return true
	}

	for _, c := range commands {
		if c.name == args[0] {
			return c.run(m, args)
		}
	}

	m.printf("Unknown command '%s'\n", args[0])

	return true
}

func (m *Monitor) help([]string) bool {
	for _, c := range commands {
		m.printf("%s - %s\n", c.name, c.desc)
	}

	return true
}

func (m *Monitor) kerninfo([]string) bool {
	mem := m.k.Memory()

	m.printf("Architecture: %s\n", m.k.Arch().Name())
	m.printf("Physical memory: %d frames, %d free\n",
		mem.Frames, mem.FreeFrames)

	for _, c := range m.k.CPUStates() {
		m.printf("  cpu %d  %-8s env %08x\n",
			c.ID, c.Status, uint32(c.CurEnv))
	}

	return true
}

func (m *Monitor) envs([]string) bool {
	infos := m.k.Envs()
	if len(infos) == 0 {
		m.printf("No environments.\n")
		return true
	}

	m.printf("%-8s  %-8s  %-12s  %4s  %4s  %6s  %5s\n",
		"ID", "PARENT", "STATUS", "CPU", "PRIO", "RUNS", "PAGES")

	for _, e := range infos {
		m.printf("%08x  %08x  %-12s  %4d  %4d  %6d  %5d\n",
			uint32(e.ID), uint32(e.ParentID), e.Status,
			e.CPU, e.Priority, e.Runs, e.Pages)
	}

	return true
}

func (m *Monitor) space(args []string) bool {
	if len(args) != 2 {
		m.printf("usage: space envid\n")
		return true
	}

	id, err := parseUint(args[1])
	if err != nil {
		m.printf("bad environment id '%s'\n", args[1])
		return true
	}

	if _, err := m.k.Admin(env.EnvID(id)); err != nil {
		m.printf("%s: %v\n", args[1], err)
		return true
	}

	m.target = env.EnvID(id)
	m.printf("Inspecting address space %08x\n", id)

	return true
}

func (m *Monitor) showmappings(args []string) bool {
	var lo, hi vm.VA

	var err error
	switch len(args) {
	case 2:
		lo, err = parseVA(args[1])
		hi = lo
	case 3:
		lo, err = parseVA(args[1])
		if err == nil {
			hi, err = parseVA(args[2])
		}
	default:
		m.printf("usage[1]: showmappings 0x1234\n")
		m.printf("usage[2]: showmappings 0x1234 0xabcd\n")

		return true
	}

	if err != nil {
		m.printf("%v\n", err)
		return true
	}

	admin, err := m.k.Admin(m.target)
	if err != nil {
		m.printf("%v\n", err)
		return true
	}

	forEachPage(lo, hi, func(va vm.VA) {
		m.showmapping(admin, va)
	})

	return true
}

func (m *Monitor) showmapping(admin vm.Admin, va vm.VA) {
	page, ok := admin.Inspect(va)
	if !ok {
		m.printf("The page doesn't exist!\n")
		return
	}

	m.printPage(page)
}

func (m *Monitor) printPage(page vm.Page) {
	owner := "kernel"
	if page.Perm.Has(vm.PermUser) {
		owner = "user"
	}

	access := "read only"
	if page.Perm.Has(vm.PermWritable) {
		access = "read/write"
	}

	cow := ""
	if page.Perm.Has(vm.PermCOW) {
		cow = " (copy-on-write)"
	}

	m.printf("0x%08x - 0x%08x: %s: %s.%s\n",
		page.PAddr(), page.PAddr()+vm.PageSize-1, owner, access, cow)
}

func (m *Monitor) setperms(args []string) bool {
	var (
		lo, hi vm.VA
		spec   string
		err    error
	)

	switch len(args) {
	case 3:
		lo, err = parseVA(args[1])
		hi = lo
		spec = args[2]
	case 4:
		lo, err = parseVA(args[1])
		if err == nil {
			hi, err = parseVA(args[2])
		}

		spec = args[3]
	default:
		m.printf("usage[1]: setperms address [0 | U | W | UW]\n")
		m.printf("usage[2]: setperms start_address end_address [0 | U | W | UW]\n")

		return true
	}

	if err != nil {
		m.printf("%v\n", err)
		return true
	}

	perm, ok := parsePerm(spec)
	if !ok {
		m.printf("unknown perm!\n")
		return true
	}

	admin, err := m.k.Admin(m.target)
	if err != nil {
		m.printf("%v\n", err)
		return true
	}

	forEachPage(lo, hi, func(va vm.VA) {
		before, after, err := admin.SetPerm(va, perm,
			vm.PermUser|vm.PermWritable)
		if err != nil {
			m.printf("The page doesn't exist!\n")
			return
		}

		m.printf("Before: ")
		m.printPage(before)
		m.printf("After:  ")
		m.printPage(after)
	})

	return true
}

func (m *Monitor) exit([]string) bool {
	return false
}

func parseUint(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	return uint32(v), err
}

func parseVA(s string) (vm.VA, error) {
	v, err := parseUint(s)
	if err != nil {
		return 0, fmt.Errorf("bad address '%s'", s)
	}

	return vm.VA(v), nil
}

func parsePerm(s string) (vm.Perm, bool) {
	switch s {
	case "0":
		return 0, true
	case "U":
		return vm.PermUser, true
	case "W":
		return vm.PermWritable, true
	case "UW":
		return vm.PermUser | vm.PermWritable, true
	default:
		return 0, false
	}
}

// forEachPage calls f for lo and for every page start after it up to hi.
func forEachPage(lo, hi vm.VA, f func(va vm.VA)) {
	if lo > hi {
		return
	}

	start := uint64(lo)
	if !lo.Aligned() {
		f(lo)
		start = uint64(lo.RoundDown()) + vm.PageSize
	}

	for va := start; va <= uint64(hi); va += vm.PageSize {
		f(vm.VA(va))
	}
}
