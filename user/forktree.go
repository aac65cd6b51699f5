// Package user holds the user programs the kernel can load.
package user

import (
	"fmt"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/lib"
)

// ForktreeDepth is the depth of the process tree Forktree builds.
const ForktreeDepth = 3

// Forktree forks a binary tree of processes of the given depth, each
// printing its position in the tree and its priority. Children get
// pseudo-random priorities.
func Forktree(depth int) lib.Main {
	return func(m env.Machine, p *lib.Process) {
		forktree(m, p, depth, "", 7)
	}
}

func forktree(m env.Machine, p *lib.Process, depth int, cur string, rand int) {
	m.Cputs(fmt.Sprintf("%04x: I am '%s' with priority %d\n",
		uint32(m.GetEnvID()), cur, m.GetEnvPriority()))

	forkchild(m, p, depth, cur, '0', rand)
	forkchild(m, p, depth, cur, '1', rand)
}

func forkchild(
	m env.Machine,
	p *lib.Process,
	depth int,
	cur string,
	branch byte,
	rand int,
) {
	if len(cur) >= depth {
		return
	}

	nxt := cur + string(branch)

	_, err := lib.ForkPriority(m, p, uint8(rand), func(m env.Machine, p *lib.Process) {
		forktree(m, p, depth, nxt, (rand*233+7)&0xff)
		lib.Exit(m)
	})
	if err != nil {
		lib.Fatal(m, p, err)
	}
}
