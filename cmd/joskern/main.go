// Command joskern boots a simulated JOS kernel and runs user programs on
// it.
package main

import "github.com/sarchlab/joskern/cmd"

func main() {
	cmd.Execute()
}
