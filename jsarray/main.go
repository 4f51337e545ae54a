// Command jsarray runs scripts and scenario files against the array engine
// and inspects the storage of arrays.
package main

import (
	"os"
)

func main() {
	gs := newGlobalState()
	os.Exit(execute(gs, os.Args[1:]))
}
