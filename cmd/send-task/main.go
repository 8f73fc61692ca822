// send-task is meant to be used as the SHELL of a Makefile. It forwards
// each recipe to the job scheduler, blocks until the job is done and exits
// with the job's return code.
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args, os.LookupEnv, os.Stderr))
}
