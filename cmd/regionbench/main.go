package main

import (
	"fmt"
	"os"

	"github.com/thiagonache/regionbench"
)

func main() {
	if err := regionbench.RunCLI(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
