package main

import (
	"github.com/mirage-net/mirage/cmd"
)

func main() {
	// Execute the root command.
	cmd.Execute()
}
