package main

import (
	"fmt"
	"os"

	"SeiChat-Agent/cmd/seichatctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
