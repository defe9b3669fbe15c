package main

import (
	"os"

	"github.com/rustyeddy/ftjournal/cmd/ftjournal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
