package main

import (
	"os"

	"github.com/kyotaro/personasim/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
