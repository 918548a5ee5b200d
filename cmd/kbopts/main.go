package main

import (
	"fmt"
	"os"

	"github.com/goliatone/go-kbopts/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kbopts:", err)
		os.Exit(1)
	}
}
