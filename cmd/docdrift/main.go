package main

import (
	"fmt"
	"os"

	"github.com/dshills/docdrift-mcp/internal/cli"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cli.SetVersionInfo(version, buildTime)
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
