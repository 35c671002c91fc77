// Package main provides the terminal chat for the ENSTP advisor.
package main

import (
	"os"

	"enstp-advisor-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
