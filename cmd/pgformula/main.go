// cmd/pgformula/main.go
package main

import (
	"fmt"
	"os"

	"github.com/arc-language/pgformula/internal/cli"
	"github.com/arc-language/pgformula/pkg/runner"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		// a failed configure or make exits with the child's status
		os.Exit(runner.ExitCode(err))
	}
}
