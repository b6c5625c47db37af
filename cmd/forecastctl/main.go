// Command forecastctl is the operator tool for the forecast mailer: run a
// mailing by hand, inspect the recipient list, or queue a run for the worker.
package main

import (
	"fmt"
	"os"

	"forecast-mailer/internal/config"
)

func main() {
	root := newRootCmd(config.Load, os.Stdout)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
