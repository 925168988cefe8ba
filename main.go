// Command testbench is the entry point for the PLATO WP36 transit-
// detection testbench: job submission, worker loop, telemetry drains,
// and store initialisation.
package main

import (
	"log"
	"os"

	"plato-wp36.eu/testbench/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}
