// Command architetti periodically scrapes architecture competition and public tender sites,
// stores each announcement once per source, and forwards the new ones to a
// Telegram channel.
//
//	architetti run              scheduler loop + operator HTTP server
//	architetti once             a single cycle, then exit
//	architetti sources          registrations and stored counts
//	architetti config set|get   persisted configuration partition
//	architetti export           one source partition as .xlsx
package main

import (
	"fmt"
	"os"
)

const version = "1.0.0"

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
