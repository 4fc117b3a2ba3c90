package main

import (
	"fmt"
	"os"

	"github.com/vladg14/libbitcoin-database/cmd/txdb/commands"

	// Import prometheus metrics to register init() functions.
	_ "github.com/vladg14/libbitcoin-database/pkg/metrics/prometheus"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
