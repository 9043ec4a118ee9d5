// Command bdsplayers lists the players on a running Bedrock server and
// queues admin commands for the panel to relay.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
