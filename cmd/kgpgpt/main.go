// Command kgpgpt runs the IIT Kharagpur assistant: an HTTP API, an MCP stdio
// server, a one-shot query and knowledge-base ingestion.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kgpgpt:", err)
		os.Exit(1)
	}
}
