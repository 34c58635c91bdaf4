// cmd/questify/main.go
//
// Entry point for the questify CLI. Running `questify` in a directory opens
// the document Q&A terminal client against the configured inference
// service. `questify serve-stub` runs a local stand-in for that service.

package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
