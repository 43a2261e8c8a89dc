// File: cmd/server/main.go
package main

import (
	"log"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(1)
	}
}
