// Package main is the remote-shoot entry point (relay + consoles).
package main

import (
	"log"

	"remote-shoot-backend/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
