// Package main is the entry point for the Inferno Connect web application.
package main

import (
	"log"

	"inferno.jolokia.com/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
