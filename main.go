package main

import (
	"log"
	"sma-crossover/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatalf("could not start application: %v", err)
	}
}
