package main

import (
	"os"

	"github.com/soundprediction/blockgraph/cmd/blockgraph"
)

func main() {
	if err := blockgraph.Execute(); err != nil {
		os.Exit(1)
	}
}
