package main

import (
	"log/slog"

	"github.com/soundprediction/blockgraph/pkg/logger"
)

func main() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Info("blockgraph coloured logger demo")
	log.Debug("Debug message - standard colour")
	log.Info("Info message - standard colour")
	log.Info("Persisting fetched schemas to cache - green")
	log.Info("Subgraph exported to neo4j - green", "entities", 42, "edges", 156)
	log.Warn("Fetch retried - yellow", "attempt", 2)
	log.Error("Schema validation failed - red", "type", "https://example.com/et/person/v/1")
}
