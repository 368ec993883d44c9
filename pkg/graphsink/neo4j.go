package graphsink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/soundprediction/blockgraph/pkg/config"
	"github.com/soundprediction/blockgraph/pkg/subgraph"
	"github.com/soundprediction/blockgraph/pkg/types"
	"github.com/soundprediction/blockgraph/pkg/utils"
)

// ErrNotConfigured is returned when no Neo4j URI is set.
var ErrNotConfigured = errors.New("neo4j export is not configured")

const defaultBatchSize = 500

// Executor runs one write statement.
type Executor interface {
	ExecuteWrite(ctx context.Context, query string, params map[string]any) error
}

// Sink receives exported subgraphs.
type Sink interface {
	Export(ctx context.Context, sg *subgraph.Subgraph) (*ExportStats, error)
	Close(ctx context.Context) error
}

// ExportStats summarises one export.
type ExportStats struct {
	Nodes         int           `json:"nodes"`
	Relationships int           `json:"relationships"`
	Statements    int           `json:"statements"`
	Duration      time.Duration `json:"duration"`
}

type driverExecutor struct {
	client   neo4j.DriverWithContext
	database string
}

func (e *driverExecutor) ExecuteWrite(ctx context.Context, query string, params map[string]any) error {
	session := e.client.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: e.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

// Neo4jSink writes subgraphs into Neo4j with batched UNWIND statements.
type Neo4jSink struct {
	exec      Executor
	client    neo4j.DriverWithContext
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

// NewNeo4jSink connects to the database described by cfg.
func NewNeo4jSink(cfg config.Neo4jConfig, logger *slog.Logger) (*Neo4jSink, error) {
	if cfg.URI == "" {
		return nil, ErrNotConfigured
	}
	client, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	s := NewSinkWithExecutor(&driverExecutor{client: client, database: database}, cfg.BatchSize, logger)
	s.client = client
	return s, nil
}

// NewSinkWithExecutor builds a sink over any Executor.
func NewSinkWithExecutor(exec Executor, batchSize int, logger *slog.Logger) *Neo4jSink {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Neo4jSink{exec: exec, batchSize: batchSize, logger: logger, now: time.Now}
}

// VerifyConnectivity checks that the driver can reach the database.
func (s *Neo4jSink) VerifyConnectivity(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.VerifyConnectivity(ctx)
}

// EnsureIndexes creates the constraints and indexes used by Export.
func (s *Neo4jSink) EnsureIndexes(ctx context.Context) error {
	for _, q := range IndexQueries() {
		if err := s.exec.ExecuteWrite(ctx, q, nil); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// Export writes sg: ontology types first, then entities, then relationships, so
// every relationship finds both endpoints. Each batch is its own transaction.
func (s *Neo4jSink) Export(ctx context.Context, sg *subgraph.Subgraph) (*ExportStats, error) {
	start := s.now()
	plan, err := BuildPlan(sg)
	if err != nil {
		return nil, err
	}
	stats := &ExportStats{}
	stats.Nodes, stats.Relationships = plan.Counts()
	exportedAt := start.UTC().Format(time.RFC3339)

	for _, kind := range []subgraph.VertexKind{subgraph.DataTypeVertexKind, subgraph.PropertyTypeVertexKind, subgraph.EntityTypeVertexKind} {
		query, err := OntologyTypeQuery(kind)
		if err != nil {
			return stats, err
		}
		if err := s.writeBatches(ctx, query, plan.OntologyTypes[kind], exportedAt, stats); err != nil {
			return stats, fmt.Errorf("failed to export %s vertices: %w", kind, err)
		}
	}

	if err := s.writeBatches(ctx, EntityQuery, plan.Entities, exportedAt, stats); err != nil {
		return stats, fmt.Errorf("failed to export entities: %w", err)
	}

	kinds := make([]types.EdgeKind, 0, len(plan.Relationships))
	for kind := range plan.Relationships {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	for _, kind := range kinds {
		query, err := RelationshipQuery(kind)
		if err != nil {
			return stats, err
		}
		if err := s.writeBatches(ctx, query, plan.Relationships[kind], exportedAt, stats); err != nil {
			return stats, fmt.Errorf("failed to export %s relationships: %w", kind, err)
		}
	}

	stats.Duration = s.now().Sub(start)
	s.logger.Info("subgraph export committed",
		"nodes", stats.Nodes,
		"relationships", stats.Relationships,
		"statements", stats.Statements,
		"duration", stats.Duration)
	return stats, nil
}

func (s *Neo4jSink) writeBatches(ctx context.Context, query string, rows []Row, exportedAt string, stats *ExportStats) error {
	for _, batch := range utils.Batch(rows, s.batchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.exec.ExecuteWrite(ctx, query, map[string]any{
			"rows":        batch,
			"exported_at": exportedAt,
		})
		if err != nil {
			return err
		}
		stats.Statements++
	}
	return nil
}

// Close releases the driver.
func (s *Neo4jSink) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Close(ctx)
}
