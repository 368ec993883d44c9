package blockgraph

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/blockgraph"
	"github.com/soundprediction/blockgraph/pkg/config"
	"github.com/soundprediction/blockgraph/pkg/graphsink"
)

var exportCmd = &cobra.Command{
	Use:   "export <subgraph.json>",
	Short: "Export a subgraph to Neo4j",
	Long: `Export writes the ontology types, entities and relationships of a subgraph
into Neo4j. Nodes are merged on their ids, so exporting the same subgraph twice
leaves the database unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("neo4j-uri", "", "Neo4j URI, e.g. bolt://localhost:7687")
	exportCmd.Flags().String("neo4j-user", "", "Neo4j username")
	exportCmd.Flags().String("neo4j-password", "", "Neo4j password")
	exportCmd.Flags().String("neo4j-database", "", "Neo4j database")
	exportCmd.Flags().Int("batch-size", 500, "rows per write transaction")
	exportCmd.Flags().Bool("ensure-indexes", true, "create constraints and indexes before exporting")
	exportCmd.Flags().Duration("timeout", 5*time.Minute, "export timeout")
}

func overrideExportFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("neo4j-uri") {
		cfg.Neo4j.URI, _ = cmd.Flags().GetString("neo4j-uri")
	}
	if cmd.Flags().Changed("neo4j-user") {
		cfg.Neo4j.Username, _ = cmd.Flags().GetString("neo4j-user")
	}
	if cmd.Flags().Changed("neo4j-password") {
		cfg.Neo4j.Password, _ = cmd.Flags().GetString("neo4j-password")
	}
	if cmd.Flags().Changed("neo4j-database") {
		cfg.Neo4j.Database, _ = cmd.Flags().GetString("neo4j-database")
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.Neo4j.BatchSize, _ = cmd.Flags().GetInt("batch-size")
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	sg, err := blockgraph.LoadSubgraphFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, overrideExportFlags)
	if err != nil {
		return err
	}
	if cfg.Neo4j.URI == "" {
		return graphsink.ErrNotConfigured
	}
	client, err := blockgraph.NewClient(cfg, nil)
	if err != nil {
		return err
	}
	defer client.Close(context.Background())

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if sink, ok := client.Sink().(*graphsink.Neo4jSink); ok {
		if err := sink.VerifyConnectivity(ctx); err != nil {
			return fmt.Errorf("failed to connect to neo4j: %w", err)
		}
		if ensure, _ := cmd.Flags().GetBool("ensure-indexes"); ensure {
			if err := sink.EnsureIndexes(ctx); err != nil {
				return err
			}
		}
	}

	stats, err := client.ExportSubgraph(ctx, sg)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d nodes and %d relationships in %d statements (%s)\n",
		stats.Nodes, stats.Relationships, stats.Statements, stats.Duration.Round(time.Millisecond))
	return nil
}
