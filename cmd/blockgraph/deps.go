package blockgraph

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soundprediction/blockgraph"
	"github.com/soundprediction/blockgraph/pkg/config"
	"github.com/soundprediction/blockgraph/pkg/types"
)

var depsCmd = &cobra.Command{
	Use:   "deps <versioned-url>...",
	Short: "Resolve the dependency closure of ontology types",
	Long: `Deps fetches each ontology type, validates it, and follows every type it
depends on (inherited entity types, property types, data types, link types and
link destinations) until the closure is complete.

The result is written as a YAML manifest. If a fetch or validation fails, the
manifest of everything resolved so far is still written, with the unresolved
ids listed under pending, and the command exits non-zero.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDeps,
}

func init() {
	rootCmd.AddCommand(depsCmd)

	depsCmd.Flags().IntP("concurrency", "c", 8, "maximum concurrent schema fetches")
	depsCmd.Flags().StringP("output", "o", "", "manifest file (default stdout)")
	depsCmd.Flags().String("cache", "", "schema cache driver (none, memory, badger)")
	depsCmd.Flags().String("cache-path", "", "badger cache directory")
	depsCmd.Flags().Int("retries", 3, "retries per schema fetch")
	depsCmd.Flags().Bool("no-breaker", false, "disable the fetch circuit breaker")
	depsCmd.Flags().String("telemetry-parquet-path", "", "directory for error telemetry Parquet files")
}

func overrideDepsFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("concurrency") {
		cfg.Codegen.MaxConcurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	if cmd.Flags().Changed("output") {
		cfg.Codegen.ManifestPath, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("cache") {
		cfg.Cache.Driver, _ = cmd.Flags().GetString("cache")
	}
	if cmd.Flags().Changed("cache-path") {
		cfg.Cache.Path, _ = cmd.Flags().GetString("cache-path")
	}
	if cmd.Flags().Changed("retries") {
		cfg.Codegen.Retries, _ = cmd.Flags().GetInt("retries")
	}
	if noBreaker, _ := cmd.Flags().GetBool("no-breaker"); noBreaker {
		cfg.CircuitBreaker.Enabled = false
	}
	if cmd.Flags().Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = cmd.Flags().GetString("telemetry-parquet-path")
		cfg.Telemetry.Enabled = true
	}
}

func runDeps(cmd *cobra.Command, args []string) error {
	ids := make([]types.VersionedURL, 0, len(args))
	for _, arg := range args {
		id := types.VersionedURL(arg)
		if err := id.Validate(); err != nil {
			return err
		}
		ids = append(ids, id)
	}

	cfg, err := loadConfig(cmd, overrideDepsFlags)
	if err != nil {
		return err
	}
	client, err := blockgraph.NewClient(cfg, nil)
	if err != nil {
		return err
	}
	defer client.Close(context.Background())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "cli")

	manifest, _, traverseErr := client.ResolveDependencies(ctx, ids)
	if manifest == nil {
		return traverseErr
	}

	if cfg.Codegen.ManifestPath != "" {
		if err := manifest.WriteFile(cfg.Codegen.ManifestPath); err != nil {
			return err
		}
		client.Logger().Info("Persisted dependency manifest",
			"path", cfg.Codegen.ManifestPath,
			"types", len(manifest.Types))
	} else if err := manifest.WriteYAML(cmd.OutOrStdout()); err != nil {
		return err
	}

	if traverseErr != nil {
		return fmt.Errorf("traversal incomplete, %d types pending: %w", len(manifest.Pending), traverseErr)
	}
	return nil
}
