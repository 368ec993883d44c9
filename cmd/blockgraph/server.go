package blockgraph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/blockgraph"
	"github.com/soundprediction/blockgraph/pkg/config"
	"github.com/soundprediction/blockgraph/pkg/graphsink"
	"github.com/soundprediction/blockgraph/pkg/server"
	"github.com/soundprediction/blockgraph/pkg/server/handlers"
	"github.com/soundprediction/blockgraph/pkg/utils"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the blockgraph HTTP server",
	Long: `Start the blockgraph HTTP server.

The server provides endpoints for:
- Resolving the roots of a posted subgraph
- Looking up an entity revision, optionally at a point in time
- Listing the outgoing or incoming links of an entity
- Resolving the dependency closure of ontology types
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "debug", "Server mode (debug, release, test)")

	serverCmd.Flags().Int("max-concurrency", 8, "maximum concurrent schema fetches per traversal")
	serverCmd.Flags().String("cache", "", "schema cache driver (none, memory, badger)")
	serverCmd.Flags().String("telemetry-parquet-path", "", "directory for error telemetry Parquet files")
}

func overrideServerFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}
	if cmd.Flags().Changed("max-concurrency") {
		cfg.Codegen.MaxConcurrency, _ = cmd.Flags().GetInt("max-concurrency")
	}
	if cmd.Flags().Changed("cache") {
		cfg.Cache.Driver, _ = cmd.Flags().GetString("cache")
	}
	if cmd.Flags().Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = cmd.Flags().GetString("telemetry-parquet-path")
		cfg.Telemetry.Enabled = true
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, overrideServerFlags)
	if err != nil {
		return err
	}

	client, err := blockgraph.NewClient(cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize blockgraph: %w", err)
	}
	defer client.Close(context.Background())

	opts := server.Options{
		Traverser: client.Traverser(),
		Logger:    client.Logger(),
	}
	if sink, ok := client.Sink().(*graphsink.Neo4jSink); ok {
		opts.Checks = map[string]handlers.ReadinessCheck{
			"neo4j": sink.VerifyConnectivity,
		}
	}

	srv := server.New(cfg, opts)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	utils.SafeGo(func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}, func(err error) { serverErrChan <- err })

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		client.Logger().Info("Received signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		client.Logger().Info("Server stopped gracefully")
		return nil
	}
}
