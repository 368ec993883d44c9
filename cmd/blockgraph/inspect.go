package blockgraph

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/blockgraph"
	"github.com/soundprediction/blockgraph/pkg/temporal"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <subgraph.json>",
	Short: "Summarise a subgraph",
	Long: `Inspect decodes a subgraph document and prints its roots, every entity at its
latest revision and the links leaving each entity.

Use --from and --to (RFC 3339) to restrict links to a window of the variable axis.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().String("format", "yaml", "output format (yaml, json)")
	inspectCmd.Flags().String("from", "", "start of the link window, inclusive (RFC 3339)")
	inspectCmd.Flags().String("to", "", "end of the link window, exclusive (RFC 3339)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	interval, err := windowFromFlags(cmd)
	if err != nil {
		return err
	}

	sg, err := blockgraph.LoadSubgraphFile(args[0])
	if err != nil {
		return err
	}
	report, err := blockgraph.Inspect(sg, interval)
	if err != nil {
		return fmt.Errorf("failed to inspect subgraph: %w", err)
	}

	format, _ := cmd.Flags().GetString("format")
	return writeReport(cmd.OutOrStdout(), format, report)
}

// windowFromFlags builds the [from, to) window; nil when neither flag is set.
func windowFromFlags(cmd *cobra.Command) (*temporal.Interval, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	if from == "" && to == "" {
		return nil, nil
	}

	start := temporal.UnboundedBound()
	end := temporal.UnboundedBound()
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return nil, fmt.Errorf("invalid --from: %w", err)
		}
		start = temporal.InclusiveBound(t)
	}
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return nil, fmt.Errorf("invalid --to: %w", err)
		}
		end = temporal.ExclusiveBound(t)
	}
	interval, err := temporal.NewInterval(start, end)
	if err != nil {
		return nil, err
	}
	return &interval, nil
}

func writeReport(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
