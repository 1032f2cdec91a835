package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"semantiq/internal/models"
	"semantiq/internal/services"
)

var outputPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "semantiqctl",
	Short: "Operator tooling for semantic schema payloads",
	Long: "semantiqctl works on schema payload files without a running server: " +
		"validate seed definitions, normalize payloads to their canonical form, " +
		"render the curation spreadsheet and introspect live databases.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a seed definitions file or a schema payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			defs, err := services.LoadSeedDefinitions(path)
			if err != nil {
				return err
			}
			if err := services.ValidateSeedDefinitions(defs); err != nil {
				return err
			}
			fmt.Printf("OK: %d synonyms, %d metrics\n", len(defs.Synonyms), len(defs.Metrics))
			return nil
		}

		wire, err := readWire(path)
		if err != nil {
			return err
		}
		schema := services.IngestSchema(wire)
		if err := services.ValidateForSave(schema); err != nil {
			return err
		}
		columns := 0
		for _, t := range schema.Tables {
			columns += len(t.Columns)
		}
		fmt.Printf("OK: %d tables, %d columns, %d relationships\n", len(schema.Tables), columns, len(schema.Relationships))
		return nil
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file>",
	Short: "Rewrite a schema payload in canonical form",
	Long: "Runs the payload through a full ingest and egress cycle, resolving " +
		"legacy field shapes and filling derived defaults.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wire, err := readWire(args[0])
		if err != nil {
			return err
		}
		schema := services.IngestSchema(wire)
		_, payload, err := services.BuildPayload(schema)
		if err != nil {
			return err
		}
		var indented bytes.Buffer
		if err := json.Indent(&indented, payload, "", "  "); err != nil {
			return err
		}
		return writeOutput([]byte(indented.String() + "\n"))
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Render the curation spreadsheet for a schema payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wire, err := readWire(args[0])
		if err != nil {
			return err
		}
		schema := services.IngestSchema(wire)
		return writeOutput(services.RenderTSV(schema))
	},
}

var visualizeCmd = &cobra.Command{
	Use:   "visualize <file>",
	Short: "Render a schema payload as a Mermaid ER diagram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wire, err := readWire(args[0])
		if err != nil {
			return err
		}
		return writeOutput([]byte(services.MermaidForWire(wire)))
	},
}

var (
	inspectSchema      string
	inspectDisplayName string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <connection-file>",
	Short: "Introspect a live database into a schema payload",
	Long: "Reads a JSON connection config (host, port, username, password, " +
		"database) and writes the wire payload built from the live catalog, " +
		"including relationships derived from foreign keys.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var connConfig map[string]any
		if err := json.Unmarshal(raw, &connConfig); err != nil {
			return fmt.Errorf("invalid connection config: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		wire, err := services.NewIntrospectionService().IntrospectSchema(ctx, connConfig, inspectSchema, inspectDisplayName)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(wire, "", "  ")
		if err != nil {
			return err
		}
		return writeOutput(append(out, '\n'))
	},
}

func readWire(path string) (*models.WireSchema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wire models.WireSchema
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("invalid schema payload: %w", err)
	}
	return &wire, nil
}

func writeOutput(data []byte) error {
	if outputPath == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "write output to file instead of stdout")
	inspectCmd.Flags().StringVar(&inspectSchema, "schema", "public", "database schema to introspect")
	inspectCmd.Flags().StringVar(&inspectDisplayName, "name", "", "display name for the generated payload")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(visualizeCmd)
	rootCmd.AddCommand(inspectCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
