package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/langshake/shake-proof/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/shakeproof.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new shakeproof configuration file",
		Long: `Initialize creates a new .shakeproof configuration file in the current directory.

The generated file documents the default settings and carries commented
examples of per-domain overrides (manifest name, concurrency, rendering and
request headers).

Examples:
  # Create .shakeproof in current directory
  shakeproof init

  # Create config file at a specific path
  shakeproof init -o bench.yaml

  # Force overwrite existing file
  shakeproof init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/shakeproof.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure per-domain settings such as:")
	fmt.Fprintln(out, "  - Manifest file name")
	fmt.Fprintln(out, "  - Concurrency and headless rendering")
	fmt.Fprintln(out, "  - Request headers for protected staging sites")

	return nil
}
