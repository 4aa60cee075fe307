package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/archlint"
)

// Exit codes:
//
//	0  validation passed
//	1  violations found
//	2  internal error
//	3  configuration error
const (
	exitOK         = 0
	exitViolations = 1
	exitInternal   = 2
	exitConfig     = 3
)

var (
	flagConfig string
	flagFormat string
	flagCache  string
	flagSerial bool
)

// errViolations signals a completed run that found violations, so main()
// can exit 1 without printing an extra error line.
var errViolations = errors.New("violations found")

func main() {
	err := rootCmd.Execute()
	if err == nil {
		os.Exit(exitOK)
	}
	if errors.Is(err, errViolations) {
		os.Exit(exitViolations)
	}
	var cfgErr *archlint.ConfigError
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	if errors.As(err, &cfgErr) {
		os.Exit(exitConfig)
	}
	os.Exit(exitInternal)
}

var rootCmd = &cobra.Command{
	Use:           "archlint",
	Short:         "Architectural validation for Python monorepos",
	Long:          "Archlint parses every Python file with tree-sitter, enforces file-level and dependency-graph rules, and caches results per file and rule.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default: archlint.yaml at the repo root, if present)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: text|json")
	rootCmd.PersistentFlags().StringVar(&flagCache, "cache", "", "cache database path; empty string disables persistence")
	rootCmd.PersistentFlags().BoolVar(&flagSerial, "serial", false, "disable parallel validation")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(watchCmd)
}

var (
	flagSeverity     string
	flagChangedFiles []string
	flagScope        string
	flagFailFast     bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a repository against its architectural rules",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&flagSeverity, "severity", "", "minimum severity to enforce: info|warning|error|critical")
	validateCmd.Flags().StringSliceVar(&flagChangedFiles, "changed-file", nil, "restrict validation to this repo-relative file (repeatable)")
	validateCmd.Flags().StringVar(&flagScope, "scope", "", "restrict validation to files under this directory")
	validateCmd.Flags().BoolVar(&flagFailFast, "fail-fast", false, "stop after the first critical violation")
	watchCmd.Flags().StringVar(&flagSeverity, "severity", "", "minimum severity to enforce: info|warning|error|critical")
}

func runValidate(cmd *cobra.Command, args []string) error {
	root, err := resolveRepoRoot(args)
	if err != nil {
		return err
	}
	engine, err := newEngine(root)
	if err != nil {
		return err
	}
	defer engine.Close()

	report, err := engine.Run(context.Background(), archlint.RunOptions{
		MinSeverity:  flagSeverity,
		ChangedFiles: flagChangedFiles,
		Scope:        flagScope,
		FailFast:     flagFailFast,
	})
	if err != nil {
		return err
	}
	if err := writeReport(os.Stdout, report, flagFormat); err != nil {
		return err
	}
	if !report.Passed {
		return errViolations
	}
	return nil
}

// newEngine builds an Engine for root from the persistent flags.
func newEngine(root string) (*archlint.Engine, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	opts := []archlint.Option{archlint.WithConfig(cfg)}
	if rootCmd.PersistentFlags().Changed("cache") {
		opts = append(opts, archlint.WithCachePath(flagCache))
	}
	if flagSerial {
		opts = append(opts, archlint.WithWorkers(1))
	}
	return archlint.New(root, opts...)
}

// loadConfig reads --config, or archlint.yaml at the repo root when it
// exists, falling back to defaults.
func loadConfig(root string) (*archlint.Config, error) {
	path := flagConfig
	if path == "" {
		candidate := filepath.Join(root, "archlint.yaml")
		if _, err := os.Stat(candidate); err != nil {
			return archlint.DefaultConfig(), nil
		}
		path = candidate
	}
	return archlint.LoadConfig(path)
}

// resolveRepoRoot returns the absolute path of the repository to validate.
func resolveRepoRoot(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

func validateFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid format %q (expected text or json)", format)
	}
}
