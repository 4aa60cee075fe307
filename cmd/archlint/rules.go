package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules [path]",
	Short: "List every registered rule, built-in and scripted",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRules,
}

func runRules(cmd *cobra.Command, args []string) error {
	root, err := resolveRepoRoot(args)
	if err != nil {
		return err
	}
	engine, err := newEngine(root)
	if err != nil {
		return err
	}
	defer engine.Close()

	descs := engine.Rules()
	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(descs)
	}
	formatRulesText(os.Stdout, descs)
	fmt.Printf("%d rules\n", len(descs))
	return nil
}
