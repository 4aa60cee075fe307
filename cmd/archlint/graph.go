package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jward/archlint"
	"github.com/jward/archlint/internal/depgraph"
	"github.com/jward/archlint/internal/source"
)

var graphCmd = &cobra.Command{
	Use:   "graph [path]",
	Short: "Dump the module dependency graph",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGraph,
}

// graphModule is the serialized form of one node and its outgoing edges.
type graphModule struct {
	Module    string          `json:"module"`
	Path      string          `json:"path"`
	Partition string          `json:"partition"`
	Owner     string          `json:"owner,omitempty"`
	Imports   []depgraph.Edge `json:"imports,omitempty"`
}

func runGraph(cmd *cobra.Command, args []string) error {
	root, err := resolveRepoRoot(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	paths, err := archlint.DiscoverFiles(root, cfg.Exclude)
	if err != nil {
		return err
	}
	builder := source.NewBuilder(cfg.Layout())
	contexts := make([]*source.Context, len(paths))
	g, gctx := errgroup.WithContext(context.Background())
	for i, rel := range paths {
		i, rel := i, rel
		g.Go(func() error {
			content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				return fmt.Errorf("read %s: %w", rel, err)
			}
			contexts[i] = builder.Build(gctx, rel, content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	defer func() {
		for _, sc := range contexts {
			sc.Close()
		}
	}()

	graph := depgraph.Build(contexts, nil)
	var modules []graphModule
	for _, mod := range graph.Modules() {
		node := graph.Node(mod)
		modules = append(modules, graphModule{
			Module:    node.Module,
			Path:      node.Path,
			Partition: node.Partition.String(),
			Owner:     node.Owner,
			Imports:   graph.OutEdges(mod),
		})
	}

	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(modules)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tPARTITION\tOWNER\tIMPORTS")
	for _, m := range modules {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", m.Module, m.Partition, m.Owner, len(m.Imports))
	}
	tw.Flush()
	fmt.Printf("%d modules, %d unresolved imports\n", graph.Len(), graph.Unresolved)
	return nil
}
