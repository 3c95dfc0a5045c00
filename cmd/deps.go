package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pageforge/pageforge/internal/config"
	"github.com/pageforge/pageforge/internal/deps"
)

var depsCmd = &cobra.Command{
	Use:   "deps <template>",
	Short: "Show a template's include dependencies and logical mtime",
	Long: `Print the one-level include dependencies of a template and the
logical modification time used for staleness decisions: the latest
modification time across the template and its include closure within the
configured depth bound.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, "depth", "root")
	},
	RunE: runDeps,
}

func init() {
	rootCmd.AddCommand(depsCmd)

	depsCmd.Flags().Int("depth", 5, "dependency traversal depth bound")
	depsCmd.Flags().String("root", ".", "traversal root for absolute references")
}

func runDeps(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return err
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	resolver := deps.NewResolver(root, log)
	evaluator := deps.NewEvaluator(resolver, cfg.MaxDepth, log)

	set := resolver.Dependencies(path)
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := cmd.OutOrStdout()
	if len(paths) == 0 {
		fmt.Fprintln(out, "no dependencies")
	}
	for _, p := range paths {
		fmt.Fprintln(out, p)
	}

	mtime := evaluator.LogicalModTime(path)
	if mtime == 0 {
		fmt.Fprintln(out, "logical mtime: none (template does not exist)")
		return nil
	}
	fmt.Fprintf(out, "logical mtime: %d (%s)\n", mtime, time.Unix(mtime, 0).Format(time.RFC3339))
	return nil
}
