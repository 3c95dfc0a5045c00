package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pageforge/pageforge/internal/config"
	"github.com/pageforge/pageforge/internal/pipeline"
	"github.com/pageforge/pageforge/internal/site"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Delete generated outputs",
	Long: `Delete every output file that has a corresponding template. Outputs
whose template was moved or deleted are never touched.`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, "ext", "dry-run")
	},
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().String("ext", ".tmpl", "template file extension")
	cleanCmd.Flags().BoolP("dry-run", "n", false, "log deletions without removing files")
}

func runClean(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		viper.Set("root", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	pl, err := pipeline.New(pipeline.Options{
		Root:   cfg.Root,
		Ext:    cfg.Ext,
		DryRun: cfg.DryRun,
	}, site.Values{}, log)
	if err != nil {
		return err
	}
	return pl.Clean()
}
