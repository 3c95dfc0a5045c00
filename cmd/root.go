// Package cmd provides the pageforge command-line interface.
//
// Configuration sources, highest priority first:
//  1. Command-line flags (--root, --ext, ...)
//  2. PAGEFORGE_-prefixed environment variables (PAGEFORGE_PORT, ...)
//  3. A .pageforge.yml file in the current directory
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pageforge/pageforge/internal/config"
	"github.com/pageforge/pageforge/internal/logging"
	"github.com/pageforge/pageforge/internal/pipeline"
	"github.com/pageforge/pageforge/internal/server"
	"github.com/pageforge/pageforge/internal/site"
	"github.com/pageforge/pageforge/internal/watcher"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pageforge [path]",
	Short: "Incrementally render a tree of templates",
	Long: `pageforge renders every *.tmpl file under a directory into a sibling
file with the extension stripped, re-rendering only templates whose own
modification time, or that of any transitively included template, is
newer than the existing output.

Examples:
  pageforge                       Render the current directory
  pageforge site --watch --serve  Render, then watch and serve with live reload
  pageforge --clean               Delete generated outputs
  pageforge --dry-run             Show what would be rendered`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, "ext", "dry-run", "watch", "serve", "port",
			"ignore-mtime", "no-error-pages", "depth", "site-config", "env")
	},
	RunE: runRoot,
}

// bindFlags binds a command's local flags into viper under their own
// names. Binding happens at run time, not init time, because sibling
// commands reuse flag names and the last init-time binding would win.
func bindFlags(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .pageforge.yml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	flags := rootCmd.Flags()
	flags.String("ext", ".tmpl", "template file extension")
	flags.BoolP("dry-run", "n", false, "simulate without writing files")
	flags.BoolP("clean", "c", false, "delete generated outputs first")
	flags.BoolP("render", "r", false, "render after --clean")
	flags.BoolP("watch", "w", false, "watch for changes and re-render")
	flags.BoolP("serve", "s", false, "serve the tree over HTTP")
	flags.Int("port", 8080, "HTTP server port")
	flags.Bool("ignore-mtime", false, "render everything, ignoring modification times")
	flags.Bool("no-error-pages", false, "do not write diagnostic pages for failed renders")
	flags.Int("depth", 5, "dependency traversal depth bound")
	flags.String("site-config", "site.yml", "site data file (empty to disable)")
	flags.String("env", "default", "site data environment overlay")

	mustBind(rootCmd.PersistentFlags().Lookup("log-level"), "log-level")
	mustBind(rootCmd.PersistentFlags().Lookup("log-format"), "log-format")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pageforge")
	}

	viper.SetEnvPrefix("PAGEFORGE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Missing or malformed config files are not fatal: flags and
	// defaults still apply.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		viper.Set("root", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	siteData, err := loadSiteData(cfg, log)
	if err != nil {
		return err
	}

	pl, err := pipeline.New(pipeline.Options{
		Root:        cfg.Root,
		Ext:         cfg.Ext,
		DryRun:      cfg.DryRun,
		NoErrorPage: cfg.NoErrorPage,
		IgnoreMtime: cfg.IgnoreMtime,
		MaxDepth:    cfg.MaxDepth,
	}, siteData, log)
	if err != nil {
		return err
	}

	doClean, _ := cmd.Flags().GetBool("clean")
	doRender, _ := cmd.Flags().GetBool("render")

	if doClean {
		if err := pl.Clean(); err != nil {
			return err
		}
	}

	// Render at least once, unless this is a clean-only invocation.
	if doRender || cfg.Watch || cfg.Serve || !doClean {
		if err := pl.Run(); err != nil {
			return err
		}
	}

	if !cfg.Watch && !cfg.Serve {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var hub *server.ReloadHub
	if cfg.Watch && cfg.Serve {
		hub = server.NewReloadHub(log)
	}

	reactor := watcher.New(cfg.WatchPath(), func(path string) {
		if pl.OnChange(path) && hub != nil {
			hub.Broadcast()
		}
	}, log)
	if err := reactor.Start(); err != nil {
		return err
	}
	defer reactor.Stop()

	if cfg.Serve {
		return server.New(cfg.Root, cfg.Port, hub, log).ListenAndServe(ctx)
	}

	// Watch-only: park until interrupted; the reactor goroutine does the
	// work.
	<-ctx.Done()
	fmt.Fprintln(os.Stderr)
	return nil
}

func newLogger(cfg *config.Config) logging.Logger {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	return logging.New(lc)
}

// loadSiteData loads the site value tree when configured and present. A
// missing file is not an error: sites without data render with an empty
// tree, matching a fresh checkout.
func loadSiteData(cfg *config.Config, log logging.Logger) (site.Values, error) {
	if cfg.SiteConfig == "" {
		return site.Values{}, nil
	}
	if _, err := os.Stat(cfg.SiteConfig); err != nil {
		log.Debug("no site data file", "path", cfg.SiteConfig)
		return site.Values{}, nil
	}

	values, err := site.Load(cfg.SiteConfig, cfg.Env)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded site data", "path", cfg.SiteConfig, "env", cfg.Env)
	return values, nil
}

func mustBind(flag *pflag.Flag, key string) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
