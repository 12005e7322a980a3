package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pg-sharding/shardpipe/pkg"
	"github.com/pg-sharding/shardpipe/pkg/config"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
	"github.com/pg-sharding/shardpipe/qdb"
	"github.com/pg-sharding/shardpipe/router/kernel"
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "shardpipe --config `path-to-config` <command>",
	Short: "shardpipe",
	Long:  "Routes, rewrites, executes and merges bound statements over sharded data sources",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "shardpipe %s\n", pkg.ShardpipeVersionRevision)
	},
}

func loadConfig() (*config.PipelineCfg, error) {
	cfg, err := config.LoadPipelineCfg(cfgPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	shardlog.ReloadLogger(cfg.LogFileName, cfg.LogLevel, cfg.PrettyLogging)
	return cfg, nil
}

func openKernel(ctx context.Context, execute bool) (*kernel.Kernel, qdb.QDB, io.Closer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	return kernel.Open(ctx, cfg, kernel.OpenOptions{Execute: execute})
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "/etc/shardpipe/config.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "overrides log level of config")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(nextvalCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		shardlog.Zero.Error().Err(err).Msg("")
		os.Exit(1)
	}
}
