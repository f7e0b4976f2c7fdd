package main

import (
	"context"
	"os"

	"nitrado-deploy/backup"
	"nitrado-deploy/clients"
	"nitrado-deploy/config"
	"nitrado-deploy/processor"
	"nitrado-deploy/scanner"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	dryRun   bool
	rootCmd  = &cobra.Command{
		Use:   "nitrado-deploy",
		Short: "Deploy mission files to a Nitrado game server",
		Long: `nitrado-deploy uploads mission and configuration files that are newer
locally than on the game server.

Before anything is overwritten the current remote copies are saved to a
timestamped zip archive. The server is restarted afterwards unless
restart_after_deploy is false in the config file.

Credentials are read from NITRADO_API_TOKEN, NITRADO_ID and NITRADO_SERVER_ID.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          process,
	}
)

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", config.DefaultFileName, "config file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error), overrides log_level")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "only report modified files, do not back up, upload or restart")

	log.SetReportTimestamp(true)
}

func setLogLevel(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Warn("Unknown log level, using info", "level", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

func process(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		setLogLevel(logLevel)
	} else {
		setLogLevel(cfg.LogLevel)
	}

	nitradoClient := clients.NewNitradoClient(clients.NitradoConfig{
		APIBaseURL:     cfg.APIBaseURL,
		Token:          cfg.APIToken,
		NitradoID:      cfg.NitradoID,
		RemoteBasePath: cfg.RemoteBasePath,
		SSLVerify:      cfg.SSLVerify,
		Timeout:        cfg.Timeout,
	})

	proc := processor.NewProcessor(&processor.Dependencies{
		Remote: nitradoClient,
		Scanner: scanner.New(scanner.Options{
			Root:              cfg.DeployDirectory,
			ConfigFileNames:   cfg.ConfigFileNames(),
			ExcludeExtensions: cfg.ExcludeExtensions,
		}),
		Archiver: backup.NewArchiver(cfg.BackupDirectory, nitradoClient),
	})

	return proc.Main(ctx, processor.Config{
		DeployDirectory:    cfg.DeployDirectory,
		RemoteRootDir:      cfg.RemoteRootDir(),
		RemoteDirs:         cfg.RemoteDirs,
		RestartAfterDeploy: cfg.RestartAfterDeploy,
		DryRun:             dryRun,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("❌ Deployment failed", "err", err)
		os.Exit(1)
	}
}
