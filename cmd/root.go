package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/meteoswiss/claw-release-tools/pkg/logging"
)

var logLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

var logger = zerolog.New(NewConsoleWriter())

var rootCmd = &cobra.Command{
	Use:   "claw-release",
	Short: "Builds, tests and installs CLAW compiler releases",
	Long: `This command bundles the tools used to build CLAW compiler releases.
It checks out a release tag, builds and tests it, installs it and makes sure
a broken build never replaces a working installation.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		levelName, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}

		level, ok := logLevels[levelName]
		if !ok {
			return eris.Errorf("Invalid value for --log-level: %s", levelName)
		}

		jsonLogs, err := cmd.Flags().GetBool("log-json")
		if err != nil {
			return err
		}

		if jsonLogs {
			logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		} else {
			logger = zerolog.New(NewConsoleWriter())
		}
		logger = logger.Level(level)
		log.Logger = logger

		return nil
	},
}

// commandContext returns the command's context with the configured logger attached.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	return logging.WithLogger(ctx, &logger)
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "minimum log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "write JSON log lines instead of console messages")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Error().Err(err).Msg("Failed")
		os.Exit(1)
	}
}
