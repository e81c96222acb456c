package main

import (
	"fmt"
	"os"

	"github.com/OFFIS-RIT/factgraph/internal/util"
	"github.com/OFFIS-RIT/factgraph/pkg/logger"
	"github.com/OFFIS-RIT/factgraph/pkg/logger/console"

	"github.com/spf13/cobra"
)

func main() {
	util.LoadEnv()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		debug     bool
		logFormat string
	)

	cmd := &cobra.Command{
		Use:   "factgraph",
		Short: "Fact-pattern search over an inverted fact index",
		Long: `factgraph evaluates graph queries such as "?X(Drug) inhibits mtor"
against an index of subject-predicate-object facts extracted from documents.

Configuration is read from the environment (see .env): FACTSTORE_DRIVER,
DATABASE_URL, SQLITE_PATH, VOCAB_PATH and the QUERY_* settings.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logFormat != "text" && logFormat != "json" {
				return fmt.Errorf("unknown log format %q", logFormat)
			}
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
				Debug:  debug || util.GetEnvBool("DEBUG", false),
				JSON:   logFormat == "json",
				Writer: cmd.ErrOrStderr(),
			}))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	cmd.AddCommand(serveCmd(), queryCmd(), optimizeCmd(), migrateCmd())
	return cmd
}
