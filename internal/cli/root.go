package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/EgehanKilicarslan/bienesraices/internal/config"
	"github.com/EgehanKilicarslan/bienesraices/internal/logger"
)

// NewRootCommand assembles the bienesraices command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "bienesraices",
		Short: "Real-estate listings web application",
		Long: `Real-estate listings web application. Usage:

	bienesraices server
	bienesraices migrate up|down|status
	bienesraices seed import|purge
	bienesraices mailer
`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServerCommand(),
		newMigrateCommand(),
		newSeedCommand(),
		newMailerCommand(),
	)

	return root
}

// bootstrap loads configuration and installs the process logger
func bootstrap() (*config.Config, *slog.Logger) {
	cfg := config.LoadConfig()
	return cfg, logger.New(cfg)
}
