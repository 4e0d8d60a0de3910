package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/EgehanKilicarslan/bienesraices/internal/mail"
	"github.com/EgehanKilicarslan/bienesraices/internal/mq"
)

func newMailerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mailer",
		Short: "Consume the outbound mail queue and deliver over SMTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := bootstrap()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			broker, err := mq.Connect(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer broker.Close()

			sender := mail.NewSMTPSender(cfg.SMTP, cfg.MailFrom)

			logger.Info("📬 [Mailer] Waiting for messages...", "queue", cfg.MailQueue)
			err = broker.Subscribe(ctx, cfg.MailQueue, mail.QueueHandler(sender, logger))
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("mail consumer stopped: %w", err)
			}

			logger.Info("🛑 [Mailer] Stopped")
			return nil
		},
	}
}
