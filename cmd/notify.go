package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"pragent/internal/bootstrap/logging"
	"pragent/internal/errs"
	"pragent/internal/ports"
)

// notifyCmd sends a one-off Slack message through the retrying dispatcher.
var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send a Slack notification",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		message, _ := cmd.Flags().GetString("message")
		severity, _ := cmd.Flags().GetString("severity")
		if message == "" {
			return errors.New("--message is required")
		}

		if err := deps.App.Config.ValidateForServe(); err != nil {
			return errs.Wrap(err, "validate notify config")
		}

		result, err := deps.Service.SendNotification(ctx, message, ports.Severity(severity))
		if err != nil {
			return errs.Wrap(err, "send notification")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "notification delivered after %d attempt(s)\n", result.Attempts)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(notifyCmd)

	notifyCmd.Flags().String("message", "", "Message text (Slack mrkdwn allowed)")
	notifyCmd.Flags().String("severity", string(ports.SeverityInfo), "Message severity: info, warning, error, success")
}
