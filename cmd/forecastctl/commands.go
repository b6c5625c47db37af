package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"forecast-mailer/internal/app"
	"forecast-mailer/internal/config"
	"forecast-mailer/internal/job"
	"forecast-mailer/internal/logging"
	"forecast-mailer/internal/models"
	natsclient "forecast-mailer/internal/nats"
	"forecast-mailer/internal/tracing"
)

type configLoader func() (*config.Config, error)

func newRootCmd(load configLoader, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "forecastctl",
		Short:         "Operate the Day-Ahead forecast mailer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(newRunCmd(load), newRecipientsCmd(load), newTriggerCmd(load))
	return root
}

func newRunCmd(load configLoader) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch the forecasts and email them now",
		Long: `Run the forecast mailing once in this process and print the delivery summary.

Examples:
  forecastctl run
  forecastctl run --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if dryRun {
				printPlan(cmd.OutOrStdout(), job.SettingsFromConfig(cfg), time.Now())
				return nil
			}

			stop := tracing.Start(cfg.Tracing, "cli")
			defer stop()

			runner, err := app.NewRunner(cfg, logging.New(cfg.LogLevel))
			if err != nil {
				return err
			}
			report, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the emails that would be sent without contacting any API")
	return cmd
}

func printPlan(out io.Writer, s job.Settings, now time.Time) {
	date := job.TomorrowDate(now)
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tTO\tSUBJECT")
	fmt.Fprintln(w, "------\t--\t-------")
	for _, src := range s.Sources {
		subject := fmt.Sprintf("DA %s Forecast for %s", src.Label, date)
		if s.Batching == config.BatchAll {
			fmt.Fprintf(w, "%s\t%d recipients\t%s\n", src.Label, len(s.Recipients), subject)
			continue
		}
		for _, r := range s.Recipients {
			fmt.Fprintf(w, "%s\t%s\t%s\n", src.Label, r, subject)
		}
	}
	w.Flush()
}

func newRecipientsCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "recipients",
		Short: "List the configured recipients",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			recipients := cfg.Email.RecipientList()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "#\tRECIPIENT")
			fmt.Fprintln(w, "-\t---------")
			for i, r := range recipients {
				if r == "" {
					r = "(empty)"
				}
				fmt.Fprintf(w, "%d\t%s\n", i, r)
			}
			return w.Flush()
		},
	}
}

func newTriggerCmd(load configLoader) *cobra.Command {
	var natsURL, requestedBy string
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Queue a forecast run for the worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if natsURL == "" {
				natsURL = cfg.NATSURL
			}

			nc, js, err := natsclient.Setup(natsURL, logging.New(cfg.LogLevel))
			if err != nil {
				return err
			}
			defer nc.Close()

			req := models.RunRequest{
				RunID:       uuid.NewString(),
				RequestedBy: requestedBy,
				RequestedAt: time.Now().UTC(),
			}
			data, err := json.Marshal(req)
			if err != nil {
				return fmt.Errorf("failed to marshal run request: %w", err)
			}
			if _, err := js.Publish(natsclient.RunRequested, data); err != nil {
				return fmt.Errorf("failed to publish run request: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s queued on %s\n", req.RunID, natsclient.RunRequested)
			return nil
		},
	}
	cmd.Flags().StringVar(&natsURL, "nats", "", "NATS server URL (defaults to NATS_URL)")
	cmd.Flags().StringVar(&requestedBy, "requested-by", "forecastctl", "Name recorded on the run request")
	return cmd
}
