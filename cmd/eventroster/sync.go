package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"eventroster/internal/domain"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [event code]",
		Short: "Reconcile an event roster with the legacy system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := cfg.NewLogger(os.Stderr)
			a, err := newApp(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer a.Close()

			event, err := a.repos.Events.GetByCode(ctx, args[0])
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("no event with code %q", args[0])
				}
				return err
			}
			outcome, err := a.sync.Run(ctx, event.ID)
			if err != nil {
				return err
			}
			cmd.Printf("%s\n", renderOutcome(outcome))
			if outcome.Failed > 0 {
				return fmt.Errorf("%d of %d records failed; staff were notified", outcome.Failed, outcome.Processed)
			}
			return nil
		},
	}
}

// renderOutcome formats a sync outcome as a counts table followed by one row
// per recorded failure.
func renderOutcome(o *domain.SyncOutcome) string {
	tw := table.NewWriter()
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateFooter = false
	tw.Style().Options.SeparateHeader = false
	tw.Style().Options.SeparateRows = false
	tw.AppendHeader(table.Row{"EVENT", "PROCESSED", "PEOPLE +", "PEOPLE ~", "MEMBERS +", "MEMBERS ~", "FAILED"})
	tw.AppendRow(table.Row{
		o.EventCode,
		o.Processed,
		o.PeopleCreated,
		o.PeopleUpdated,
		o.MembershipsCreated,
		o.MembershipsUpdated,
		o.Failed,
	})
	out := tw.Render()
	if len(o.Errors) == 0 {
		return out
	}

	errs := table.NewWriter()
	errs.Style().Options.DrawBorder = false
	errs.Style().Options.SeparateColumns = false
	errs.Style().Options.SeparateHeader = false
	errs.AppendHeader(table.Row{"KIND", "SUBJECT", "MESSAGES"})
	for _, e := range o.Errors {
		errs.AppendRow(table.Row{e.Kind, e.Subject, strings.Join(e.Messages, "; ")})
	}
	return out + "\n\n" + errs.Render()
}

func init() {
	rootCmd.AddCommand(newSyncCmd())
}
