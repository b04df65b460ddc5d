package main

import (
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"eventroster/internal/domain"
)

const replyByLayout = "Mon Jan 2, 2006"

func newReplyByCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reply-by [membership id]",
		Short: "Show the reply-by dates announced to an invitee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, cfg.NewLogger(os.Stderr), true)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.invitations.ReplyByDates(ctx, args[0])
			if err != nil {
				return err
			}
			cmd.Printf("%s\n", renderReplyBy(report))
			return nil
		},
	}
}

// renderReplyBy lists the invitation first, then every reminder in send order.
func renderReplyBy(r *domain.ReplyByReport) string {
	tw := table.NewWriter()
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateHeader = false
	tw.Style().Options.SeparateRows = false
	tw.AppendHeader(table.Row{"SENT", "SENT ON", "BY", "REPLY BY"})
	tw.AppendRow(table.Row{"invitation", r.InvitedOn.Format(replyByLayout), "", r.ReplyBy.Format(replyByLayout)})
	for i, rem := range r.Reminders {
		tw.AppendRow(table.Row{
			reminderLabel(i),
			rem.SentAt.Format(replyByLayout),
			rem.SentBy,
			rem.ReplyBy.Format(replyByLayout),
		})
	}
	return tw.Render()
}

func reminderLabel(i int) string {
	return "reminder " + strconv.Itoa(i+1)
}

func init() {
	rootCmd.AddCommand(newReplyByCmd())
}
