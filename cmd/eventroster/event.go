package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"eventroster/internal/domain"
	"eventroster/internal/validation"
)

var newEvent struct {
	name     string
	location string
	start    string
	end      string
	timeZone string
	max      int
}

func newEventCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "event-create [event code]",
		Short: "Register an event so its roster can be synced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := buildEvent(args[0], time.Now())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, cfg.NewLogger(os.Stderr), true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.repos.Events.Create(ctx, event); err != nil {
				if errors.Is(err, domain.ErrDuplicate) {
					return fmt.Errorf("event %s already exists", event.Code)
				}
				return err
			}
			cmd.Printf("created %s (%s)\n", event.Code, event.ID)
			return nil
		},
	}
}

// buildEvent turns the command flags into a validated event.
func buildEvent(code string, now time.Time) (*domain.Event, error) {
	start, err := time.Parse(dateLayout, newEvent.start)
	if err != nil {
		return nil, fmt.Errorf("--start: %w", err)
	}
	end, err := time.Parse(dateLayout, newEvent.end)
	if err != nil {
		return nil, fmt.Errorf("--end: %w", err)
	}
	event := &domain.Event{
		Code:            strings.TrimSpace(code),
		Name:            newEvent.name,
		Location:        newEvent.location,
		StartDate:       start,
		EndDate:         end,
		TimeZone:        newEvent.timeZone,
		MaxParticipants: newEvent.max,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	msgs := validation.Messages(event)
	if end.Before(start) {
		msgs = append(msgs, "End date must not be before the start date")
	}
	if event.MaxParticipants < 0 {
		msgs = append(msgs, "Max participants must not be negative")
	}
	if len(msgs) > 0 {
		return nil, domain.NewValidationError("Event", msgs, false)
	}
	return event, nil
}

const dateLayout = "2006-01-02"

func init() {
	cmd := newEventCmd()
	cmd.Flags().StringVar(&newEvent.name, "name", "", "Event name")
	cmd.Flags().StringVar(&newEvent.location, "location", "", "Where the event takes place")
	cmd.Flags().StringVar(&newEvent.start, "start", "", "First day, YYYY-MM-DD")
	cmd.Flags().StringVar(&newEvent.end, "end", "", "Last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&newEvent.timeZone, "tz", "UTC", "IANA time zone of the venue")
	cmd.Flags().IntVar(&newEvent.max, "max-participants", 42, "Seats for Invited and Confirmed members")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	rootCmd.AddCommand(cmd)
}
