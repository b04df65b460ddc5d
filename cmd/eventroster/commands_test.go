package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventroster/config"
	"eventroster/internal/domain"
	"eventroster/internal/services"
)

func TestSettingsFromConfig(t *testing.T) {
	c := &config.Config{
		Legacy: config.LegacyConfig{PersonURL: "https://legacy.example.org/people/", FetchTimeout: 5 * time.Second},
		Roster: config.RosterConfig{
			ImporterName:      "Importer",
			ArrivalWindowDays: 14,
			RSVPOffsetDays:    21,
			RSVPMinDays:       7,
			InvitationTTL:     48 * time.Hour,
			StaffEmail:        "programs@example.org",
			SysadminEmail:     "sysadmin@example.org",
		},
	}

	s := settingsFromConfig(c)

	assert.Equal(t, "Importer", s.ImporterName)
	assert.Equal(t, 14, s.ArrivalWindowDays)
	assert.Equal(t, services.DeadlinePolicy{OffsetDays: 21, MinDays: 7}, s.Deadline)
	assert.Equal(t, 48*time.Hour, s.InvitationTTL)
	assert.Equal(t, 5*time.Second, s.FetchTimeout)
	assert.Equal(t, "programs@example.org", s.StaffEmail)
	assert.Equal(t, "sysadmin@example.org", s.SysadminEmail)
	assert.Equal(t, "https://legacy.example.org/people/", s.LegacyPersonURL)
	assert.Equal(t, services.DefaultSettings().ContextTimeout, s.ContextTimeout)
}

func TestRenderOutcome(t *testing.T) {
	out := renderOutcome(&domain.SyncOutcome{
		EventCode:     "26w5001",
		Processed:     3,
		PeopleCreated: 1,
		Failed:        2,
		Errors: []domain.ErrorSummary{
			{Kind: "Person", Subject: "Bad Email", Messages: []string{"E-mail is invalid"}},
		},
	})
	assert.Contains(t, out, "26w5001")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "Bad Email")
	assert.Contains(t, out, "E-mail is invalid")

	clean := renderOutcome(&domain.SyncOutcome{EventCode: "26w5001", Processed: 1})
	assert.NotContains(t, clean, "SUBJECT")
}

func TestRenderReplyBy(t *testing.T) {
	out := renderReplyBy(&domain.ReplyByReport{
		InvitedOn: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		ReplyBy:   time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC),
		Reminders: []domain.ReminderReply{{
			Reminder: domain.Reminder{SentAt: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), SentBy: "programs@example.org"},
			ReplyBy:  time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC),
		}},
	})
	assert.Contains(t, out, "Sun May 3, 2026")
	assert.Contains(t, out, "reminder 1")
	assert.Contains(t, out, "Wed May 20, 2026")
	assert.Contains(t, out, "programs@example.org")
}

func TestBuildEvent(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newEvent.name, newEvent.location, newEvent.timeZone, newEvent.max = "Workshop", "Banff", "America/Edmonton", 42

	newEvent.start, newEvent.end = "2026-05-31", "2026-06-05"
	event, err := buildEvent(" 26w5001 ", now)
	require.NoError(t, err)
	assert.Equal(t, "26w5001", event.Code)
	assert.Equal(t, time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC), event.StartDate)

	newEvent.start, newEvent.end = "2026-06-05", "2026-05-31"
	_, err = buildEvent("26w5001", now)
	assert.ErrorIs(t, err, domain.ErrValidation)

	newEvent.start, newEvent.timeZone = "2026-05-01", "Mars/Olympus"
	_, err = buildEvent("26w5001", now)
	assert.ErrorContains(t, err, "Time zone is not a known time zone")

	newEvent.start = "May 31"
	_, err = buildEvent("26w5001", now)
	assert.ErrorContains(t, err, "--start")
}
