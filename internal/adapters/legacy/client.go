package legacy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"eventroster/internal/domain"
)

// Config holds the legacy system endpoint settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
}

// Client talks to the legacy workshop database. It serves as the roster
// provider, the membership pusher and the RSVP code checker.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

var (
	_ domain.RosterProvider = (*Client)(nil)
	_ domain.RemotePusher   = (*Client)(nil)
	_ domain.RSVPChecker    = (*Client)(nil)
)

// NewClient returns a client for the legacy API at cfg.BaseURL.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &Client{http: client, logger: logger}
}

// remotePerson and remoteMembership mirror the legacy JSON shapes.
type remotePerson struct {
	LegacyID    string `json:"legacy_id"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Email       string `json:"email"`
	Affiliation string `json:"affiliation"`
}

type remoteMembership struct {
	Role          string `json:"role"`
	Attendance    string `json:"attendance"`
	ArrivalDate   string `json:"arrival_date,omitempty"`
	DepartureDate string `json:"departure_date,omitempty"`
	StaffNotes    string `json:"staff_notes,omitempty"`
	UpdatedBy     string `json:"updated_by,omitempty"`
}

type remoteMember struct {
	Person     remotePerson     `json:"Person"`
	Membership remoteMembership `json:"Membership"`
}

func (m remoteMember) record() domain.RemoteMemberRecord {
	return domain.RemoteMemberRecord{
		LegacyID:      m.Person.LegacyID,
		Firstname:     m.Person.Firstname,
		Lastname:      m.Person.Lastname,
		Email:         m.Person.Email,
		Affiliation:   m.Person.Affiliation,
		Role:          m.Membership.Role,
		Attendance:    m.Membership.Attendance,
		ArrivalDate:   m.Membership.ArrivalDate,
		DepartureDate: m.Membership.DepartureDate,
		StaffNotes:    m.Membership.StaffNotes,
	}
}

// FetchMembers downloads the event's roster. An empty list, or a 404 for an
// event the legacy system does not know, is an empty roster.
func (c *Client) FetchMembers(ctx context.Context, event *domain.Event) (domain.RosterResult, error) {
	var members []remoteMember
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&members).
		SetPathParam("code", event.Code).
		Get("/members/{code}")
	if err != nil {
		return domain.RosterResult{}, fmt.Errorf("fetch members of %s: %w", event.Code, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return domain.RosterResult{Status: domain.RosterEmpty}, nil
	}
	if resp.IsError() {
		return domain.RosterResult{}, fmt.Errorf("fetch members of %s: legacy api returned status %d", event.Code, resp.StatusCode())
	}

	records := make([]domain.RemoteMemberRecord, 0, len(members))
	for _, m := range members {
		records = append(records, m.record())
	}
	c.logger.Info("fetched remote members", "event", event.Code, "count", len(records))
	return domain.NewRosterResult(records), nil
}

// UpdateMember writes a membership back to the legacy system. People without
// a legacy id are unknown there and are skipped.
func (c *Client) UpdateMember(ctx context.Context, event *domain.Event, person *domain.Person, m *domain.Membership) error {
	if person == nil || person.LegacyID == "" {
		c.logger.Debug("skip legacy push for person without legacy id", "event", event.Code, "membership_id", m.ID)
		return nil
	}
	body := remoteMember{
		Person: remotePerson{
			LegacyID:    person.LegacyID,
			Firstname:   person.Firstname,
			Lastname:    person.Lastname,
			Email:       person.Email,
			Affiliation: person.Affiliation,
		},
		Membership: remoteMembership{
			Role:          string(m.Role),
			Attendance:    string(m.Attendance),
			ArrivalDate:   formatDate(m.ArrivalDate),
			DepartureDate: formatDate(m.DepartureDate),
			StaffNotes:    m.StaffNotes,
			UpdatedBy:     m.UpdatedBy,
		},
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetPathParams(map[string]string{"code": event.Code, "legacy_id": person.LegacyID}).
		Put("/members/{code}/{legacy_id}")
	if err != nil {
		return fmt.Errorf("update member %s of %s: %w", person.LegacyID, event.Code, err)
	}
	if resp.IsError() {
		return fmt.Errorf("update member %s of %s: legacy api returned status %d", person.LegacyID, event.Code, resp.StatusCode())
	}
	return nil
}

type rsvpCheck struct {
	Denied string `json:"denied"`
}

// CheckRSVP asks the legacy system why a code is not valid locally.
func (c *Client) CheckRSVP(ctx context.Context, code string) (string, error) {
	var out rsvpCheck
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/rsvp/" + url.PathEscape(code))
	if err != nil {
		return "", fmt.Errorf("check rsvp code: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("check rsvp code: legacy api returned status %d", resp.StatusCode())
	}
	return out.Denied, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
