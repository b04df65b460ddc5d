package services

import (
	"fmt"
	"strings"
	"time"

	"eventroster/internal/domain"
)

const dateLayout = "Jan 2, 2006"

// notices composes the plain-text messages the roster services send.
type notices struct {
	settings Settings
}

func (n notices) staffRecipients() (to, cc []string) {
	switch {
	case n.settings.StaffEmail != "" && n.settings.SysadminEmail != "":
		return []string{n.settings.StaffEmail}, []string{n.settings.SysadminEmail}
	case n.settings.StaffEmail != "":
		return []string{n.settings.StaffEmail}, nil
	case n.settings.SysadminEmail != "":
		return []string{n.settings.SysadminEmail}, nil
	}
	return nil, nil
}

// confirmationNotice tells staff a membership moved into or out of Confirmed.
func (n notices) confirmationNotice(event *domain.Event, person *domain.Person, m *domain.Membership, change string) *domain.Message {
	to, _ := n.staffRecipients()
	name := m.PersonID
	if person != nil {
		name = person.Name()
	}
	return &domain.Message{
		To:      to,
		Subject: fmt.Sprintf("[%s] %s %s", event.Code, name, change),
		Body: fmt.Sprintf("%s %s for %s (%s).\n\nRole: %s\nAttendance: %s\nUpdated by: %s\n",
			name, change, event.Code, event.Name, m.Role, m.Attendance, m.UpdatedBy),
	}
}

func (n notices) invitation(event *domain.Event, person *domain.Person, inv *domain.Invitation, replyBy time.Time, organizer *domain.Person) *domain.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dear %s:\n\n", person.Name())
	fmt.Fprintf(&sb, "You are invited to %s (%s), %s to %s, at %s.\n\n",
		event.Name, event.Code, event.StartsOn().Format(dateLayout), event.EndsOn().Format(dateLayout), event.Location)
	fmt.Fprintf(&sb, "Please reply by %s using the code %s.\n", replyBy.Format(dateLayout), inv.Code)
	if organizer != nil {
		fmt.Fprintf(&sb, "\n%s, on behalf of the organizers\n", organizer.Name())
	}
	return &domain.Message{
		To:      []string{person.Email},
		Subject: fmt.Sprintf("[%s] Invitation: %s", event.Code, event.Name),
		Body:    sb.String(),
	}
}

func (n notices) reminder(event *domain.Event, person *domain.Person, inv *domain.Invitation, replyBy time.Time) *domain.Message {
	return &domain.Message{
		To:      []string{person.Email},
		Subject: fmt.Sprintf("[%s] Reminder: invitation to %s", event.Code, event.Name),
		Body: fmt.Sprintf("Dear %s:\n\nThis is a reminder of your invitation to %s, starting %s.\n\nPlease reply by %s using the code %s.\n",
			person.Name(), event.Name, event.StartsOn().Format(dateLayout), replyBy.Format(dateLayout), inv.Code),
	}
}

// organizerNotice reports an RSVP to the contact organizer, or to staff when there is none.
func (n notices) organizerNotice(event *domain.Event, person *domain.Person, organizer *domain.Person, response domain.RSVPResponse, message string) *domain.Message {
	to, cc := n.staffRecipients()
	if organizer != nil && organizer.Email != "" {
		to, cc = []string{organizer.Email}, nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s) replied %q to the invitation to %s.\n", person.Name(), person.Affiliation, response, event.Code)
	if strings.TrimSpace(message) != "" {
		fmt.Fprintf(&sb, "\nMessage from %s:\n%s\n", person.Firstname, message)
	}
	return &domain.Message{
		To:      to,
		Cc:      cc,
		Subject: fmt.Sprintf("[%s] RSVP %s: %s", event.Code, response, person.Name()),
		Body:    sb.String(),
	}
}

func (n notices) participantConfirmation(event *domain.Event, person *domain.Person, m *domain.Membership) *domain.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dear %s:\n\nThank you for confirming your attendance at %s (%s).\n\n", person.Name(), event.Name, event.Code)
	fmt.Fprintf(&sb, "Arrival: %s\nDeparture: %s\n", formatDate(m.ArrivalDate), formatDate(m.DepartureDate))
	if m.HasGuest {
		sb.WriteString("You will be bringing a guest.\n")
	}
	return &domain.Message{
		To:      []string{person.Email},
		Subject: fmt.Sprintf("[%s] Attendance confirmed", event.Code),
		Body:    sb.String(),
	}
}

func (n notices) feedback(event *domain.Event, person *domain.Person, message string) *domain.Message {
	to, cc := n.staffRecipients()
	return &domain.Message{
		To:      to,
		Cc:      cc,
		Subject: fmt.Sprintf("[%s] RSVP feedback from %s", event.Code, person.Name()),
		Body:    message + "\n",
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "Not set"
	}
	return t.Format(dateLayout)
}
