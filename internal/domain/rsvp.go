package domain

import "time"

// RSVPReason identifies why an RSVP attempt was turned away.
type RSVPReason string

const (
	RSVPInvalidCode     RSVPReason = "invalid_code"
	RSVPPastEvent       RSVPReason = "past_event"
	RSVPExpired         RSVPReason = "expired"
	RSVPNotYetInvited   RSVPReason = "not_yet_invited"
	RSVPAlreadyDeclined RSVPReason = "already_declined"
)

// RSVPRejection is shown to the responder as-is. It is not a system failure.
type RSVPRejection struct {
	Reason  RSVPReason
	Message string
}

func (e *RSVPRejection) Error() string { return e.Message }

// RSVPResponse is one of the answers an invitee can give.
type RSVPResponse string

const (
	RSVPYes   RSVPResponse = "yes"
	RSVPNo    RSVPResponse = "no"
	RSVPMaybe RSVPResponse = "maybe"
)

// RSVPSession is everything the response form needs once a code checks out.
type RSVPSession struct {
	Invitation *Invitation `json:"invitation"`
	Membership *Membership `json:"membership"`
	Person     *Person     `json:"person"`
	Event      *Event      `json:"event"`
	Organizer  *Person     `json:"organizer,omitempty"`
	ReplyBy    time.Time   `json:"reply_by"`
}

// YesResponse is the data collected from an invitee who confirms attendance.
type YesResponse struct {
	Firstname        string
	Lastname         string
	Email            string
	Affiliation      string
	URL              string
	Address1         string
	City             string
	Region           string
	PostalCode       string
	Country          string
	Biography        string
	ResearchAreas    string
	ArrivalDate      *time.Time
	DepartureDate    *time.Time
	HasGuest         bool
	GuestDisclaimer  bool
	SpecialInfo      string
	OrganizerMessage string
}
