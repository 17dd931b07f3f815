// Package workflow contains the request-scoped coordination logic of the
// application: recipient parsing, event composition from the Inferno event
// API, attendee resolution against the directory, and the mail-send and
// profile-view flows. All external collaborators are injected as
// interfaces so the flows can be exercised with test doubles.
package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inferno.jolokia.com/common"
	"inferno.jolokia.com/directory"
	"inferno.jolokia.com/eventapi"
)

// DefaultEventID is the Inferno event used when the form does not name one.
const DefaultEventID = "248d8ea0-b518-493d-b9c1-0a9f3e4e94c7"

// mailSubject is fixed for all outgoing messages.
const mailSubject = "Sent from the Inferno Connect sample"

// DirectoryClient is the directory/graph collaborator. The production
// implementation lives in the directory package; tests substitute fakes.
type DirectoryClient interface {
	GetProfile(ctx context.Context, email string) (*directory.Profile, error)
	GetPhoto(ctx context.Context, email string) ([]byte, error)
	Me(ctx context.Context) (*directory.Profile, error)
	MyPhoto(ctx context.Context) ([]byte, error)
	LookupUser(ctx context.Context, email string) (*directory.Profile, error)
	SendMail(ctx context.Context, mail directory.Mail) error
	CreateEvent(ctx context.Context, event directory.CalendarEvent, timezoneName string) error
	ListUpcoming(ctx context.Context, max int32) ([]directory.EventSummary, error)
}

// EventSource supplies event metadata by identifier.
type EventSource interface {
	FetchEvent(ctx context.Context, id string) (*eventapi.EventRecord, error)
}

// Coordinator runs the application workflows against injected
// collaborators. A Coordinator is request-scoped: the directory client is
// bound to the signed-in user's token.
type Coordinator struct {
	dir      DirectoryClient
	events   EventSource
	mailBody string
}

// NewCoordinator creates a workflow coordinator. mailBody is the fixed
// HTML body used for outgoing mail.
func NewCoordinator(dir DirectoryClient, events EventSource, mailBody string) *Coordinator {
	return &Coordinator{dir: dir, events: events, mailBody: mailBody}
}

// ParseRecipients splits a semicolon-delimited recipient string into
// trimmed addresses, discarding empty segments. Addresses are not
// validated and duplicates are not removed.
func ParseRecipients(raw string) []string {
	var recipients []string
	for _, segment := range strings.Split(raw, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		recipients = append(recipients, segment)
	}
	return recipients
}

// skippedRecipient records why a recipient was left off the attendee list.
type skippedRecipient struct {
	Email  string
	Reason error
}

// resolveAttendees looks up each recipient in the directory. Failures are
// folded into the skipped list; only successful resolutions become
// attendees, so the result is always a subset of the input.
func (c *Coordinator) resolveAttendees(ctx context.Context, recipients []string) ([]directory.Attendee, []skippedRecipient) {
	var attendees []directory.Attendee
	var skipped []skippedRecipient

	for _, recipient := range recipients {
		profile, err := c.dir.LookupUser(ctx, recipient)
		if err != nil {
			skipped = append(skipped, skippedRecipient{Email: recipient, Reason: err})
			continue
		}
		attendees = append(attendees, directory.Attendee{
			Email: recipient,
			Name:  profile.DisplayName,
			Type:  directory.AttendeeRequired,
		})
	}

	return attendees, skipped
}

// CreateEvent runs the event-creation workflow: fetch the Inferno event
// (falling back to the default event on any failure), resolve attendees,
// and submit the composed event to the directory. It reports overall
// success only; every failure along the pipeline yields false. Nothing is
// retried and there is no state to roll back.
func (c *Coordinator) CreateEvent(ctx context.Context, recipients, eventID string) bool {
	if strings.TrimSpace(recipients) == "" {
		return false
	}

	id := normalizeEventID(eventID)

	me, err := c.dir.Me(ctx)
	if err != nil {
		common.Logger.WithError(err).Error("resolving signed-in user failed")
		return false
	}

	event, timezoneName := c.fetchAndBuild(ctx, id, me)

	attendees, skipped := c.resolveAttendees(ctx, ParseRecipients(recipients))
	for _, skip := range skipped {
		common.Logger.WithFields(logrus.Fields{
			"recipient": skip.Email,
			"reason":    skip.Reason.Error(),
		}).Warn("recipient skipped during attendee resolution")
	}
	event.Attendees = append(event.Attendees, attendees...)

	if err := c.dir.CreateEvent(ctx, event, timezoneName); err != nil {
		common.Logger.WithError(err).Error("calendar event submission failed")
		return false
	}

	common.Logger.WithFields(logrus.Fields{
		"event":     id,
		"attendees": len(event.Attendees),
		"timezone":  timezoneName,
	}).Info("calendar event created")
	return true
}

// normalizeEventID substitutes the default event for a missing or
// malformed identifier. The event API keys events by UUID, so anything
// else can only ever produce a failed fetch and the fallback anyway.
func normalizeEventID(eventID string) string {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return DefaultEventID
	}
	if _, err := uuid.Parse(eventID); err != nil {
		common.Logger.WithField("event_id", eventID).Warn("malformed event id, using default")
		return DefaultEventID
	}
	return eventID
}

// SendMail sends the fixed HTML message to the parsed recipients on behalf
// of the signed-in user, attaching the sender's profile photo when one
// exists. A missing photo means no attachment; any other photo failure
// propagates. An empty recipient list is still submitted, mirroring the
// behavior this service replaces.
func (c *Coordinator) SendMail(ctx context.Context, recipients string) error {
	mail := directory.Mail{
		Subject:    mailSubject,
		BodyHTML:   c.mailBody,
		Recipients: ParseRecipients(recipients),
	}

	photo, err := c.dir.MyPhoto(ctx)
	switch {
	case err == nil:
		mail.Attachments = append(mail.Attachments, directory.Attachment{
			Name:        "me.png",
			ContentType: "image/png",
			Content:     photo,
		})
	case errors.Is(err, directory.ErrNotFound), errors.Is(err, directory.ErrInvalidUser):
		// No photo, no attachment.
	default:
		return err
	}

	return c.dir.SendMail(ctx, mail)
}
