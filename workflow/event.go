package workflow

import (
	"context"
	"time"

	"inferno.jolokia.com/common"
	"inferno.jolokia.com/directory"
	"inferno.jolokia.com/eventapi"
	"inferno.jolokia.com/timezone"
)

// graphDateTimeLayout is the wall-clock format the Graph calendar API
// expects alongside a timezone name.
const graphDateTimeLayout = "2006-01-02T15:04:05"

// eventDuration is the end-time policy for fetched events: the event API
// reports only a start time, so the end is fixed at one hour later, the
// same duration the fallback event uses.
const eventDuration = time.Hour

// FallbackEvent is the hardcoded calendar event substituted when the event
// API cannot be reached, with the signed-in user as sole attendee.
func FallbackEvent(me *directory.Profile) directory.CalendarEvent {
	return directory.CalendarEvent{
		Subject:  "Let's go for lunch",
		BodyHTML: "Does noon work for you?",
		Start: directory.DateTimeZone{
			DateTime: "2021-03-30T10:00:00",
			TimeZone: timezone.DefaultName,
		},
		End: directory.DateTimeZone{
			DateTime: "2021-03-30T11:00:00",
			TimeZone: timezone.DefaultName,
		},
		Attendees: []directory.Attendee{
			{
				Email: me.UserPrincipalName,
				Name:  me.DisplayName,
				Type:  directory.AttendeeRequired,
			},
		},
	}
}

// buildCalendarEvent maps an event record onto a calendar event. Times are
// rendered as wall-clock values in the record's own offset, paired with
// the resolved Windows timezone name.
func buildCalendarEvent(record *eventapi.EventRecord, timezoneName string) directory.CalendarEvent {
	start := record.StartTime
	end := start.Add(eventDuration)

	body := record.Description
	if body == "" {
		body = record.Name
	}

	return directory.CalendarEvent{
		Subject:  record.Name,
		BodyHTML: body,
		Start: directory.DateTimeZone{
			DateTime: start.Format(graphDateTimeLayout),
			TimeZone: timezoneName,
		},
		End: directory.DateTimeZone{
			DateTime: end.Format(graphDateTimeLayout),
			TimeZone: timezoneName,
		},
	}
}

// fetchAndBuild obtains the calendar event for an event identifier. Any
// fetch failure is absorbed: the workflow substitutes the fallback default
// event instead of propagating the error.
func (c *Coordinator) fetchAndBuild(ctx context.Context, eventID string, me *directory.Profile) (directory.CalendarEvent, string) {
	record, err := c.events.FetchEvent(ctx, eventID)
	if err != nil {
		common.Logger.WithError(err).WithField("event", eventID).
			Warn("event fetch failed, using fallback event")
		return FallbackEvent(me), timezone.DefaultName
	}

	timezoneName := timezone.StandardNameOrDefault(record.StartTime)
	return buildCalendarEvent(record, timezoneName), timezoneName
}
