package directory

// Profile is the subset of directory user fields the application displays
// and composes into events.
type Profile struct {
	ID                string `json:"id,omitempty"`
	DisplayName       string `json:"displayName,omitempty"`
	GivenName         string `json:"givenName,omitempty"`
	Surname           string `json:"surname,omitempty"`
	Mail              string `json:"mail,omitempty"`
	UserPrincipalName string `json:"userPrincipalName,omitempty"`
	JobTitle          string `json:"jobTitle,omitempty"`
	OfficeLocation    string `json:"officeLocation,omitempty"`
	MobilePhone       string `json:"mobilePhone,omitempty"`
}

// AttendeeRequired is the only attendee role this application assigns.
const AttendeeRequired = "required"

// Attendee is a participant on a calendar event, resolved from a raw
// recipient address.
type Attendee struct {
	Email string
	Name  string
	Type  string
}

// DateTimeZone pairs a local wall-clock time with a Windows timezone name,
// the representation the directory's calendar API expects.
type DateTimeZone struct {
	DateTime string
	TimeZone string
}

// CalendarEvent is built fresh per request from an event record (or the
// fallback default) plus resolved attendees, and discarded after
// submission.
type CalendarEvent struct {
	Subject   string
	BodyHTML  string
	Start     DateTimeZone
	End       DateTimeZone
	Attendees []Attendee
}

// Attachment is a file attached to an outgoing mail message.
type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

// Mail is an outgoing message sent on behalf of the signed-in user.
type Mail struct {
	Subject     string
	BodyHTML    string
	Recipients  []string
	Attachments []Attachment
}

// EventSummary is one row of the signed-in user's upcoming events listing.
type EventSummary struct {
	Subject string
	Start   string
	End     string
}
