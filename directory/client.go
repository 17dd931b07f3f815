// Package directory implements the Microsoft Graph client used for profile
// lookups, photo retrieval, mail submission and calendar event creation.
//
// Two construction modes are supported. The web application uses
// NewClientForToken with the signed-in user's delegated OAuth2 token; the
// CLI's app-only commands use NewApplicationClient with client-credential
// authentication. Provider error codes are normalized into the package's
// tagged error set in both modes.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	azidentity "github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	abstractions "github.com/microsoft/kiota-abstractions-go"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"
	"golang.org/x/oauth2"
)

var graphScopes = []string{"https://graph.microsoft.com/.default"}

// Client wraps a Graph service client.
type Client struct {
	graph *msgraphsdk.GraphServiceClient
}

// staticTokenCredential adapts an already-acquired OAuth2 token to the
// azcore credential interface. The web flow owns token acquisition and
// refresh; Graph calls only ever see the current access token.
type staticTokenCredential struct {
	token *oauth2.Token
}

func (c staticTokenCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	if c.token == nil || c.token.AccessToken == "" {
		return azcore.AccessToken{}, errors.New("no access token available")
	}
	return azcore.AccessToken{
		Token:     c.token.AccessToken,
		ExpiresOn: c.token.Expiry,
	}, nil
}

// NewClientForToken creates a Graph client acting on behalf of the
// signed-in user identified by the delegated token.
func NewClientForToken(token *oauth2.Token) (*Client, error) {
	graph, err := msgraphsdk.NewGraphServiceClientWithCredentials(
		staticTokenCredential{token: token},
		graphScopes,
	)
	if err != nil {
		return nil, fmt.Errorf("creating graph client: %w", err)
	}
	return &Client{graph: graph}, nil
}

// NewApplicationClient creates a Graph client with application permissions
// via client-credential authentication.
func NewApplicationClient(tenantID, clientID, clientSecret string) (*Client, error) {
	cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("creating credentials: %w", err)
	}

	graph, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, graphScopes)
	if err != nil {
		return nil, fmt.Errorf("creating graph client: %w", err)
	}
	return &Client{graph: graph}, nil
}

func profileFromUser(user models.Userable) *Profile {
	p := &Profile{}
	if v := user.GetId(); v != nil {
		p.ID = *v
	}
	if v := user.GetDisplayName(); v != nil {
		p.DisplayName = *v
	}
	if v := user.GetGivenName(); v != nil {
		p.GivenName = *v
	}
	if v := user.GetSurname(); v != nil {
		p.Surname = *v
	}
	if v := user.GetMail(); v != nil {
		p.Mail = *v
	}
	if v := user.GetUserPrincipalName(); v != nil {
		p.UserPrincipalName = *v
	}
	if v := user.GetJobTitle(); v != nil {
		p.JobTitle = *v
	}
	if v := user.GetOfficeLocation(); v != nil {
		p.OfficeLocation = *v
	}
	if v := user.GetMobilePhone(); v != nil {
		p.MobilePhone = *v
	}
	return p
}

// GetProfile resolves a user's profile by email address.
func (c *Client) GetProfile(ctx context.Context, email string) (*Profile, error) {
	user, err := c.graph.Users().ByUserId(email).Get(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	return profileFromUser(user), nil
}

// LookupUser resolves the display name of a prospective attendee. Only the
// fields needed for attendee composition are requested.
func (c *Client) LookupUser(ctx context.Context, email string) (*Profile, error) {
	opts := &users.UserItemRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.UserItemRequestBuilderGetQueryParameters{
			Select: []string{"id", "displayName", "mail", "userPrincipalName"},
		},
	}
	user, err := c.graph.Users().ByUserId(email).Get(ctx, opts)
	if err != nil {
		return nil, classify(err)
	}
	return profileFromUser(user), nil
}

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	user, err := c.graph.Me().Get(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	return profileFromUser(user), nil
}

// GetPhoto retrieves a user's profile photo bytes.
func (c *Client) GetPhoto(ctx context.Context, email string) ([]byte, error) {
	photo, err := c.graph.Users().ByUserId(email).Photo().Content().Get(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	return photo, nil
}

// MyPhoto retrieves the signed-in user's profile photo bytes.
func (c *Client) MyPhoto(ctx context.Context) ([]byte, error) {
	photo, err := c.graph.Me().Photo().Content().Get(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	return photo, nil
}

// SendMail submits a message on behalf of the signed-in user and saves it
// to sent items.
func (c *Client) SendMail(ctx context.Context, mail Mail) error {
	message := models.NewMessage()
	message.SetSubject(&mail.Subject)

	body := models.NewItemBody()
	contentType := models.HTML_BODYTYPE
	body.SetContentType(&contentType)
	body.SetContent(&mail.BodyHTML)
	message.SetBody(body)

	recipients := make([]models.Recipientable, 0, len(mail.Recipients))
	for _, addr := range mail.Recipients {
		recipients = append(recipients, newRecipient(addr))
	}
	message.SetToRecipients(recipients)

	if len(mail.Attachments) > 0 {
		attachments := make([]models.Attachmentable, 0, len(mail.Attachments))
		for _, att := range mail.Attachments {
			attachments = append(attachments, newFileAttachment(att))
		}
		message.SetAttachments(attachments)
	}

	requestBody := users.NewItemSendMailPostRequestBody()
	requestBody.SetMessage(message)
	saveToSentItems := true
	requestBody.SetSaveToSentItems(&saveToSentItems)

	if err := c.graph.Me().SendMail().Post(ctx, requestBody, nil); err != nil {
		return classify(err)
	}
	return nil
}

// CreateEvent creates a calendar event on the signed-in user's default
// calendar. The resolved timezone name travels both in the event payload
// and as the outlook.timezone preference header.
func (c *Client) CreateEvent(ctx context.Context, ev CalendarEvent, timezoneName string) error {
	event := models.NewEvent()
	event.SetSubject(&ev.Subject)

	body := models.NewItemBody()
	contentType := models.HTML_BODYTYPE
	body.SetContentType(&contentType)
	body.SetContent(&ev.BodyHTML)
	event.SetBody(body)

	event.SetStart(newDateTimeTimeZone(ev.Start))
	event.SetEnd(newDateTimeTimeZone(ev.End))

	attendees := make([]models.Attendeeable, 0, len(ev.Attendees))
	for _, att := range ev.Attendees {
		attendees = append(attendees, newAttendee(att))
	}
	event.SetAttendees(attendees)

	headers := abstractions.NewRequestHeaders()
	headers.Add("Prefer", fmt.Sprintf("outlook.timezone=%q", timezoneName))
	opts := &users.ItemEventsRequestBuilderPostRequestConfiguration{
		Headers: headers,
	}

	if _, err := c.graph.Me().Events().Post(ctx, event, opts); err != nil {
		return classify(err)
	}
	return nil
}

// ListUpcoming returns up to max of the signed-in user's next calendar
// events, ordered by start time.
func (c *Client) ListUpcoming(ctx context.Context, max int32) ([]EventSummary, error) {
	opts := &users.ItemEventsRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.ItemEventsRequestBuilderGetQueryParameters{
			Top:     &max,
			Orderby: []string{"start/dateTime"},
			Select:  []string{"subject", "start", "end"},
		},
	}

	resp, err := c.graph.Me().Events().Get(ctx, opts)
	if err != nil {
		return nil, classify(err)
	}

	iterator, err := msgraphcore.NewPageIterator[models.Eventable](
		resp,
		c.graph.GetAdapter(),
		models.CreateEventCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return nil, fmt.Errorf("creating event iterator: %w", err)
	}

	var summaries []EventSummary
	err = iterator.Iterate(ctx, func(ev models.Eventable) bool {
		summaries = append(summaries, summarizeEvent(ev))
		return len(summaries) < int(max)
	})
	if err != nil {
		return nil, classify(err)
	}

	return summaries, nil
}

func summarizeEvent(ev models.Eventable) EventSummary {
	s := EventSummary{}
	if v := ev.GetSubject(); v != nil {
		s.Subject = *v
	}
	if start := ev.GetStart(); start != nil && start.GetDateTime() != nil {
		s.Start = *start.GetDateTime()
	}
	if end := ev.GetEnd(); end != nil && end.GetDateTime() != nil {
		s.End = *end.GetDateTime()
	}
	return s
}

func newRecipient(addr string) models.Recipientable {
	recipient := models.NewRecipient()
	emailAddress := models.NewEmailAddress()
	address := addr
	emailAddress.SetAddress(&address)
	recipient.SetEmailAddress(emailAddress)
	return recipient
}

func newFileAttachment(att Attachment) models.Attachmentable {
	attachment := models.NewFileAttachment()
	odataType := "#microsoft.graph.fileAttachment"
	attachment.SetOdataType(&odataType)
	name := att.Name
	attachment.SetName(&name)
	contentType := att.ContentType
	attachment.SetContentType(&contentType)
	attachment.SetContentBytes(att.Content)
	return attachment
}

func newAttendee(att Attendee) models.Attendeeable {
	attendee := models.NewAttendee()
	emailAddress := models.NewEmailAddress()
	address := att.Email
	emailAddress.SetAddress(&address)
	if att.Name != "" {
		name := att.Name
		emailAddress.SetName(&name)
	}
	attendee.SetEmailAddress(emailAddress)
	attendeeType := models.REQUIRED_ATTENDEETYPE
	attendee.SetTypeEscaped(&attendeeType)
	return attendee
}

func newDateTimeTimeZone(dtz DateTimeZone) models.DateTimeTimeZoneable {
	result := models.NewDateTimeTimeZone()
	dateTime := dtz.DateTime
	timeZone := dtz.TimeZone
	result.SetDateTime(&dateTime)
	result.SetTimeZone(&timeZone)
	return result
}
