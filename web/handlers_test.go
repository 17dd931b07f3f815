package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"inferno.jolokia.com/config"
	"inferno.jolokia.com/directory"
	"inferno.jolokia.com/eventapi"
	"inferno.jolokia.com/security"
	"inferno.jolokia.com/workflow"
)

type stubDirectory struct {
	sent      []directory.Mail
	created   []directory.CalendarEvent
	sendErr   error
	createErr error
}

func (d *stubDirectory) GetProfile(ctx context.Context, email string) (*directory.Profile, error) {
	return &directory.Profile{DisplayName: "Adele Vance", Mail: email}, nil
}

func (d *stubDirectory) GetPhoto(ctx context.Context, email string) ([]byte, error) {
	return nil, fmt.Errorf("%w: no photo", directory.ErrNotFound)
}

func (d *stubDirectory) Me(ctx context.Context) (*directory.Profile, error) {
	return &directory.Profile{DisplayName: "Megan Bowen", UserPrincipalName: "megan@contoso.com"}, nil
}

func (d *stubDirectory) MyPhoto(ctx context.Context) ([]byte, error) {
	return nil, fmt.Errorf("%w: no photo", directory.ErrNotFound)
}

func (d *stubDirectory) LookupUser(ctx context.Context, email string) (*directory.Profile, error) {
	return &directory.Profile{DisplayName: "Adele Vance"}, nil
}

func (d *stubDirectory) SendMail(ctx context.Context, mail directory.Mail) error {
	d.sent = append(d.sent, mail)
	return d.sendErr
}

func (d *stubDirectory) CreateEvent(ctx context.Context, event directory.CalendarEvent, timezoneName string) error {
	d.created = append(d.created, event)
	return d.createErr
}

func (d *stubDirectory) ListUpcoming(ctx context.Context, max int32) ([]directory.EventSummary, error) {
	return nil, nil
}

type stubEventSource struct{}

func (s *stubEventSource) FetchEvent(ctx context.Context, id string) (*eventapi.EventRecord, error) {
	return nil, errors.New("event API unavailable")
}

type stubAuth struct {
	token      *oauth2.Token
	exchangeErr error
	claims     *security.Claims
	verifyErr  error
}

func (a *stubAuth) AuthCodeURL(state string) string {
	return "https://login.example.com/authorize?state=" + state
}

func (a *stubAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return a.token, a.exchangeErr
}

func (a *stubAuth) VerifyIDToken(ctx context.Context, token *oauth2.Token) (*security.Claims, error) {
	return a.claims, a.verifyErr
}

func freshToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: "token", Expiry: time.Now().Add(time.Hour)}
}

func testConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{
			Backend:    "memory",
			TTL:        time.Hour,
			CookieName: "inferno_session",
		},
	}
}

func newTestServer(t *testing.T, dir *stubDirectory, auth Authenticator) (*echo.Echo, *Server, security.SessionStore) {
	t.Helper()

	sessions := security.NewMemorySessionStore(time.Hour)
	srv := NewServer(testConfig(), auth, sessions, &stubEventSource{}, func(token *oauth2.Token) (workflow.DirectoryClient, error) {
		return dir, nil
	})

	e := echo.New()
	srv.Register(e)
	return e, srv, sessions
}

func signIn(t *testing.T, sessions security.SessionStore, token *oauth2.Token) *http.Cookie {
	t.Helper()

	id, err := security.NewSessionID()
	require.NoError(t, err)
	require.NoError(t, sessions.Put(context.Background(), &security.Session{
		ID:        id,
		Email:     "megan@contoso.com",
		Name:      "Megan Bowen",
		Token:     token,
		CreatedAt: time.Now(),
	}))
	return &http.Cookie{Name: "inferno_session", Value: id}
}

func postForm(path, form string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func TestHome_SignedOut(t *testing.T) {
	e, _, _ := newTestServer(t, &stubDirectory{}, &stubAuth{})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign in")
	assert.NotContains(t, rec.Body.String(), "Send mail")
}

func TestHome_SignedInProfileLookup(t *testing.T) {
	e, _, sessions := newTestServer(t, &stubDirectory{}, &stubAuth{})
	cookie := signIn(t, sessions, freshToken())

	req := httptest.NewRequest(http.MethodGet, "/?email=adele@contoso.com", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Adele Vance")
	assert.Contains(t, rec.Body.String(), "Send mail")
}

func TestHome_ExpiredTokenRedirectsToLogin(t *testing.T) {
	e, _, sessions := newTestServer(t, &stubDirectory{}, &stubAuth{})
	expired := &oauth2.Token{AccessToken: "token", Expiry: time.Now().Add(-time.Hour)}
	cookie := signIn(t, sessions, expired)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	_, err := sessions.Get(context.Background(), cookie.Value)
	assert.ErrorIs(t, err, security.ErrSessionNotFound)
}

func TestLogin_RedirectsToProvider(t *testing.T) {
	e, _, _ := newTestServer(t, &stubDirectory{}, &stubAuth{})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "https://login.example.com/authorize?state="))

	var state string
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookie {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)
	assert.True(t, strings.HasSuffix(location, state))
}

func TestCallback_StateMismatch(t *testing.T) {
	e, _, _ := newTestServer(t, &stubDirectory{}, &stubAuth{})

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=evil&code=abc", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "good"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallback_CreatesSession(t *testing.T) {
	auth := &stubAuth{
		token: freshToken(),
		claims: &security.Claims{
			Subject:           "abc123",
			Name:              "Megan Bowen",
			PreferredUsername: "megan@contoso.com",
		},
	}
	e, _, sessions := newTestServer(t, &stubDirectory{}, auth)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=good&code=abc", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "good"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	var sessionID string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "inferno_session" && c.Value != "" {
			sessionID = c.Value
		}
	}
	require.NotEmpty(t, sessionID)

	sess, err := sessions.Get(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, "megan@contoso.com", sess.Email)
	assert.Equal(t, "Megan Bowen", sess.Name)
}

func TestLogout_DeletesSession(t *testing.T) {
	e, _, sessions := newTestServer(t, &stubDirectory{}, &stubAuth{})
	cookie := signIn(t, sessions, freshToken())

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	_, err := sessions.Get(context.Background(), cookie.Value)
	assert.ErrorIs(t, err, security.ErrSessionNotFound)
}

func TestSendMail_RequiresSession(t *testing.T) {
	e, _, _ := newTestServer(t, &stubDirectory{}, &stubAuth{})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, postForm("/send-mail", "recipients=a%40x.com"))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestSendMail_EmptyRecipients(t *testing.T) {
	dir := &stubDirectory{}
	e, _, sessions := newTestServer(t, dir, &stubAuth{})
	cookie := signIn(t, sessions, freshToken())

	req := postForm("/send-mail", "recipients=")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Empty(t, dir.sent)

	flash := flashValue(t, rec)
	assert.Contains(t, flash, "valid email address")
}

func TestSendMail_Success(t *testing.T) {
	dir := &stubDirectory{}
	e, _, sessions := newTestServer(t, dir, &stubAuth{})
	cookie := signIn(t, sessions, freshToken())

	req := postForm("/send-mail", "recipients=adele%40contoso.com")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	require.Len(t, dir.sent, 1)
	assert.Equal(t, []string{"adele@contoso.com"}, dir.sent[0].Recipients)

	flash := flashValue(t, rec)
	assert.Contains(t, flash, "Success")
}

func TestCreateEvent_Success(t *testing.T) {
	dir := &stubDirectory{}
	e, _, sessions := newTestServer(t, dir, &stubAuth{})
	cookie := signIn(t, sessions, freshToken())

	req := postForm("/create-event", "recipients=adele%40contoso.com&eventId=")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	require.Len(t, dir.created, 1)

	// The stub event source always fails, so the fallback event is used.
	assert.Equal(t, "Let's go for lunch", dir.created[0].Subject)
	assert.Contains(t, flashValue(t, rec), "Success")
}

func TestCreateEvent_SubmissionFailure(t *testing.T) {
	dir := &stubDirectory{createErr: errors.New("calendar unavailable")}
	e, _, sessions := newTestServer(t, dir, &stubAuth{})
	cookie := signIn(t, sessions, freshToken())

	req := postForm("/create-event", "recipients=adele%40contoso.com")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, flashValue(t, rec), "could not create")
}

func TestPrivacyPage(t *testing.T) {
	e, _, _ := newTestServer(t, &stubDirectory{}, &stubAuth{})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/privacy", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Privacy")
}

// flashValue extracts the decoded flash message set on a response.
func flashValue(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookie && c.Value != "" {
			value, err := url.QueryUnescape(c.Value)
			require.NoError(t, err)
			return value
		}
	}
	t.Fatal("no flash cookie set")
	return ""
}
