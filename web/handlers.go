package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"

	"inferno.jolokia.com/common"
	"inferno.jolokia.com/config"
	"inferno.jolokia.com/directory"
	"inferno.jolokia.com/security"
	"inferno.jolokia.com/workflow"
)

const (
	stateCookie     = "oauth_state"
	flashCookie     = "flash"
	flashKindCookie = "flash_kind"

	msgNoRecipients = "Please add a valid email address to the recipients list!"
	msgMailSent     = "Success! Your mail was sent."
	msgEventCreated = "Success! Your calendar event was created."
	msgMailFailed   = "We could not send your mail. Please try again."
	msgEventFailed  = "We could not create your calendar event. Please try again."
)

// errReauth marks conditions that require a fresh sign-in.
var errReauth = errors.New("reauthentication required")

// Authenticator is the sign-in collaborator. The production implementation
// is security.OIDCProvider; tests substitute fakes.
type Authenticator interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	VerifyIDToken(ctx context.Context, token *oauth2.Token) (*security.Claims, error)
}

// DirectoryFactory builds a directory client bound to the signed-in
// user's token.
type DirectoryFactory func(token *oauth2.Token) (workflow.DirectoryClient, error)

// Server holds the handler dependencies for the web frontend.
type Server struct {
	cfg        *config.Config
	auth       Authenticator
	sessions   security.SessionStore
	events     workflow.EventSource
	dirFactory DirectoryFactory
	mailBody   string
}

// NewServer creates the web frontend server.
func NewServer(cfg *config.Config, auth Authenticator, sessions security.SessionStore, events workflow.EventSource, dirFactory DirectoryFactory) *Server {
	return &Server{
		cfg:        cfg,
		auth:       auth,
		sessions:   sessions,
		events:     events,
		dirFactory: dirFactory,
		mailBody:   EmailTemplate(),
	}
}

// Register wires the frontend routes and renderer onto the Echo server.
func (s *Server) Register(e *echo.Echo) {
	e.Renderer = NewRenderer()
	RegisterAssets(e)

	e.GET("/", s.home)
	e.GET("/login", s.login)
	e.GET("/auth/callback", s.callback)
	e.GET("/logout", s.logout)
	e.POST("/send-mail", s.sendMail)
	e.POST("/create-event", s.createEvent)
	e.GET("/privacy", s.privacy)
	e.GET("/error", s.errorPage)
}

// page is the template data for every rendered page.
type page struct {
	Authenticated  bool
	UserName       string
	Email          string
	Flash          string
	FlashKind      string
	Profile        *workflow.ProfileView
	DefaultEventID string
	Message        string
}

func (s *Server) newPage(c echo.Context, sess *security.Session) page {
	p := page{DefaultEventID: workflow.DefaultEventID}
	if sess != nil {
		p.Authenticated = true
		p.UserName = sess.Name
		if p.UserName == "" {
			p.UserName = sess.Email
		}
	}
	p.FlashKind, p.Flash = s.readFlash(c)
	return p
}

func (s *Server) home(c echo.Context) error {
	sess := s.currentSession(c)
	p := s.newPage(c, sess)

	if sess != nil {
		p.Email = strings.TrimSpace(c.QueryParam("email"))

		co, err := s.coordinator(sess)
		if err != nil {
			return s.reauth(c, sess)
		}

		view, err := co.Profile(c.Request().Context(), p.Email)
		switch {
		case errors.Is(err, directory.ErrTokenExpired):
			return s.reauth(c, sess)
		case err != nil:
			common.Logger.WithError(err).Error("profile view failed")
			return s.renderError(c, "")
		}
		p.Profile = view
	}

	return c.Render(http.StatusOK, "home.html", p)
}

func (s *Server) login(c echo.Context) error {
	state, err := security.NewSessionID()
	if err != nil {
		return s.renderError(c, "")
	}

	c.SetCookie(&http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.Session.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	return c.Redirect(http.StatusFound, s.auth.AuthCodeURL(state))
}

func (s *Server) callback(c echo.Context) error {
	if errParam := c.QueryParam("error"); errParam != "" {
		common.Logger.WithField("error", errParam).
			Warn("identity provider returned an error")
		return s.renderError(c, "Sign-in was cancelled or rejected.")
	}

	cookie, err := c.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		return echo.NewHTTPError(http.StatusBadRequest, "state mismatch")
	}
	s.expireCookie(c, stateCookie)

	ctx := c.Request().Context()
	token, err := s.auth.Exchange(ctx, c.QueryParam("code"))
	if err != nil {
		common.Logger.WithError(err).Error("authorization code exchange failed")
		return s.renderError(c, "Sign-in failed. Please try again.")
	}

	claims, err := s.auth.VerifyIDToken(ctx, token)
	if err != nil {
		common.Logger.WithError(err).Error("ID token verification failed")
		return s.renderError(c, "Sign-in failed. Please try again.")
	}

	id, err := security.NewSessionID()
	if err != nil {
		return s.renderError(c, "")
	}
	sess := &security.Session{
		ID:        id,
		Email:     claims.Principal(),
		Name:      claims.Name,
		Token:     token,
		CreatedAt: time.Now(),
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		common.Logger.WithError(err).Error("session store write failed")
		return s.renderError(c, "")
	}

	c.SetCookie(&http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cfg.Session.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.Session.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	common.Logger.WithField("user", sess.Email).Info("user signed in")
	return c.Redirect(http.StatusFound, "/")
}

func (s *Server) logout(c echo.Context) error {
	if sess := s.currentSession(c); sess != nil {
		if err := s.sessions.Delete(c.Request().Context(), sess.ID); err != nil {
			common.Logger.WithError(err).Warn("session delete failed")
		}
	}
	s.expireCookie(c, s.cfg.Session.CookieName)
	return c.Redirect(http.StatusFound, "/")
}

func (s *Server) sendMail(c echo.Context) error {
	sess := s.currentSession(c)
	if sess == nil {
		return c.Redirect(http.StatusFound, "/login")
	}

	recipients := c.FormValue("recipients")
	if strings.TrimSpace(recipients) == "" {
		s.setFlash(c, "error", msgNoRecipients)
		return c.Redirect(http.StatusFound, "/")
	}

	co, err := s.coordinator(sess)
	if err != nil {
		return s.reauth(c, sess)
	}

	err = co.SendMail(c.Request().Context(), recipients)
	switch {
	case errors.Is(err, directory.ErrTokenExpired):
		return s.reauth(c, sess)
	case err != nil:
		common.Logger.WithError(err).Error("mail send failed")
		s.setFlash(c, "error", msgMailFailed)
	default:
		s.setFlash(c, "success", msgMailSent)
	}
	return c.Redirect(http.StatusFound, "/")
}

func (s *Server) createEvent(c echo.Context) error {
	sess := s.currentSession(c)
	if sess == nil {
		return c.Redirect(http.StatusFound, "/login")
	}

	recipients := c.FormValue("recipients")
	if strings.TrimSpace(recipients) == "" {
		s.setFlash(c, "error", msgNoRecipients)
		return c.Redirect(http.StatusFound, "/")
	}

	co, err := s.coordinator(sess)
	if err != nil {
		return s.reauth(c, sess)
	}

	if co.CreateEvent(c.Request().Context(), recipients, c.FormValue("eventId")) {
		s.setFlash(c, "success", msgEventCreated)
	} else {
		s.setFlash(c, "error", msgEventFailed)
	}
	return c.Redirect(http.StatusFound, "/")
}

func (s *Server) privacy(c echo.Context) error {
	return c.Render(http.StatusOK, "privacy.html", s.newPage(c, s.currentSession(c)))
}

func (s *Server) errorPage(c echo.Context) error {
	return s.renderError(c, c.QueryParam("message"))
}

func (s *Server) renderError(c echo.Context, message string) error {
	p := s.newPage(c, s.currentSession(c))
	p.Message = message
	return c.Render(http.StatusOK, "error.html", p)
}

// currentSession resolves the session cookie to a stored session, or nil.
func (s *Server) currentSession(c echo.Context) *security.Session {
	cookie, err := c.Cookie(s.cfg.Session.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	sess, err := s.sessions.Get(c.Request().Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, security.ErrSessionNotFound) {
			common.Logger.WithError(err).Warn("session lookup failed")
		}
		return nil
	}
	return sess
}

// coordinator builds a request-scoped workflow coordinator for a session.
// An expired token yields errReauth before any directory call is made.
func (s *Server) coordinator(sess *security.Session) (*workflow.Coordinator, error) {
	if security.TokenExpired(sess.Token) {
		return nil, errReauth
	}
	dir, err := s.dirFactory(sess.Token)
	if err != nil {
		return nil, err
	}
	return workflow.NewCoordinator(dir, s.events, s.mailBody), nil
}

// reauth drops the session and sends the browser back through sign-in.
func (s *Server) reauth(c echo.Context, sess *security.Session) error {
	if err := s.sessions.Delete(c.Request().Context(), sess.ID); err != nil {
		common.Logger.WithError(err).Warn("session delete failed")
	}
	s.expireCookie(c, s.cfg.Session.CookieName)
	return c.Redirect(http.StatusFound, "/login")
}

func (s *Server) expireCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func (s *Server) setFlash(c echo.Context, kind, message string) {
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(message),
		Path:     "/",
		HttpOnly: true,
	})
	c.SetCookie(&http.Cookie{
		Name:     flashKindCookie,
		Value:    kind,
		Path:     "/",
		HttpOnly: true,
	})
}

// readFlash consumes the flash cookies set by the previous request.
func (s *Server) readFlash(c echo.Context) (kind, message string) {
	cookie, err := c.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return "", ""
	}
	message, err = url.QueryUnescape(cookie.Value)
	if err != nil {
		message = ""
	}

	kind = "success"
	if kc, err := c.Cookie(flashKindCookie); err == nil && kc.Value != "" {
		kind = kc.Value
	}

	s.expireCookie(c, flashCookie)
	s.expireCookie(c, flashKindCookie)
	return kind, message
}
