// Package cli provides the command-line entry points of the service: the
// web server and a directory lookup utility for application credentials.
package cli

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"inferno.jolokia.com/common"
	"inferno.jolokia.com/config"
	"inferno.jolokia.com/directory"
	"inferno.jolokia.com/eventapi"
	ihttp "inferno.jolokia.com/http"
	"inferno.jolokia.com/security"
	"inferno.jolokia.com/web"
	"inferno.jolokia.com/workflow"
)

// cfgFile holds the path to the configuration file specified via flag.
var cfgFile string

// RootCmd starts the web server.
var RootCmd = &cobra.Command{
	Use:   "inferno-connect",
	Short: "web frontend for directory mail and calendar workflows",
	Long: `Inferno Connect

A web application that signs users in with Azure AD, displays directory
profiles and photos, sends mail on the signed-in user's behalf, and creates
calendar events composed from Inferno AR event data.

Configuration is read from config files, .env files, and environment
variables with the INFERNO_ prefix.`,
	RunE:          runServer,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig("INFERNO", cfgFile)
	if err != nil {
		return err
	}
	common.ConfigureLogger(cfg.Logging.Level, cfg.Logging.Format)

	ctx := cmd.Context()

	provider, err := security.NewOIDCProvider(ctx, cfg.Azure)
	if err != nil {
		return fmt.Errorf("oidc setup failed: %w", err)
	}

	sessions, err := security.NewSessionStore(cfg.Session)
	if err != nil {
		return err
	}

	events := eventapi.NewClient(cfg.Inferno)

	serverCfg := ihttp.ServerConfig{
		Port:            cfg.Server.Port,
		Debug:           cfg.Server.Debug,
		BodyLimit:       cfg.Server.BodyLimit,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimit:       cfg.Security.RateLimit,
	}
	e := ihttp.NewEchoServer(serverCfg)
	e.GET("/health", ihttp.HealthCheckHandler(cfg.Service.Name, cfg.Service.Version))

	srv := web.NewServer(cfg, provider, sessions, events, func(token *oauth2.Token) (workflow.DirectoryClient, error) {
		return directory.NewClientForToken(token)
	})
	srv.Register(e)

	go func() {
		if err := ihttp.StartServer(e, serverCfg); err != nil && err != http.ErrServerClosed {
			common.Logger.WithError(err).Fatal("server start failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return ihttp.GracefulShutdown(e, cfg.Server.ShutdownTimeout)
}
