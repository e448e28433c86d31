package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/worklab/sessiond/internal/bot"
	"github.com/worklab/sessiond/pkg/auth"
	"github.com/worklab/sessiond/pkg/calendar"
	"github.com/worklab/sessiond/pkg/extender"
	log "github.com/worklab/sessiond/pkg/logger"
	"github.com/worklab/sessiond/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bootstrap the service-account identity and run the bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bootstrap first: nothing below runs without an authenticated identity.
	client, err := auth.Bootstrap(ctx, &cfg)
	if err != nil {
		return err
	}

	cal, err := calendar.NewService(ctx, client.TokenSource(ctx), cfg.Calendar)
	if err != nil {
		return err
	}

	projectID := cfg.Firestore.ProjectID
	if projectID == "" {
		projectID = client.ProjectID()
	}
	store, err := session.NewFirestoreStore(ctx, client.TokenSource(ctx), projectID, cfg.Firestore.Collection)
	if err != nil {
		return err
	}
	defer store.Close()

	tracker := session.NewTracker(store, cal, cfg.Calendar.CalendarID, cfg.Extender.Horizon)

	b, err := bot.New(cfg.Discord.Token, tracker, cfg.Places)
	if err != nil {
		return err
	}
	if err := b.Open(); err != nil {
		return err
	}
	defer b.Close()

	go extender.New(store, cal, cfg.Extender).Run(ctx)

	log.Info("sessiond running", "identity", client.Email(), "calendar", cfg.Calendar.CalendarID)
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}
