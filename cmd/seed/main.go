// Command seed loads initial data into the platform: the agencies, the
// group channel, and a welcome notice. It runs with the service key and
// is idempotent, so re-running it is safe.
package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/groupdesk/groupdesk/internal/app/domain/agency"
	"github.com/groupdesk/groupdesk/internal/app/domain/channel"
	"github.com/groupdesk/groupdesk/internal/app/domain/notice"
	"github.com/groupdesk/groupdesk/internal/app/storage"
	supastore "github.com/groupdesk/groupdesk/internal/app/storage/supabase"
	"github.com/groupdesk/groupdesk/internal/config"
	"github.com/groupdesk/groupdesk/internal/platform/supabase"
	"github.com/groupdesk/groupdesk/pkg/logger"
)

func main() {
	var (
		envFile  = flag.String("env", ".env", "env file with platform credentials")
		agencies = flag.String("agencies", "", "comma-separated agency names to create")
	)
	flag.Parse()

	log := logger.NewDefault("seed")

	if err := godotenv.Load(*envFile); err != nil {
		log.WithField("file", *envFile).Warn("env file not loaded, relying on the environment")
	}

	cfg, err := config.Load(log)
	if err != nil {
		log.WithError(err).Error("configuration failed")
		os.Exit(1)
	}
	if !cfg.PlatformConfigured() || cfg.Platform.ServiceKey == "" {
		log.Error("seeding requires SUPABASE_URL, SUPABASE_ANON_KEY, and SUPABASE_SERVICE_KEY")
		os.Exit(1)
	}

	client, err := supabase.New(supabase.Config{
		ProjectURL: cfg.Platform.URL,
		AnonKey:    cfg.Platform.AnonKey,
		ServiceKey: cfg.Platform.ServiceKey,
		Timeout:    cfg.Platform.Timeout,
		Retry:      supabase.DefaultRetryConfig(),
	})
	if err != nil {
		log.WithError(err).Error("platform client failed")
		os.Exit(1)
	}

	store := supastore.New(client)
	// The service key rides as the bearer token so the writes are not
	// subject to row policies.
	ctx := supastore.WithAccessToken(context.Background(), cfg.Platform.ServiceKey)

	if _, err := store.FindChannel(ctx, channel.KindGroup, ""); err != nil {
		ch, err := store.CreateChannel(ctx, channel.Channel{Name: "general", Kind: channel.KindGroup})
		if err != nil {
			log.WithError(err).Error("create group channel failed")
			os.Exit(1)
		}
		log.WithField("channel", ch.ID).Info("group channel created")
	}

	existing, err := store.ListAgencies(ctx)
	if err != nil {
		log.WithError(err).Error("list agencies failed")
		os.Exit(1)
	}
	have := make(map[string]bool, len(existing))
	for _, a := range existing {
		have[a.Name] = true
	}
	for _, name := range splitNames(*agencies) {
		if have[name] {
			continue
		}
		a, err := store.CreateAgency(ctx, agency.Agency{Name: name})
		if err != nil {
			log.WithError(err).WithField("agency", name).Error("create agency failed")
			os.Exit(1)
		}
		if _, err := store.CreateChannel(ctx, channel.Channel{
			Name: "agency-" + a.ID, Kind: channel.KindAgency, AgencyID: a.ID,
		}); err != nil {
			log.WithError(err).WithField("agency", name).Error("create agency channel failed")
			os.Exit(1)
		}
		log.WithField("agency", a.ID).Info("agency created")
	}

	if err := seedWelcomeNotice(ctx, store); err != nil {
		log.WithError(err).Error("welcome notice failed")
		os.Exit(1)
	}

	log.Info("seeding complete")
}

func splitNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func seedWelcomeNotice(ctx context.Context, notices storage.NoticeStore) error {
	const title = "Welcome"
	existing, err := notices.ListNotices(ctx)
	if err != nil {
		return err
	}
	for _, n := range existing {
		if n.Title == title {
			return nil
		}
	}
	_, err = notices.CreateNotice(ctx, notice.Notice{
		Title:   title,
		Content: "The workspace is ready. Announcements from the core team appear here.",
	})
	return err
}
