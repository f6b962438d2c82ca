package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/maxgro/daybrief/internal/api"
	"github.com/maxgro/daybrief/internal/auth"
	"github.com/maxgro/daybrief/internal/calendar"
	"github.com/maxgro/daybrief/internal/config"
	"github.com/maxgro/daybrief/internal/summary"
	"github.com/maxgro/daybrief/internal/tokenstore"
)

func main() {
	// Optional .env for local development; the real deployment sets the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, cleanup, err := newTokenStore(cfg)
	if err != nil {
		log.Fatalf("failed to initialize token store: %v", err)
	}
	defer cleanup()

	microsoft := auth.NewMicrosoftAuthenticator(auth.MicrosoftConfig{
		TenantID:     cfg.MSTenantID,
		ClientID:     cfg.MSAppID,
		ClientSecret: cfg.MSAppSecret,
		RedirectURL:  cfg.MSRedirectURL,
	}, store, logger)

	google := auth.NewGoogleAuthenticator(auth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}, store, logger)

	// Restore any persisted credentials before serving. Missing or stale
	// records leave the provider unauthenticated; routes report that state.
	bootCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	microsoft.AuthenticateSilent(bootCtx)
	google.AuthenticateSilent(bootCtx)
	cancel()
	logger.Info("credential restore complete",
		"google", google.Authenticated(), "microsoft", microsoft.Authenticated())

	loader := calendar.NewLoader(microsoft, google, calendar.LoaderConfig{
		Location:      cfg.Timezone,
		SelfName:      cfg.SelfAttendeeName,
		TitleDenylist: cfg.TitleDenylist,
	})

	completer := summary.NewOpenAIClient(summary.OpenAIConfig{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.OpenAIModel,
	})
	synthesizer := summary.NewElevenLabsClient(summary.ElevenLabsConfig{
		APIKey:  cfg.ElevenLabsAPIKey,
		VoiceID: cfg.ElevenLabsVoiceID,
	})

	router := gin.Default()
	h := api.NewHandler(google, microsoft, loader, completer, synthesizer, summary.BuildPrompt, logger)
	api.RegisterRoutes(router, h)

	logger.Info("listening", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// newTokenStore selects Postgres when DATABASE_URL is set, otherwise
// per-provider token files next to the binary.
func newTokenStore(cfg *config.Config) (tokenstore.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		store := tokenstore.NewFileStore(map[string]string{
			auth.ProviderGoogle:    cfg.GoogleTokenFile,
			auth.ProviderMicrosoft: cfg.MSTokenFile,
		})
		return store, func() {}, nil
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	store, err := tokenstore.NewPostgresStore(context.Background(), pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}
