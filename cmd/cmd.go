package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"silver-social-backend/internal/config"
	"silver-social-backend/internal/handlers"
	"silver-social-backend/internal/live"
	"silver-social-backend/internal/repository"
	"silver-social-backend/internal/repository/memory"
	"silver-social-backend/internal/services"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// stores groups the store implementations the services are built on
type stores struct {
	users      services.UserStore
	likes      services.LikeStore
	matches    services.MatchStore
	messages   services.MessageStore
	reads      services.ReadMarkerStore
	activities services.ActivityStore
	close      func()
}

func Run() {
	// Load configuration
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open stores")
	}
	defer st.close()

	// Live push
	broker, err := newBroker(ctx, cfg.Live)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create live broker")
	}
	defer broker.Close()

	hub := live.NewHub(broker)
	if err := hub.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start live hub")
	}

	notifier, err := newNotifier(cfg.APNs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create push notifier")
	}

	var media *services.MediaService
	if cfg.AWS.S3Bucket != "" {
		media, err = services.NewMediaService(ctx, cfg.AWS)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create media service")
		}
	} else {
		log.Warn().Msg("aws.s3_bucket is not set, uploads are disabled")
	}

	// Initialize services
	userService := services.NewUserService(st.users, cfg.JWT.Secret, cfg.JWT.TokenTTL())
	matchService := services.NewMatchService(st.likes, st.matches, st.users, hub, notifier)
	chatService := services.NewChatService(st.users, st.matches, st.messages, st.reads, hub, notifier)
	activityService := services.NewActivityService(st.activities, st.users)

	router := handlers.NewRouter(handlers.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		CookieSecure:   cfg.Server.CookieSecure,
		TokenTTL:       cfg.JWT.TokenTTL(),
		Users:          userService,
		Matches:        matchService,
		Chats:          chatService,
		Activities:     activityService,
		Media:          media,
		Hub:            hub,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("database", cfg.Database.Driver).
			Str("broker", cfg.Live.Broker).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	// hijacked websocket connections are not tracked by Shutdown
	hub.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openStores connects the configured storage driver
func openStores(ctx context.Context, cfg config.DatabaseConfig) (*stores, error) {
	if cfg.Driver == "memory" {
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		store := memory.New()
		return &stores{
			users:      store.Users(),
			likes:      store.Likes(),
			matches:    store.Matches(),
			messages:   store.Messages(),
			reads:      store.ReadMarkers(),
			activities: store.Activities(),
			close:      func() {},
		}, nil
	}

	if cfg.MigrateOnStart {
		if err := repository.Migrate(cfg.MigrateURL()); err != nil {
			return nil, err
		}
	}

	db, err := repository.Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	log.Info().Msg("Database connection established")

	return &stores{
		users:      repository.NewUserRepository(db),
		likes:      repository.NewLikeRepository(db),
		matches:    repository.NewMatchRepository(db),
		messages:   repository.NewMessageRepository(db),
		reads:      repository.NewReadMarkerRepository(db),
		activities: repository.NewActivityRepository(db),
		close:      db.Close,
	}, nil
}

// newBroker picks the live fan-out transport
func newBroker(ctx context.Context, cfg config.LiveConfig) (live.Broker, error) {
	if cfg.Broker == "redis" {
		broker, err := live.NewRedisBroker(ctx, live.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("addr", cfg.Redis.Addr).Str("channel", cfg.Redis.Channel).Msg("Redis broker connected")
		return broker, nil
	}
	return live.NewLocalBroker(), nil
}

// newNotifier returns the APNs client when enabled
func newNotifier(cfg config.APNsConfig) (services.Notifier, error) {
	if !cfg.Enabled {
		return services.NoopNotifier{}, nil
	}
	notifier, err := services.NewAPNsNotifier(cfg.KeyFile, cfg.KeyID, cfg.TeamID, cfg.Topic, cfg.Production)
	if err != nil {
		return nil, err
	}
	log.Info().Str("topic", cfg.Topic).Bool("production", cfg.Production).Msg("APNs notifier enabled")
	return notifier, nil
}

// setupLogger configures zerolog logger
func setupLogger(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
