package tradematch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/gohye/tradematch/tradematch/database"
	"github.com/gohye/tradematch/tradematch/database/repositories"
	"github.com/gohye/tradematch/tradematch/matching"
	"github.com/gohye/tradematch/tradematch/services"
)

func New(cfg Config, version string, commit string) *Service {
	return &Service{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

// Service wires the whole matching system: database, repositories, match
// store, engine, listing service and the background refresher.
type Service struct {
	Cfg     Config
	Version string
	Commit  string

	DB         *database.DB
	Redis      *redis.Client
	Ledger     *repositories.LedgerRepository
	CardValues *repositories.CardValueRepository
	Matches    *repositories.MatchRepository
	Events     *repositories.InvalidationRepository
	Engine     *matching.Engine
	Listings   *services.ListingService
	Refresher  *matching.Refresher
}

// Setup connects to the database, initializes the schema and wires every
// component. It must be called before any other method.
func (s *Service) Setup(ctx context.Context) error {
	db, err := database.New(ctx, s.Cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.DB = db

	if err := db.InitializeSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.Ledger = repositories.NewLedgerRepository(db.BunDB())
	s.CardValues = repositories.NewCardValueRepository(db.BunDB())
	s.Matches = repositories.NewMatchRepository(db.BunDB(), s.Cfg.Engine.Retention())
	s.Events = repositories.NewInvalidationRepository(db.BunDB())

	store, err := s.buildStore(ctx)
	if err != nil {
		return err
	}

	var notifier matching.Notifier = matching.NopNotifier{}
	if s.Cfg.Notify.WebhookID != 0 {
		notifier = services.NewMatchNotifier(
			s.Cfg.Notify.WebhookID,
			s.Cfg.Notify.WebhookToken,
			s.Cfg.Notify.MinQuality,
		)
	}

	values := matching.NewCardValues(s.CardValues, s.Cfg.Engine.CacheTTL())

	s.Engine = matching.NewEngine(matching.EngineConfig{
		MinQuality:           s.Cfg.Engine.MinQuality,
		MaxDirectResults:     s.Cfg.Engine.MaxDirectResults,
		MaxDepth:             s.Cfg.Engine.MaxDepth,
		MaxTriangularResults: s.Cfg.Engine.MaxTriangularResults,
		MaxGraphNodes:        s.Cfg.Engine.MaxGraphNodes,
		CacheTTL:             s.Cfg.Engine.CacheTTL(),
	}, s.Ledger, values, nil, store, s.Events, notifier)

	s.Listings = services.NewListingService(s.Ledger, s.Engine)

	s.Refresher = matching.NewRefresher(
		s.Engine,
		store,
		s.Ledger,
		s.Cfg.Engine.RefreshInterval(),
		s.Cfg.Engine.RefreshUsers,
	)

	slog.Info("Trade matching service ready",
		slog.String("version", s.Version),
		slog.String("commit", s.Commit))
	return nil
}

// buildStore selects the match store backend: redis when enabled, otherwise
// the durable postgres store.
func (s *Service) buildStore(ctx context.Context) (matching.MatchStore, error) {
	if !s.Cfg.Redis.Enabled {
		return s.Matches, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     s.Cfg.Redis.Address,
		Password: s.Cfg.Redis.Password,
		DB:       s.Cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	s.Redis = client

	slog.Info("Using redis match store", slog.String("address", s.Cfg.Redis.Address))
	return matching.NewRedisStore(client, s.Cfg.Engine.Retention()), nil
}

func (s *Service) Close() {
	if s.Refresher != nil {
		s.Refresher.Stop()
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			slog.Warn("Failed to close redis client", slog.Any("error", err))
		}
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
