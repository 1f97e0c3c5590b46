package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"wager-settlement-backend/internal/chain"
	"wager-settlement-backend/internal/config"
	"wager-settlement-backend/internal/handlers"
	"wager-settlement-backend/internal/logging"
	"wager-settlement-backend/internal/middleware"
	"wager-settlement-backend/internal/services"
	"wager-settlement-backend/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Global().Fatal().Err(err).Msg("failed to load config")
	}

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile}); err != nil {
		logging.Global().Fatal().Err(err).Msg("failed to init logging")
	}
	log := logging.Global()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, store.Config{
		Driver:       cfg.DatabaseDriver,
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DBMaxOpenConns,
		Timeout:      cfg.StoreTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer db.Close()

	var (
		limiter middleware.RateLimiter
		cache   services.LeaderboardCache
	)
	redisService, err := services.NewRedisService(ctx, services.RedisConfig{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, rate limits and leaderboard cache disabled")
	} else {
		defer redisService.Close()
		limiter = redisService
		cache = redisService
	}

	var chainClient chain.Client
	if cfg.RPCURL != "" {
		rpc, err := chain.Dial(ctx, cfg.RPCURL)
		if err != nil {
			log.Warn().Err(err).Msg("rpc unavailable, randomness falls back and quotes are disabled")
		} else {
			defer rpc.Close()
			chainClient = rpc
		}
	}

	var verifier services.Verifier = services.PermissiveVerifier{}
	if cfg.SignatureMode == config.SignatureModeRequired {
		verifier = services.NewEthVerifier()
	}

	hub := handlers.NewWebSocketHub()
	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTTTL)
	randomness := services.NewChainRandomness(chainClient, cfg.RandomnessWait, cfg.StrictRandom)

	minesService := services.NewMinesService(db, randomness, verifier, hub, cfg.SignatureMaxAge)
	coinflipService := services.NewCoinflipService(db, randomness, verifier, cache, hub, cfg.SignatureMaxAge)
	royaleService := services.NewRoyaleService(db, services.RandomJudge{}, hub)
	quoteService := services.NewQuoteService(chainClient, cfg.AMMAddress, cfg.AMMFeeBps)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers.SetExposeStack(!cfg.IsProduction())

	router := handlers.NewRouter(handlers.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		JWT:         jwtService,
		Limiter:     limiter,
		Store:       db,
		Auth:        handlers.NewAuthHandler(verifier, jwtService, cfg.SignatureMaxAge),
		Game:        handlers.NewGameHandler(minesService, coinflipService, royaleService, quoteService),
		User:        handlers.NewUserHandler(minesService),
		WebSocket:   handlers.NewWebSocketHandler(hub),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("signature_mode", cfg.SignatureMode).
			Bool("strict_randomness", cfg.StrictRandom).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("server stopped")
}
