package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"wager-settlement-backend/internal/middleware"
	"wager-settlement-backend/internal/services"
)

type RouterConfig struct {
	CORSOrigins []string
	JWT         *services.JWTService
	Limiter     middleware.RateLimiter
	Store       Pinger

	Auth      *AuthHandler
	Game      *GameHandler
	User      *UserHandler
	WebSocket *WebSocketHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	}
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", Health(cfg.Store))
	router.POST("/auth/wallet", cfg.Auth.WalletLogin)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(cfg.JWT), middleware.RateLimitMiddleware(cfg.Limiter))
	{
		protected.GET("/me", cfg.User.GetCurrentUser)
		protected.GET("/ws", cfg.WebSocket.HandleWebSocket)
		protected.GET("/quote", cfg.Game.GetQuote)

		mines := protected.Group("/mines")
		{
			mines.POST("/start", cfg.Game.StartMines)
			mines.POST("/reveal", cfg.Game.RevealMine)
			mines.POST("/cashout", cfg.Game.CashoutMines)
			mines.GET("/active", cfg.Game.GetActiveMines)
			mines.GET("/:id", cfg.Game.GetMinesSession)
		}

		coinflip := protected.Group("/coinflip")
		{
			coinflip.POST("/play", cfg.Game.PlayCoinflip)
			coinflip.GET("/leaderboard", cfg.Game.GetLeaderboard)
			coinflip.GET("/history", cfg.Game.GetCoinflipHistory)
			coinflip.GET("/verify/:id", cfg.Game.VerifyCoinflip)
		}

		royale := protected.Group("/royale")
		{
			royale.POST("/bet", cfg.Game.PlaceRoyaleBet)
			royale.POST("/coins", cfg.Game.RegisterCoin)
			royale.GET("/battles", cfg.Game.GetBattles)
			royale.GET("/stakes", cfg.Game.GetStakes)
		}
	}

	return router
}
