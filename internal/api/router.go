package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"gatepass-backend/config"
	"gatepass-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router around the handler.
func NewRouter(h *Handler, serverCfg config.ServerConfig) *gin.Engine {
	r := gin.Default()

	// The rate limiter keys on client IP; behind a proxy the real address
	// arrives in a configured header.
	if serverCfg.RequestIPHeader != "" {
		r.RemoteIPHeaders = []string{serverCfg.RequestIPHeader}
	}

	rateLimiter := mw.RateLimiter(rate.Limit(serverCfg.RateLimitPerSec), serverCfg.RateLimitBurst)

	// Lobby status reads are hot during an event; cache them briefly. The
	// TTL is short so operator consoles still see fresh counts.
	cacheTTL := time.Duration(serverCfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 10*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/credentials", h.CreateCredential)
		api.GET("/credentials", h.ListCredentials)
		api.GET("/credentials/:id", h.GetCredential)
		api.PATCH("/credentials/:id/status", h.SetCredentialStatus)
		api.POST("/credentials/:id/verify", h.VerifyCredential)
		api.POST("/credentials/:id/arrival", h.MarkArrived)

		api.GET("/lobbies", caching, h.ListLobbies)
		api.GET("/lobbies/:name", caching, h.GetLobbyStatus)
		api.POST("/lobbies/:name/checkin", h.CheckIn)
		api.POST("/lobbies/:name/batch-exits", h.CreateBatchExit)
		api.GET("/lobbies/:name/batch-exits", h.ListBatches)
		api.POST("/lobbies/:name/count", h.SetLobbyCount)
		api.POST("/lobbies/:name/reset", h.ResetLobby)
	}

	return r
}
