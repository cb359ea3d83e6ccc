package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"watchroom/internal/config"
	"watchroom/internal/metrics"
	"watchroom/internal/mw"
	"watchroom/internal/room"
	"watchroom/internal/ws"
)

// SetupRouter wires middleware, the admission API and the websocket
// endpoint onto one engine.
func SetupRouter(cfg config.Config, coord *room.Coordinator) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env, cfg.AllowedOrigin))
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := NewHandler(coord)
	api := r.Group("/api")
	api.POST("/create-room", h.CreateRoom)
	api.POST("/join-room", h.JoinRoom)

	r.GET("/ws", ws.Serve(coord))

	return r
}
