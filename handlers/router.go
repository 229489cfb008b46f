package handlers

import (
	"log/slog"

	"water-quality-api/config"
	"water-quality-api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterDeps struct {
	Ingest      Ingester
	Query       Querier
	Store       Pinger
	Live        Subscriber
	LiveChannel string
	CORS        config.CORSConfig
	Logger      *slog.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger), middleware.SetupCORS(d.CORS))

	r.GET("/", Index)
	r.GET("/health", Health(d.Store))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	readings := NewReadingsHandler(d.Ingest, d.Query)
	g := r.Group("/readings")
	{
		g.POST("", readings.Create)
		g.GET("/latest", readings.GetLatest)
		g.GET("/history", readings.GetHistory)
		g.GET("/live", LiveReadings(d.Live, d.LiveChannel))
	}
	return r
}
