// Package server exposes the proxy endpoints over JSON/HTTP. Clients only
// ever talk to this surface; the Vision and OpenAI credentials live behind it.
package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/caraseli02/invoice-extractor/constants"
	"github.com/caraseli02/invoice-extractor/internal/common"
	"github.com/caraseli02/invoice-extractor/internal/extract"
	"github.com/caraseli02/invoice-extractor/internal/llm"
)

// NewRouter wires middleware and routes.
func NewRouter(cfg *common.Config, detector extract.TextDetector, parser llm.Parser, logger *slog.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	r.Use(BodyLimitMiddleware(constants.MaxBodyBytes))
	r.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	r.MaxMultipartMemory = constants.MaxBodyBytes

	h := NewHandler(detector, parser, logger)

	r.GET("/healthz", h.HealthCheck)

	v1 := r.Group("/v1")
	{
		v1.POST("/ocr", h.OCR)
		v1.POST("/parse", h.Parse)
		v1.POST("/extract", h.Extract)
	}

	return r
}
