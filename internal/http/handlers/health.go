package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	pings map[string]func(ctx context.Context) error
}

// NewHealthHandler takes named ping functions (db, redis) checked by readyz.
func NewHealthHandler(pings map[string]func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{pings: pings}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
	defer cancel()

	for name, ping := range h.pings {
		if ping == nil {
			continue
		}

		if err := ping(cctx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "failing": name})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
