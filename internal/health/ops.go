package health

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/edgegate/internal/audit"
	"github.com/vyrodovalexey/edgegate/internal/observability"
)

// Audit listing limits.
const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

var ginModeOnce sync.Once

// AuditLister lists stored compliance violations, newest first.
type AuditLister interface {
	Recent(ctx context.Context, limit int) ([]*audit.Violation, error)
}

// NewOpsEngine builds the gin engine of the operations listener. metrics
// and lister may be nil, in which case their routes are not registered.
func NewOpsEngine(h *Handler, metrics http.Handler, lister AuditLister) *gin.Engine {
	ginModeOnce.Do(func() { gin.SetMode(gin.ReleaseMode) })
	engine := gin.New()
	engine.Use(gin.Recovery())

	h.RegisterRoutes(engine)
	if metrics != nil {
		engine.GET("/metrics", gin.WrapH(metrics))
	}
	if lister != nil {
		engine.GET("/audit/compliance", AuditHandler(lister, h))
	}
	return engine
}

// AuditHandler serves GET /audit/compliance?limit=N.
func AuditHandler(lister AuditLister, h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultAuditLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
				return
			}
			limit = n
		}
		if limit > maxAuditLimit {
			limit = maxAuditLimit
		}

		records, err := lister.Recent(c.Request.Context(), limit)
		if err != nil {
			h.logger.Error("listing audit records failed", observability.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit_unavailable"})
			return
		}
		if records == nil {
			records = []*audit.Violation{}
		}
		c.JSON(http.StatusOK, gin.H{
			"count":   len(records),
			"records": records,
		})
	}
}
