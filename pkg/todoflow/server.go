package todoflow

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoflow/delivery/rest/middleware"
)

// RegisterRoutes registers the API with the provided Gin engine.
// The API is mounted under the configured RoutePrefix and Prometheus
// metrics are served at /metrics.
func (t *Todoflow) RegisterRoutes(engine *gin.Engine) error {
	if engine == nil {
		return fmt.Errorf("engine cannot be nil")
	}

	engine.GET("/metrics", gin.WrapH(t.metrics.Handler()))

	group := engine.Group(t.config.RoutePrefix)
	group.Use(middleware.Metrics(t.metrics))
	group.Use(middleware.Logger(t.logger.Named("http")))
	group.Use(middleware.Recovery(t.logger.Named("http")))
	if len(t.config.CORSOrigins) > 0 {
		group.Use(middleware.CORS(t.config.CORSOrigins))
	}

	t.handler.Register(group, middleware.Auth(t.tokens))

	t.logger.Info("Routes registered successfully",
		zap.String("prefix", t.config.RoutePrefix),
	)
	return nil
}
