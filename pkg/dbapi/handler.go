package dbapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/panjf2000/ants/v2"

	"devdb/pkg/common/worker"
	"devdb/pkg/guard"
	"devdb/pkg/migrate"
	"devdb/pkg/service"
)

// RegisterRoutes registers database admin endpoints under rg
func RegisterRoutes(rg *gin.RouterGroup, svc *service.Service) {
	rg.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Status())
	})
	rg.GET("/reset", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"reset": svc.LastReset()})
	})
	rg.POST("/reset", func(c *gin.Context) {
		job, err := svc.SubmitReset()
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"reset": job})
	})
}

// RegisterPoolRoutes registers worker pool stats endpoints
func RegisterPoolRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pool": worker.StatsSnapshot()})
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, migrate.ErrProductionReset):
		return http.StatusForbidden
	case errors.Is(err, service.ErrResetRunning):
		return http.StatusConflict
	case errors.Is(err, guard.ErrPlaceholder):
		return http.StatusNotImplemented
	case errors.Is(err, ants.ErrPoolOverload):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
