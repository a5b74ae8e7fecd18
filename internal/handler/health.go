package handler

import (
	"context"
	"net/http"
	"time"

	"subhlabh/internal/cache"
	"subhlabh/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports DB and Redis connectivity plus the receipt dead-letter
// backlog. Redis is optional: only a DB failure turns the response into 503.
func Health(db *gorm.DB, rdb *redis.Client, breaker *cache.Breaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		body := gin.H{"db": dbStatus}
		if rdb == nil {
			body["redis"] = "disabled"
		} else {
			body["redis"] = "connected"
			if rdb.Ping(ctx).Err() != nil {
				body["redis"] = "error"
			} else if n, err := worker.DLQLength(ctx, rdb, worker.QueueReceipts); err == nil {
				body["receipt_dlq"] = n
			}
		}
		if breaker != nil {
			body["cache_breaker"] = breaker.State()
		}

		status := http.StatusOK
		if dbStatus != "connected" {
			status = http.StatusServiceUnavailable
		}
		body["ok"] = status == http.StatusOK
		c.JSON(status, body)
	}
}
