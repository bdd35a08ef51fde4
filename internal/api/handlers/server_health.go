package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Root handles GET / — a small service banner.
func (s *Server) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"application": "VMShift Migration API",
		"version":     "1.0.0",
		"health":      "/health",
	})
}

// Health handles GET /health — liveness of the API process itself.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "vmshift-api",
	})
}

// DetailedHealth handles GET /health/detailed — checks each dependency and
// reports degraded when any of them is unreachable.
func (s *Server) DetailedHealth(c *gin.Context) {
	ctx := c.Request.Context()
	status := "healthy"

	database := gin.H{"type": "postgresql", "status": "healthy"}
	if err := s.db.Ping(ctx); err != nil {
		database["status"] = "unhealthy"
		database["error"] = err.Error()
		status = "degraded"
	}

	queue := gin.H{"type": "river", "status": "healthy"}
	if err := s.queue.Ping(ctx); err != nil {
		queue["status"] = "unhealthy"
		queue["error"] = err.Error()
		status = "degraded"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"service": "vmshift-api",
		"dependencies": gin.H{
			"database": database,
			"queue":    queue,
		},
	})
}

// Ready handles GET /ready — the readiness probe gates on the database.
func (s *Server) Ready(c *gin.Context) {
	ready := s.db.Ping(c.Request.Context()) == nil
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"ready": ready})
}

// Live handles GET /live.
func (s *Server) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alive": true})
}
