package http

import (
	"net/http"
	"time"

	"wavelink/internal/core/ports"
	"wavelink/pkg/config"

	webrtc "github.com/pion/webrtc/v3"

	"github.com/gin-gonic/gin"
)

// StatusHandler serves the small REST surface next to the hub: health,
// a read-only presence snapshot and the ICE server configuration clients
// need to build their peer connections.
type StatusHandler struct {
	coordinator ports.Coordinator
	iceServers  []webrtc.ICEServer
	startTime   time.Time
}

func NewStatusHandler(coordinator ports.Coordinator, cfg *config.Config) *StatusHandler {
	return &StatusHandler{
		coordinator: coordinator,
		iceServers:  iceServersFromConfig(cfg),
		startTime:   time.Now(),
	}
}

// SetupRoutes registers the REST surface. The health probe stays open;
// protected middleware guards the /api/v1 group.
func (h *StatusHandler) SetupRoutes(router gin.IRouter, protected ...gin.HandlerFunc) {
	router.GET("/health", h.Health)

	api := router.Group("/api/v1", protected...)
	{
		api.GET("/online", h.OnlineUsers)
		api.GET("/webrtc/config", h.WebRTCConfig)
	}
}

func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now(),
		"uptime":      time.Since(h.startTime).String(),
		"connections": h.coordinator.ConnectionCount(),
	})
}

func (h *StatusHandler) OnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"users": h.coordinator.Online(),
	})
}

func (h *StatusHandler) WebRTCConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"iceServers": h.iceServers,
	})
}

func iceServersFromConfig(cfg *config.Config) []webrtc.ICEServer {
	var servers []webrtc.ICEServer
	for _, s := range cfg.WebRTC.ICEServers {
		servers = append(servers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}
	if len(servers) == 0 {
		// Fallback STUN server if not configured
		servers = []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		}
	}
	return servers
}
