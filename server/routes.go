package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trustmed/core"
	"trustmed/utils/text"
)

func registerRoutes(router *gin.Engine, bridge *core.ExternalEventHandler) {
	router.GET("/healthz", handleHealth(bridge))
	router.POST("/api/speech", handleSpeech())
	if bridge != nil {
		router.GET("/ws", gin.WrapH(bridge))
	}
}

func handleHealth(bridge *core.ExternalEventHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		clients := 0
		if bridge != nil {
			clients = bridge.ClientCount()
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": clients})
	}
}

type speechRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode,omitempty"`
}

type speechResponse struct {
	Summary string `json:"summary"`
	Full    string `json:"full"`
	Spoken  string `json:"spoken,omitempty"`
}

// handleSpeech previews what would be spoken for an answer text.
func handleSpeech() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req speechRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		}

		resp := speechResponse{
			Summary: text.SummarizeForSpeech(req.Text),
			Full:    text.CleanForFullSpeech(req.Text),
		}
		if req.Mode != "" {
			mode, err := text.ParseSpeechMode(req.Mode)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			resp.Spoken = text.Spoken(mode, req.Text).Text
		}
		c.JSON(http.StatusOK, resp)
	}
}
