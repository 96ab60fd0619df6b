package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type statusResponse struct {
	Version       string `json:"version"`
	SchemaVersion int64  `json:"schemaVersion"`
	Pending       int    `json:"pending"`
}

func (s *Server) status(c *gin.Context) {
	resp := statusResponse{Version: s.Version}
	if n := len(s.Migrations); n > 0 {
		resp.SchemaVersion = s.Migrations[n-1].Version
	}
	if s.Runner != nil {
		pending, err := s.Runner.Pending(c.Request.Context(), s.Migrations)
		if err != nil {
			s.fail(c, err)
			return
		}
		resp.Pending = pending
	}
	c.JSON(http.StatusOK, resp)
}

type linksBody struct {
	URLs []string `json:"urls" binding:"required"`
}

func (s *Server) deepLinks(c *gin.Context) {
	if s.Links == nil {
		s.fail(c, errUnavailable)
		return
	}
	var body linksBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.badRequest(c, err)
		return
	}
	s.Links.Deliver(body.URLs)
	c.JSON(http.StatusAccepted, gin.H{"received": len(body.URLs)})
}

func (s *Server) trayItem(c *gin.Context) {
	if s.Tray == nil {
		s.fail(c, errUnavailable)
		return
	}
	if err := s.Tray.Select(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
