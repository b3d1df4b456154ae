package rest

import (
	"errors"
	"io"
	"net/http"

	"github.com/KevinKickass/OpenInstrumentCore/internal/api/websocket"
	"github.com/KevinKickass/OpenInstrumentCore/internal/driver/modules"
	"github.com/KevinKickass/OpenInstrumentCore/internal/instrument"
	"github.com/KevinKickass/OpenInstrumentCore/internal/parameter"
	"github.com/gin-gonic/gin"
)

func (s *Server) module(c *gin.Context) (*modules.Module, bool) {
	m, err := s.lm.Session().Module(c.Param("name"))
	if err != nil {
		respondError(c, "Module not found", err)
		return nil, false
	}
	return m, true
}

// GET /api/v1/modules
func (s *Server) listModules(c *gin.Context) {
	list := s.lm.Session().Modules()

	response := make([]gin.H, 0, len(list))
	for _, m := range list {
		response = append(response, gin.H{
			"name": m.Name(),
			"type": m.ModuleType(),
			"id":   m.Root().ID(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"modules": response,
		"count":   len(response),
	})
}

// POST /api/v1/modules
func (s *Server) createModule(c *gin.Context) {
	var req struct {
		Type string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	m, err := s.lm.Session().CreateModule(c.Request.Context(), req.Type)
	if err != nil {
		respondError(c, "Failed to create module", err)
		return
	}

	s.wsHub.Broadcast(websocket.NewInstrumentMessage(websocket.MessageTypeModuleCreated,
		m.Name(), instrument.KindModule, "", m.ModuleType()))

	c.JSON(http.StatusCreated, gin.H{
		"name": m.Name(),
		"type": m.ModuleType(),
		"id":   m.Root().ID(),
	})
}

// DELETE /api/v1/modules/:name
func (s *Server) closeModule(c *gin.Context) {
	name := c.Param("name")
	m, ok := s.module(c)
	if !ok {
		return
	}
	moduleType := m.ModuleType()

	if err := s.lm.Session().CloseModule(name); err != nil {
		respondError(c, "Failed to close module", err)
		return
	}

	s.wsHub.Broadcast(websocket.NewInstrumentMessage(websocket.MessageTypeModuleClosed,
		name, instrument.KindModule, "", moduleType))

	c.JSON(http.StatusOK, gin.H{"message": "Module closed"})
}

// POST /api/v1/modules/:name/execute
func (s *Server) executeModule(c *gin.Context) {
	m, ok := s.module(c)
	if !ok {
		return
	}
	if err := m.Execute(c.Request.Context()); err != nil {
		respondError(c, "Failed to execute module", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Module executing"})
}

// POST /api/v1/modules/:name/wait
func (s *Server) waitModule(c *gin.Context) {
	m, ok := s.module(c)
	if !ok {
		return
	}

	var req struct {
		Timeout   string `json:"timeout"`
		SleepTime string `json:"sleep_time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body", err)
		return
	}
	timeout, err := parseDuration(req.Timeout, s.timeouts.WaitDone)
	if err != nil {
		badRequest(c, "Invalid timeout", err)
		return
	}
	sleepTime, err := parseDuration(req.SleepTime, s.timeouts.SleepTime)
	if err != nil {
		badRequest(c, "Invalid sleep_time", err)
		return
	}

	if err := m.WaitDone(c.Request.Context(), timeout, sleepTime); err != nil {
		respondError(c, "Module did not finish", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Module finished"})
}

// POST /api/v1/modules/:name/subscriptions
//
// The path is resolved to a device parameter when the device it belongs
// to is connected.
func (s *Server) subscribeModule(c *gin.Context) {
	m, ok := s.module(c)
	if !ok {
		return
	}

	var req struct {
		Path string `json:"path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	ref := m.NodeParameter(req.Path)
	if err := m.Subscribe(ref); err != nil {
		respondError(c, "Failed to subscribe", err)
		return
	}

	path, _ := parameter.ResolvePath(ref)
	_, isParameter := ref.(*parameter.Parameter)
	c.JSON(http.StatusOK, gin.H{
		"message":   "Subscribed",
		"path":      path,
		"parameter": isParameter,
	})
}

// DELETE /api/v1/modules/:name/subscriptions/*path
func (s *Server) unsubscribeModule(c *gin.Context) {
	m, ok := s.module(c)
	if !ok {
		return
	}
	if err := m.Unsubscribe(m.NodeParameter(c.Param("path"))); err != nil {
		respondError(c, "Failed to unsubscribe", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed"})
}
