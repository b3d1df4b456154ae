package rest

import (
	"fmt"
	"net/http"

	"github.com/KevinKickass/OpenInstrumentCore/internal/api/websocket"
	"github.com/KevinKickass/OpenInstrumentCore/internal/driver/devices"
	"github.com/KevinKickass/OpenInstrumentCore/internal/instrument"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
	"github.com/gin-gonic/gin"
)

// GET /api/v1/devices
func (s *Server) listDevices(c *gin.Context) {
	list := s.lm.Session().Devices()

	response := make([]gin.H, 0, len(list))
	for _, d := range list {
		entry := gin.H{
			"name":        d.Name(),
			"serial":      d.Serial(),
			"device_type": d.DeviceType(),
			"id":          d.Root().ID(),
		}
		if awgDev, ok := d.(interface{ AWGs() []*devices.AWG }); ok {
			entry["awgs"] = len(awgDev.AWGs())
		}
		response = append(response, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"devices": response,
		"count":   len(response),
	})
}

// POST /api/v1/devices
func (s *Server) connectDevice(c *gin.Context) {
	var req struct {
		Serial    string `json:"serial" binding:"required"`
		Interface string `json:"interface"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	d, err := s.lm.Session().ConnectDevice(c.Request.Context(), req.Serial, req.Interface)
	if err != nil {
		respondError(c, "Failed to connect device", err)
		return
	}

	s.wsHub.Broadcast(websocket.NewInstrumentMessage(websocket.MessageTypeDeviceConnected,
		d.Name(), instrument.KindDevice, d.Serial(), d.DeviceType()))

	c.JSON(http.StatusCreated, gin.H{
		"name":        d.Name(),
		"serial":      d.Serial(),
		"device_type": d.DeviceType(),
		"id":          d.Root().ID(),
	})
}

// POST /api/v1/devices/:serial/qccs
func (s *Server) enableQCCSMode(c *gin.Context) {
	d, err := s.lm.Session().Device(c.Param("serial"))
	if err != nil {
		respondError(c, "Device not found", err)
		return
	}
	qccs, ok := d.(devices.QCCSDevice)
	if !ok {
		respondError(c, "Device does not support QCCS mode",
			fmt.Errorf("%w: %s is a %s", types.ErrInvalidOperation, d.Serial(), d.DeviceType()))
		return
	}
	if err := qccs.EnableQCCSMode(c.Request.Context()); err != nil {
		respondError(c, "Failed to enable QCCS mode", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "QCCS mode enabled"})
}

func (s *Server) qas(c *gin.Context) (*devices.QAS, bool) {
	d, err := s.lm.Session().Device(c.Param("serial"))
	if err != nil {
		respondError(c, "Device not found", err)
		return nil, false
	}
	uhfqa, ok := d.(*devices.UHFQA)
	if !ok {
		respondError(c, "Device has no QA channels",
			fmt.Errorf("%w: %s is a %s", types.ErrInvalidOperation, d.Serial(), d.DeviceType()))
		return nil, false
	}
	index, err := indexParam(c)
	if err != nil {
		badRequest(c, "Invalid channel index", err)
		return nil, false
	}
	q, err := uhfqa.QAS(index)
	if err != nil {
		respondError(c, "QA channel not found", err)
		return nil, false
	}
	return q, true
}

// GET /api/v1/devices/:serial/qas/:index/crosstalk
func (s *Server) getCrosstalkMatrix(c *gin.Context) {
	q, ok := s.qas(c)
	if !ok {
		return
	}
	matrix, err := q.CrosstalkMatrix(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to read crosstalk matrix", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matrix": matrix})
}

// PUT /api/v1/devices/:serial/qas/:index/crosstalk
func (s *Server) setCrosstalkMatrix(c *gin.Context) {
	q, ok := s.qas(c)
	if !ok {
		return
	}
	var req struct {
		Matrix [][]float64 `json:"matrix" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	if err := q.SetCrosstalkMatrix(c.Request.Context(), req.Matrix); err != nil {
		respondError(c, "Failed to set crosstalk matrix", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Crosstalk matrix set"})
}

// GET /api/v1/devices/:serial/qas/:index/delay
func (s *Server) getAdjustedDelay(c *gin.Context) {
	q, ok := s.qas(c)
	if !ok {
		return
	}
	delay, err := q.AdjustedDelay(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to read delay", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delay": delay})
}

// PUT /api/v1/devices/:serial/qas/:index/delay
func (s *Server) setAdjustedDelay(c *gin.Context) {
	q, ok := s.qas(c)
	if !ok {
		return
	}
	var req struct {
		Delay *int `json:"delay" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	delay, err := q.SetAdjustedDelay(c.Request.Context(), *req.Delay)
	if err != nil {
		respondError(c, "Failed to set delay", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delay": delay})
}
