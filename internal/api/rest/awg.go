package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/KevinKickass/OpenInstrumentCore/internal/api/websocket"
	"github.com/KevinKickass/OpenInstrumentCore/internal/driver/devices"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) awg(c *gin.Context) (*devices.AWG, bool) {
	d, err := s.lm.Session().Device(c.Param("serial"))
	if err != nil {
		respondError(c, "Device not found", err)
		return nil, false
	}
	awgDev, ok := d.(devices.AWGDevice)
	if !ok {
		respondError(c, "Device has no AWG cores",
			fmt.Errorf("%w: %s is a %s", types.ErrInvalidOperation, d.Serial(), d.DeviceType()))
		return nil, false
	}
	index, err := indexParam(c)
	if err != nil {
		badRequest(c, "Invalid AWG index", err)
		return nil, false
	}
	a, err := awgDev.AWG(index)
	if err != nil {
		respondError(c, "AWG core not found", err)
		return nil, false
	}
	return a, true
}

func (s *Server) commandTable(c *gin.Context) (*devices.CommandTableNode, bool) {
	a, ok := s.awg(c)
	if !ok {
		return nil, false
	}
	ct, ok := a.CommandTable()
	if !ok {
		respondError(c, "AWG core has no command table",
			fmt.Errorf("%w: %s has no command table", types.ErrNotFound, a.ZINode()))
		return nil, false
	}
	return ct, true
}

// POST /api/v1/devices/:serial/awgs/:index/sequencer
func (s *Server) loadSequencerProgram(c *gin.Context) {
	a, ok := s.awg(c)
	if !ok {
		return
	}

	var req struct {
		Program string `json:"program" binding:"required"`
		Timeout string `json:"timeout"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	timeout, err := parseDuration(req.Timeout, s.timeouts.Compile)
	if err != nil {
		badRequest(c, "Invalid timeout", err)
		return
	}

	if err := a.LoadSequencerProgram(c.Request.Context(), req.Program, timeout); err != nil {
		s.wsHub.Broadcast(websocket.NewSequencerMessage(c.Param("serial"), a.Index(), "failed", err.Error()))
		respondError(c, "Failed to load sequencer program", err)
		return
	}

	s.logger.Info("Sequencer program loaded",
		zap.String("serial", c.Param("serial")),
		zap.Int("awg", a.Index()))
	s.wsHub.Broadcast(websocket.NewSequencerMessage(c.Param("serial"), a.Index(), "loaded", ""))

	c.JSON(http.StatusOK, gin.H{"message": "Sequencer program loaded"})
}

// POST /api/v1/devices/:serial/awgs/:index/enable
func (s *Server) enableSequencer(c *gin.Context) {
	a, ok := s.awg(c)
	if !ok {
		return
	}

	var req struct {
		Single bool `json:"single"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body", err)
		return
	}

	if err := a.EnableSequencer(c.Request.Context(), req.Single); err != nil {
		respondError(c, "Failed to enable sequencer", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Sequencer enabled",
		"single":  req.Single,
	})
}

// POST /api/v1/devices/:serial/awgs/:index/wait
func (s *Server) waitSequencer(c *gin.Context) {
	a, ok := s.awg(c)
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

	if err := a.WaitDone(c.Request.Context(), timeout, sleepTime); err != nil {
		respondError(c, "Sequencer did not finish", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sequencer finished"})
}

// PUT /api/v1/devices/:serial/awgs/:index/waveforms
func (s *Server) writeWaveforms(c *gin.Context) {
	a, ok := s.awg(c)
	if !ok {
		return
	}

	var req struct {
		Waveforms map[string]types.Wave `json:"waveforms" binding:"required"`
		Indexes   []int                 `json:"indexes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	waves := types.NewWaveforms()
	for key, wave := range req.Waveforms {
		index, err := strconv.Atoi(key)
		if err != nil {
			badRequest(c, "Invalid waveform index", err)
			return
		}
		waves.Assign(index, wave)
	}

	if err := a.WriteToWaveformMemory(c.Request.Context(), waves, req.Indexes); err != nil {
		respondError(c, "Failed to write waveforms", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Waveforms written",
		"count":   waves.Len(),
	})
}

// GET /api/v1/devices/:serial/awgs/:index/waveforms?indexes=0,1
func (s *Server) readWaveforms(c *gin.Context) {
	a, ok := s.awg(c)
	if !ok {
		return
	}

	var indexes []int
	if v := c.Query("indexes"); v != "" {
		for _, part := range strings.Split(v, ",") {
			index, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				badRequest(c, "Invalid waveform index", err)
				return
			}
			indexes = append(indexes, index)
		}
	}

	waves, err := a.ReadFromWaveformMemory(c.Request.Context(), indexes)
	if err != nil {
		respondError(c, "Failed to read waveforms", err)
		return
	}

	response := make(map[string]types.Wave, waves.Len())
	for _, index := range waves.Indexes() {
		wave, _ := waves.Get(index)
		response[strconv.Itoa(index)] = wave
	}
	c.JSON(http.StatusOK, gin.H{"waveforms": response})
}

// GET /api/v1/devices/:serial/awgs/:index/commandtable/status
func (s *Server) commandTableStatus(c *gin.Context) {
	ct, ok := s.commandTable(c)
	if !ok {
		return
	}
	loaded, err := ct.CheckStatus(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to check command table status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loaded": loaded})
}

// GET /api/v1/devices/:serial/awgs/:index/commandtable/schema
func (s *Server) commandTableSchema(c *gin.Context) {
	ct, ok := s.commandTable(c)
	if !ok {
		return
	}
	schema, err := ct.LoadValidationSchema(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to load command table schema", err)
		return
	}
	c.JSON(http.StatusOK, schema)
}

// PUT /api/v1/devices/:serial/awgs/:index/commandtable?validate=false
//
// The body is the command table document. It is uploaded as a raw table
// and validated against the schema unless validate=false.
func (s *Server) uploadCommandTable(c *gin.Context) {
	ct, ok := s.commandTable(c)
	if !ok {
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, "Failed to read request body", err)
		return
	}
	if !json.Valid(body) {
		badRequest(c, "Invalid request body", fmt.Errorf("command table is not valid JSON"))
		return
	}

	validate := c.Query("validate") != "false"
	if err := ct.UploadToDevice(c.Request.Context(), types.RawCommandTable(body), validate); err != nil {
		respondError(c, "Failed to upload command table", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Command table uploaded",
		"validated": validate,
	})
}

// GET /api/v1/devices/:serial/awgs/:index/commandtable
func (s *Server) loadCommandTable(c *gin.Context) {
	ct, ok := s.commandTable(c)
	if !ok {
		return
	}
	table, err := ct.LoadFromDevice(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to load command table", err)
		return
	}
	c.JSON(http.StatusOK, table)
}
