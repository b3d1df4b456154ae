package rest

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/instrument"
	"github.com/KevinKickass/OpenInstrumentCore/internal/parameter"
	"github.com/KevinKickass/OpenInstrumentCore/internal/storage"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultReadableWidth = 80

func (s *Server) instrument(c *gin.Context) (*instrument.Instrument, bool) {
	inst, err := s.lm.Session().Instrument(c.Param("name"))
	if err != nil {
		respondError(c, "Instrument not found", err)
		return nil, false
	}
	return inst, true
}

func (s *Server) parameterAt(c *gin.Context, inst *instrument.Instrument, path string) (*parameter.Parameter, bool) {
	p, ok := inst.ParameterByPath(path)
	if !ok {
		respondError(c, "Parameter not found",
			fmt.Errorf("%w: %s has no node %s", types.ErrNotFound, inst.Name(), path))
		return nil, false
	}
	return p, true
}

// GET /api/v1/instruments
func (s *Server) listInstruments(c *gin.Context) {
	list := s.lm.Session().Registry().List()

	response := make([]gin.H, 0, len(list))
	for _, inst := range list {
		response = append(response, gin.H{
			"id":         inst.ID(),
			"name":       inst.Name(),
			"kind":       inst.Kind(),
			"parameters": len(inst.ParameterPaths()),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"instruments": response,
		"count":       len(response),
	})
}

// GET /api/v1/instruments/:name/snapshot?update=true&persist=true&format=yaml
func (s *Server) getSnapshot(c *gin.Context) {
	inst, ok := s.instrument(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	snap, err := inst.Snapshot(ctx, c.Query("update") == "true")
	if err != nil {
		respondError(c, "Snapshot failed", err)
		return
	}

	rec := &storage.SnapshotRecord{
		InstrumentID:   inst.ID(),
		InstrumentName: inst.Name(),
		Kind:           inst.Kind(),
		Snapshot:       snap,
		CreatedAt:      time.Now().UTC(),
	}

	if c.Query("persist") == "true" {
		store := s.lm.Snapshots()
		if store == nil {
			respondError(c, "Snapshot persistence is disabled",
				fmt.Errorf("%w: no snapshot store configured", types.ErrInvalidOperation))
			return
		}
		if _, err := store.SaveSnapshot(ctx, rec); err != nil {
			respondError(c, "Failed to persist snapshot", err)
			return
		}
		s.logger.Info("Snapshot persisted",
			zap.String("instrument", inst.Name()),
			zap.String("snapshot_id", rec.ID.String()))
	}

	s.writeSnapshot(c, rec)
}

func (s *Server) writeSnapshot(c *gin.Context, rec *storage.SnapshotRecord) {
	data, contentType, err := storage.EncodeSnapshot(rec, c.Query("format"))
	if err != nil {
		respondError(c, "Invalid snapshot format", err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// GET /api/v1/instruments/:name/readable?update=true&max_chars=80
func (s *Server) getReadableSnapshot(c *gin.Context) {
	inst, ok := s.instrument(c)
	if !ok {
		return
	}

	maxChars := defaultReadableWidth
	if v := c.Query("max_chars"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "Invalid max_chars", err)
			return
		}
		maxChars = n
	}

	var buf bytes.Buffer
	if err := inst.PrintReadableSnapshot(c.Request.Context(), &buf, c.Query("update") == "true", maxChars); err != nil {
		respondError(c, "Snapshot failed", err)
		return
	}
	c.String(http.StatusOK, buf.String())
}

// GET /api/v1/instruments/:name/paths
func (s *Server) listParameterPaths(c *gin.Context) {
	inst, ok := s.instrument(c)
	if !ok {
		return
	}
	paths := inst.ParameterPaths()
	c.JSON(http.StatusOK, gin.H{
		"paths": paths,
		"count": len(paths),
	})
}

// GET /api/v1/instruments/:name/parameters/*path
func (s *Server) getParameter(c *gin.Context) {
	inst, ok := s.instrument(c)
	if !ok {
		return
	}
	p, ok := s.parameterAt(c, inst, c.Param("path"))
	if !ok {
		return
	}

	value, err := p.Get(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to get parameter", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":      p.Name(),
		"path":      p.Path(),
		"unit":      p.Unit(),
		"value":     parameter.JSONValue(value),
		"timestamp": time.Now().Unix(),
	})
}

// PUT /api/v1/instruments/:name/parameters/*path
func (s *Server) setParameter(c *gin.Context) {
	inst, ok := s.instrument(c)
	if !ok {
		return
	}

	var req struct {
		Value any `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	if req.Value == nil {
		badRequest(c, "Invalid request body", fmt.Errorf("value is required"))
		return
	}

	p, ok := s.parameterAt(c, inst, c.Param("path"))
	if !ok {
		return
	}

	if err := p.Set(c.Request.Context(), req.Value); err != nil {
		respondError(c, "Failed to set parameter", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Parameter set successfully",
		"path":    p.Path(),
		"value":   req.Value,
	})
}

// POST /api/v1/instruments/:name/subscriptions
func (s *Server) subscribeParameter(c *gin.Context) {
	inst, ok := s.instrument(c)
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

	p, ok := s.parameterAt(c, inst, req.Path)
	if !ok {
		return
	}
	if err := p.Subscribe(); err != nil {
		respondError(c, "Failed to subscribe", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Subscribed",
		"path":    p.Path(),
	})
}

// DELETE /api/v1/instruments/:name/subscriptions/*path
func (s *Server) unsubscribeParameter(c *gin.Context) {
	inst, ok := s.instrument(c)
	if !ok {
		return
	}
	p, ok := s.parameterAt(c, inst, c.Param("path"))
	if !ok {
		return
	}
	if err := p.Unsubscribe(); err != nil {
		respondError(c, "Failed to unsubscribe", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Unsubscribed",
		"path":    p.Path(),
	})
}

// POST /api/v1/instruments/:name/wait
func (s *Server) waitForState(c *gin.Context) {
	inst, ok := s.instrument(c)
	if !ok {
		return
	}

	var req struct {
		Path      string `json:"path" binding:"required"`
		Value     any    `json:"value"`
		Invert    bool   `json:"invert"`
		Timeout   string `json:"timeout"`
		SleepTime string `json:"sleep_time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
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

	p, ok := s.parameterAt(c, inst, req.Path)
	if !ok {
		return
	}

	err = p.WaitForStateChange(c.Request.Context(), req.Value, toolkit.WaitOptions{
		Invert:    req.Invert,
		Timeout:   timeout,
		SleepTime: sleepTime,
	})
	if err != nil {
		respondError(c, "Wait for state change failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "State reached",
		"path":    p.Path(),
	})
}

// GET /api/v1/snapshots?instrument=...&limit=...
func (s *Server) listSnapshots(c *gin.Context) {
	store, ok := s.snapshotStore(c)
	if !ok {
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "Invalid limit", err)
			return
		}
		limit = n
	}

	records, err := store.ListSnapshots(c.Request.Context(), c.Query("instrument"), limit)
	if err != nil {
		respondError(c, "Failed to list snapshots", err)
		return
	}

	response := make([]gin.H, 0, len(records))
	for _, rec := range records {
		response = append(response, gin.H{
			"id":              rec.ID,
			"instrument_name": rec.InstrumentName,
			"kind":            rec.Kind,
			"created_at":      rec.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshots": response,
		"count":     len(response),
	})
}

// GET /api/v1/snapshots/:id?format=yaml
func (s *Server) getStoredSnapshot(c *gin.Context) {
	store, ok := s.snapshotStore(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid snapshot ID", err)
		return
	}

	rec, err := store.GetSnapshot(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Snapshot not found", err)
		return
	}
	s.writeSnapshot(c, rec)
}

// DELETE /api/v1/snapshots/:id
func (s *Server) deleteStoredSnapshot(c *gin.Context) {
	store, ok := s.snapshotStore(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid snapshot ID", err)
		return
	}

	if err := store.DeleteSnapshot(c.Request.Context(), id); err != nil {
		respondError(c, "Failed to delete snapshot", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Snapshot deleted"})
}

func (s *Server) snapshotStore(c *gin.Context) (storage.SnapshotStore, bool) {
	store := s.lm.Snapshots()
	if store == nil {
		respondError(c, "Snapshot persistence is disabled",
			fmt.Errorf("%w: no snapshot store configured", types.ErrInvalidOperation))
		return nil, false
	}
	return store, true
}
