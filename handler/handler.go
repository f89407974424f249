package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/kaylum54/Cliperus-V2/constant"
	"github.com/kaylum54/Cliperus-V2/dto"
	"github.com/kaylum54/Cliperus-V2/entities"
	"github.com/kaylum54/Cliperus-V2/repository"
	"github.com/kaylum54/Cliperus-V2/service"
)

type Handler struct {
	Store    repository.Store
	Recorder *service.Recorder
	Monitor  *service.Monitor
	Pipeline *service.Pipeline

	// AppCtx outlives any request; work started from a handler that must
	// survive the response runs against this context.
	AppCtx context.Context

	// Trigger-event ingestion can be hammered by chat spikes; one shared
	// limiter bounds the write rate from the HTTP path.
	IngestLimiter *rate.Limiter
}

func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/sessions/start", h.startSession)
	api.POST("/sessions/stop", h.stopSession)
	api.GET("/sessions/status", h.sessionStatus)
	api.POST("/recordings/:id/clips", h.generateClips)
	api.POST("/trigger-events", h.createTriggerEvent)
	api.GET("/monitor/status", h.monitorStatus)
	api.POST("/monitor/start", h.startMonitor)
	api.POST("/monitor/stop", h.stopMonitor)
}

func (h *Handler) startSession(c *gin.Context) {
	var req dto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recording, err := h.Recorder.StartSession(c.Request.Context(), req.ChannelId)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrSessionActive) {
			status = http.StatusConflict
		} else if errors.Is(err, gorm.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Recording started",
		"recording_id": recording.ID,
	})
}

func (h *Handler) stopSession(c *gin.Context) {
	recording, err := h.Recorder.StopSession(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrNoActiveSession) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Recording stopped",
		"recording_id": recording.ID,
	})
}

func (h *Handler) sessionStatus(c *gin.Context) {
	snap := h.Recorder.Status()
	resp := dto.SessionStatusResponse{
		Active:        snap.Active,
		SegmentNumber: snap.SegmentNumber,
		CaptureOnline: h.Recorder.CaptureOnline(),
	}
	if snap.Active {
		started := snap.SegmentStarted
		channelId := snap.ChannelId
		recordingId := snap.RecordingId
		resp.SegmentStarted = &started
		resp.ChannelId = &channelId
		resp.RecordingId = &recordingId
	}
	c.JSON(http.StatusOK, resp)
}

// generateClips runs the segment pipeline for one recording on demand, the
// manual counterpart of the rotation-driven dispatch.
func (h *Handler) generateClips(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recording id"})
		return
	}

	if _, err := h.Store.FindRecordingById(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "recording not found"})
		return
	}

	go h.Pipeline.ProcessSegment(zerolog.Ctx(h.AppCtx).WithContext(h.AppCtx), id)
	c.JSON(http.StatusAccepted, gin.H{"message": "Clip generation started", "recording_id": id})
}

func (h *Handler) createTriggerEvent(c *gin.Context) {
	if h.IngestLimiter != nil && !h.IngestLimiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
		return
	}

	var req dto.CreateTriggerEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event := &entities.TriggerEvent{
		ID:        uuid.New(),
		ChannelId: req.ChannelId,
		Kind:      constant.TriggerKind(req.Kind),
		Value:     req.Value,
		Timestamp: time.Now().UTC(),
	}
	if err := h.Store.CreateTriggerEvent(c.Request.Context(), event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event_id": event.ID})
}

func (h *Handler) monitorStatus(c *gin.Context) {
	c.JSON(http.StatusOK, dto.MonitorStatusResponse{
		Running:       h.Monitor.Running(),
		CheckInterval: h.Monitor.CheckInterval().Seconds(),
	})
}

func (h *Handler) startMonitor(c *gin.Context) {
	if err := h.Monitor.Start(h.AppCtx); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stream monitor started"})
}

func (h *Handler) stopMonitor(c *gin.Context) {
	h.Monitor.Stop()
	c.JSON(http.StatusOK, gin.H{"message": "Stream monitor stopped"})
}
