package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"ccdash/config/models"
	"ccdash/internal/usage"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type switchRequest struct {
	ConfigID string `json:"configId"`
}

type restoreRequest struct {
	BackupFile string `json:"backupFile"`
}

func ok(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
	}
	c.JSON(status, envelope{Error: err.Error()})
}

// statusFor maps an error to its HTTP status by kind.
func statusFor(err error) int {
	switch models.KindOf(err) {
	case models.KindNotFound, models.KindUnknownConfig:
		return http.StatusNotFound
	case models.KindAlreadyActive, models.KindAlreadyExists, models.KindSourceMissing:
		return http.StatusConflict
	case models.KindCannotDeleteActive, models.KindCannotDeleteDefault:
		return http.StatusForbidden
	case models.KindMalformedJSON, models.KindInvalidStructure, models.KindMissingCredential,
		models.KindConfigInvalid, models.KindMissingRequiredField, models.KindInvalidInput:
		return http.StatusBadRequest
	case models.KindArchiveFailure, models.KindReadFailure, models.KindWriteFailure,
		models.KindDirectoryUnavailable:
		return http.StatusInternalServerError
	}

	switch {
	case errors.Is(err, usage.ErrInvalidDate), errors.Is(err, usage.ErrInvalidRecord):
		return http.StatusBadRequest
	case errors.Is(err, usage.ErrHistoryUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// bind decodes the JSON body, reporting decode failures as invalid input.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, models.E(models.KindInvalidInput, "decode", "body", err))
		return false
	}
	return true
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listConfigs(c *gin.Context) {
	summaries, err := s.manager.List()
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", summaries)
}

func (s *Server) currentConfig(c *gin.Context) {
	current, err := s.manager.Current()
	if err != nil {
		fail(c, err)
		return
	}
	if current == nil {
		c.JSON(http.StatusNotFound, envelope{Error: "no active configuration"})
		return
	}
	ok(c, http.StatusOK, "", current)
}

func (s *Server) configVersion(c *gin.Context) {
	var version int64
	if s.watcher != nil {
		version = s.watcher.Version()
	}
	ok(c, http.StatusOK, "", gin.H{"version": version})
}

// changed publishes a change this process made to the directory.
func (s *Server) changed() {
	if s.watcher != nil {
		s.watcher.Bump()
	}
}

func (s *Server) switchConfig(c *gin.Context) {
	var req switchRequest
	if !bind(c, &req) {
		return
	}

	receipt, err := s.manager.Switch(req.ConfigID)
	if s.metrics != nil {
		s.metrics.ObserveSwitch(receipt, err)
	}
	if err != nil {
		fail(c, err)
		return
	}
	s.changed()
	ok(c, http.StatusOK, fmt.Sprintf("Switched to %s", receipt.Current), receipt)
}

func (s *Server) createConfig(c *gin.Context) {
	var req models.CreateRequest
	if !bind(c, &req) {
		return
	}

	summary, err := s.manager.Create(req)
	if err != nil {
		fail(c, err)
		return
	}
	s.changed()
	ok(c, http.StatusCreated, fmt.Sprintf("Configuration %s created", summary.ID), summary)
}

func (s *Server) deleteConfig(c *gin.Context) {
	id := c.Param("id")
	if err := s.manager.Delete(id); err != nil {
		fail(c, err)
		return
	}
	s.changed()
	ok(c, http.StatusOK, fmt.Sprintf("Configuration %s deleted", id), nil)
}

func (s *Server) listBackups(c *gin.Context) {
	backups, err := s.manager.ListBackups()
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", backups)
}

func (s *Server) createBackup(c *gin.Context) {
	name, err := s.manager.CreateBackup()
	if err != nil {
		fail(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveBackup(name)
	}
	if name == models.NoBackup {
		ok(c, http.StatusOK, "No active configuration to back up", gin.H{"backupFile": name})
		return
	}
	s.changed()
	ok(c, http.StatusCreated, "Backup created", gin.H{"backupFile": name})
}

func (s *Server) restoreBackup(c *gin.Context) {
	var req restoreRequest
	if !bind(c, &req) {
		return
	}

	safety, err := s.manager.RestoreBackup(req.BackupFile)
	if s.metrics != nil {
		s.metrics.ObserveRestore(safety, err)
	}
	if err != nil {
		fail(c, err)
		return
	}
	s.changed()
	ok(c, http.StatusOK, fmt.Sprintf("Restored %s", req.BackupFile), gin.H{
		"restored":     req.BackupFile,
		"safetyBackup": safety,
	})
}

func (s *Server) usageDashboard(c *gin.Context) {
	if s.usage == nil {
		fail(c, usage.ErrHistoryUnavailable)
		return
	}
	dash, err := s.usage.Dashboard(c.Request.Context(), c.Query("date"))
	if err != nil {
		fail(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveUsageSource(dash.Source)
	}
	ok(c, http.StatusOK, "", dash)
}

func (s *Server) usageStatistics(c *gin.Context) {
	if s.usage == nil {
		fail(c, usage.ErrHistoryUnavailable)
		return
	}
	days := 30
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			fail(c, models.E(models.KindInvalidInput, "statistics", "days", fmt.Errorf("must be a positive integer, got %q", raw)))
			return
		}
		days = n
	}

	stats, err := s.usage.Statistics(c.Request.Context(), days)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", stats)
}

func (s *Server) recordUsage(c *gin.Context) {
	if s.usage == nil {
		fail(c, usage.ErrHistoryUnavailable)
		return
	}
	var rec usage.Record
	if !bind(c, &rec) {
		return
	}

	id, err := s.usage.RecordUsage(c.Request.Context(), rec)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Usage recorded", gin.H{"id": id})
}
