package server

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/pyros-projects/zxplorer/errors"
	"github.com/pyros-projects/zxplorer/gen"
	"github.com/pyros-projects/zxplorer/history"
	"github.com/pyros-projects/zxplorer/logger"
	"github.com/pyros-projects/zxplorer/oplang"
	"github.com/pyros-projects/zxplorer/version"
)

type validateRequest struct {
	Prompt string `json:"prompt"`
}

// handleValidate checks a prompt expression without executing it.
// Always answers 200; the ok flag and structured error live in the body.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req validateRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt must not be empty")
		return
	}

	result := oplang.ParseAndValidate(req.Prompt)
	writeJSON(w, http.StatusOK, result)
}

// handleGenerate runs a generation request synchronously, streaming
// progress to WebSocket clients and recording the run in history.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if !s.limiter.Allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "generate rate limit exceeded, retry shortly")
		return
	}

	var req gen.GenerationRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	result, err := s.orchestrator.Generate(r.Context(), req, s.Publish)
	if err != nil {
		switch {
		case errors.Is(err, errors.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, errors.ErrServiceUnavailable), errors.Is(err, errors.ErrModelNotLoaded):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			// Parse failures and all-outputs-failed runs land here
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}

	if s.runs != nil {
		record := history.Run{
			ID:             result.RequestID,
			Prompt:         result.Prompt,
			ResolvedPrompt: result.ResolvedPrompt,
			Seeds:          result.SeedsUsed,
			OutputCount:    len(result.Images),
			Warnings:       result.Warnings,
		}
		if err := s.runs.Record(r.Context(), record); err != nil {
			s.log.Warnw("Failed to record run history",
				logger.FieldRequestID, shortID(result.RequestID),
				logger.FieldError, err.Error())
		}
	}

	writeJSON(w, http.StatusOK, result)
}

type systemInfo struct {
	Version       string  `json:"version"`
	Commit        string  `json:"commit"`
	Goroutines    int     `json:"goroutines"`
	MemTotalMB    uint64  `json:"mem_total_mb"`
	MemUsedMB     uint64  `json:"mem_used_mb"`
	MemPercent    float64 `json:"mem_percent"`
	UnixTimestamp int64   `json:"timestamp"`
}

// handleSystem reports process and host memory info for the GUI footer
func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	info := systemInfo{
		Version:       version.Version,
		Commit:        version.CommitHash,
		Goroutines:    runtime.NumGoroutine(),
		UnixTimestamp: time.Now().Unix(),
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemTotalMB = vm.Total / 1024 / 1024
		info.MemUsedMB = vm.Used / 1024 / 1024
		info.MemPercent = vm.UsedPercent
	} else {
		s.log.Debugw("Failed to read host memory stats",
			logger.FieldError, err.Error())
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHistory lists recent runs, newest first
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is not enabled")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	runs, err := s.runs.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleVars lists the defined prompt variables
func (s *Server) handleVars(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if s.varsStore == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt variables are not enabled")
		return
	}
	writeJSON(w, http.StatusOK, s.varsStore.List())
}
