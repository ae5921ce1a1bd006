// Package ingest implements the IngestCoordinator (C9): end-to-end
// request orchestration from raw HTTP body to BatchProcessor result
// (spec §4.9), composed the way the teacher composes its api.Server —
// a *mux.Router wrapping dependency interfaces rather than concrete
// types.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Ladvien/self-sensored/config"
	"github.com/Ladvien/self-sensored/internal/auth"
	"github.com/Ladvien/self-sensored/internal/batch"
	"github.com/Ladvien/self-sensored/internal/mapping"
	"github.com/Ladvien/self-sensored/internal/model"
	"github.com/Ladvien/self-sensored/internal/stream"
)

// BatchProcessor is the narrow surface Coordinator needs, letting tests
// substitute a fake rather than standing up a database.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, userID uuid.UUID, payload batch.Payload) (batch.Result, error)
}

// RawStore is the narrow surface Coordinator needs from internal/rawstore.
type RawStore interface {
	Persist(ctx context.Context, userID, apiKeyID uuid.UUID, body []byte) (*model.RawIngestion, error)
	PersistCorrupt(ctx context.Context, userID, apiKeyID uuid.UUID, body []byte, reason string) (*model.RawIngestion, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ProcessingStatus, processingErrors []model.ProcessingError) error
}

// Authenticator is the narrow surface Coordinator needs from internal/auth.
type Authenticator interface {
	Authenticate(ctx context.Context, authHeader string) (*model.ApiKey, error)
}

// Coordinator is the HTTP entry point for the ingestion pipeline.
type Coordinator struct {
	raw        RawStore
	authGate   Authenticator
	mapping    *mapping.Table
	processor  BatchProcessor
	audit      *auth.AuditLogger
	serverCfg  config.ServerConfig
	streamCfg  config.StreamingConfig
	jwtSecret  string
	log        *logrus.Logger
}

func NewCoordinator(
	raw RawStore,
	authGate Authenticator,
	table *mapping.Table,
	processor BatchProcessor,
	audit *auth.AuditLogger,
	serverCfg config.ServerConfig,
	streamCfg config.StreamingConfig,
	jwtSecret string,
	log *logrus.Logger,
) *Coordinator {
	return &Coordinator{
		raw: raw, authGate: authGate, mapping: table, processor: processor,
		audit: audit, serverCfg: serverCfg, streamCfg: streamCfg, jwtSecret: jwtSecret, log: log,
	}
}

// Router builds the mux.Router exposing every SPEC_FULL §8 endpoint.
func (c *Coordinator) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/v1/ingest", c.handleIngest).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/v1/ingest", c.handleIngest).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/health", c.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/live", c.handleHealthLive).Methods(http.MethodGet)
	r.HandleFunc("/v1/admin/reload-mappings", c.handleReloadMappings).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// ServeHTTP adds CORS handling the way api/server.go does, then
// delegates to the router.
func (c *Coordinator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	c.Router().ServeHTTP(w, r)
}

type ingestResponse struct {
	Success          bool                    `json:"success"`
	ProcessedCount   int                     `json:"processed_count"`
	FailedCount      int                     `json:"failed_count,omitempty"`
	ProcessingTimeMs int64                   `json:"processing_time_ms,omitempty"`
	Errors           []model.ProcessingError `json:"errors,omitempty"`
	Status           string                  `json:"status"`
	RawID            *uuid.UUID              `json:"raw_id,omitempty"`
	Message          string                  `json:"message,omitempty"`
}

// handleIngest is the spec §4.9 orchestration, step by step.
func (c *Coordinator) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key, err := c.authGate.Authenticate(ctx, r.Header.Get("Authorization"))
	if err != nil {
		c.writeAuthError(w, err)
		return
	}

	maxBytes := stream.MaxSizeFromContentLength(r.ContentLength, c.streamCfg.MaxPayloadBytes)
	parser := stream.WithMaxSize(maxBytes)
	if err := parser.ReadFrom(r.Body); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var env envelope
	if err := parser.Decode(&env); err != nil {
		if _, perr := c.raw.PersistCorrupt(ctx, key.UserID, key.ID, parser.Bytes(), err.Error()); perr != nil {
			c.log.WithError(perr).Error("failed to persist corrupt payload")
		}
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	translationErrs := translateNative(&env, c.mapping)
	total := len(env.Data.Metrics) + len(env.Data.Workouts)
	if total == 0 {
		writeJSONError(w, http.StatusBadRequest, "empty payload: no metrics or workouts present")
		return
	}

	raw, err := c.raw.Persist(ctx, key.UserID, key.ID, parser.Bytes())
	if err != nil {
		c.log.WithError(err).Error("failed to persist raw ingestion")
		writeJSONError(w, http.StatusInternalServerError, "failed to persist request")
		return
	}

	payload, classifyErrs := classify(key.UserID, env)
	allErrs := append(translationErrs, classifyErrs...)
	c.auditSensitiveWrites(key.UserID, payload)

	if total > c.serverCfg.BackgroundJobThreshold {
		go c.processAsync(raw.ID, key.UserID, payload, allErrs)
		writeJSON(w, http.StatusAccepted, ingestResponse{
			Success: false, ProcessedCount: 0, Status: "accepted_for_processing",
			RawID: &raw.ID, Message: "Processing is NOT complete; monitor raw_id for status.",
		})
		return
	}

	deadline := time.Duration(float64(c.serverCfg.RequestTimeout.Duration) * 0.9)
	procCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	result, err := c.processor.ProcessBatch(procCtx, key.UserID, payload)
	if err != nil {
		c.log.WithError(err).Error("batch processing failed")
		writeJSONError(w, http.StatusInternalServerError, "batch processing failed")
		return
	}
	result.Errors = append(result.Errors, allErrs...)

	status := responseStatus(result)
	if uerr := c.raw.UpdateStatus(ctx, raw.ID, status, result.Errors); uerr != nil {
		c.log.WithError(uerr).Error("failed to update raw ingestion status")
	}
	c.audit.Ingest(key.UserID, result.ProcessedCount)

	writeJSON(w, http.StatusOK, ingestResponse{
		Success:          status == model.StatusProcessed,
		ProcessedCount:   result.ProcessedCount,
		FailedCount:      result.FailedCount,
		ProcessingTimeMs: result.ProcessingTimeMs,
		Errors:           result.Errors,
		Status:           string(status),
	})
}

// processAsync runs the continuation detached from the request's
// lifetime (spec §4.9 step 5); the caller has already responded 202.
func (c *Coordinator) processAsync(rawID, userID uuid.UUID, payload batch.Payload, preErrs []model.ProcessingError) {
	ctx := context.Background()
	result, err := c.processor.ProcessBatch(ctx, userID, payload)
	if err != nil {
		c.log.WithError(err).WithField("raw_id", rawID).Error("async batch processing failed")
		_ = c.raw.UpdateStatus(ctx, rawID, model.StatusError, append(preErrs, model.ProcessingError{Reason: err.Error()}))
		return
	}
	result.Errors = append(result.Errors, preErrs...)
	status := responseStatus(result)
	if uerr := c.raw.UpdateStatus(ctx, rawID, status, result.Errors); uerr != nil {
		c.log.WithError(uerr).WithField("raw_id", rawID).Error("failed to update raw ingestion status")
	}
	c.audit.Ingest(userID, result.ProcessedCount)
}

// responseStatus computes the deterministic status field (spec §4.9
// step 7).
func responseStatus(result batch.Result) model.ProcessingStatus {
	switch {
	case result.ProcessedCount > 0 && result.FailedCount == 0 && len(result.Errors) == 0:
		return model.StatusProcessed
	case result.ProcessedCount > 0 && (result.FailedCount > 0 || len(result.Errors) > 0):
		return model.StatusPartial
	default:
		return model.StatusError
	}
}

// auditSensitiveWrites emits the mandatory audit entry for any
// highly_sensitive reproductive-health sample in the batch (spec
// §4.8, §3.2.6 invariant 6), independent of whether the write later
// succeeds or fails at the database.
func (c *Coordinator) auditSensitiveWrites(userID uuid.UUID, payload batch.Payload) {
	for _, s := range payload.ReproductiveHealth {
		c.audit.SensitiveWrite(userID, model.KindReproductiveHealth, s.PrivacyTier)
	}
}

func (c *Coordinator) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (c *Coordinator) handleHealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReloadMappings is an admin-only addition (SPEC_FULL §8) gated
// by the same operator JWT the reprocess-failed binary requires.
func (c *Coordinator) handleReloadMappings(w http.ResponseWriter, r *http.Request) {
	tokenString := auth.StripBearerPrefix(r.Header.Get("Authorization"))
	if _, err := auth.VerifyAdminToken(tokenString, c.jwtSecret); err != nil {
		writeJSONError(w, http.StatusUnauthorized, "admin token required")
		return
	}

	var raw map[string]string
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if err := c.mapping.Reload(raw); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reloaded", "entries": len(raw)})
}

func (c *Coordinator) writeAuthError(w http.ResponseWriter, err error) {
	var rateErr *auth.RateLimitError
	if errors.As(err, &rateErr) {
		w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rateErr.RetryAfter.Seconds()))
		writeJSONError(w, http.StatusTooManyRequests, rateErr.Error())
		return
	}
	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
