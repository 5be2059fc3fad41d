// Package httpapi exposes the transcription saga over Gin:
//
//	POST /v1/transcriptions        multipart audio plus form fields
//	POST /v1/transcriptions/batch  JSON array of requests with base64 audio
//	GET  /v1/languages             language codes of the active backend
package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/provider"
	"github.com/kbukum/transcribe/server"
	"github.com/kbukum/transcribe/transcription"
)

// Transcriber runs single requests. The saga wrapped in provider
// middleware satisfies it.
type Transcriber = provider.RequestResponse[*transcription.TranscriptionRequest, *transcription.TranscriptionResponse]

// Batcher runs many requests with per-request isolation.
type Batcher interface {
	TranscribeMany(ctx context.Context, reqs []*transcription.TranscriptionRequest) *transcription.MultiResult
	Languages() []string
}

// MaxBatchSize bounds the requests accepted by one batch call.
const MaxBatchSize = 100

// Handler serves the transcription routes.
type Handler struct {
	single Transcriber
	batch  Batcher
	log    *logger.Logger
}

// NewHandler creates a handler.
func NewHandler(single Transcriber, batch Batcher, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{single: single, batch: batch, log: log.WithComponent("httpapi")}
}

// Register adds the routes to r.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.POST("/transcriptions", h.Transcribe)
	v1.POST("/transcriptions/batch", h.TranscribeBatch)
	v1.GET("/languages", h.Languages)
}

// LanguagesResponse lists the supported languages. An empty list means
// the backend accepts any code.
type LanguagesResponse struct {
	Provider  string   `json:"provider"`
	Languages []string `json:"languages"`
}

// Languages handles GET /v1/languages.
func (h *Handler) Languages(c *gin.Context) {
	langs := h.batch.Languages()
	if langs == nil {
		langs = []string{}
	}
	server.RespondOK(c, LanguagesResponse{Provider: h.single.Name(), Languages: langs})
}

// Transcribe handles POST /v1/transcriptions.
func (h *Handler) Transcribe(c *gin.Context) {
	req, err := parseMultipart(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	resp, err := h.single.Execute(c.Request.Context(), req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, resp)
}

// TranscribeBatch handles POST /v1/transcriptions/batch. Any failure turns
// the status into 207.
func (h *Handler) TranscribeBatch(c *gin.Context) {
	var reqs []*transcription.TranscriptionRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		server.RespondWithError(c, errors.BadRequest("", "invalid batch body: "+err.Error()))
		return
	}
	if len(reqs) == 0 {
		server.RespondWithError(c, errors.BadRequest("", "batch is empty"))
		return
	}
	if len(reqs) > MaxBatchSize {
		server.RespondWithError(c, errors.BadRequest("", fmt.Sprintf("batch exceeds %d requests", MaxBatchSize)))
		return
	}
	for _, req := range reqs {
		if req != nil && req.RequestID == "" {
			req.RequestID = uuid.NewString()
		}
	}

	result := h.batch.TranscribeMany(c.Request.Context(), reqs)
	if len(result.Failures) > 0 {
		server.RespondMultiStatus(c, result)
		return
	}
	server.RespondOK(c, result)
}

// parseMultipart builds a request from the "audio" file and the form
// fields. The format defaults to the file extension.
func parseMultipart(c *gin.Context) (*transcription.TranscriptionRequest, error) {
	requestID := c.PostForm("request_id")
	if requestID == "" {
		requestID = uuid.NewString()
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		return nil, errors.BadRequest(requestID, "audio file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Internal(requestID, err)
	}
	defer func() { _ = f.Close() }()
	audio, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.BadRequest(requestID, "failed to read audio: "+err.Error())
	}

	format := c.PostForm("format")
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(fh.Filename)), ".")
	}

	req := &transcription.TranscriptionRequest{
		RequestID:   requestID,
		Audio:       audio,
		AudioConfig: transcription.AudioConfig{Format: transcription.AudioFormat(format)},
	}
	if req.AudioConfig.Channels, err = formInt(c, "channels"); err != nil {
		return nil, errors.BadRequest(requestID, err.Error())
	}
	if req.AudioConfig.SampleRateHertz, err = formInt(c, "sample_rate_hertz"); err != nil {
		return nil, errors.BadRequest(requestID, err.Error())
	}

	cfg := &transcription.TranscriptionConfig{
		Language: c.PostForm("language"),
		Model:    c.PostForm("model"),
	}
	for _, v := range c.PostFormArray("vocabulary") {
		for _, term := range strings.Split(v, ",") {
			if term = strings.TrimSpace(term); term != "" {
				cfg.Vocabulary = append(cfg.Vocabulary, term)
			}
		}
	}
	speakers, err := formInt(c, "speakers")
	if err != nil {
		return nil, errors.BadRequest(requestID, err.Error())
	}
	if speakers > 0 || c.PostForm("diarization") == "true" {
		cfg.Diarization = &transcription.Diarization{Enabled: true, MaxSpeakers: speakers}
	}
	if v := c.PostForm("multi_channel"); v != "" {
		if cfg.MultiChannel, err = strconv.ParseBool(v); err != nil {
			return nil, errors.BadRequest(requestID, "multi_channel must be a boolean")
		}
	}
	if cfg.Language != "" || cfg.Model != "" || len(cfg.Vocabulary) > 0 || cfg.Diarization != nil || cfg.MultiChannel {
		req.Config = cfg
	}
	return req, nil
}

func formInt(c *gin.Context, field string) (int, error) {
	v := c.PostForm(field)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", field)
	}
	return n, nil
}

// NotFound answers unknown routes with the error envelope.
func NotFound(c *gin.Context) {
	server.RespondWithError(c, errors.New(errors.ErrCodeNotFound, "route not found", http.StatusNotFound))
}
