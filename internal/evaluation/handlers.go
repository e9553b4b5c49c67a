package evaluation

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/amauricunha/smartnlp/internal/datastore"
)

// Handlers exposes the evaluation service over HTTP.
type Handlers struct {
	svc *Service
}

// NewHandlers creates the HTTP handlers for the evaluation service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HealthHandler answers the static liveness payload.
func (h *Handlers) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// UploadHandler receives the audio submission with its context fields,
// runs the full evaluation pipeline and returns the result bundle.
func (h *Handlers) UploadHandler(c *gin.Context) {
	idStr := c.PostForm("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a numeric form field"})
		return
	}

	praticaDescricao := c.PostForm("pratica_descricao")
	saDescricao := c.PostForm("sa_descricao")
	if praticaDescricao == "" || saDescricao == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pratica_descricao and sa_descricao form fields are required"})
		return
	}

	filename, audio, err := readUploadedFile(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := Submission{
		ID:       id,
		Filename: filename,
		Audio:    audio,
		Fields: ContextFields{
			Specialty:         c.PostForm("especialidade"),
			Semester:          c.PostForm("semestre"),
			LearningSituation: saDescricao,
			Stage:             c.PostForm("etapa_descricao"),
			Practice:          praticaDescricao,
			Parameters:        c.PostForm("parametros_descricao"),
		},
	}

	result, err := h.svc.RunEvaluation(c.Request.Context(), sub)
	if err != nil {
		writeError(c, err)
		return
	}

	payload := gin.H{
		"id":            result.ID,
		"audio_path":    result.AudioPath,
		"prompt":        result.Prompt,
		"transcription": result.Transcription,
	}
	for provider, response := range result.Responses {
		payload["llm_response_"+provider] = response
	}
	c.JSON(http.StatusOK, payload)
}

// TranscribeHandler stores the audio and returns only its
// transcription.
func (h *Handlers) TranscribeHandler(c *gin.Context) {
	filename, audio, err := readUploadedFile(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	audioRef, text, err := h.svc.TranscribeOnly(c.Request.Context(), filename, audio)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audio_path":    audioRef,
		"transcription": text,
	})
}

// TextEvaluationHandler returns a handler that evaluates pre-
// transcribed text with the named provider, bypassing transcription.
func (h *Handlers) TextEvaluationHandler(providerName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		transcription := c.PostForm("transcription")
		praticaDescricao := c.PostForm("pratica_descricao")
		saDescricao := c.PostForm("sa_descricao")
		if transcription == "" || praticaDescricao == "" || saDescricao == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "transcription, pratica_descricao and sa_descricao form fields are required"})
			return
		}

		fields := ContextFields{
			Specialty:         c.PostForm("especialidade"),
			Semester:          c.PostForm("semestre"),
			LearningSituation: saDescricao,
			Stage:             c.PostForm("etapa_descricao"),
			Practice:          praticaDescricao,
			Parameters:        c.PostForm("parametros_descricao"),
		}

		prompt, response, err := h.svc.EvaluateText(c.Request.Context(), providerName, fields, transcription)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"prompt":       prompt,
			"llm_response": response,
			"llm":          providerName,
		})
	}
}

// GetHandler returns a single persisted evaluation record by its
// submission id.
func (h *Handlers) GetHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be numeric"})
		return
	}

	record, err := h.svc.GetRecord(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, datastore.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load evaluation record: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListHandler returns one page of persisted evaluation records,
// newest-first by id.
func (h *Handlers) ListHandler(c *gin.Context) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "skip must be a non-negative integer"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 100"})
		return
	}

	records, total, err := h.svc.ListRecords(c.Request.Context(), skip, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list evaluation records: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total": total,
		"items": records,
	})
}

func readUploadedFile(c *gin.Context) (string, []byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", nil, errors.New("file form field is required")
	}
	f, err := fileHeader.Open()
	if err != nil {
		return "", nil, errors.New("failed to open uploaded file")
	}
	defer f.Close()

	audio, err := io.ReadAll(f)
	if err != nil {
		return "", nil, errors.New("failed to read uploaded file")
	}
	return fileHeader.Filename, audio, nil
}

// writeError maps classified pipeline errors onto HTTP responses.
// Upstream error detail is surfaced verbatim as a deliberate debug
// aid, not hidden behind a generic message.
func writeError(c *gin.Context, err error) {
	if errors.Is(err, ErrUnsupportedFormat) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Error().Err(err).Msg("evaluation request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
