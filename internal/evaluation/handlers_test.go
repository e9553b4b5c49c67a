package evaluation

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/amauricunha/smartnlp/internal/llm"
)

func newTestRouter(t *testing.T, f *serviceFixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handlers := NewHandlers(f.svc)
	router := gin.New()
	router.GET("/health", handlers.HealthHandler)
	router.POST("/avaliacao/", handlers.UploadHandler)
	router.POST("/transcribe/", handlers.TranscribeHandler)
	router.POST("/llm-groq/", handlers.TextEvaluationHandler(llm.GroqName))
	router.GET("/avaliacoes", handlers.ListHandler)
	router.GET("/avaliacao/:id", handlers.GetHandler)
	return router
}

func multipartBody(t *testing.T, fields map[string]string, filename string, audio []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField(%q): %v", key, err)
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(audio); err != nil {
			t.Fatalf("write audio part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response is not JSON: %v: %s", err, rec.Body.String())
	}
	return payload
}

func TestHealthHandler(t *testing.T) {
	router := newTestRouter(t, newServiceFixture(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if payload := decodeJSON(t, rec); payload["status"] != "ok" {
		t.Errorf("payload = %v, want status ok", payload)
	}
}

func TestUploadHandlerSuccess(t *testing.T) {
	f := newServiceFixture(t)
	router := newTestRouter(t, f)

	body, contentType := multipartBody(t, map[string]string{
		"id":                "7",
		"pratica_descricao": "Torneamento",
		"sa_descricao":      "Eixo escalonado",
		"semestre":          "2",
	}, "pratica.wav", []byte("fake-wav"))

	req := httptest.NewRequest(http.MethodPost, "/avaliacao/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	payload := decodeJSON(t, rec)
	if payload["id"] != float64(7) {
		t.Errorf("id = %v, want 7", payload["id"])
	}
	if payload["transcription"] != f.transcriber.text {
		t.Errorf("transcription = %v", payload["transcription"])
	}
	if payload["llm_response_groq"] != "avaliação groq" {
		t.Errorf("llm_response_groq = %v", payload["llm_response_groq"])
	}
	if payload["llm_response_mistral"] != "avaliação mistral" {
		t.Errorf("llm_response_mistral = %v", payload["llm_response_mistral"])
	}
	if len(f.records.upserts) != 1 {
		t.Errorf("upserts = %d, want 1", len(f.records.upserts))
	}
}

func TestUploadHandlerRejectsNonNumericID(t *testing.T) {
	router := newTestRouter(t, newServiceFixture(t))

	body, contentType := multipartBody(t, map[string]string{
		"id":                "abc",
		"pratica_descricao": "p",
		"sa_descricao":      "sa",
	}, "pratica.wav", []byte("fake"))

	req := httptest.NewRequest(http.MethodPost, "/avaliacao/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadHandlerRequiresContextFields(t *testing.T) {
	router := newTestRouter(t, newServiceFixture(t))

	body, contentType := multipartBody(t, map[string]string{
		"id": "7",
	}, "pratica.wav", []byte("fake"))

	req := httptest.NewRequest(http.MethodPost, "/avaliacao/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadHandlerRequiresFile(t *testing.T) {
	router := newTestRouter(t, newServiceFixture(t))

	body, contentType := multipartBody(t, map[string]string{
		"id":                "7",
		"pratica_descricao": "p",
		"sa_descricao":      "sa",
	}, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/avaliacao/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadHandlerUnsupportedFormatLeavesNoArtifact(t *testing.T) {
	f := newServiceFixture(t)
	router := newTestRouter(t, f)

	body, contentType := multipartBody(t, map[string]string{
		"id":                "7",
		"pratica_descricao": "p",
		"sa_descricao":      "sa",
	}, "video.mp4", []byte("fake"))

	req := httptest.NewRequest(http.MethodPost, "/avaliacao/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if len(f.blobs.names()) != 0 {
		t.Errorf("artifacts = %v, want none", f.blobs.names())
	}
}

func TestUploadHandlerUpstreamFailureIs500WithDetail(t *testing.T) {
	f := newServiceFixture(t)
	f.groq.err = &llm.ProviderError{Provider: llm.GroqName, Kind: llm.KindUpstream, Detail: "rate limit exceeded"}
	router := newTestRouter(t, f)

	body, contentType := multipartBody(t, map[string]string{
		"id":                "7",
		"pratica_descricao": "p",
		"sa_descricao":      "sa",
	}, "pratica.wav", []byte("fake"))

	req := httptest.NewRequest(http.MethodPost, "/avaliacao/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	payload := decodeJSON(t, rec)
	errMsg, _ := payload["error"].(string)
	if errMsg != "groq call failed: rate limit exceeded" {
		t.Errorf("error = %q, want the provider detail verbatim", errMsg)
	}
}

func TestTranscribeHandler(t *testing.T) {
	f := newServiceFixture(t)
	router := newTestRouter(t, f)

	body, contentType := multipartBody(t, nil, "fala.ogg", []byte("fake-ogg"))

	req := httptest.NewRequest(http.MethodPost, "/transcribe/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	payload := decodeJSON(t, rec)
	if payload["transcription"] != f.transcriber.text {
		t.Errorf("transcription = %v", payload["transcription"])
	}
	if payload["audio_path"] == "" {
		t.Error("audio_path missing from payload")
	}
}

func TestTextEvaluationHandler(t *testing.T) {
	router := newTestRouter(t, newServiceFixture(t))

	body, contentType := multipartBody(t, map[string]string{
		"transcription":     "usei bedame para o canal",
		"pratica_descricao": "Sangramento",
		"sa_descricao":      "Canal para anel elástico",
	}, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/llm-groq/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	payload := decodeJSON(t, rec)
	if payload["llm"] != llm.GroqName {
		t.Errorf("llm = %v, want groq", payload["llm"])
	}
	if payload["llm_response"] != "avaliação groq" {
		t.Errorf("llm_response = %v", payload["llm_response"])
	}
}

func TestTextEvaluationHandlerRequiresFields(t *testing.T) {
	router := newTestRouter(t, newServiceFixture(t))

	body, contentType := multipartBody(t, map[string]string{
		"transcription": "texto sem contexto",
	}, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/llm-groq/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetHandler(t *testing.T) {
	f := newServiceFixture(t)
	router := newTestRouter(t, f)

	body, contentType := multipartBody(t, map[string]string{
		"id":                "7",
		"pratica_descricao": "p",
		"sa_descricao":      "sa",
	}, "pratica.wav", []byte("fake"))
	req := httptest.NewRequest(http.MethodPost, "/avaliacao/", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/avaliacao/7", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	payload := decodeJSON(t, rec)
	if payload["id"] != float64(7) {
		t.Errorf("id = %v, want 7", payload["id"])
	}
	if got, isString := payload["llm_response_groq"].(string); !isString || got != "avaliação groq" {
		t.Errorf("llm_response_groq = %v, want the response as a plain string", payload["llm_response_groq"])
	}
}

func TestGetHandlerNotFound(t *testing.T) {
	router := newTestRouter(t, newServiceFixture(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/avaliacao/424242", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

func TestGetHandlerRejectsNonNumericID(t *testing.T) {
	router := newTestRouter(t, newServiceFixture(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/avaliacao/abc", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestListHandlerValidation(t *testing.T) {
	router := newTestRouter(t, newServiceFixture(t))

	cases := []struct {
		name  string
		query string
		want  int
	}{
		{"defaults", "", http.StatusOK},
		{"explicit page", "?skip=5&limit=20", http.StatusOK},
		{"negative skip", "?skip=-1", http.StatusBadRequest},
		{"zero limit", "?limit=0", http.StatusBadRequest},
		{"limit too large", "?limit=101", http.StatusBadRequest},
		{"non numeric", "?limit=dez", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/avaliacoes"+tc.query, nil))
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestListHandlerPayload(t *testing.T) {
	f := newServiceFixture(t)
	router := newTestRouter(t, f)

	body, contentType := multipartBody(t, map[string]string{
		"id":                "3",
		"pratica_descricao": "p",
		"sa_descricao":      "sa",
	}, "pratica.wav", []byte("fake"))
	req := httptest.NewRequest(http.MethodPost, "/avaliacao/", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/avaliacoes", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	payload := decodeJSON(t, rec)
	if payload["total"] != float64(1) {
		t.Errorf("total = %v, want 1", payload["total"])
	}
	items, ok := payload["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("items = %v, want one record", payload["items"])
	}
	item, ok := items[0].(map[string]any)
	if !ok {
		t.Fatalf("item = %v, want an object", items[0])
	}
	if item["id"] != float64(3) {
		t.Errorf("item id = %v, want 3", item["id"])
	}
	if got, isString := item["llm_response_groq"].(string); !isString || got != "avaliação groq" {
		t.Errorf("llm_response_groq = %v, want the response as a plain string", item["llm_response_groq"])
	}
	if got, isString := item["llm_response_mistral"].(string); !isString || got != "avaliação mistral" {
		t.Errorf("llm_response_mistral = %v, want the response as a plain string", item["llm_response_mistral"])
	}
}
