package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/DRSN-tech/med-caption/internal/cfg"
	"github.com/DRSN-tech/med-caption/internal/domain"
	"github.com/DRSN-tech/med-caption/internal/usecase"
	"github.com/DRSN-tech/med-caption/internal/validator"
	"github.com/DRSN-tech/med-caption/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

type stubEmbedder struct{ vector domain.Embedding }

func (s stubEmbedder) Embed(context.Context, []byte) domain.Embedding { return s.vector }

type stubSearch struct{ captions []string }

func (s stubSearch) SearchCaptions(context.Context, domain.Embedding, int) []string {
	return s.captions
}

type stubGenerator struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *stubGenerator) Generate(_ context.Context, _ *domain.Image, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if strings.Contains(prompt, "fracture visible in left tibia") {
		return "Consistent with fracture", nil
	}
	return "Normal study", nil
}

func newTestRouter(t *testing.T, emb domain.Embedding, captions []string, gen *stubGenerator, legacy bool) http.Handler {
	t.Helper()
	uc := usecase.NewCaptionUC(
		validator.New(validator.DefaultLimits()),
		stubEmbedder{vector: emb},
		stubSearch{captions: captions},
		gen,
		nil,
		nil,
		3,
		logger.NewNopLogger(),
	)

	mux := chi.NewRouter()
	NewRouter(mux, logger.NewNopLogger(), &cfg.HTTPConfig{LegacyStatus: legacy}).Init(uc)
	return mux
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func jpegImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func postCaption(t *testing.T, h http.Handler, path string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, "file", "scan.img", data)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCaption_SuccessScenario(t *testing.T) {
	gen := &stubGenerator{}
	h := newTestRouter(t, domain.Embedding{0.1, 0.2, 0.3, 0.4}, []string{"fracture visible in left tibia"}, gen, false)

	for _, path := range []string{"/caption/", "/caption"} {
		t.Run(path, func(t *testing.T) {
			rec := postCaption(t, h, path, jpegImage(t, 512, 512))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{
				"classic_description": "Normal study",
				"rag_description": "Consistent with fracture",
				"retrieved_captions": ["fracture visible in left tibia"]
			}`, rec.Body.String())
		})
	}
}

func TestCaption_SmallImageScenario(t *testing.T) {
	gen := &stubGenerator{}
	h := newTestRouter(t, domain.Embedding{1}, nil, gen, false)

	rec := postCaption(t, h, "/caption/", pngImage(t, 100, 100))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error": "Image does not meet size or dimension requirements."}`, rec.Body.String())
	assert.Zero(t, gen.calls)
}

func TestCaption_EmbeddingFailure(t *testing.T) {
	gen := &stubGenerator{}
	h := newTestRouter(t, nil, nil, gen, false)

	rec := postCaption(t, h, "/caption/", jpegImage(t, 512, 512))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error": "Failed to generate image embeddings."}`, rec.Body.String())
	assert.Zero(t, gen.calls)
}

func TestCaption_GenerationFailure(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("model overloaded")}
	h := newTestRouter(t, domain.Embedding{1}, nil, gen, false)

	rec := postCaption(t, h, "/caption/", jpegImage(t, 512, 512))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, usecase.MsgGenerationFailed+": model overloaded", decodeBody(t, rec)["error"])
}

func TestCaption_LegacyStatusAlways200(t *testing.T) {
	h := newTestRouter(t, domain.Embedding{1}, nil, &stubGenerator{}, true)

	rec := postCaption(t, h, "/caption/", pngImage(t, 100, 100))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Image does not meet size or dimension requirements.", decodeBody(t, rec)["error"])
}

func TestCaption_BadUploads(t *testing.T) {
	h := newTestRouter(t, domain.Embedding{1}, nil, &stubGenerator{}, false)

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/caption/", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "expected multipart/form-data", decodeBody(t, rec)["error"])
	})

	t.Run("wrong field", func(t *testing.T) {
		body, contentType := multipartBody(t, "image", "scan.jpg", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/caption/", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "file is required", decodeBody(t, rec)["error"])
	})

	t.Run("bmp is not accepted", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, bmp.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 512, 512))))

		rec := postCaption(t, h, "/caption/", buf.Bytes())

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "Image does not meet size or dimension requirements.", decodeBody(t, rec)["error"])
	})

	t.Run("garbage bytes", func(t *testing.T) {
		rec := postCaption(t, h, "/caption/", []byte("not an image"))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "Image does not meet size or dimension requirements.", decodeBody(t, rec)["error"])
	})
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, nil, nil, &stubGenerator{}, false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUI_RendersResult(t *testing.T) {
	h := newTestRouter(t, domain.Embedding{1}, []string{"fracture visible in left tibia"}, &stubGenerator{}, false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="file"`)

	rec = postCaption(t, h, "/", jpegImage(t, 512, 512))
	require.Equal(t, http.StatusOK, rec.Code)
	page, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Retrieved Similar Captions:")
	assert.Contains(t, string(page), "<li>fracture visible in left tibia</li>")
	assert.Contains(t, string(page), "Consistent with fracture")
	assert.Contains(t, string(page), "Normal study")
	assert.Contains(t, string(page), "data:image/jpeg;base64,")
}

func TestUI_RendersError(t *testing.T) {
	h := newTestRouter(t, domain.Embedding{1}, nil, &stubGenerator{}, false)

	rec := postCaption(t, h, "/", pngImage(t, 100, 100))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Image does not meet size or dimension requirements.")
}

func TestToHTTPResponse_UnknownError(t *testing.T) {
	code, msg := ToHTTPResponse(fmt.Errorf("boom"), false)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", msg)
}
