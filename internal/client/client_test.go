package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DRSN-tech/med-caption/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaption_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "knee.jpg", fh.Filename)
		assert.Equal(t, []byte("jpeg-bytes"), data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"classic_description":"Normal study","rag_description":"Consistent with fracture","retrieved_captions":["fracture visible in left tibia"]}`)
	}))
	defer srv.Close()

	res, err := New(srv.URL, time.Second).Caption(context.Background(), "/tmp/knee.jpg", []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, &usecase.CaptionRes{
		ClassicDescription: "Normal study",
		RagDescription:     "Consistent with fracture",
		RetrievedCaptions:  []string{"fracture visible in left tibia"},
	}, res)
}

func TestCaption_ErrorBody(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "legacy 200", status: http.StatusOK},
		{name: "422", status: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"error":"Image does not meet size or dimension requirements."}`)
			}))
			defer srv.Close()

			_, err := New(srv.URL, time.Second).Caption(context.Background(), "x.png", []byte("x"))
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, "Image does not meet size or dimension requirements.", apiErr.Message)
		})
	}
}

func TestCaption_NonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "bad gateway")
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Caption(context.Background(), "x.png", []byte("x"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, &usecase.CaptionRes{
		ClassicDescription: "Normal study",
		RagDescription:     usecase.NoCaptionsPlaceholder,
		RetrievedCaptions:  []string{},
	})

	out := buf.String()
	assert.Contains(t, out, "No similar captions were retrieved.")
	assert.Contains(t, out, "Generated Caption (RAG-enhanced):\n"+usecase.NoCaptionsPlaceholder)
	assert.Contains(t, out, "Generated Caption (Without RAG):\nNormal study")
}
