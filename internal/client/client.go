// Package client загружает изображения в запущенный сервис описаний.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/DRSN-tech/med-caption/internal/usecase"
	"github.com/DRSN-tech/med-caption/pkg/e"
	"github.com/jimlawless/whereami"
)

const DefaultURL = "http://localhost:8080/caption/"

// Client HTTP-клиент эндпоинта /caption/.
type Client struct {
	url  string
	http *http.Client
}

func New(url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}

	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// APIError ответ сервиса с полем error.
type APIError struct {
	Status  int
	Message string
}

func (a *APIError) Error() string {
	return fmt.Sprintf("Error %d: %s", a.Status, a.Message)
}

// Caption отправляет файл полем file и разбирает ответ.
// Ответ с полем error возвращается как *APIError, даже при статусе 200.
func (c *Client) Caption(ctx context.Context, filename string, data []byte) (*usecase.CaptionRes, error) {
	body, contentType, err := multipartFile(filename, data)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var payload struct {
		usecase.CaptionRes
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: "Unable to process the image."}
	}

	if payload.Error != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: *payload.Error}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: "Unable to process the image."}
	}

	res := payload.CaptionRes
	return &res, nil
}

func multipartFile(filename string, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, "", err
	}

	if _, err := fw.Write(data); err != nil {
		return nil, "", err
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return &buf, mw.FormDataContentType(), nil
}

// Render печатает результат в том же порядке, что и веб-форма.
func Render(w io.Writer, res *usecase.CaptionRes) {
	if len(res.RetrievedCaptions) > 0 {
		fmt.Fprintln(w, "Retrieved Similar Captions:")
		for i, caption := range res.RetrievedCaptions {
			fmt.Fprintf(w, "%d. %s\n", i+1, caption)
		}
	} else {
		fmt.Fprintln(w, "No similar captions were retrieved.")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generated Caption (RAG-enhanced):")
	fmt.Fprintln(w, res.RagDescription)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generated Caption (Without RAG):")
	fmt.Fprintln(w, res.ClassicDescription)
}
