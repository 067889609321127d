package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/DRSN-tech/med-caption/pkg/e"
	"github.com/jimlawless/whereami"
)

const (
	maxRequestSize = 32 << 20
	maxMemory      = 32 << 20
	fileField      = "file"
)

// ErrorResponse единый формат ошибки API.
type ErrorResponse struct {
	Error string `json:"error"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{Error: message}
}

// ToHTTPResponse выбирает статус по виду отказа. legacy возвращает 200 для всех ошибок.
func ToHTTPResponse(err error, legacy bool) (int, string) {
	code, msg := statusFor(err)
	if legacy {
		code = http.StatusOK
	}

	return code, msg
}

func statusFor(err error) (int, string) {
	msg, ok := e.MessageOf(err)
	if !ok {
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}

	switch e.KindOf(err) {
	case e.KindBadRequest:
		return http.StatusBadRequest, msg
	case e.KindValidation:
		return http.StatusUnprocessableEntity, msg
	case e.KindEmbedding, e.KindGeneration:
		return http.StatusBadGateway, msg
	default:
		return http.StatusInternalServerError, msg
	}
}

func WriteError(w http.ResponseWriter, err error, legacy bool) {
	code, msg := ToHTTPResponse(err, legacy)
	WriteSuccess(w, code, NewErrorResponse(msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// badRequest помечает ошибку разбора запроса. Клиент видит текст sentinel-ошибки.
func badRequest(err error) error {
	var tagged *e.Error
	if errors.As(err, &tagged) {
		return err
	}

	msg := e.ErrStatusBadRequest.Error()
	for _, sentinel := range []error{e.ErrExpectedMultipart, e.ErrNoImage, e.ErrFileTooLarge} {
		if errors.Is(err, sentinel) {
			msg = sentinel.Error()
			break
		}
	}

	return e.New(e.KindBadRequest, msg, err)
}

func ensureMultipartForm(r *http.Request, maxMemory int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return e.Wrap(whereami.WhereAmI(), e.ErrFileTooLarge)
		}
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// formFile читает единственный файл из поля field.
func formFile(r *http.Request, field string) ([]byte, string, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, "", e.Wrap(field, e.ErrNoImage)
	}

	fh := r.MultipartForm.File[field][0]
	data, err := readFile(fh)
	if err != nil {
		return nil, "", err
	}

	return data, fh.Filename, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if len(data) == 0 {
		return nil, e.Wrap(fh.Filename, e.ErrNoImage)
	}

	return data, nil
}
