package e

import (
	"errors"
	"fmt"
)

var (
	ErrInternalServerError = fmt.Errorf("internal server error")

	// 400 Bad Request
	ErrStatusBadRequest  = fmt.Errorf("bad request")
	ErrExpectedMultipart = fmt.Errorf("expected multipart/form-data")
	ErrNoImage           = fmt.Errorf("file is required")
	ErrFileTooLarge      = fmt.Errorf("file too large")

	// Ошибки изображений
	ErrDecode               = fmt.Errorf("unsupported or corrupt image")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")

	// Ошибки векторов
	ErrEmptyVectors        = fmt.Errorf("empty vectors")
	ErrEmbeddingMissing    = fmt.Errorf("embedding field is missing in model response")
	ErrCollectionNotExists = fmt.Errorf("collection does not exist")

	// Ошибки генерации
	ErrEmptyCompletion = fmt.Errorf("model returned no text content")

	// Ошибки конфигурации
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
)

// Сообщения, которые видит клиент.
const (
	MsgImageRejected   = "Image does not meet size or dimension requirements."
	MsgEmbeddingFailed = "Failed to generate image embeddings."
)

// Kind классифицирует причину отказа запроса.
type Kind int

const (
	KindUnknown Kind = iota
	KindBadRequest
	KindValidation
	KindEmbedding
	KindRetrieval
	KindGeneration
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindValidation:
		return "validation_rejection"
	case KindEmbedding:
		return "embedding_failure"
	case KindRetrieval:
		return "retrieval_degradation"
	case KindGeneration:
		return "generation_failure"
	default:
		return "unknown"
	}
}

// Error ошибка с типом отказа и сообщением для клиента.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New создаёт типизированную ошибку.
func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf возвращает Kind первой *Error в цепочке или KindUnknown.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	return KindUnknown
}

// MessageOf возвращает клиентское сообщение первой *Error в цепочке.
func MessageOf(err error) (string, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message, true
	}

	return "", false
}

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
