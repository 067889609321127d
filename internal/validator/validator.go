// Package validator проверяет загруженные изображения до обращения к внешним моделям.
package validator

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/DRSN-tech/med-caption/internal/domain"
	"github.com/DRSN-tech/med-caption/pkg/e"
	"github.com/jimlawless/whereami"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Каналов на пиксель при оценке объёма изображения (RGB).
const channels = 3

// supportedFormats форматы, которые принимают и Titan, и Claude.
// Остальные декодеры зарегистрированы, чтобы отличать чужой формат от битого файла.
var supportedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
}

// Limits ограничения модели эмбеддингов на входное изображение.
type Limits struct {
	MaxBytes     int
	MinSide      int
	MaxSide      int
	MaxPixelData int // width*height*channels
}

// DefaultLimits ограничения Titan Multimodal Embeddings.
func DefaultLimits() Limits {
	return Limits{
		MaxBytes:     25 * 1024 * 1024,
		MinSide:      256,
		MaxSide:      4096,
		MaxPixelData: 2048 * 2048 * channels,
	}
}

// Validator без состояния, безопасен для конкурентного использования.
type Validator struct {
	limits Limits
}

func New(limits Limits) *Validator {
	return &Validator{limits: limits}
}

// Inspect читает заголовок изображения. Пиксели не декодируются.
// Возвращает e.ErrDecode, если формат не распознан, и e.ErrUnsupportedMediaType для форматов кроме jpeg и png.
func (v *Validator) Inspect(data []byte) (*domain.Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %w", e.ErrDecode, err))
	}

	if !supportedFormats[format] {
		return nil, e.Wrap(format, e.ErrUnsupportedMediaType)
	}

	return domain.NewImage(data, cfg.Width, cfg.Height, format), nil
}

// Check применяет все ограничения. Любое нарушенное ограничение отклоняет изображение.
func (v *Validator) Check(img *domain.Image) bool {
	l := v.limits

	if img.Size > l.MaxBytes {
		return false
	}

	if img.Pixels()*channels > l.MaxPixelData {
		return false
	}

	if img.Width < l.MinSide || img.Height < l.MinSide {
		return false
	}

	if img.Width > l.MaxSide || img.Height > l.MaxSide {
		return false
	}

	return true
}

// Validate возвращает false для изображений вне ограничений и ошибку для нераспознанных байтов.
func (v *Validator) Validate(data []byte) (bool, error) {
	img, err := v.Inspect(data)
	if err != nil {
		return false, err
	}

	return v.Check(img), nil
}
