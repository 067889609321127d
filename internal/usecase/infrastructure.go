package usecase

import (
	"context"

	"github.com/DRSN-tech/med-caption/internal/domain"
)

type ImageValidator interface {
	Inspect(data []byte) (*domain.Image, error)
	Check(img *domain.Image) bool
}

// EmbeddingInfra возвращает nil при любой ошибке, ошибки логируются внутри.
type EmbeddingInfra interface {
	Embed(ctx context.Context, data []byte) domain.Embedding
}

type GenerationInfra interface {
	Generate(ctx context.Context, img *domain.Image, prompt string) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event *domain.CaptionEvent) error
}
