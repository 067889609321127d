package usecase

import (
	"context"

	"github.com/DRSN-tech/med-caption/internal/domain"
)

// CaptionRepository поиск подписей похожих изображений. Ошибки не возвращает:
// при любом сбое результат пустой.
type CaptionRepository interface {
	SearchCaptions(ctx context.Context, embedding domain.Embedding, limit int) []string
}

// EmbeddingCache кэш эмбеддингов по sha256 содержимого файла.
type EmbeddingCache interface {
	Get(ctx context.Context, digest string) (domain.Embedding, bool)
	Set(ctx context.Context, digest string, embedding domain.Embedding)
}
