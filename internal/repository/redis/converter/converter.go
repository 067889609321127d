package converter

import "github.com/DRSN-tech/med-caption/internal/domain"

func ToRedisModel(model string, embedding domain.Embedding) *EmbeddingRedisModel {
	return &EmbeddingRedisModel{
		Model:  model,
		Dim:    len(embedding),
		Vector: embedding,
	}
}

// ToDomain возвращает nil, если запись повреждена или принадлежит другой модели.
func ToDomain(model string, m *EmbeddingRedisModel) domain.Embedding {
	if m == nil || m.Model != model || m.Dim != len(m.Vector) || m.Dim == 0 {
		return nil
	}

	return domain.Embedding(m.Vector)
}
