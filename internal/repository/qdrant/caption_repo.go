package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/DRSN-tech/med-caption/internal/cfg"
	"github.com/DRSN-tech/med-caption/internal/domain"
	"github.com/DRSN-tech/med-caption/pkg/clients"
	"github.com/DRSN-tech/med-caption/pkg/e"
	"github.com/DRSN-tech/med-caption/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/protobuf/proto"
)

// captionField поле payload с текстом подписи
const captionField = "caption"

// CaptionRepo ищет подписи ближайших изображений в Qdrant. Коллекцию только читает.
type CaptionRepo struct {
	session    *clients.QdrantSession
	collection string
	hnswEf     uint64
	timeout    time.Duration
	logger     logger.Logger
}

func NewCaptionRepo(session *clients.QdrantSession, qdrantCfg *cfg.QdrantCfg, searchCfg *cfg.SearchCfg, logger logger.Logger) *CaptionRepo {
	return &CaptionRepo{
		session:    session,
		collection: qdrantCfg.CollectionName,
		hnswEf:     searchCfg.HnswEf,
		timeout:    searchCfg.Timeout,
		logger:     logger,
	}
}

// Search возвращает до limit ближайших подписей в порядке возрастания расстояния.
// Точки без строкового поля caption пропускаются.
func (q *CaptionRepo) Search(ctx context.Context, embedding domain.Embedding, limit int) ([]domain.SimilarCaption, error) {
	if !embedding.Valid() {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrEmptyVectors)
	}

	if limit <= 0 {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("invalid search limit %d", limit))
	}

	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	points, err := q.session.Points(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	hits, err := points.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayloadInclude(captionField),
		Params: &qdrant.SearchParams{
			HnswEf: qdrant.PtrOf(q.hnswEf),
			Exact:  proto.Bool(false),
		},
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	result := make([]domain.SimilarCaption, 0, len(hits))
	for _, hit := range hits {
		caption, ok := captionOf(hit)
		if !ok {
			q.logger.Warnf("qdrant point %s has no caption, skipping", hit.GetId().String())
			continue
		}
		result = append(result, *domain.NewSimilarCaption(hit.GetScore(), caption))
	}

	return result, nil
}

// SearchCaptions как Search, но при любой ошибке возвращает пустой список.
func (q *CaptionRepo) SearchCaptions(ctx context.Context, embedding domain.Embedding, limit int) []string {
	hits, err := q.Search(ctx, embedding, limit)
	if err != nil {
		q.logger.Errorf(err, "similar caption search failed, continuing without captions")
		return []string{}
	}

	if len(hits) == 0 {
		q.logger.Infof("no similar captions found in %s", q.collection)
	}

	return domain.Captions(hits)
}

func captionOf(hit *qdrant.ScoredPoint) (string, bool) {
	value, ok := hit.GetPayload()[captionField]
	if !ok {
		return "", false
	}

	str, ok := value.GetKind().(*qdrant.Value_StringValue)
	if !ok {
		return "", false
	}

	return str.StringValue, true
}
