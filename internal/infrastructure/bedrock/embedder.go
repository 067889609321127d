package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	config "github.com/DRSN-tech/med-caption/internal/cfg"
	"github.com/DRSN-tech/med-caption/internal/domain"
	"github.com/DRSN-tech/med-caption/pkg/e"
	"github.com/DRSN-tech/med-caption/pkg/jitter"
	"github.com/DRSN-tech/med-caption/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
)

const (
	contentTypeJSON   = "application/json"
	throttlingErrCode = "ThrottlingException"
)

var (
	baseBackoff = 500 * time.Millisecond
	maxBackoff  = 5 * time.Second
)

// ModelInvoker часть *bedrockruntime.Client, нужная для эмбеддингов.
type ModelInvoker interface {
	InvokeModel(
		ctx context.Context,
		params *bedrockruntime.InvokeModelInput,
		optFns ...func(*bedrockruntime.Options),
	) (*bedrockruntime.InvokeModelOutput, error)
}

// ImageChecker повторная проверка изображения перед платным вызовом модели.
type ImageChecker interface {
	Validate(data []byte) (bool, error)
}

type titanRequest struct {
	InputImage string `json:"inputImage"`
}

type titanResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embedder получает эмбеддинги изображений от Titan Multimodal Embeddings.
type Embedder struct {
	client     ModelInvoker
	checker    ImageChecker
	modelID    string
	timeout    time.Duration
	maxRetries int
	logger     logger.Logger
}

func NewEmbedder(client ModelInvoker, checker ImageChecker, cfg *config.BedrockCfg, logger logger.Logger) *Embedder {
	maxRetries := cfg.EmbeddingMaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &Embedder{
		client:     client,
		checker:    checker,
		modelID:    cfg.EmbeddingModelID,
		timeout:    cfg.EmbeddingTimeout,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Embed возвращает вектор изображения или nil. Ошибки не пробрасываются, только логируются.
func (m *Embedder) Embed(ctx context.Context, data []byte) domain.Embedding {
	const op = "Embedder.Embed"

	ok, err := m.checker.Validate(data)
	if err != nil || !ok {
		m.logger.Warnf("%s: image does not meet embedding constraints, skipping (%v)", op, err)
		return nil
	}

	body, err := json.Marshal(titanRequest{InputImage: base64.StdEncoding.EncodeToString(data)})
	if err != nil {
		m.logger.Errorf(e.Wrap(op, err), "failed to encode embedding request")
		return nil
	}

	for attempt := 0; attempt < m.maxRetries; attempt++ {
		out, err := m.invoke(ctx, body)
		if err == nil {
			embedding, parseErr := parseEmbedding(out.Body)
			if parseErr != nil {
				m.logger.Errorf(e.Wrap(op, parseErr), "malformed embedding response from %s", m.modelID)
				return nil
			}
			return embedding
		}

		if attempt == m.maxRetries-1 || !retryable(ctx, err) {
			m.logger.Errorf(e.Wrap(op, err), "embedding failed after %d attempt(s)", attempt+1)
			return nil
		}

		sleepTime := jitter.ExponentialBackoff(baseBackoff, maxBackoff, attempt, jitter.DefaultJitter)
		m.logger.Warnf("embedding failed, retrying in %v (attempt %d): %v", sleepTime, attempt+1, err)
		if err := jitter.Sleep(ctx, sleepTime); err != nil {
			m.logger.Errorf(e.Wrap(op, err), "embedding cancelled")
			return nil
		}
	}

	return nil
}

func (m *Embedder) invoke(ctx context.Context, body []byte) (*bedrockruntime.InvokeModelOutput, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	return m.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(m.modelID),
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
		Body:        body,
	})
}

// retryable ошибки клиента (4xx) не повторяются, кроме троттлинга. Отменённый контекст тоже.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorFault() == smithy.FaultClient {
		return apiErr.ErrorCode() == throttlingErrCode
	}

	return true
}

func parseEmbedding(body []byte) (domain.Embedding, error) {
	var res titanResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(res.Embedding) == 0 {
		return nil, e.ErrEmbeddingMissing
	}

	return domain.Embedding(res.Embedding), nil
}
