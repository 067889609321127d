package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/DRSN-tech/med-caption/internal/domain"
	"github.com/DRSN-tech/med-caption/pkg/e"
	"github.com/DRSN-tech/med-caption/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// MsgGenerationFailed начало сообщения клиенту при сбое модели генерации.
// Полное сообщение дополняется текстом исходной ошибки.
const MsgGenerationFailed = "Failed to generate image description"

const eventPublishTimeout = 5 * time.Second

type captionState string

const (
	stateReceived         captionState = "received"
	stateValidated        captionState = "validated"
	stateEmbedded         captionState = "embedded"
	stateRetrieved        captionState = "retrieved"
	stateClassicGenerated captionState = "classic_generated"
	stateRagGenerated     captionState = "rag_generated"
	stateCompleted        captionState = "completed"
	stateFailed           captionState = "failed"
)

// CaptionUseCase последовательно проверяет изображение, строит эмбеддинг, ищет похожие подписи
// и генерирует два описания: обычное и с учётом найденных подписей.
type CaptionUseCase struct {
	validator   ImageValidator
	embedder    EmbeddingInfra
	captionRepo CaptionRepository
	generator   GenerationInfra
	cache       EmbeddingCache // nil, если кэш выключен
	events      EventPublisher // nil, если события выключены
	prompts     *PromptBuilder
	searchLimit int
	logger      logger.Logger
}

func NewCaptionUC(
	validator ImageValidator,
	embedder EmbeddingInfra,
	captionRepo CaptionRepository,
	generator GenerationInfra,
	cache EmbeddingCache,
	events EventPublisher,
	searchLimit int,
	logger logger.Logger,
) *CaptionUseCase {
	return &CaptionUseCase{
		validator:   validator,
		embedder:    embedder,
		captionRepo: captionRepo,
		generator:   generator,
		cache:       cache,
		events:      events,
		prompts:     NewPromptBuilder(),
		searchLimit: searchLimit,
		logger:      logger,
	}
}

// captionRun состояние одного запроса для логов и события аудита.
type captionRun struct {
	requestID      string
	started        time.Time
	state          captionState
	retrievedCount int
	ragGenerated   bool
}

// Caption обрабатывает одно изображение. Ошибки имеют тип *e.Error с видом отказа.
func (c *CaptionUseCase) Caption(ctx context.Context, req *CaptionReq) (res *CaptionRes, err error) {
	const op = "CaptionUseCase.Caption"

	run := &captionRun{requestID: req.RequestID, started: time.Now()}
	if run.requestID == "" {
		run.requestID = uuid.NewString()
	}
	c.advance(run, stateReceived)

	defer func() {
		if err != nil {
			c.advance(run, stateFailed)
			err = e.Wrap(op, err)
		}
		c.publish(ctx, run, err)
	}()

	img, err := c.validator.Inspect(req.Data)
	if err != nil {
		c.logger.Warnf("request %s: cannot decode %q: %v", run.requestID, req.Filename, err)
		return nil, e.New(e.KindValidation, e.MsgImageRejected, err)
	}

	if !c.validator.Check(img) {
		c.logger.Infof("request %s: image %dx%d, %d bytes rejected", run.requestID, img.Width, img.Height, img.Size)
		return nil, e.New(e.KindValidation, e.MsgImageRejected, nil)
	}
	c.advance(run, stateValidated)

	embedding := c.embed(ctx, img)
	if !embedding.Valid() {
		return nil, e.New(e.KindEmbedding, e.MsgEmbeddingFailed, nil)
	}
	c.advance(run, stateEmbedded)

	captions := c.captionRepo.SearchCaptions(ctx, embedding, c.searchLimit)
	run.retrievedCount = len(captions)
	c.advance(run, stateRetrieved)

	classic, rag, err := c.generate(ctx, run, img, captions)
	if err != nil {
		return nil, e.New(e.KindGeneration, generationMessage(err), err)
	}

	c.advance(run, stateCompleted)
	return NewCaptionRes(classic, rag, captions), nil
}

// embed берёт вектор из кэша или запрашивает модель. Свежий вектор пишется в кэш в фоне.
func (c *CaptionUseCase) embed(ctx context.Context, img *domain.Image) domain.Embedding {
	var digest string
	if c.cache != nil {
		digest = img.Digest()
		if cached, ok := c.cache.Get(ctx, digest); ok && cached.Valid() {
			return cached
		}
	}

	embedding := c.embedder.Embed(ctx, img.Data)
	if embedding.Valid() && c.cache != nil {
		go c.cache.Set(context.WithoutCancel(ctx), digest, embedding)
	}

	return embedding
}

// generate запускает обе генерации параллельно. Ошибка одной отменяет другую.
// RAG-описание запрашивается только при непустых подписях.
func (c *CaptionUseCase) generate(
	ctx context.Context,
	run *captionRun,
	img *domain.Image,
	captions []string,
) (string, string, error) {
	var (
		classic string
		rag     = NoCaptionsPlaceholder
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		text, err := c.generator.Generate(gctx, img, c.prompts.Classic())
		if err != nil {
			return err
		}
		classic = text
		return nil
	})

	if len(captions) > 0 {
		ragPrompt := c.prompts.RAG(captions)
		g.Go(func() error {
			text, err := c.generator.Generate(gctx, img, ragPrompt)
			if err != nil {
				return err
			}
			rag = text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", "", err
	}

	c.advance(run, stateClassicGenerated)
	if len(captions) > 0 {
		run.ragGenerated = true
		c.advance(run, stateRagGenerated)
	}

	return classic, rag, nil
}

// generationMessage сообщение клиенту: префикс и текст самой внутренней ошибки без служебных op-префиксов.
func generationMessage(err error) string {
	root := err
	for next := errors.Unwrap(root); next != nil; next = errors.Unwrap(root) {
		root = next
	}

	return MsgGenerationFailed + ": " + root.Error()
}

func (c *CaptionUseCase) advance(run *captionRun, state captionState) {
	run.state = state
	c.logger.Debugf("request %s: %s", run.requestID, state)
}

// publish отправляет событие аудита в фоне. Сбой публикации на ответ не влияет.
func (c *CaptionUseCase) publish(ctx context.Context, run *captionRun, err error) {
	if c.events == nil {
		return
	}

	event := &domain.CaptionEvent{
		EventID:        uuid.NewString(),
		RequestID:      run.requestID,
		Outcome:        domain.OutcomeCompleted,
		RetrievedCount: run.retrievedCount,
		RagGenerated:   run.ragGenerated,
		DurationMs:     time.Since(run.started).Milliseconds(),
		CreatedAt:      time.Now().UTC(),
	}
	if err != nil {
		event.Outcome = domain.OutcomeFailed
		event.FailureKind = e.KindOf(err).String()
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
		defer cancel()

		if pubErr := c.events.Publish(pubCtx, event); pubErr != nil {
			c.logger.Warnf("request %s: failed to publish caption event: %v", run.requestID, pubErr)
		}
	}()
}
