package bedrock

import (
	"context"
	"encoding/base64"
	"time"

	config "github.com/DRSN-tech/med-caption/internal/cfg"
	"github.com/DRSN-tech/med-caption/internal/domain"
	"github.com/DRSN-tech/med-caption/pkg/e"
	"github.com/DRSN-tech/med-caption/pkg/logger"
	"github.com/anthropics/anthropic-sdk-go"
	anthropicBedrock "github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/aws"
)

// MessagesAPI часть anthropic.MessageService, которой пользуется Generator.
type MessagesAPI interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Generator описывает изображение мультимодальной моделью Claude через Bedrock.
type Generator struct {
	messages  MessagesAPI
	modelID   string
	maxTokens int64
	timeout   time.Duration
	logger    logger.Logger
}

// NewGenerator создаёт клиента Messages API поверх Bedrock с учётными данными из awsCfg.
func NewGenerator(awsCfg aws.Config, cfg *config.BedrockCfg, logger logger.Logger) *Generator {
	client := anthropic.NewClient(
		anthropicBedrock.WithConfig(awsCfg),
		option.WithMaxRetries(cfg.GenerationMaxRetries),
	)

	return NewGeneratorWithAPI(&client.Messages, cfg, logger)
}

func NewGeneratorWithAPI(messages MessagesAPI, cfg *config.BedrockCfg, logger logger.Logger) *Generator {
	return &Generator{
		messages:  messages,
		modelID:   cfg.InferenceProfileID,
		maxTokens: int64(cfg.MaxTokens),
		timeout:   cfg.GenerationTimeout,
		logger:    logger,
	}
}

// Generate отправляет изображение и промпт одним сообщением пользователя и возвращает первый текстовый блок ответа.
func (g *Generator) Generate(ctx context.Context, img *domain.Image, prompt string) (string, error) {
	const op = "Generator.Generate"

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	started := time.Now()
	message, err := g.messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.modelID),
		MaxTokens: g.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(img.MediaType, base64.StdEncoding.EncodeToString(img.Data)),
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		return "", e.Wrap(op, err)
	}

	if len(message.Content) == 0 || message.Content[0].Type != "text" {
		return "", e.Wrap(op, e.ErrEmptyCompletion)
	}

	g.logger.Debugf("generation finished in %v, %d content block(s)", time.Since(started), len(message.Content))
	return message.Content[0].Text, nil
}
