package clients

import (
	"context"

	config "github.com/DRSN-tech/med-caption/internal/cfg"
	"github.com/DRSN-tech/med-caption/pkg/e"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jimlawless/whereami"
)

// LoadAWSConfig загружает учётные данные AWS из стандартной цепочки (env, профиль, роль).
func LoadAWSConfig(ctx context.Context, cfg *config.BedrockCfg) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return aws.Config{}, e.Wrap(whereami.WhereAmI(), err)
	}

	return awsCfg, nil
}

// NewBedrockRuntimeClient клиент Bedrock Runtime для InvokeModel.
func NewBedrockRuntimeClient(awsCfg aws.Config) *bedrockruntime.Client {
	return bedrockruntime.NewFromConfig(awsCfg)
}
