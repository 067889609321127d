package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DRSN-tech/med-caption/pkg/e"
	"github.com/DRSN-tech/med-caption/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_PATH", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("INFERENCE_PROFILE_ID", "eu.anthropic.claude-3-7-sonnet")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	c, err := Load(logger.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Http.Port)
	assert.False(t, c.Http.LegacyStatus)
	assert.Equal(t, "eu-west-3", c.Bedrock.Region)
	assert.Equal(t, "amazon.titan-embed-image-v1", c.Bedrock.EmbeddingModelID)
	assert.Equal(t, 1000, c.Bedrock.MaxTokens)
	assert.Equal(t, 30*time.Second, c.Bedrock.EmbeddingTimeout)
	assert.Equal(t, 6334, c.Qdrant.Port)
	assert.Equal(t, "image_caption_embeddings", c.Qdrant.CollectionName)
	assert.Equal(t, "default", c.Qdrant.Alias)
	assert.Equal(t, uint64(1024), c.Qdrant.VectorSize)
	assert.Equal(t, 3, c.Search.Limit)
	assert.Equal(t, uint64(10), c.Search.HnswEf)
	assert.Empty(t, c.Redis.Addr)
	assert.Equal(t, 24*time.Hour, c.Redis.EmbeddingTTL)
	assert.Empty(t, c.Kafka.Brokers)
	assert.Equal(t, "caption-events", c.Kafka.Topic)
}

func TestLoad_RequiresInferenceProfile(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("INFERENCE_PROFILE_ID", "")

	_, err := Load(logger.NewNopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INFERENCE_PROFILE_ID")
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("HTTP_LEGACY_STATUS", "true")
	t.Setenv("SEARCH_LIMIT", "5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_READ_TIMEOUT", "1s")
	t.Setenv("REDIS_WRITE_TIMEOUT", "4s")

	c, err := Load(logger.NewNopLogger())
	require.NoError(t, err)

	assert.True(t, c.Http.LegacyStatus)
	assert.Equal(t, 5, c.Search.Limit)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.Equal(t, 4*time.Second, c.Redis.Timeout)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad duration", key: "HTTP_READ_TIMEOUT", val: "soon"},
		{name: "bad bool", key: "QDRANT_USE_TLS", val: "maybe"},
		{name: "bad int", key: "QDRANT_GRPC_PORT", val: "port"},
		{name: "zero limit", key: "SEARCH_LIMIT", val: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load(logger.NewNopLogger())
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	setBaseEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("COLLECTION_NAME=from_file\n"), 0o600))
	t.Setenv("ENV_PATH", path)
	t.Setenv("COLLECTION_NAME", "")
	// godotenv не перезаписывает заданные переменные, поэтому пустое значение убираем
	require.NoError(t, os.Unsetenv("COLLECTION_NAME"))

	c, err := Load(logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, "from_file", c.Qdrant.CollectionName)
	require.NoError(t, os.Unsetenv("COLLECTION_NAME"))
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("X_INT", "abc")
	v, err := parseIntEnv("X_INT", 7)
	assert.ErrorIs(t, err, e.ErrIncorrectEnvVariable)
	assert.Equal(t, 7, v)
}
