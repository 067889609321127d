package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/med-caption/pkg/e"
	"github.com/DRSN-tech/med-caption/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/joho/godotenv"
)

type Config struct {
	Http    *HTTPConfig
	Bedrock *BedrockCfg
	Qdrant  *QdrantCfg
	Search  *SearchCfg
	Redis   *RedisCfg
	Kafka   *KafkaCfg
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	LegacyStatus bool // true: любой ответ /caption отдаётся со статусом 200
}

type BedrockCfg struct {
	Region               string
	InferenceProfileID   string // модель генерации описаний
	EmbeddingModelID     string
	MaxTokens            int
	EmbeddingTimeout     time.Duration // на одну попытку
	EmbeddingMaxRetries  int
	GenerationTimeout    time.Duration
	GenerationMaxRetries int
}

type QdrantCfg struct {
	Port           int
	Host           string
	ApiKey         string
	CollectionName string
	Alias          string // ключ сессии подключения
	UseTLS         bool
	VectorSize     uint64
}

type SearchCfg struct {
	Limit   int
	HnswEf  uint64
	Timeout time.Duration
}

// RedisCfg кэш эмбеддингов. Пустой Addr отключает кэш.
type RedisCfg struct {
	Addr         string
	Password     string
	User         string
	DB           int
	MaxRetries   int
	DialTimeout  time.Duration
	Timeout      time.Duration
	EmbeddingTTL time.Duration
}

// KafkaCfg события о запросах. Пустой Brokers отключает публикацию.
type KafkaCfg struct {
	Topic   string
	Brokers []string
}

// Load загружает .env (если есть) и переменные окружения.
func Load(log logger.Logger) (*Config, error) {
	if err := loadEnvFile(log); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	bedrock, err := loadBedrockCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	qdrant, err := loadQdrantCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	search, err := loadSearchCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Http:    http,
		Bedrock: bedrock,
		Qdrant:  qdrant,
		Search:  search,
		Redis:   redis,
		Kafka:   loadKafkaCfg(),
	}, nil
}

func loadEnvFile(log logger.Logger) error {
	path := getEnvOrDefault("ENV_PATH", ".env")

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("env file %s not found, using process environment", path)
			return nil
		}
		log.Errorf(err, "failed to read env file %s", path)
		return err
	}

	log.Infof("loaded env file %s", path)
	return nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 30 * time.Second
		defaultWriteTimeout = 3 * time.Minute // две генерации подряд в худшем случае
		defaultIdleTimeout  = 60 * time.Second
	)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	legacy, err := parseBoolEnv("HTTP_LEGACY_STATUS", false)
	if err != nil {
		log.Errorf(err, "invalid HTTP_LEGACY_STATUS")
		return nil, err
	}

	return &HTTPConfig{
		Port:         getEnvOrDefault("HTTP_PORT", defaultPort),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		LegacyStatus: legacy,
	}, nil
}

func loadBedrockCfg(log logger.Logger) (*BedrockCfg, error) {
	const (
		defaultRegion               = "eu-west-3"
		defaultEmbeddingModelID     = "amazon.titan-embed-image-v1"
		defaultMaxTokens            = 1000
		defaultEmbeddingTimeout     = 30 * time.Second
		defaultEmbeddingMaxRetries  = 3
		defaultGenerationTimeout    = 90 * time.Second
		defaultGenerationMaxRetries = 2
	)

	profile := getEnv("INFERENCE_PROFILE_ID")
	if profile == "" {
		err := fmt.Errorf("INFERENCE_PROFILE_ID is required")
		log.Errorf(err, "missing INFERENCE_PROFILE_ID")
		return nil, err
	}

	maxTokens, err := parseIntEnv("GENERATION_MAX_TOKENS", defaultMaxTokens)
	if err != nil {
		log.Errorf(err, "invalid GENERATION_MAX_TOKENS")
		return nil, err
	}

	embTimeout, err := parseDurationEnv("EMBEDDING_TIMEOUT", defaultEmbeddingTimeout)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_TIMEOUT")
		return nil, err
	}

	embRetries, err := parseIntEnv("EMBEDDING_MAX_RETRIES", defaultEmbeddingMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_MAX_RETRIES")
		return nil, err
	}

	genTimeout, err := parseDurationEnv("GENERATION_TIMEOUT", defaultGenerationTimeout)
	if err != nil {
		log.Errorf(err, "invalid GENERATION_TIMEOUT")
		return nil, err
	}

	genRetries, err := parseIntEnv("GENERATION_MAX_RETRIES", defaultGenerationMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid GENERATION_MAX_RETRIES")
		return nil, err
	}

	return &BedrockCfg{
		Region:               getEnvOrDefault("AWS_REGION", defaultRegion),
		InferenceProfileID:   profile,
		EmbeddingModelID:     getEnvOrDefault("EMBEDDING_MODEL_ID", defaultEmbeddingModelID),
		MaxTokens:            maxTokens,
		EmbeddingTimeout:     embTimeout,
		EmbeddingMaxRetries:  embRetries,
		GenerationTimeout:    genTimeout,
		GenerationMaxRetries: genRetries,
	}, nil
}

func loadQdrantCfg(log logger.Logger) (*QdrantCfg, error) {
	const (
		defaultHost           = "localhost"
		defaultQdrantGRPCPort = 6334
		defaultCollection     = "image_caption_embeddings"
		defaultAlias          = "default"
		defaultVectorSize     = "1024"
	)

	port, err := parseIntEnv("QDRANT_GRPC_PORT", defaultQdrantGRPCPort)
	if err != nil {
		log.Errorf(err, "invalid QDRANT_GRPC_PORT")
		return nil, err
	}

	useTLS, err := parseBoolEnv("QDRANT_USE_TLS", false)
	if err != nil {
		log.Errorf(err, "invalid QDRANT_USE_TLS")
		return nil, err
	}

	vectorSize, err := strconv.ParseUint(getEnvOrDefault("VECTOR_SIZE", defaultVectorSize), 10, 64)
	if err != nil {
		log.Errorf(err, "invalid VECTOR_SIZE")
		return nil, err
	}

	return &QdrantCfg{
		Host:           getEnvOrDefault("QDRANT_HOST", defaultHost),
		Port:           port,
		ApiKey:         getEnv("QDRANT__SERVICE__API_KEY"),
		CollectionName: getEnvOrDefault("COLLECTION_NAME", defaultCollection),
		Alias:          getEnvOrDefault("QDRANT_ALIAS", defaultAlias),
		UseTLS:         useTLS,
		VectorSize:     vectorSize,
	}, nil
}

func loadSearchCfg(log logger.Logger) (*SearchCfg, error) {
	const (
		defaultLimit   = 3
		defaultHnswEf  = 10
		defaultTimeout = 10 * time.Second
	)

	limit, err := parseIntEnv("SEARCH_LIMIT", defaultLimit)
	if err != nil || limit <= 0 {
		err = errors.Join(e.ErrIncorrectEnvVariable, err)
		log.Errorf(err, "invalid SEARCH_LIMIT")
		return nil, err
	}

	ef, err := parseIntEnv("SEARCH_HNSW_EF", defaultHnswEf)
	if err != nil || ef <= 0 {
		err = errors.Join(e.ErrIncorrectEnvVariable, err)
		log.Errorf(err, "invalid SEARCH_HNSW_EF")
		return nil, err
	}

	timeout, err := parseDurationEnv("SEARCH_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid SEARCH_TIMEOUT")
		return nil, err
	}

	return &SearchCfg{
		Limit:   limit,
		HnswEf:  uint64(ef),
		Timeout: timeout,
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultEmbeddingTTL = 24 * time.Hour
	)

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("REDIS_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid REDIS_MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("REDIS_DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("REDIS_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("REDIS_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_WRITE_TIMEOUT")
		return nil, err
	}

	ttl, err := parseDurationEnv("EMBEDDING_CACHE_TTL", defaultEmbeddingTTL)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_CACHE_TTL")
		return nil, err
	}

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Addr:         getEnv("REDIS_ADDR"),
		Password:     getEnv("REDIS_PASSWORD"),
		User:         getEnv("REDIS_USER"),
		DB:           db,
		MaxRetries:   maxRetries,
		DialTimeout:  dialTimeout,
		Timeout:      timeout,
		EmbeddingTTL: ttl,
	}, nil
}

func loadKafkaCfg() *KafkaCfg {
	const defaultTopic = "caption-events"

	var brokers []string
	for _, b := range strings.Split(getEnv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return &KafkaCfg{
		Brokers: brokers,
		Topic:   getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
	}
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return b, nil
}
