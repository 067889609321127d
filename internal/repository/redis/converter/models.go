package converter

// EmbeddingRedisModel вектор в кэше. Model позволяет отбросить запись другой модели.
type EmbeddingRedisModel struct {
	Model  string    `json:"model"`
	Dim    int       `json:"dim"`
	Vector []float32 `json:"vector"`
}
