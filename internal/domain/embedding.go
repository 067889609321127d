package domain

// Embedding вектор изображения фиксированной для модели размерности.
type Embedding []float32

// Valid сообщает, можно ли искать по вектору.
func (e Embedding) Valid() bool {
	return len(e) > 0
}
