package domain

// SimilarCaption подпись ближайшего изображения из коллекции.
// Distance евклидово расстояние до запроса, меньше значит ближе.
type SimilarCaption struct {
	Distance float32
	Caption  string
}

func NewSimilarCaption(distance float32, caption string) *SimilarCaption {
	return &SimilarCaption{
		Distance: distance,
		Caption:  caption,
	}
}

// Captions возвращает тексты подписей в исходном порядке.
func Captions(items []SimilarCaption) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Caption)
	}

	return out
}
