package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Image загруженное медицинское изображение. Живёт в рамках одного запроса.
type Image struct {
	Data      []byte
	Size      int    // размер закодированного файла в байтах
	Width     int
	Height    int
	Format    string // имя декодера: jpeg или png
	MediaType string // image/<format>
}

func NewImage(data []byte, width, height int, format string) *Image {
	return &Image{
		Data:      data,
		Size:      len(data),
		Width:     width,
		Height:    height,
		Format:    format,
		MediaType: "image/" + format,
	}
}

// Pixels возвращает число пикселей изображения.
func (i *Image) Pixels() int {
	return i.Width * i.Height
}

// Digest sha256 содержимого файла в hex. Ключ кэша эмбеддингов.
func (i *Image) Digest() string {
	sum := sha256.Sum256(i.Data)
	return hex.EncodeToString(sum[:])
}
