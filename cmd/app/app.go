package main

import (
	"os"
)

//	@title			Medical Image Captioning API
//	@version		1.0
//	@description	Описание медицинских изображений с помощью RAG поверх Bedrock и Qdrant.
//	@BasePath		/
func main() {
	if err := NewCLI().Execute(); err != nil {
		os.Exit(1)
	}
}
