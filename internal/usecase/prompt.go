package usecase

import (
	"fmt"
	"strings"
)

// NoCaptionsPlaceholder подставляется в rag_description, если похожих подписей не нашлось.
const NoCaptionsPlaceholder = "No similar captions retrieved for RAG enhancement."

const (
	classicPrompt = "You are a medical assistant with expertise in medical imaging. " +
		"Given the uploaded medical image, provide a detailed description that includes " +
		"key anatomical structures, any abnormalities or conditions visible, and potential " +
		"diagnoses or observations relevant to the image. Be precise and clear in your " +
		"explanation, highlighting significant features of the image."

	ragPromptTemplate = "You are a medical assistant with expertise in medical imaging.\n" +
		"Knowing that similar images have these captions:\n" +
		"%s\n" +
		"Write a detailed description of the input image, highlighting anatomical structures, " +
		"abnormalities, and potential diagnoses."
)

// PromptBuilder собирает текстовые части запросов к модели генерации.
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

func (p *PromptBuilder) Classic() string {
	return classicPrompt
}

// RAG вставляет подписи построчно в порядке получения.
func (p *PromptBuilder) RAG(captions []string) string {
	return fmt.Sprintf(ragPromptTemplate, strings.Join(captions, "\n"))
}
