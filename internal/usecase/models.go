package usecase

// CaptionReq загруженный файл для описания.
type CaptionReq struct {
	Data      []byte
	Filename  string // для логов
	RequestID string
}

func NewCaptionReq(data []byte, filename, requestID string) *CaptionReq {
	return &CaptionReq{
		Data:      data,
		Filename:  filename,
		RequestID: requestID,
	}
}

// CaptionRes результат успешной обработки. Не изменяется после создания.
type CaptionRes struct {
	ClassicDescription string   `json:"classic_description"`
	RagDescription     string   `json:"rag_description"`
	RetrievedCaptions  []string `json:"retrieved_captions"`
}

func NewCaptionRes(classic, rag string, captions []string) *CaptionRes {
	if captions == nil {
		captions = []string{}
	}

	return &CaptionRes{
		ClassicDescription: classic,
		RagDescription:     rag,
		RetrievedCaptions:  captions,
	}
}
