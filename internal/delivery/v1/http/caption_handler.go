package http

import (
	"net/http"

	"github.com/DRSN-tech/med-caption/internal/usecase"
	"github.com/DRSN-tech/med-caption/pkg/e"
	"github.com/DRSN-tech/med-caption/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

type CaptionHandler struct {
	captionUC    usecase.CaptionUC
	logger       logger.Logger
	legacyStatus bool
}

func NewCaptionHandler(captionUC usecase.CaptionUC, logger logger.Logger, legacyStatus bool) *CaptionHandler {
	return &CaptionHandler{captionUC: captionUC, logger: logger, legacyStatus: legacyStatus}
}

// caption
//
//	@Summary		Описание медицинского изображения
//	@Description	Проверяет изображение, ищет подписи похожих снимков и генерирует два описания: обычное и RAG
//	@Tags			caption
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file				true	"Изображение (jpeg или png)"
//	@Success		200		{object}	usecase.CaptionRes	"Описания и найденные подписи"
//	@Failure		400		{object}	ErrorResponse		"Некорректный запрос"
//	@Failure		422		{object}	ErrorResponse		"Изображение не прошло проверку"
//	@Failure		502		{object}	ErrorResponse		"Ошибка модели"
//	@Router			/caption/ [post]
func (h *CaptionHandler) caption(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		h.logger.Warnf("%d %s: %v", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err)
		WriteError(w, badRequest(err), h.legacyStatus)
		return
	}

	data, filename, err := formFile(r, fileField)
	if err != nil {
		h.logger.Warnf("%d %s: %v", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err)
		WriteError(w, badRequest(err), h.legacyStatus)
		return
	}

	res, err := h.captionUC.Caption(r.Context(), usecase.NewCaptionReq(data, filename, middleware.GetReqID(r.Context())))
	if err != nil {
		if e.KindOf(err) == e.KindGeneration || e.KindOf(err) == e.KindUnknown {
			h.logger.Errorf(err, "caption request failed")
		} else {
			h.logger.Warnf("caption request rejected: %v", err)
		}
		WriteError(w, err, h.legacyStatus)
		return
	}

	WriteSuccess(w, http.StatusOK, res)
}
