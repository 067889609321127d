package http

import (
	"embed"
	"encoding/base64"
	"html/template"
	"net/http"

	"github.com/DRSN-tech/med-caption/internal/usecase"
	"github.com/DRSN-tech/med-caption/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

var (
	//go:embed ui/*.html
	uiFS embed.FS

	indexTmpl = template.Must(template.ParseFS(uiFS, "ui/index.html"))
)

type pageData struct {
	ImageURL template.URL
	Result   *usecase.CaptionRes
	Error    string
}

// UIHandler HTML-форма загрузки снимка. Вызывает тот же сценарий, что и /caption/.
type UIHandler struct {
	captionUC usecase.CaptionUC
	logger    logger.Logger
}

func NewUIHandler(captionUC usecase.CaptionUC, logger logger.Logger) *UIHandler {
	return &UIHandler{captionUC: captionUC, logger: logger}
}

func (u *UIHandler) index(w http.ResponseWriter, _ *http.Request) {
	u.render(w, http.StatusOK, pageData{})
}

func (u *UIHandler) submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		code, msg := ToHTTPResponse(badRequest(err), false)
		u.render(w, code, pageData{Error: msg})
		return
	}

	data, filename, err := formFile(r, fileField)
	if err != nil {
		code, msg := ToHTTPResponse(badRequest(err), false)
		u.render(w, code, pageData{Error: msg})
		return
	}

	page := pageData{ImageURL: dataURL(data)}

	res, err := u.captionUC.Caption(r.Context(), usecase.NewCaptionReq(data, filename, middleware.GetReqID(r.Context())))
	if err != nil {
		u.logger.Warnf("ui caption request failed: %v", err)
		code, msg := ToHTTPResponse(err, false)
		page.Error = msg
		u.render(w, code, page)
		return
	}

	page.Result = res
	u.render(w, http.StatusOK, page)
}

func (u *UIHandler) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTmpl.Execute(w, data); err != nil {
		u.logger.Errorf(err, "failed to render index page")
	}
}

// dataURL встраивает загруженный файл в страницу для предпросмотра.
func dataURL(data []byte) template.URL {
	mediaType := http.DetectContentType(data[:min(len(data), 512)])
	return template.URL("data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data))
}
