package http

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kindle-enex/internal/entities"
	"github.com/mrlokans/kindle-enex/internal/services"
)

const (
	highlightsFormField = "highlights"
	recentOnIndexPage   = 10

	// formOverheadBytes covers the CSRF token and multipart framing on top
	// of the highlights text itself.
	formOverheadBytes = 64 * 1024
)

type ConvertController struct {
	converter     Converter
	sessions      *SessionManager
	maxInputBytes int64
}

func NewConvertController(converter Converter, sessions *SessionManager, maxInputBytes int64) *ConvertController {
	return &ConvertController{
		converter:     converter,
		sessions:      sessions,
		maxInputBytes: maxInputBytes,
	}
}

// ConvertAPIRequest is the body of POST /api/convert.
type ConvertAPIRequest struct {
	Text string `json:"text"`
}

type indexPage struct {
	CSRFField template.HTML
	Flash     *Flash
	Text      string
	Recent    []entities.Conversion
}

// Index renders the paste form together with any pending flash message.
func (cc *ConvertController) Index(c *gin.Context) {
	page := cc.newIndexPage(c)
	if cc.sessions != nil {
		page.Flash = cc.sessions.PopFlash(c.Request.Context())
	}
	c.HTML(http.StatusOK, "index.html", page)
}

// Submit handles the paste form. With sessions enabled the outcome is
// flashed and the browser redirected back to the form; otherwise the form
// is rendered directly with the outcome.
func (cc *ConvertController) Submit(c *gin.Context) {
	cc.limitBody(c)

	var res *services.ConvertResult
	text, err := readFormText(c)
	if err == nil {
		res, err = cc.converter.Convert(c.Request.Context(), services.ConvertRequest{
			Text:   text,
			Source: services.SourceWeb,
		})
	}

	var flash Flash
	status := http.StatusOK
	if err != nil {
		var resp ErrorResponse
		status, resp = convertErrorResponse(err)
		if status == http.StatusInternalServerError {
			respondInternalError(c, err, "convert form")
			return
		}
		flash = Flash{Kind: FlashError, Message: resp.Error}
	} else {
		flash = Flash{
			Kind:         FlashSuccess,
			Message:      res.Message,
			ConversionID: res.ID,
			Filename:     res.Filename,
		}
	}

	if cc.sessions != nil {
		cc.sessions.PutFlash(c.Request.Context(), flash)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	page := cc.newIndexPage(c)
	page.Flash = &flash
	if err != nil {
		page.Text = text
	}
	c.HTML(status, "index.html", page)
}

// ConvertJSON handles POST /api/convert.
func (cc *ConvertController) ConvertJSON(c *gin.Context) {
	cc.limitBody(c)

	var req ConvertAPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Error: services.FailureMessage(services.ErrInputTooLarge),
				Code:  "input_too_large",
			})
			return
		}
		respondBadRequest(c, "invalid JSON body")
		return
	}

	res, err := cc.converter.Convert(c.Request.Context(), services.ConvertRequest{
		Text:   req.Text,
		Source: services.SourceAPI,
	})
	if err != nil {
		respondConvertError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// List handles GET /api/conversions.
func (cc *ConvertController) List(c *gin.Context) {
	limit, offset := parsePagination(c)

	conversions, total, err := cc.converter.List(limit, offset)
	if err != nil {
		respondInternalError(c, err, "list conversions")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    conversions,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(conversions)) < total,
	})
}

// Download serves a stored .enex file as an attachment.
func (cc *ConvertController) Download(c *gin.Context) {
	conversion, err := cc.converter.ExportFile(c.Param("id"))
	switch {
	case errors.Is(err, services.ErrConversionNotFound):
		respondNotFound(c, "conversion")
		return
	case errors.Is(err, services.ErrExportFileMissing):
		c.JSON(http.StatusGone, ErrorResponse{Error: "export file no longer exists", Code: "export_missing"})
		return
	case err != nil:
		respondInternalError(c, err, "download conversion")
		return
	}

	c.Header("Content-Type", "application/enex+xml; charset=utf-8")
	c.FileAttachment(conversion.FilePath, conversion.Filename)
}

func (cc *ConvertController) newIndexPage(c *gin.Context) indexPage {
	page := indexPage{CSRFField: CSRFTokenField(c)}
	recent, _, err := cc.converter.List(recentOnIndexPage, 0)
	if err == nil {
		page.Recent = recent
	}
	return page
}

// readFormText parses the urlencoded form and returns the pasted text.
func readFormText(c *gin.Context) (string, error) {
	if err := c.Request.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", services.ErrInputTooLarge
		}
		return "", services.ErrEmptyInput
	}
	return c.PostForm(highlightsFormField), nil
}

func (cc *ConvertController) limitBody(c *gin.Context) {
	if cc.maxInputBytes <= 0 {
		return
	}
	limit := cc.maxInputBytes + formOverheadBytes
	if strings.HasPrefix(c.ContentType(), "application/json") {
		// JSON escaping can grow the text, allow the same slack
		limit = cc.maxInputBytes*2 + formOverheadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
}
