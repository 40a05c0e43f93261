package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/caraseli02/invoice-extractor/constants"
	"github.com/caraseli02/invoice-extractor/internal/common"
	"github.com/caraseli02/invoice-extractor/internal/extract"
	"github.com/caraseli02/invoice-extractor/internal/invoice"
	"github.com/caraseli02/invoice-extractor/internal/llm"
	"github.com/caraseli02/invoice-extractor/internal/ocr"
)

// Handler holds the proxy endpoints' dependencies. The detector and parser
// own the upstream credentials; nothing here ever returns them to a client.
type Handler struct {
	detector extract.TextDetector
	parser   llm.Parser
	pipeline *extract.Pipeline
	logger   *slog.Logger
}

func NewHandler(detector extract.TextDetector, parser llm.Parser, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	pipeline := extract.NewPipeline(
		extract.LocalOCR{Client: detector},
		extract.LocalParse{Parser: parser},
		logger,
	)
	return &Handler{detector: detector, parser: parser, pipeline: pipeline, logger: logger}
}

// HealthCheck returns the health status of the API.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "invoice-extractor",
	})
}

type ocrRequest struct {
	ImageBase64 string `json:"imageBase64" binding:"required"`
}

type parseProxyRequest struct {
	OCRText string `json:"ocrText" binding:"required"`
}

func errorBody(message string) gin.H {
	return gin.H{"error": gin.H{"message": message}}
}

// OCR is the OCR proxy endpoint: {imageBase64} in, {text} out. Data-URI
// prefixes are stripped defensively even though the contract forbids them.
func (h *Handler) OCR(c *gin.Context) {
	var req ocrRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("imageBase64 is required"))
		return
	}

	imageBase64 := extract.NormalizeBase64(req.ImageBase64)
	if imageBase64 == "" {
		c.JSON(http.StatusBadRequest, errorBody("imageBase64 is required"))
		return
	}

	text, err := h.detector.DetectText(c.Request.Context(), imageBase64)
	if err != nil {
		h.respondOCRError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

func (h *Handler) respondOCRError(c *gin.Context, err error) {
	var se *ocr.ServiceError
	switch {
	case errors.Is(err, ocr.ErrNoText):
		c.JSON(http.StatusUnprocessableEntity, errorBody("no text could be read from the image"))
	case errors.As(err, &se):
		// surface the upstream reason; the key itself never appears in messages
		c.JSON(http.StatusBadGateway, errorBody(se.Message))
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, errorBody("text recognition timed out"))
	default:
		h.logger.Error("server.ocr.failed",
			"req_id", common.RequestIDFromContext(c.Request.Context()), "error", err)
		c.JSON(http.StatusBadGateway, errorBody("text recognition failed"))
	}
}

// Parse is the parse proxy endpoint: {ocrText} in, cleaned invoice JSON out.
// Upstream auth and rate-limit failures keep their status so callers can
// react; Retry-After is echoed through on 429.
func (h *Handler) Parse(c *gin.Context) {
	var req parseProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("ocrText is required"))
		return
	}

	raw, _, err := h.parser.ParseInvoice(c.Request.Context(), req.OCRText)
	if err != nil {
		h.respondParseError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice.Clean(raw))
}

func (h *Handler) respondParseError(c *gin.Context, err error) {
	var ue *llm.UpstreamError
	if errors.As(err, &ue) {
		switch ue.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			c.JSON(http.StatusUnauthorized, errorBody("authentication with the parsing service failed"))
		case http.StatusTooManyRequests:
			if ue.RetryAfter != "" {
				c.Header("Retry-After", ue.RetryAfter)
			}
			c.JSON(http.StatusTooManyRequests, errorBody("the parsing service is rate limited"))
		default:
			c.JSON(http.StatusBadGateway, errorBody("the parsing service returned an error"))
		}
		return
	}
	h.logger.Error("server.parse.failed",
		"req_id", common.RequestIDFromContext(c.Request.Context()), "error", err)
	c.JSON(http.StatusBadGateway, errorBody("invoice parsing failed"))
}

// extractResponse is the combined endpoint's discriminated result shape.
type extractResponse struct {
	Success bool          `json:"success"`
	Data    *invoice.Data `json:"data,omitempty"`
	Error   *extractError `json:"error,omitempty"`
	OCRText string        `json:"ocrText,omitempty"`
}

type extractError struct {
	Kind    extract.Kind `json:"kind"`
	Message string       `json:"message"`
}

// Extract runs the whole pipeline server-side on a multipart upload, so thin
// clients get the full result in one round trip.
func (h *Handler) Extract(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("a 'file' form field is required"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("could not read the uploaded file"))
		return
	}
	defer f.Close()

	mime := fileHeader.Header.Get("Content-Type")
	if mime == "" {
		mime = constants.MIMEForExt(filepath.Ext(fileHeader.Filename))
	}

	result := h.pipeline.Run(c.Request.Context(), extract.Upload{
		Name:   fileHeader.Filename,
		MIME:   mime,
		Size:   fileHeader.Size,
		Reader: f,
	}, nil)

	resp := extractResponse{
		Success: result.OK(),
		Data:    result.Data,
		OCRText: result.OCRText,
	}
	status := http.StatusOK
	if !result.OK() {
		resp.Error = &extractError{Kind: result.Err.Kind, Message: result.Err.Message}
		status = statusForKind(result.Err.Kind)
	}
	c.JSON(status, resp)
}

// statusForKind picks the HTTP status for the combined endpoint. Client-side
// gate failures are 400s; everything downstream is a 502-class answer.
func statusForKind(kind extract.Kind) int {
	switch kind {
	case extract.KindInvalidFileType, extract.KindFileTooLarge, extract.KindFileReadError:
		return http.StatusBadRequest
	case extract.KindNoProductsExtracted:
		return http.StatusUnprocessableEntity
	case extract.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
