// Package extract drives the invoice extraction pipeline: gate the upload,
// OCR it through the server proxy, parse the text into line items, then clean
// and validate the outcome. Failures never escape as errors; every invocation
// produces a Result discriminated by its Err field.
package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/caraseli02/invoice-extractor/internal/common"
	"github.com/caraseli02/invoice-extractor/internal/invoice"
)

// Stage names the pipeline checkpoints reported to the progress callback.
type Stage string

const (
	StageValidating       Stage = "validating"
	StageReadingFile      Stage = "reading_file"
	StageOCR              Stage = "ocr"
	StageParsing          Stage = "parsing"
	StageValidatingResult Stage = "validating_result"
	StageDone             Stage = "done"
)

// ProgressFunc receives checkpoint updates. Percent is monotonically
// non-decreasing within one run. The pipeline tolerates panicking callbacks.
type ProgressFunc func(percent int, stage Stage)

// Pipeline is the extraction orchestrator. Each Run is a single linear pass
// with no retries and no shared state; a Pipeline is safe for concurrent use.
type Pipeline struct {
	ocr    OCRClient
	parse  ParseClient
	logger *slog.Logger
}

func NewPipeline(ocr OCRClient, parse ParseClient, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{ocr: ocr, parse: parse, logger: logger}
}

// Run executes one extraction. The context is propagated into both network
// calls, so abandoning it cancels whatever is in flight. A parse that yields
// zero usable rows is a failure even when every call succeeded: an empty
// product list is useless to the caller and must not masquerade as success.
func (p *Pipeline) Run(ctx context.Context, up Upload, progress ProgressFunc) Result {
	start := time.Now()
	report := p.safeProgress(progress)

	// one ID per run; both network calls and all log lines share it
	reqID := common.RequestIDFromContext(ctx)
	ctx = common.WithRequestID(ctx, reqID)
	logger := p.logger.With("req_id", reqID)

	logger.Info("extract.start", "file", up.Name, "mime", up.MIME, "size", up.Size)

	if err := ValidateFile(up); err != nil {
		logger.Warn("extract.gate.rejected", "file", up.Name, "kind", err.Kind, "error", err)
		return failure(err, "")
	}
	report(10, StageValidating)

	report(20, StageReadingFile)
	imageBase64, encErr := EncodeImage(up)
	if encErr != nil {
		logger.Error("extract.read.failed", "file", up.Name, "error", encErr)
		return failure(encErr, "")
	}
	report(40, StageReadingFile)

	text, err := p.ocr.RecognizeText(ctx, imageBase64)
	if err != nil {
		ee := classify(err, KindOCRServiceError, "text recognition failed")
		logger.Error("extract.ocr.failed", "file", up.Name, "kind", ee.Kind, "error", ee)
		return failure(ee, "")
	}
	logger.Info("extract.ocr.ok", "file", up.Name, "text_bytes", len(text),
		"elapsed_ms", time.Since(start).Milliseconds())
	report(70, StageOCR)

	raw, err := p.parse.ParseText(ctx, text)
	if err != nil {
		ee := classify(err, KindParseServiceError, "invoice parsing failed")
		logger.Error("extract.parse.failed", "file", up.Name, "kind", ee.Kind, "error", ee)
		return failure(ee, text)
	}
	report(90, StageParsing)

	data := invoice.Clean(raw)
	if len(data.Products) == 0 {
		logger.Warn("extract.no_products", "file", up.Name, "text_bytes", len(text))
		return failure(newError(KindNoProductsExtracted,
			"no recognizable line items were found on the invoice", nil), text)
	}
	report(100, StageDone)

	logger.Info("extract.ok", "file", up.Name, "products", len(data.Products),
		"supplier", data.Supplier, "elapsed_ms", time.Since(start).Milliseconds())
	return success(data, text)
}

// safeProgress wraps the caller's callback so a panic inside it is logged and
// contained instead of aborting an otherwise-successful extraction.
func (p *Pipeline) safeProgress(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return func(int, Stage) {}
	}
	return func(percent int, stage Stage) {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Warn("extract.progress.callback_panic", "stage", stage, "percent", percent, "panic", r)
			}
		}()
		fn(percent, stage)
	}
}
