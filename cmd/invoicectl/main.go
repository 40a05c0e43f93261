// invoicectl runs the extraction pipeline on a local invoice image, either
// against a running invoiced server or fully in-process, and prints or
// exports the result.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/caraseli02/invoice-extractor/constants"
	"github.com/caraseli02/invoice-extractor/internal/common"
	"github.com/caraseli02/invoice-extractor/internal/export"
	"github.com/caraseli02/invoice-extractor/internal/extract"
	"github.com/caraseli02/invoice-extractor/internal/llm"
	"github.com/caraseli02/invoice-extractor/internal/llm/openai"
	"github.com/caraseli02/invoice-extractor/internal/ocr"
)

func main() {
	fs := ff.NewFlagSet("invoicectl")
	var (
		filePath  = fs.StringLong("file", "", "path to the invoice image (jpg/png)")
		serverURL = fs.StringLong("server", "", "base URL of a running invoiced server; empty runs in-process")
		outPath   = fs.StringLong("out", "", "write line items to this .xlsx or .csv file")
		jsonOut   = fs.BoolLong("json", "print the full result as JSON")
		quiet     = fs.BoolLong("quiet", "suppress progress output")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("INVOICECTL"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "error: --file is required")
		os.Exit(2)
	}

	up, err := openUpload(*filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	pipeline, err := buildPipeline(*serverURL, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	progress := func(percent int, stage extract.Stage) {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "%3d%% %s\n", percent, stage)
		}
	}

	result := pipeline.Run(ctx, up, progress)

	if !result.OK() {
		fmt.Fprintf(os.Stderr, "extraction failed (%s): %s\n", result.Err.Kind, result.Err.Message)
		os.Exit(1)
	}

	if *jsonOut {
		b, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(b))
	} else {
		printSummary(result)
	}

	if *outPath != "" {
		if err := writeOutput(*outPath, result, logger); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", *outPath)
	}
}

func openUpload(path string) (extract.Upload, error) {
	mime := constants.MIMEForExt(filepath.Ext(path))
	if mime == "" {
		return extract.Upload{}, fmt.Errorf("unsupported file extension %q: expected jpg or png", filepath.Ext(path))
	}
	st, err := os.Stat(path)
	if err != nil {
		return extract.Upload{}, fmt.Errorf("stat %s: %w", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return extract.Upload{}, fmt.Errorf("open %s: %w", path, err)
	}
	return extract.Upload{
		Name:   filepath.Base(path),
		MIME:   mime,
		Size:   st.Size(),
		Reader: f,
	}, nil
}

// buildPipeline wires either the HTTP proxy clients (server mode) or the
// in-process Vision and OpenAI clients (direct mode, needs credentials).
func buildPipeline(serverURL string, logger *slog.Logger) (*extract.Pipeline, error) {
	if serverURL != "" {
		proxy := extract.NewProxyClient(strings.TrimRight(serverURL, "/"), nil, logger)
		return extract.NewPipeline(proxy, proxy, logger), nil
	}

	cfg := common.LoadConfig()
	if cfg.Vision.APIKey == "" {
		return nil, fmt.Errorf("direct mode needs VISION_API_KEY; or point --server at a running invoiced")
	}
	detector, err := ocr.NewClient(context.Background(), cfg.Vision, logger)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}

	var parser llm.Parser
	if cfg.LLM.APIKey != "" {
		parser = openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
	} else {
		parser = llm.NewFallbackParser(logger)
	}

	return extract.NewPipeline(
		extract.LocalOCR{Client: detector},
		extract.LocalParse{Parser: parser},
		logger,
	), nil
}

func printSummary(result extract.Result) {
	data := result.Data
	if data.Supplier != "" {
		fmt.Printf("Supplier:       %s\n", data.Supplier)
	}
	if data.InvoiceNumber != "" {
		fmt.Printf("Invoice number: %s\n", data.InvoiceNumber)
	}
	if data.InvoiceDate != "" {
		fmt.Printf("Invoice date:   %s\n", data.InvoiceDate)
	}
	if data.TotalAmount > 0 {
		fmt.Printf("Total amount:   %.2f\n", data.TotalAmount)
	}
	fmt.Printf("Line items (%d):\n", len(data.Products))
	for _, p := range data.Products {
		line := fmt.Sprintf("  %-30s x%-4d %8.2f %8.2f", p.Name, p.Quantity, p.UnitPrice, p.TotalPrice)
		if p.Barcode != "" {
			line += "  " + p.Barcode
		}
		fmt.Println(line)
	}
}

func writeOutput(path string, result extract.Result, logger *slog.Logger) error {
	svc := export.NewService(logger)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		b, err := svc.WriteXLSX(*result.Data)
		if err != nil {
			return err
		}
		return os.WriteFile(path, b, 0o644)
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return svc.WriteCSV(f, *result.Data)
	default:
		return fmt.Errorf("unsupported output extension %q: use .xlsx or .csv", filepath.Ext(path))
	}
}
