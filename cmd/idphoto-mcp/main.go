package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ironsheep/idphoto-mcp/internal/candidates"
	"github.com/ironsheep/idphoto-mcp/internal/config"
	"github.com/ironsheep/idphoto-mcp/internal/detection"
	"github.com/ironsheep/idphoto-mcp/internal/logging"
	"github.com/ironsheep/idphoto-mcp/internal/ocr"
	"github.com/ironsheep/idphoto-mcp/internal/orientation"
	"github.com/ironsheep/idphoto-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("idphoto-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	// A missing .env is normal; the environment alone is enough.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr; stdout is for MCP protocol and extract output.
	logging.Configure(cfg.LogLevel, os.Stderr)
	logger := logging.NewLogger("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	defer p.Close()

	if len(os.Args) > 1 && os.Args[1] == "extract" {
		code := runExtract(ctx, cfg, p, os.Args[2:], os.Stdout)
		p.Close()
		os.Exit(code)
	}

	logger.Info("ID photo MCP server starting",
		"version", Version,
		"build_time", BuildTime,
		"commit", GitCommit,
		"detector", cfg.Detector,
		"ocr_language", cfg.OCRLanguage,
	)

	srv := server.New(cfg, p.resolver, p.finder, Version)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("idphoto-mcp - extract the portrait photo from ID documents")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  idphoto-mcp [options]                 Run the MCP server on stdin/stdout")
	fmt.Println("  idphoto-mcp extract [flags] files...  Extract the best candidate from each file")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (also read from .env):")
	fmt.Println("  IDPHOTO_LOG_LEVEL           debug, info, warn, error (default info)")
	fmt.Println("  IDPHOTO_OCR_LANGUAGE        Tesseract language (default eng)")
	fmt.Println("  IDPHOTO_OCR_MAX_SIDE        Longest side fed to OCR (default 1500)")
	fmt.Println("  IDPHOTO_TESSDATA_PREFIX     Tesseract data directory")
	fmt.Println("  IDPHOTO_RASTER_SCALE        PDF render scale (default 3)")
	fmt.Println("  IDPHOTO_DETECTOR            edges, http or cascade (default edges)")
	fmt.Println("  IDPHOTO_INFERENCE_URL       Endpoint for the http detector")
	fmt.Println("  IDPHOTO_CASCADE_PATH        Haar cascade XML for the cascade detector")
	fmt.Println("  IDPHOTO_PREVIEW_MAX_WIDTH   Preview width in pixels (default 700)")
	fmt.Println("  IDPHOTO_OUTPUT_DIR          Directory for exported photos (default .)")
	fmt.Println("  IDPHOTO_MAX_FILE_SIZE       Largest accepted input in bytes")
	fmt.Println()
	fmt.Println("The server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

// pipeline holds the engines shared by every document.
type pipeline struct {
	resolver *orientation.Resolver
	finder   *candidates.Finder
	closers  []io.Closer
}

func newPipeline(cfg *config.Config, logger *logging.Logger) (*pipeline, error) {
	var recognizer ocr.Recognizer
	tess, err := ocr.NewTesseract(cfg.OCRLanguage, cfg.TessdataPrefix)
	if err != nil {
		// Orientation then fails on every page and documents are used as
		// loaded.
		logger.Warn("OCR unavailable, orientation correction disabled", "error", err)
		recognizer = unavailableRecognizer{err: err}
	} else {
		recognizer = tess
	}

	detector, err := detection.New(cfg)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		resolver: orientation.NewResolver(recognizer, orientation.Options{MaxSide: cfg.OCRMaxSide}),
		finder:   candidates.NewFinder(detector),
	}
	if c, ok := detector.(io.Closer); ok {
		p.closers = append(p.closers, c)
	}
	return p, nil
}

func (p *pipeline) Close() {
	for _, c := range p.closers {
		c.Close()
	}
}

// unavailableRecognizer reports the reason OCR could not start.
type unavailableRecognizer struct {
	err error
}

func (u unavailableRecognizer) Recognize(ctx context.Context, img image.Image) (*ocr.Result, error) {
	return nil, u.err
}
