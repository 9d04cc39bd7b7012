package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ironsheep/idphoto-mcp/internal/config"
	"github.com/ironsheep/idphoto-mcp/internal/imaging"
	"github.com/ironsheep/idphoto-mcp/internal/logging"
	"github.com/ironsheep/idphoto-mcp/internal/session"
)

// extractOptions are the flags of the extract subcommand.
type extractOptions struct {
	outputDir string
	index     int
	rotate    int
}

// runExtract processes each file non-interactively: load, straighten,
// detect, take a candidate, optionally rotate it and write a PNG. The path
// of each written photo is printed to out. It returns the process exit code.
func runExtract(ctx context.Context, cfg *config.Config, p *pipeline, args []string, out io.Writer) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	opts := extractOptions{}
	fs.StringVar(&opts.outputDir, "output-dir", cfg.OutputDir, "Directory for extracted photos")
	fs.IntVar(&opts.index, "index", 0, "Rank of the candidate to extract (0 is the best)")
	fs.IntVar(&opts.rotate, "rotate", 0, "Rotate the photo by -90, 90 or 180 degrees")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: idphoto-mcp extract [flags] files...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	files := fs.Args()
	if len(files) == 0 {
		fs.Usage()
		return 2
	}

	if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot create output directory: %v\n", err)
		return 1
	}

	loader := imaging.NewLoader(cfg.RasterScale, cfg.MaxFileSize)
	logger := logging.NewLogger("extract")

	failed := 0
	for _, file := range files {
		path, err := extractOne(ctx, loader, p, file, opts, logger)
		if err != nil {
			logger.Error("Extraction failed", "file", file, "error", err)
			failed++
			continue
		}
		fmt.Fprintln(out, path)
	}

	if failed > 0 {
		return 1
	}
	return 0
}

func extractOne(ctx context.Context, loader *imaging.Loader, p *pipeline, file string, opts extractOptions, logger *logging.Logger) (string, error) {
	img, _, err := loader.LoadFile(file)
	if err != nil {
		return "", err
	}

	m := session.NewMachine(p.resolver, p.finder)
	det, err := m.Open(ctx, img)
	if err != nil {
		return "", err
	}
	if err := det.Err(); err != nil {
		return "", err
	}
	for _, w := range m.State().Warnings {
		logger.Warn("Continuing despite warning", "file", file, "warning", w)
	}

	if _, err := m.SelectIndex(opts.index); err != nil {
		return "", err
	}
	if opts.rotate != 0 {
		if _, err := m.RotatePhoto(opts.rotate); err != nil {
			return "", err
		}
	}

	var buf bytes.Buffer
	if err := m.Export(imaging.PNGEncoder{}, &buf); err != nil {
		return "", err
	}

	id := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)) + "_" + uuid.NewString()[:8]
	path := filepath.Join(opts.outputDir, imaging.ExportFileName(id))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write photo: %w", err)
	}
	return path, nil
}
