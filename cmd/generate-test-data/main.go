package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/visionbridge/internal/barcode"
	"github.com/MeKo-Tech/visionbridge/internal/testutil"
	"github.com/makiuchi-d/gozxing"
)

// fixture describes one generated image and what recognition should return.
type fixture struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	Feature   string `json:"feature"`
	Format    string `json:"format,omitempty"`
	RawValue  string `json:"rawValue,omitempty"`
	ValueType string `json:"valueType,omitempty"`
	Text      string `json:"text,omitempty"`
}

type barcodeSpec struct {
	name    string
	format  gozxing.BarcodeFormat
	payload string
	width   int
	height  int
}

var barcodeSpecs = []barcodeSpec{
	{"qr_url", gozxing.BarcodeFormat_QR_CODE, "https://example.com/visionbridge", 240, 240},
	{"qr_text", gozxing.BarcodeFormat_QR_CODE, "hello from visionbridge", 240, 240},
	{"qr_wifi", gozxing.BarcodeFormat_QR_CODE, "WIFI:S:office;T:WPA;P:secret123;;", 240, 240},
	{"qr_email", gozxing.BarcodeFormat_QR_CODE, "mailto:support@example.com", 240, 240},
	{"qr_geo", gozxing.BarcodeFormat_QR_CODE, "geo:52.5200,13.4050", 240, 240},
	{"qr_phone", gozxing.BarcodeFormat_QR_CODE, "tel:+4930123456", 240, 240},
	{"ean13_product", gozxing.BarcodeFormat_EAN_13, "4006381333931", 300, 120},
	{"code128_text", gozxing.BarcodeFormat_CODE_128, "VB-2024-0001", 360, 120},
}

var textSamples = []string{"HELLO", "VISION BRIDGE", "12345"}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir           = flag.String("out", "testdata/images", "Output directory, relative to the project root")
		generateBarcodes = flag.Bool("barcodes", true, "Generate barcode images")
		generateText     = flag.Bool("text", true, "Generate text images")
		verbose          = flag.Bool("v", false, "Verbose output")
		help             = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate recognition fixtures for visionbridge testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                 # Generate all fixtures\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -text=false     # Barcodes only\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	root, err := testutil.GetProjectRoot()
	if err != nil {
		slog.Error("Failed to find project root", "error", err)
		os.Exit(1)
	}

	dir := *outDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		slog.Error("Failed to create output directory", "path", dir, "error", err)
		os.Exit(1)
	}
	if *verbose {
		slog.Info("Options", "out", dir, "barcodes", *generateBarcodes, "text", *generateText)
	}

	var manifest []fixture

	if *generateBarcodes {
		fixtures, err := generateBarcodeImages(dir)
		if err != nil {
			slog.Error("Failed to generate barcode images", "error", err)
			os.Exit(1)
		}
		manifest = append(manifest, fixtures...)
		slog.Info("Generated barcode images", "count", len(fixtures))
	}

	if *generateText {
		fixtures, err := generateTextImages(dir)
		if err != nil {
			slog.Error("Failed to generate text images", "error", err)
			os.Exit(1)
		}
		manifest = append(manifest, fixtures...)
		slog.Info("Generated text images", "count", len(fixtures))
	}

	if err := writeManifest(filepath.Join(dir, "manifest.json"), manifest); err != nil {
		slog.Error("Failed to write manifest", "error", err)
		os.Exit(1)
	}

	slog.Info("Test data generation completed", "path", dir, "fixtures", len(manifest))
}

func generateBarcodeImages(dir string) ([]fixture, error) {
	fixtures := make([]fixture, 0, len(barcodeSpecs))
	for _, spec := range barcodeSpecs {
		img, err := testutil.EncodeBarcode(spec.format, spec.payload, spec.width, spec.height)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", spec.name, err)
		}
		file := spec.name + ".png"
		if err := savePNG(filepath.Join(dir, file), img); err != nil {
			return nil, err
		}

		format, _ := barcode.ParseFormat(spec.format.String())
		valueType, _ := barcode.ParseValue(format, spec.payload)
		fixtures = append(fixtures, fixture{
			Name:      spec.name,
			File:      file,
			Feature:   "BarcodeScanning",
			Format:    format.String(),
			RawValue:  spec.payload,
			ValueType: valueType.String(),
		})
	}
	return fixtures, nil
}

func generateTextImages(dir string) ([]fixture, error) {
	config := testutil.DefaultTextImageConfig()
	fixtures := make([]fixture, 0, len(textSamples))
	for i, sample := range textSamples {
		config.Text = sample
		file := fmt.Sprintf("text_%d.png", i+1)
		if err := savePNG(filepath.Join(dir, file), testutil.GenerateTextImage(config)); err != nil {
			return nil, err
		}
		fixtures = append(fixtures, fixture{
			Name:    fmt.Sprintf("text_%d", i+1),
			File:    file,
			Feature: "TextRecognition",
			Text:    sample,
		})
	}
	return fixtures, nil
}

func savePNG(path string, img image.Image) error {
	file, err := os.Create(path) //nolint:gosec // G304: fixture paths are built from constants
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(file, img); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return file.Close()
}

func writeManifest(path string, fixtures []fixture) error {
	data, err := json.MarshalIndent(fixtures, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
