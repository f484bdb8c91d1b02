// Package document wraps the PDF rasterization backend. The engine only
// sees page counts, intrinsic page sizes in points, and rasterized images
// at a requested scale; everything else about the PDF is this package's
// business.
package document

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ErrNoPages is returned by Open when the document contains no pages.
var ErrNoPages = errors.New("document has no pages")

// pointsPerInch is the PDF user-space unit density. go-fitz takes a DPI,
// so a scale of 1.0 means one pixel per point.
const pointsPerInch = 72.0

// Document is an open PDF backed by go-fitz (MuPDF).
type Document struct {
	doc       *fitz.Document
	path      string
	pageCount int
}

// Open loads the PDF at path and verifies it has at least one page.
func Open(path string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	doc, err := fitz.New(abs)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document %s: %w", abs, err)
	}

	pageCount := doc.NumPage()
	if pageCount <= 0 {
		doc.Close()
		return nil, fmt.Errorf("%s: %w", abs, ErrNoPages)
	}

	return &Document{doc: doc, path: abs, pageCount: pageCount}, nil
}

// Path returns the absolute path of the open document.
func (d *Document) Path() string {
	return d.path
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.pageCount
}

// PageSize returns the intrinsic size of a page in points.
func (d *Document) PageSize(index int) (float64, float64, error) {
	bounds, err := d.doc.Bound(index)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to measure page %d: %w", index, err)
	}
	// Bound reports pixels at 72 DPI, which is points.
	return float64(bounds.Dx()), float64(bounds.Dy()), nil
}

// Rasterize renders one page at the given scale (pixels per point).
// MuPDF paints onto an opaque white background, which is what a
// projected slide should look like under transparent PDF content.
func (d *Document) Rasterize(index int, scale float64) (image.Image, error) {
	img, err := d.doc.ImageDPI(index, dpiForScale(scale))
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", index, err)
	}
	return img, nil
}

// Title returns the document's metadata title, falling back to the file
// name when the PDF carries none.
func (d *Document) Title() string {
	meta := d.doc.Metadata()
	if title := strings.TrimSpace(meta["title"]); title != "" {
		return title
	}
	return filepath.Base(d.path)
}

// Close releases the underlying MuPDF document.
func (d *Document) Close() error {
	return d.doc.Close()
}

// dpiForScale converts the engine's scale factor to the DPI go-fitz wants.
func dpiForScale(scale float64) float64 {
	return scale * pointsPerInch
}
