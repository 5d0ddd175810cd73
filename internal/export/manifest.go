package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"libris/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the manifest header row.
var columns = []string{
	"Page Number",
	"Page ID",
	"Image URL",
	"Thumbnail URL",
	"Created At",
}

const sheetName = "Pages"

// ContentType returns the MIME type of an export format.
func ContentType(format domain.ExportFormat) string {
	switch format {
	case domain.ExportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// ParseFormat validates a format name. An empty name selects CSV.
func ParseFormat(s string) (domain.ExportFormat, error) {
	switch domain.ExportFormat(s) {
	case "", domain.ExportFormatCSV:
		return domain.ExportFormatCSV, nil
	case domain.ExportFormatXLSX:
		return domain.ExportFormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, s)
	}
}

// BuildFilename returns the attachment name for a document's page manifest.
// Format: {document_id}_pages_{YYYY-MM-DD}.{ext}
func BuildFilename(documentID uuid.UUID, format domain.ExportFormat, now time.Time) string {
	return fmt.Sprintf("%s_pages_%s.%s", documentID, now.Format("2006-01-02"), format)
}

// Write renders pages in the given format to w.
func Write(w io.Writer, format domain.ExportFormat, pages []domain.PageAsset) error {
	switch format {
	case domain.ExportFormatCSV:
		return WriteCSV(w, pages)
	case domain.ExportFormatXLSX:
		return WriteXLSX(w, pages)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
}

// WriteCSV writes a BOM-prefixed CSV manifest.
func WriteCSV(w io.Writer, pages []domain.PageAsset) error {
	if _, err := w.Write(BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for i := range pages {
		if err := cw.Write(pageToRow(&pages[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook manifest.
func WriteXLSX(w io.Writer, pages []domain.PageAsset) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i := range pages {
		p := &pages[i]
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			p.PageNumber,
			p.ID.String(),
			p.ImageURL,
			derefString(p.ThumbnailURL),
			p.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush stream writer: %w", err)
	}
	_, err = f.WriteTo(w)
	return err
}

// pageToRow converts a page asset to a manifest row. A page without a
// thumbnail leaves that column empty.
func pageToRow(p *domain.PageAsset) []string {
	return []string{
		strconv.Itoa(p.PageNumber),
		p.ID.String(),
		p.ImageURL,
		derefString(p.ThumbnailURL),
		p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
