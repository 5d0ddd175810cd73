package domain

// FileType represents the document types accepted for ingestion.
type FileType string

const (
	FileTypePDF FileType = "pdf"
)

// AllowedContentTypes maps sniffed MIME content types to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
}

// IngestionStatus is the lifecycle state of a document ingestion run.
type IngestionStatus string

const (
	IngestionStatusIdle      IngestionStatus = "idle"
	IngestionStatusRendering IngestionStatus = "rendering"
	IngestionStatusUploading IngestionStatus = "uploading"
	IngestionStatusDone      IngestionStatus = "done"
	IngestionStatusError     IngestionStatus = "error"
)

// rank orders statuses along the forward-only state machine.
// done and error are both terminal and share the highest rank.
func (s IngestionStatus) rank() int {
	switch s {
	case IngestionStatusRendering:
		return 1
	case IngestionStatusUploading:
		return 2
	case IngestionStatusDone, IngestionStatusError:
		return 3
	default:
		return 0
	}
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
// Resetting to idle is not a transition and is handled separately.
func (s IngestionStatus) CanAdvanceTo(next IngestionStatus) bool {
	if s.IsTerminal() {
		return false
	}
	return next.rank() >= s.rank()
}

// IsTerminal reports whether the status ends a run.
func (s IngestionStatus) IsTerminal() bool {
	return s == IngestionStatusDone || s == IngestionStatusError
}

// IsActive reports whether a run is in flight.
func (s IngestionStatus) IsActive() bool {
	return s == IngestionStatusRendering || s == IngestionStatusUploading
}

// AssetRole identifies which raster variant of a page a blob holds.
type AssetRole string

const (
	AssetRolePage      AssetRole = "page"
	AssetRoleThumbnail AssetRole = "thumb"
)

// ExportFormat is the file format of a page manifest export.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
)
