// Package errs defines the typed error taxonomy used across the pipeline
// (spec §7): each component wraps failures in a kind-tagged struct so callers
// can dispatch on errors.Is/errors.As instead of string matching.
package errs

import "fmt"

// VideoKind enumerates the Per-Video Processor / Frame Extractor failure kinds.
type VideoKind string

const (
	TrackNotFound             VideoKind = "track_not_found"
	FileNotFound              VideoKind = "file_not_found"
	AccessDenied              VideoKind = "access_denied"
	InvalidFormat             VideoKind = "invalid_format"
	ProcessingFailed          VideoKind = "processing_failed"
	MetadataExtractionFailed  VideoKind = "metadata_extraction_failed"
	ThumbnailGenerationFailed VideoKind = "thumbnail_generation_failed"
	FrameExtractionFailed     VideoKind = "frame_extraction_failed"
)

// VideoError is returned by the Per-Video Processor and Frame Extractor.
type VideoError struct {
	Kind VideoKind
	URL  string
	Err  error
}

func (e *VideoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("video %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("video %s: %s", e.URL, e.Kind)
}

func (e *VideoError) Unwrap() error { return e.Err }

// Is reports whether target is a *VideoError with the same Kind, letting
// callers write errors.Is(err, &VideoError{Kind: errs.FileNotFound}).
func (e *VideoError) Is(target error) bool {
	t, ok := target.(*VideoError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

func NewVideoError(kind VideoKind, url string, err error) *VideoError {
	return &VideoError{Kind: kind, URL: url, Err: err}
}

// MosaicKind enumerates Mosaic Engine failure kinds.
type MosaicKind string

const (
	GenerationFailed      MosaicKind = "generation_failed"
	ImageGenerationFailed MosaicKind = "image_generation_failed"
	SaveFailed            MosaicKind = "save_failed"
	FileExists            MosaicKind = "file_exists"
)

// MosaicError is returned by the Mosaic Engine.
type MosaicError struct {
	Kind MosaicKind
	URL  string
	Err  error
}

func (e *MosaicError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mosaic %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("mosaic %s: %s", e.URL, e.Kind)
}

func (e *MosaicError) Unwrap() error { return e.Err }

func (e *MosaicError) Is(target error) bool {
	t, ok := target.(*MosaicError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

func NewMosaicError(kind MosaicKind, url string, err error) *MosaicError {
	return &MosaicError{Kind: kind, URL: url, Err: err}
}

// PreviewKind enumerates Preview Engine failure kinds.
type PreviewKind string

const (
	UnableToCreateCompositionTracks PreviewKind = "unable_to_create_composition_tracks"
	UnableToCreateExportSession     PreviewKind = "unable_to_create_export_session"
	SegmentInsertionFailed          PreviewKind = "segment_insertion_failed"
)

// PreviewError is returned by the Preview Engine.
type PreviewError struct {
	Kind PreviewKind
	URL  string
	Err  error
}

func (e *PreviewError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("preview %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("preview %s: %s", e.URL, e.Kind)
}

func (e *PreviewError) Unwrap() error { return e.Err }

func (e *PreviewError) Is(target error) bool {
	t, ok := target.(*PreviewError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

func NewPreviewError(kind PreviewKind, url string, err error) *PreviewError {
	return &PreviewError{Kind: kind, URL: url, Err: err}
}

// DiscoveryKind enumerates Discovery Scanner / Batch Coordinator failure kinds.
type DiscoveryKind string

const (
	Cancelled       DiscoveryKind = "cancelled"
	InvalidFolder   DiscoveryKind = "invalid_folder"
	DiscoveryDenied DiscoveryKind = "access_denied"
	DiscoveryFailed DiscoveryKind = "processing_failed"
)

// DiscoveryError is returned by the Discovery Scanner and Batch Coordinator.
type DiscoveryError struct {
	Kind DiscoveryKind
	Root string
	Err  error
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("discovery %s: %s: %v", e.Root, e.Kind, e.Err)
	}
	return fmt.Sprintf("discovery %s: %s", e.Root, e.Kind)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

func (e *DiscoveryError) Is(target error) bool {
	t, ok := target.(*DiscoveryError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

func NewDiscoveryError(kind DiscoveryKind, root string, err error) *DiscoveryError {
	return &DiscoveryError{Kind: kind, Root: root, Err: err}
}

// LibraryKind enumerates Catalog/LibraryItem failure kinds.
type LibraryKind string

const (
	OperationNotSupported LibraryKind = "operation_not_supported"
	NotFound              LibraryKind = "not_found"
	Conflict              LibraryKind = "conflict"
)

// LibraryError is returned by the catalog when operating on LibraryItems.
type LibraryError struct {
	Kind LibraryKind
	ID   string
	Err  error
}

func (e *LibraryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("library %s: %s: %v", e.ID, e.Kind, e.Err)
	}
	return fmt.Sprintf("library %s: %s", e.ID, e.Kind)
}

func (e *LibraryError) Unwrap() error { return e.Err }

func (e *LibraryError) Is(target error) bool {
	t, ok := target.(*LibraryError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

func NewLibraryError(kind LibraryKind, id string, err error) *LibraryError {
	return &LibraryError{Kind: kind, ID: id, Err: err}
}

// VideoFinderKind enumerates Smart-Folder Evaluator / Discovery Scanner
// enumeration failure kinds.
type VideoFinderKind string

const (
	NotADirectory      VideoFinderKind = "not_a_directory"
	FinderAccessDenied VideoFinderKind = "access_denied"
	EnumerationFailed  VideoFinderKind = "enumeration_failed"
	QueryFailed        VideoFinderKind = "query_failed"
)

// VideoFinderError is returned by the Discovery Scanner and Smart-Folder Evaluator.
type VideoFinderError struct {
	Kind VideoFinderKind
	Path string
	Err  error
}

func (e *VideoFinderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("finder %s: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("finder %s: %s", e.Path, e.Kind)
}

func (e *VideoFinderError) Unwrap() error { return e.Err }

func (e *VideoFinderError) Is(target error) bool {
	t, ok := target.(*VideoFinderError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

func NewVideoFinderError(kind VideoFinderKind, path string, err error) *VideoFinderError {
	return &VideoFinderError{Kind: kind, Path: path, Err: err}
}
