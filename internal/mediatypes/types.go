package mediatypes

import "strings"

// FileType represents the type of a library entry.
type FileType string

const (
	// FileTypeFolder represents a directory.
	FileTypeFolder FileType = "folder"
	// FileTypeVideo represents a video file.
	FileTypeVideo FileType = "video"
	// FileTypePlaylist represents a playlist file.
	FileTypePlaylist FileType = "playlist"
	// FileTypeOther represents an unrecognized file.
	FileTypeOther FileType = "other"
)

// SortField specifies which field to sort by.
type SortField string

// SortOrder specifies the direction of sorting.
type SortOrder string

const (
	// SortByName sorts results by filename.
	SortByName SortField = "name"
	// SortByDate sorts results by modification time.
	SortByDate SortField = "date"
	// SortBySize sorts results by file size.
	SortBySize SortField = "size"
	// SortByType sorts results by file type.
	SortByType SortField = "type"

	// SortAsc sorts in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts in descending order.
	SortDesc SortOrder = "desc"
)

// VideoExtensions maps file extensions to the discovery scanner's supported
// content types: mpeg-4, quicktime movie, avi, mpeg, generic movie (spec §4.7).
var VideoExtensions = map[string]bool{
	".mp4":  true, // mpeg-4
	".m4v":  true, // mpeg-4
	".mov":  true, // quicktime movie
	".qt":   true, // quicktime movie
	".avi":  true, // avi
	".mpeg": true, // mpeg
	".mpg":  true, // mpeg
	".mkv":  true, // generic movie
	".wmv":  true, // generic movie
	".flv":  true, // generic movie
	".webm": true, // generic movie
	".ts":   true, // generic movie
}

// PlaylistExtensions maps file extensions to supported playlist formats.
var PlaylistExtensions = map[string]bool{
	".wpl": true,
}

// MimeTypes maps file extensions to their MIME types; GetMimeType looks
// extensions up here.
var MimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".qt":   "video/quicktime",
	".avi":  "video/x-msvideo",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".mkv":  "video/x-matroska",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".ts":   "video/mp2t",

	".wpl": "application/vnd.ms-wpl",
}

// PreviewSuffix marks a file as a generated preview sibling of an original,
// per spec §4.7: "<video_stem>-preview<ext>" files are excluded from
// discovery results and recorded in a sibling map instead.
const PreviewSuffix = "-preview"

// GetFileType returns the FileType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".mp4").
func GetFileType(ext string) FileType {
	if VideoExtensions[ext] {
		return FileTypeVideo
	}
	if PlaylistExtensions[ext] {
		return FileTypePlaylist
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsVideoFile returns true if the extension is one of the scanner's
// supported video content types.
func IsVideoFile(ext string) bool {
	return VideoExtensions[ext]
}

// IsPreviewFile reports whether stem (a file name without directory or
// extension) names a generated preview sibling, e.g. "movie-preview".
func IsPreviewFile(stem string) bool {
	return strings.HasSuffix(stem, PreviewSuffix)
}

// OriginalStem strips the preview suffix from a stem that IsPreviewFile
// reports true for, recovering the original video's stem.
func OriginalStem(previewStem string) string {
	return strings.TrimSuffix(previewStem, PreviewSuffix)
}
