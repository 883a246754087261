// Package mediatypes provides shared type definitions and utilities for video
// library file handling across the videopipe engine.
//
// This package exists as a dependency-free foundation that can be imported by other
// packages without creating import cycles. It contains primitive types, constants,
// and pure utility functions with no external dependencies beyond the standard library.
//
// # File Types
//
// The package defines a FileType enum for categorizing library entries:
//
//	mediatypes.FileTypeFolder   // Directories
//	mediatypes.FileTypeVideo    // Supported video formats (mp4, mkv, avi, etc.)
//	mediatypes.FileTypePlaylist // Playlist files (wpl)
//	mediatypes.FileTypeOther    // Unrecognized or unsupported files
//
// # Extension Detection
//
// Use GetFileType to determine the type of a file based on its extension:
//
//	ext := strings.ToLower(filepath.Ext(filename))
//	fileType := mediatypes.GetFileType(ext)
//
//	switch fileType {
//	case mediatypes.FileTypeVideo:
//	    // Handle video
//	case mediatypes.FileTypePlaylist:
//	    // Handle playlist
//	}
//
// # MIME Types
//
// Use GetMimeType to get the appropriate MIME type:
//
//	ext := strings.ToLower(filepath.Ext(filename))
//	mimeType := mediatypes.GetMimeType(ext) // e.g., "video/mp4"
//
// # Sorting
//
// The package provides SortField and SortOrder types for consistent sorting
// across the application:
//
//	sort := mediatypes.SortByName
//	order := mediatypes.SortAsc
//
// # Preview siblings
//
// IsPreviewFile and OriginalStem recognize "<stem>-preview" files so the
// discovery scanner can pair them with their originals instead of surfacing
// them as standalone videos.
package mediatypes
