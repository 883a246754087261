// Package playlist provides parsing and resolution of playlist files.
//
// Currently supported formats:
//   - WPL (Windows Playlist): XML-based playlist format used by Windows Media Player
//
// The package handles various path formats found in playlist files:
//   - UNC paths (e.g., \\server\share\folder\file.mp4)
//   - Absolute paths with drive letters (e.g., C:\folder\file.mp4)
//   - Relative paths (e.g., ../folder/file.mp4)
//
// Path resolution tries, in order:
//   - For relative paths: the path joined to the playlist's own directory
//   - For all paths: the file name directly inside the media directory
//
// UNC and drive-letter paths go straight to the file-name lookup. Neither
// step searches subdirectories of the media directory or matches partial
// path components, so a file stored deeper in the library is reported as
// not existing.
package playlist
