package playlist

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"videopipe/internal/mediatypes"
)

// WPL structures mirror the Windows Media Player playlist XML format.
type WPL struct {
	XMLName xml.Name `xml:"smil"`
	Head    WPLHead  `xml:"head"`
	Body    WPLBody  `xml:"body"`
}

type WPLHead struct {
	Title string    `xml:"title"`
	Meta  []WPLMeta `xml:"meta"`
}

type WPLMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type WPLBody struct {
	Seq WPLSeq `xml:"seq"`
}

type WPLSeq struct {
	Media []WPLMedia `xml:"media"`
}

type WPLMedia struct {
	Src string `xml:"src,attr"`
}

// Playlist is a parsed .wpl file, ready to be folded into a playlist-type
// LibraryItem by the catalog.
type Playlist struct {
	Name  string         `json:"name"`
	Path  string         `json:"path"`
	Items []PlaylistItem `json:"items"`
	Count int            `json:"count"`
}

// PlaylistItem is one <media> entry resolved against a library root.
type PlaylistItem struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	OrigPath  string `json:"origPath"`
	Exists    bool   `json:"exists"`
	MediaType string `json:"mediaType"`
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".aac":  true,
	".ogg":  true,
	".m4a":  true,
}

// getMediaType classifies a filename as "video", "audio", or "unknown".
func getMediaType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if mediatypes.IsVideoFile(ext) {
		return "video"
	}
	if audioExtensions[ext] {
		return "audio"
	}
	return "unknown"
}

// fileExists reports whether path names a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// getRelativePath returns fullPath relative to mediaDir when fullPath is
// contained within it; otherwise it returns fullPath unchanged so callers
// never record a path that escapes the library root.
func getRelativePath(fullPath, mediaDir string) string {
	absFull, err := filepath.Abs(fullPath)
	if err != nil {
		return fullPath
	}
	absMediaDir, err := filepath.Abs(mediaDir)
	if err != nil {
		return fullPath
	}

	rel, err := filepath.Rel(absMediaDir, absFull)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fullPath
	}
	return rel
}

// resolveMediaPath classifies src (a <media src="..."> value) as relative,
// UNC, or Windows-absolute, and attempts to locate the file under mediaDir.
func resolveMediaPath(src, playlistDir, mediaDir string) PlaylistItem {
	srcPath := strings.ReplaceAll(src, "\\", "/")
	name := filepath.Base(srcPath)

	item := PlaylistItem{
		Name:      name,
		OrigPath:  src,
		MediaType: getMediaType(name),
	}

	switch {
	case strings.HasPrefix(srcPath, "//"):
		// UNC path: the share itself isn't reachable locally, fall back to
		// searching for the filename under the library root.
		return resolveByFilename(name, mediaDir, item)
	case isWindowsAbsolute(srcPath):
		return resolveByFilename(name, mediaDir, item)
	default:
		return resolveRelativePath(srcPath, playlistDir, mediaDir, item)
	}
}

// isWindowsAbsolute reports whether p looks like "C:/..." or "C:\...".
func isWindowsAbsolute(p string) bool {
	return len(p) >= 2 && p[1] == ':' && ((p[0] >= 'A' && p[0] <= 'Z') || (p[0] >= 'a' && p[0] <= 'z'))
}

// resolveRelativePath tries the path relative to the playlist's own
// directory first, then falls back to the filename directly under mediaDir.
func resolveRelativePath(srcPath, playlistDir, mediaDir string, item PlaylistItem) PlaylistItem {
	candidate := filepath.Join(playlistDir, srcPath)
	if fileExists(candidate) {
		item.Path = getRelativePath(candidate, mediaDir)
		item.Exists = true
		return item
	}
	return resolveByFilename(item.Name, mediaDir, item)
}

// resolveByFilename searches directly under mediaDir for a file named
// item.Name, the last resort when the playlist's own path hints don't pan out.
func resolveByFilename(name, mediaDir string, item PlaylistItem) PlaylistItem {
	candidate := filepath.Join(mediaDir, name)
	if fileExists(candidate) {
		item.Path = getRelativePath(candidate, mediaDir)
		item.Exists = true
		return item
	}

	item.Path = name
	item.Exists = false
	return item
}

// ParseWPL parses the .wpl file at wplPath and resolves each entry against
// mediaDir, the library root the playlist belongs to.
func ParseWPL(wplPath, mediaDir string) (*Playlist, error) {
	data, err := os.ReadFile(wplPath)
	if err != nil {
		return nil, err
	}

	var wpl WPL
	if err := xml.Unmarshal(data, &wpl); err != nil {
		return nil, err
	}

	pl := &Playlist{
		Name: wpl.Head.Title,
		Path: wplPath,
	}
	if pl.Name == "" {
		pl.Name = strings.TrimSuffix(filepath.Base(wplPath), filepath.Ext(wplPath))
	}

	playlistDir := filepath.Dir(wplPath)
	for _, media := range wpl.Body.Seq.Media {
		pl.Items = append(pl.Items, resolveMediaPath(media.Src, playlistDir, mediaDir))
	}

	pl.Count = len(pl.Items)
	return pl, nil
}
