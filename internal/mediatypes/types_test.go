package mediatypes

import (
	"testing"
)

func TestGetFileType(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want FileType
	}{
		{
			name: "MP4 video",
			ext:  ".mp4",
			want: FileTypeVideo,
		},
		{
			name: "MKV video",
			ext:  ".mkv",
			want: FileTypeVideo,
		},
		{
			name: "quicktime video",
			ext:  ".mov",
			want: FileTypeVideo,
		},
		{
			name: "WPL playlist",
			ext:  ".wpl",
			want: FileTypePlaylist,
		},
		{
			name: "Unknown extension",
			ext:  ".xyz",
			want: FileTypeOther,
		},
		{
			name: "Empty extension",
			ext:  "",
			want: FileTypeOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetFileType(tt.ext)
			if got != tt.want {
				t.Errorf("GetFileType(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want string
	}{
		{
			name: "MP4 mime type",
			ext:  ".mp4",
			want: "video/mp4",
		},
		{
			name: "WPL mime type",
			ext:  ".wpl",
			want: "application/vnd.ms-wpl",
		},
		{
			name: "Unknown extension returns octet-stream",
			ext:  ".unknown",
			want: "application/octet-stream",
		},
		{
			name: "Empty extension returns octet-stream",
			ext:  "",
			want: "application/octet-stream",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetMimeType(tt.ext)
			if got != tt.want {
				t.Errorf("GetMimeType(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want bool
	}{
		{name: "mp4 is video", ext: ".mp4", want: true},
		{name: "mkv is video", ext: ".mkv", want: true},
		{name: "avi is video", ext: ".avi", want: true},
		{name: "wpl is not video", ext: ".wpl", want: false},
		{name: "unknown extension is not video", ext: ".txt", want: false},
		{name: "empty extension is not video", ext: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsVideoFile(tt.ext)
			if got != tt.want {
				t.Errorf("IsVideoFile(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestVideoExtensions(t *testing.T) {
	commonVideos := []string{".mp4", ".mkv", ".avi", ".mov", ".mpeg", ".mpg"}
	for _, ext := range commonVideos {
		if !VideoExtensions[ext] {
			t.Errorf("Expected %s to be in VideoExtensions", ext)
		}
	}
}

func TestFileTypeConstants(t *testing.T) {
	if FileTypeFolder != "folder" {
		t.Errorf("FileTypeFolder = %v, want 'folder'", FileTypeFolder)
	}
	if FileTypeVideo != "video" {
		t.Errorf("FileTypeVideo = %v, want 'video'", FileTypeVideo)
	}
	if FileTypePlaylist != "playlist" {
		t.Errorf("FileTypePlaylist = %v, want 'playlist'", FileTypePlaylist)
	}
	if FileTypeOther != "other" {
		t.Errorf("FileTypeOther = %v, want 'other'", FileTypeOther)
	}
}

func TestSortConstants(t *testing.T) {
	if SortByName != "name" {
		t.Errorf("SortByName = %v, want 'name'", SortByName)
	}
	if SortByDate != "date" {
		t.Errorf("SortByDate = %v, want 'date'", SortByDate)
	}
	if SortBySize != "size" {
		t.Errorf("SortBySize = %v, want 'size'", SortBySize)
	}
	if SortByType != "type" {
		t.Errorf("SortByType = %v, want 'type'", SortByType)
	}
	if SortAsc != "asc" {
		t.Errorf("SortAsc = %v, want 'asc'", SortAsc)
	}
	if SortDesc != "desc" {
		t.Errorf("SortDesc = %v, want 'desc'", SortDesc)
	}
}

func TestIsPreviewFile(t *testing.T) {
	tests := []struct {
		name string
		stem string
		want bool
	}{
		{name: "preview suffix present", stem: "vacation-preview", want: true},
		{name: "no suffix", stem: "vacation", want: false},
		{name: "suffix in middle does not count", stem: "preview-vacation", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsPreviewFile(tt.stem)
			if got != tt.want {
				t.Errorf("IsPreviewFile(%q) = %v, want %v", tt.stem, got, tt.want)
			}
		})
	}
}

func TestOriginalStem(t *testing.T) {
	got := OriginalStem("vacation-preview")
	if got != "vacation" {
		t.Errorf("OriginalStem() = %q, want %q", got, "vacation")
	}
}
