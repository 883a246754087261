package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestVideoErrorIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind VideoKind
		want bool
	}{
		{
			name: "matching kind",
			err:  NewVideoError(FileNotFound, "/a.mp4", nil),
			kind: FileNotFound,
			want: true,
		},
		{
			name: "different kind",
			err:  NewVideoError(FileNotFound, "/a.mp4", nil),
			kind: AccessDenied,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, &VideoError{Kind: tt.kind})
			if got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVideoErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewVideoError(ProcessingFailed, "/a.mp4", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find wrapped cause")
	}
}

func TestMosaicErrorIs(t *testing.T) {
	err := NewMosaicError(FileExists, "/a.mp4", nil)
	if !errors.Is(err, &MosaicError{Kind: FileExists}) {
		t.Error("expected matching kind to satisfy errors.Is")
	}
	if errors.Is(err, &MosaicError{Kind: SaveFailed}) {
		t.Error("expected non-matching kind to fail errors.Is")
	}
}

func TestDiscoveryErrorAs(t *testing.T) {
	wrapped := fmt.Errorf("scan failed: %w", NewDiscoveryError(Cancelled, "/root", nil))

	var de *DiscoveryError
	if !errors.As(wrapped, &de) {
		t.Fatal("expected errors.As to unwrap to *DiscoveryError")
	}
	if de.Kind != Cancelled {
		t.Errorf("Kind = %v, want %v", de.Kind, Cancelled)
	}
}

func TestLibraryErrorMessage(t *testing.T) {
	err := NewLibraryError(NotFound, "abc-123", nil)
	want := "library abc-123: not_found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestVideoFinderErrorMessage(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewVideoFinderError(FinderAccessDenied, "/media", cause)
	want := "finder /media: access_denied: permission denied"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestPreviewErrorIs(t *testing.T) {
	err := NewPreviewError(SegmentInsertionFailed, "/a.mp4", nil)
	if !errors.Is(err, &PreviewError{Kind: SegmentInsertionFailed}) {
		t.Error("expected matching kind to satisfy errors.Is")
	}
}
