package frames

import "testing"

func TestBlank_Dimensions(t *testing.T) {
	f := Blank(64, 36, 12.5)
	bounds := f.Image.Bounds()
	if bounds.Dx() != 64 || bounds.Dy() != 36 {
		t.Errorf("blank frame size = %dx%d, want 64x36", bounds.Dx(), bounds.Dy())
	}
	if !f.Blank {
		t.Error("expected Blank to be true")
	}
	if f.RequestedTime != 12.5 {
		t.Errorf("RequestedTime = %v, want 12.5", f.RequestedTime)
	}
}

func TestFailureRatio_AllFailed(t *testing.T) {
	results := []Result{
		{Err: errTest},
		{Err: errTest},
	}
	if got := FailureRatio(results); got != 1.0 {
		t.Errorf("FailureRatio = %v, want 1.0", got)
	}
}

func TestFailureRatio_NoneFailed(t *testing.T) {
	results := []Result{
		{Frame: &Frame{}},
		{Frame: &Frame{}},
	}
	if got := FailureRatio(results); got != 0.0 {
		t.Errorf("FailureRatio = %v, want 0.0", got)
	}
}

func TestFailureRatio_Partial(t *testing.T) {
	results := []Result{
		{Frame: &Frame{}},
		{Err: errTest},
	}
	if got := FailureRatio(results); got != 0.5 {
		t.Errorf("FailureRatio = %v, want 0.5", got)
	}
}

func TestFailureRatio_Empty(t *testing.T) {
	if got := FailureRatio(nil); got != 0 {
		t.Errorf("FailureRatio(nil) = %v, want 0", got)
	}
}

func TestNew_DefaultsConcurrency(t *testing.T) {
	e := New("ffmpeg", "file.mp4", 0)
	if cap(e.sem) != defaultMaxConcurrent {
		t.Errorf("sem capacity = %d, want %d", cap(e.sem), defaultMaxConcurrent)
	}
}

func TestNew_CustomConcurrency(t *testing.T) {
	e := New("ffmpeg", "file.mp4", 3)
	if cap(e.sem) != 3 {
		t.Errorf("sem capacity = %d, want 3", cap(e.sem))
	}
}

var errTest = simpleErr("extraction failed")

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
