package sep

import (
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

func TestRenderPreviewToFileWritesDecodableJPEG(t *testing.T) {
	buf := diskImage(32, 24, 0.3)
	list := ObjectList{Objects: []Object{
		{MX: 16, MY: 12, A: 4, B: 2, Theta: 0},
	}}
	path := filepath.Join(t.TempDir(), "preview.jpg")
	if err := RenderPreviewToFile(path, buf, list, 0, 1, 1, 90); err != nil {
		t.Fatalf("RenderPreviewToFile error: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("jpeg.Decode error: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 32 || bounds.Dy() != 24 {
		t.Errorf("decoded size = %dx%d, want 32x24", bounds.Dx(), bounds.Dy())
	}
}

func TestRenderPreviewToFileRejectsInvalidBuffer(t *testing.T) {
	buf := NewFloat32Buffer([]float32{1, 2}, 0, 2)
	path := filepath.Join(t.TempDir(), "preview.jpg")
	if err := RenderPreviewToFile(path, buf, ObjectList{}, 0, 1, 1, 90); err == nil {
		t.Fatal("expected error for invalid buffer")
	}
}
