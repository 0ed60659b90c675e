package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"familyvault/mediahub/internal/testutil"
)

func TestScanVideos(t *testing.T) {
	root := t.TempDir()
	thumbs := filepath.Join(root, "thumbnails")

	old := testutil.WriteFile(t, root, "old.mp4", []byte("a"))
	newer := testutil.WriteFile(t, root, "nested/newer.MKV", []byte("bb"))
	testutil.WriteFile(t, root, "notes.txt", []byte("x"))
	testutil.WriteFile(t, thumbs, "hidden.mp4", []byte("x"))

	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	files, err := ScanVideos(context.Background(), root, thumbs, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("found %d files, want 2: %+v", len(files), files)
	}
	if files[0].Path != newer || files[1].Path != old {
		t.Errorf("order = %s, %s", files[0].Path, files[1].Path)
	}
	if files[0].Size != 2 {
		t.Errorf("size = %d", files[0].Size)
	}

	filtered, err := ScanVideos(context.Background(), root, thumbs, "OLD")
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || filtered[0].Filename != "old.mp4" {
		t.Errorf("filtered = %+v", filtered)
	}
}
