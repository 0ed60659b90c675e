package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"familyvault/mediahub/internal/repository"
	"familyvault/mediahub/internal/testutil"
)

type stubProber struct{ d time.Duration }

func (s stubProber) ProbeDuration(context.Context, string) (time.Duration, error) { return s.d, nil }

func TestUploadStoresFileAndPlaceholder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	data := testutil.MP4Bytes(2048)

	item, err := env.media.Upload(ctx, UploadInput{
		Filename:   "../../Summer Trip!.mp4",
		Body:       bytes.NewReader(data),
		UploadedBy: env.admin.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if item.Filename != "Summer-Trip-.mp4" && item.Filename != "Summer-Trip.mp4" {
		t.Errorf("filename = %q", item.Filename)
	}
	if filepath.Dir(item.StoragePath) != mustAbs(t, env.mediaCfg.RootDir) {
		t.Errorf("stored outside media root: %s", item.StoragePath)
	}
	got, err := os.ReadFile(item.StoragePath)
	if err != nil || !bytes.Equal(got, data) {
		t.Errorf("stored content differs (err=%v)", err)
	}
	if item.SizeBytes != int64(len(data)) || item.ContentType != "video/mp4" {
		t.Errorf("size=%d type=%q", item.SizeBytes, item.ContentType)
	}
	if item.Title == "" {
		t.Error("title not derived from filename")
	}
	if item.ThumbnailPath == nil {
		t.Fatal("no thumbnail recorded")
	}
	if _, err := os.Stat(*item.ThumbnailPath); err != nil {
		t.Errorf("placeholder thumbnail missing: %v", err)
	}
	if filepath.Base(*item.ThumbnailPath) != item.ID.String()+".jpg" {
		t.Errorf("thumbnail name = %s", *item.ThumbnailPath)
	}
}

func TestUploadCollisionGetsSuffix(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var names []string
	for i := 0; i < 3; i++ {
		item, err := env.media.Upload(ctx, UploadInput{
			Filename:   "clip.mp4",
			Body:       bytes.NewReader(testutil.MP4Bytes(1024)),
			Title:      "Clip",
			UploadedBy: env.admin.ID,
		})
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, item.Filename)
	}
	want := []string{"clip.mp4", "clip-1.mp4", "clip-2.mp4"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("upload %d stored as %q, want %q", i, names[i], want[i])
		}
	}
}

func TestUploadRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   UploadInput
		want error
	}{
		{"bad extension", UploadInput{Filename: "notes.txt", Body: bytes.NewReader(testutil.MP4Bytes(100))}, ErrInvalidFileType},
		{"disguised text", UploadInput{Filename: "fake.mp4", Body: strings.NewReader("just some text, not a video")}, ErrInvalidFileType},
		{"too large", UploadInput{Filename: "big.mp4", Body: bytes.NewReader(testutil.MP4Bytes(2 << 20))}, ErrFileTooLarge},
		{"unknown category", UploadInput{Filename: "c.mp4", Body: bytes.NewReader(testutil.MP4Bytes(100)), CategoryID: ptr(uuid.New())}, ErrInvalidCategory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.media.Upload(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}

	entries, _ := os.ReadDir(env.mediaCfg.RootDir)
	for _, e := range entries {
		if !e.IsDir() {
			t.Errorf("rejected upload left %s behind", e.Name())
		}
	}
}

func TestListValidatesOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.importVideo(t, "b.mp4", nil)
	env.importVideo(t, "a.mp4", nil)

	items, err := env.media.List(ctx, MediaFilter{OrderBy: "title", Order: "asc"})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].Filename != "a.mp4" {
		t.Errorf("asc by title = %+v", items)
	}

	for _, f := range []MediaFilter{
		{OrderBy: "title; DROP TABLE media"},
		{OrderBy: "storage_path"},
		{Order: "sideways"},
	} {
		if _, err := env.media.List(ctx, f); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("List(%+v) err = %v, want ErrInvalidOrder", f, err)
		}
	}
}

func TestImport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewMediaService(
		repository.NewGormMediaRepository(env.db),
		repository.NewGormCategoryRepository(env.db),
		nil,
		stubProber{d: 90 * time.Second},
		env.mediaCfg,
		zap.NewNop(),
	)

	path := testutil.WriteFile(t, env.mediaCfg.RootDir, "sub/my_trip-2019.mp4", testutil.MP4Bytes(4096))
	item, err := svc.Import(ctx, ImportInput{Path: "sub/my_trip-2019.mp4", UploadedBy: env.admin.ID})
	if err != nil {
		t.Fatal(err)
	}
	if item.Title != "My Trip 2019" || item.StoragePath != mustAbs(t, path) || item.SizeBytes != 4096 {
		t.Errorf("imported item = %+v", item)
	}
	if item.DurationSeconds == nil || *item.DurationSeconds != 90 {
		t.Errorf("duration = %v", item.DurationSeconds)
	}

	if _, err := svc.Import(ctx, ImportInput{Path: path}); !errors.Is(err, ErrAlreadyImported) {
		t.Errorf("re-import err = %v", err)
	}

	outside := testutil.WriteFile(t, t.TempDir(), "elsewhere.mp4", testutil.MP4Bytes(100))
	if _, err := svc.Import(ctx, ImportInput{Path: outside}); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("outside root err = %v", err)
	}
	if _, err := svc.Import(ctx, ImportInput{Path: "../escape.mp4"}); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("traversal err = %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(env.mediaCfg.RootDir, "linked.mp4")); err == nil {
		if _, err := svc.Import(ctx, ImportInput{Path: "linked.mp4"}); !errors.Is(err, ErrFileNotFound) {
			t.Errorf("symlink escape err = %v", err)
		}
	}
	if _, err := svc.Import(ctx, ImportInput{Path: "missing.mp4"}); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("missing err = %v", err)
	}
	testutil.WriteFile(t, env.mediaCfg.RootDir, "text.mp4", []byte("plain text"))
	if _, err := svc.Import(ctx, ImportInput{Path: "text.mp4"}); !errors.Is(err, ErrInvalidFileType) {
		t.Errorf("non-video err = %v", err)
	}
}

func TestImportManyAndScan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	already := env.importVideo(t, "seen.mp4", nil)
	var paths []string
	for _, name := range []string{"one.mp4", "two.webm", "three.mov"} {
		paths = append(paths, testutil.WriteFile(t, env.mediaCfg.RootDir, name, testutil.MP4Bytes(2048)))
	}
	broken := testutil.WriteFile(t, env.mediaCfg.RootDir, "broken.mp4", []byte("nope"))

	scanned, err := env.media.ScanServer(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(scanned) != 5 {
		t.Fatalf("scan found %d files, want 5", len(scanned))
	}
	for _, f := range scanned {
		if (f.Filename == "seen.mp4") != f.Imported {
			t.Errorf("%s imported=%v", f.Filename, f.Imported)
		}
	}

	summary, err := env.media.ImportMany(ctx, append(paths, already.StoragePath, broken), env.admin.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Imported) != 3 || len(summary.Skipped) != 1 || len(summary.Failed) != 1 {
		t.Errorf("summary imported=%d skipped=%d failed=%d", len(summary.Imported), len(summary.Skipped), len(summary.Failed))
	}

	filtered, err := env.media.ScanServer(ctx, "TWO")
	if err != nil || len(filtered) != 1 || !filtered[0].Imported {
		t.Errorf("filtered scan = %+v, %v", filtered, err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cat := env.createCategory(t, "Holidays")
	item := env.importVideo(t, "clip.mp4", nil)

	if _, err := env.media.Update(ctx, item.ID, MediaUpdate{}); !errors.Is(err, ErrNothingToUpdate) {
		t.Errorf("empty update err = %v", err)
	}
	if _, err := env.media.Update(ctx, item.ID, MediaUpdate{Title: ptr("  ")}); !errors.Is(err, ErrInvalidTitle) {
		t.Errorf("blank title err = %v", err)
	}
	if _, err := env.media.Update(ctx, item.ID, MediaUpdate{CategoryID: ptr(uuid.New())}); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("unknown category err = %v", err)
	}

	updated, err := env.media.Update(ctx, item.ID, MediaUpdate{Title: ptr("Beach Day"), CategoryID: &cat.ID})
	if err != nil {
		t.Fatal(err)
	}
	reloaded, _ := env.media.GetByID(ctx, item.ID)
	if updated.Title != "Beach Day" || reloaded.CategoryID == nil || *reloaded.CategoryID != cat.ID {
		t.Errorf("update not persisted: %+v", reloaded)
	}

	if _, err := env.media.Update(ctx, item.ID, MediaUpdate{ClearCategory: true}); err != nil {
		t.Fatal(err)
	}
	reloaded, _ = env.media.GetByID(ctx, item.ID)
	if reloaded.CategoryID != nil {
		t.Error("category not cleared")
	}

	if err := env.media.Delete(ctx, item.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.media.GetByID(ctx, item.ID); !errors.Is(err, ErrMediaNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
	if _, err := os.Stat(item.StoragePath); !os.IsNotExist(err) {
		t.Error("file survived delete")
	}
	if err := env.media.Delete(ctx, item.ID); !errors.Is(err, ErrMediaNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestCounters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.importVideo(t, "clip.mp4", nil)

	for i := 0; i < 2; i++ {
		if err := env.media.RecordDownload(ctx, item.ID); err != nil {
			t.Fatal(err)
		}
	}
	if err := env.media.RecordView(ctx, item.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := env.media.GetByID(ctx, item.ID)
	if got.DownloadCount != 2 || got.ViewCount != 1 {
		t.Errorf("downloads=%d views=%d", got.DownloadCount, got.ViewCount)
	}
}

func ptr[T any](v T) *T { return &v }

func mustAbs(t *testing.T, p string) string {
	t.Helper()
	abs, err := filepath.Abs(p)
	if err != nil {
		t.Fatal(err)
	}
	return abs
}
