package handler

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"familyvault/mediahub/internal/model"
	"familyvault/mediahub/internal/service"
	"familyvault/mediahub/internal/testutil"
)

// failingCounters serves the catalog normally but cannot record access.
type failingCounters struct {
	service.MediaService
}

var errCounterDown = errors.New("counter store unavailable")

func (failingCounters) RecordView(context.Context, uuid.UUID) error     { return errCounterDown }
func (failingCounters) RecordDownload(context.Context, uuid.UUID) error { return errCounterDown }

func TestGatewayAnonymousGetsUnauthorized(t *testing.T) {
	ts := newTestServer(t)
	item := ts.addVideo("family.mp4", 1000, nil)

	for _, path := range []string{
		"/stream/" + item.ID.String(),
		"/download/" + item.ID.String(),
		"/thumbnail/" + item.ID.String(),
		"/stream/" + uuid.NewString(),
		"/download/" + uuid.NewString(),
		"/stream/not-a-uuid",
	} {
		rec := ts.do(http.MethodGet, path, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", path, rec.Code)
		}
		if rec.Header().Get("WWW-Authenticate") == "" {
			t.Errorf("GET %s has no challenge", path)
		}
	}
}

func TestGatewayRangeRequest(t *testing.T) {
	ts := newTestServer(t)
	member := ts.createUser("m@example.com", "member-password", model.RoleMember)
	item := ts.addVideo("family.mp4", 1000, nil)
	data := testutil.MP4Bytes(1000)

	rec := ts.do(http.MethodGet, "/stream/"+item.ID.String(), nil,
		withToken(ts.token(member)), withHeader("Range", "bytes=100-199"))
	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 100-199/1000" {
		t.Errorf("Content-Range = %q", got)
	}
	if rec.Body.Len() != 100 || string(rec.Body.Bytes()) != string(data[100:200]) {
		t.Errorf("body length %d does not match bytes 100-199", rec.Body.Len())
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q", got)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Disposition"), "inline") {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}

	got, _ := ts.media.GetByID(context.Background(), item.ID)
	if got.ViewCount != 1 || got.DownloadCount != 0 {
		t.Errorf("views=%d downloads=%d", got.ViewCount, got.DownloadCount)
	}
}

func TestGatewayServesWhenCounterFails(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ts := newTestServer(t,
		withLogger(zap.New(core)),
		withGatewayMedia(func(m service.MediaService) service.MediaService { return failingCounters{m} }),
	)
	member := ts.createUser("m@example.com", "member-password", model.RoleMember)
	item := ts.addVideo("family.mp4", 1000, nil)
	data := testutil.MP4Bytes(1000)

	rec := ts.do(http.MethodGet, "/stream/"+item.ID.String(), nil,
		withToken(ts.token(member)), withHeader("Range", "bytes=100-199"))
	if rec.Code != http.StatusPartialContent {
		t.Fatalf("stream = %d, want 206: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 100-199/1000" {
		t.Errorf("Content-Range = %q", got)
	}
	if rec.Body.Len() != 100 || string(rec.Body.Bytes()) != string(data[100:200]) {
		t.Errorf("stream body length %d does not match bytes 100-199", rec.Body.Len())
	}

	rec = ts.do(http.MethodGet, "/download/"+item.ID.String(), nil, withToken(ts.token(member)))
	if rec.Code != http.StatusOK || rec.Body.Len() != 1000 {
		t.Fatalf("download = %d with %d bytes", rec.Code, rec.Body.Len())
	}

	warned := logs.FilterMessage("record media access").All()
	if len(warned) != 2 {
		t.Fatalf("counter warnings = %d, want 2", len(warned))
	}
	for _, e := range warned {
		if e.ContextMap()["media_id"] != item.ID.String() {
			t.Errorf("warning fields = %v", e.ContextMap())
		}
	}

	got, _ := ts.media.GetByID(context.Background(), item.ID)
	if got.ViewCount != 0 || got.DownloadCount != 0 {
		t.Errorf("views=%d downloads=%d, want untouched", got.ViewCount, got.DownloadCount)
	}
}

func TestGatewayFullDownload(t *testing.T) {
	ts := newTestServer(t)
	member := ts.createUser("m@example.com", "member-password", model.RoleMember)
	item := ts.addVideo("family.mp4", 1000, nil)

	rec := ts.do(http.MethodGet, "/download/"+item.ID.String(), nil, withToken(ts.token(member)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Length") != "1000" || rec.Body.Len() != 1000 {
		t.Errorf("length header %q body %d", rec.Header().Get("Content-Length"), rec.Body.Len())
	}
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=family.mp4" {
		t.Errorf("Content-Disposition = %q", got)
	}
	if rec.Header().Get("Accept-Ranges") != "bytes" {
		t.Error("missing Accept-Ranges")
	}

	rec = ts.do(http.MethodHead, "/download/"+item.ID.String(), nil, withToken(ts.token(member)))
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("HEAD status=%d body=%d", rec.Code, rec.Body.Len())
	}

	got, _ := ts.media.GetByID(context.Background(), item.ID)
	if got.DownloadCount != 1 {
		t.Errorf("downloads = %d, want 1 (HEAD must not count)", got.DownloadCount)
	}
}

func TestGatewayUnsatisfiableRange(t *testing.T) {
	ts := newTestServer(t)
	member := ts.createUser("m@example.com", "member-password", model.RoleMember)
	item := ts.addVideo("family.mp4", 1000, nil)

	rec := ts.do(http.MethodGet, "/stream/"+item.ID.String(), nil,
		withToken(ts.token(member)), withHeader("Range", "bytes=5000-"))
	if rec.Code != http.StatusRequestedRangeNotSatisfiable || rec.Header().Get("Content-Range") != "bytes */1000" {
		t.Errorf("status=%d Content-Range=%q", rec.Code, rec.Header().Get("Content-Range"))
	}
}

func TestGatewayCategoryPermissions(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	member := ts.createUser("m@example.com", "member-password", model.RoleMember)
	cat, err := ts.categories.Create(ctx, "Holidays", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	item := ts.addVideo("beach.mp4", 500, &cat.ID)
	path := "/stream/" + item.ID.String()

	if rec := ts.do(http.MethodGet, path, nil, withToken(ts.token(member))); rec.Code != http.StatusForbidden {
		t.Errorf("without grant = %d, want 403", rec.Code)
	}
	if rec := ts.do(http.MethodGet, path, nil, withToken(ts.token(ts.admin))); rec.Code != http.StatusOK {
		t.Errorf("admin = %d, want 200", rec.Code)
	}

	if err := ts.permissions.Grant(ctx, member.ID, cat.ID, ts.admin.ID); err != nil {
		t.Fatal(err)
	}
	if rec := ts.do(http.MethodGet, path, nil, withToken(ts.token(member))); rec.Code != http.StatusOK {
		t.Errorf("with grant = %d, want 200", rec.Code)
	}

	if err := ts.permissions.Revoke(ctx, member.ID, cat.ID); err != nil {
		t.Fatal(err)
	}
	if rec := ts.do(http.MethodGet, path, nil, withToken(ts.token(member))); rec.Code != http.StatusForbidden {
		t.Errorf("after revoke = %d, want 403", rec.Code)
	}
}

func TestGatewayNotFound(t *testing.T) {
	ts := newTestServer(t)
	member := ts.createUser("m@example.com", "member-password", model.RoleMember)
	tok := ts.token(member)
	item := ts.addVideo("gone.mp4", 100, nil)

	for _, path := range []string{"/stream/not-a-uuid", "/download/" + uuid.NewString()} {
		if rec := ts.do(http.MethodGet, path, nil, withToken(tok)); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, rec.Code)
		}
	}

	if err := os.Remove(item.StoragePath); err != nil {
		t.Fatal(err)
	}
	if rec := ts.do(http.MethodGet, "/download/"+item.ID.String(), nil, withToken(tok)); rec.Code != http.StatusNotFound {
		t.Errorf("missing file = %d, want 404", rec.Code)
	}
}

func TestGatewayRejectsAccountWithoutCapability(t *testing.T) {
	ts := newTestServer(t)
	outsider := ts.createUser("o@example.com", "outsider-password", model.RoleNone)
	item := ts.addVideo("family.mp4", 100, nil)

	if rec := ts.do(http.MethodGet, "/stream/"+item.ID.String(), nil, withToken(ts.token(outsider))); rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestGatewaySessionCookieAndThumbnail(t *testing.T) {
	ts := newTestServer(t)
	member := ts.createUser("m@example.com", "member-password", model.RoleMember)
	item := ts.addVideo("family.mp4", 100, nil)
	cookie := withHeader("Cookie", testCookie+"="+ts.token(member))

	if rec := ts.do(http.MethodGet, "/stream/"+item.ID.String(), nil, cookie); rec.Code != http.StatusOK {
		t.Errorf("cookie stream = %d, want 200", rec.Code)
	}

	rec := ts.do(http.MethodGet, "/thumbnail/"+item.ID.String(), nil, cookie)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/jpeg" {
		t.Errorf("thumbnail status=%d type=%q", rec.Code, rec.Header().Get("Content-Type"))
	}

	if rec := ts.do(http.MethodGet, "/stream/"+item.ID.String(), nil, withToken("garbage")); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d, want 401", rec.Code)
	}
}
