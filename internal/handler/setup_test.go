package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"familyvault/mediahub/internal/config"
	"familyvault/mediahub/internal/model"
	"familyvault/mediahub/internal/repository"
	"familyvault/mediahub/internal/service"
	"familyvault/mediahub/internal/testutil"
	"familyvault/mediahub/pkg/crypto"
	jwtpkg "familyvault/mediahub/pkg/jwt"
)

const testCookie = "mediahub_session"

type testServer struct {
	t           *testing.T
	router      *gin.Engine
	jwt         *jwtpkg.Manager
	users       repository.UserRepository
	media       service.MediaService
	permissions service.PermissionService
	categories  service.CategoryService
	invitations service.InvitationService
	mediaCfg    config.MediaConfig
	admin       *model.User
}

type serverOptions struct {
	logger      *zap.Logger
	wrapGateway func(service.MediaService) service.MediaService
}

type serverOpt func(*serverOptions)

func withLogger(logger *zap.Logger) serverOpt {
	return func(o *serverOptions) { o.logger = logger }
}

// withGatewayMedia swaps the MediaService seen by the gateway handler only.
func withGatewayMedia(wrap func(service.MediaService) service.MediaService) serverOpt {
	return func(o *serverOptions) { o.wrapGateway = wrap }
}

func newTestServer(t *testing.T, opts ...serverOpt) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	o := serverOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	db := testutil.NewDB(t)
	logger := o.logger
	root := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test", SessionCookie: testCookie},
		Media: config.MediaConfig{
			RootDir:           root,
			ThumbnailDir:      filepath.Join(root, "thumbnails"),
			MaxUploadBytes:    1 << 20,
			ImportConcurrency: 2,
		},
		PublicBaseURL: "https://media.example.com",
	}

	userRepo := repository.NewGormUserRepository(db)
	inviteRepo := repository.NewGormInvitationRepository(db)
	categoryRepo := repository.NewGormCategoryRepository(db)
	mediaRepo := repository.NewGormMediaRepository(db)
	permRepo := repository.NewGormPermissionRepository(db)
	jwtManager := jwtpkg.NewManager("handler-test", "mediahub", time.Hour, 24*time.Hour)
	notifier := service.NewNotifier(service.NewLogMailSender(logger), logger, "Family Media")
	t.Cleanup(notifier.Wait)

	invitations := service.NewInvitationService(inviteRepo, notifier, cfg.PublicBaseURL, false)
	media := service.NewMediaService(mediaRepo, categoryRepo, nil, nil, cfg.Media, logger)
	permissions := service.NewPermissionService(permRepo, categoryRepo, userRepo, invitations, media)
	categories := service.NewCategoryService(categoryRepo)
	registration := service.NewRegistrationService(invitations, userRepo, repository.NewGormTransactor(db), notifier, logger)
	auth := service.NewAuthService(userRepo, repository.NewMemorySessionStore(), jwtManager, logger)
	gatewayMedia := media
	if o.wrapGateway != nil {
		gatewayMedia = o.wrapGateway(media)
	}

	router := SetupRouter(cfg, logger, auth, permissions, Handlers{
		Auth:    NewAuthHandler(auth, registration, invitations, SessionCookie{Name: testCookie}, logger),
		Admin:   NewAdminHandler(invitations, permissions, categories, logger),
		Media:   NewMediaHandler(media, categories, permissions, cfg.Media.MaxUploadBytes, logger),
		Gateway: NewGatewayHandler(gatewayMedia, permissions, logger),
	})

	ts := &testServer{
		t:           t,
		router:      router,
		jwt:         jwtManager,
		users:       userRepo,
		media:       media,
		permissions: permissions,
		categories:  categories,
		invitations: invitations,
		mediaCfg:    cfg.Media,
	}
	ts.admin = ts.createUser("admin@example.com", "admin-password", model.RoleAdmin)
	return ts
}

func (ts *testServer) createUser(email, password string, role model.Role) *model.User {
	ts.t.Helper()
	hash, err := crypto.HashPassword(password)
	if err != nil {
		ts.t.Fatal(err)
	}
	u := &model.User{
		Email:        email,
		Username:     uuid.NewString()[:12],
		PasswordHash: hash,
		Role:         role,
		Status:       model.UserStatusActive,
	}
	if err := ts.users.Create(context.Background(), u); err != nil {
		ts.t.Fatal(err)
	}
	return u
}

func (ts *testServer) token(u *model.User) string {
	ts.t.Helper()
	tok, err := ts.jwt.GenerateAccessToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		ts.t.Fatal(err)
	}
	return tok
}

// addVideo imports a size-byte mp4 from the media root.
func (ts *testServer) addVideo(name string, size int, categoryID *uuid.UUID) *model.MediaItem {
	ts.t.Helper()
	path := testutil.WriteFile(ts.t, ts.mediaCfg.RootDir, name, testutil.MP4Bytes(size))
	item, err := ts.media.Import(context.Background(), service.ImportInput{
		Path:       path,
		CategoryID: categoryID,
		UploadedBy: ts.admin.ID,
	})
	if err != nil {
		ts.t.Fatal(err)
	}
	return item
}

type reqOpt func(*http.Request)

func withToken(tok string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func withHeader(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func (ts *testServer) do(method, path string, body io.Reader, opts ...reqOpt) *httptest.ResponseRecorder {
	ts.t.Helper()
	req := httptest.NewRequest(method, path, body)
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) doJSON(method, path string, payload any, opts ...reqOpt) *httptest.ResponseRecorder {
	ts.t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		ts.t.Fatal(err)
	}
	return ts.do(method, path, bytes.NewReader(b), append(opts, withHeader("Content-Type", "application/json"))...)
}

// decode unpacks the response envelope's data into out.
func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data %s: %v", env.Data, err)
		}
	}
}
