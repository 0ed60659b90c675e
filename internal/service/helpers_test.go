package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"familyvault/mediahub/internal/config"
	"familyvault/mediahub/internal/model"
	"familyvault/mediahub/internal/repository"
	"familyvault/mediahub/internal/testutil"
	jwtpkg "familyvault/mediahub/pkg/jwt"
)

type sentMail struct {
	to, subject, body string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
	// flush waits for background deliveries before messages is read.
	flush func()
}

func (r *recordingSender) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMail{to: to, subject: subject, body: body})
	return r.err
}

func (r *recordingSender) messages() []sentMail {
	if r.flush != nil {
		r.flush()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMail(nil), r.sent...)
}

type testEnv struct {
	db           *gorm.DB
	mail         *recordingSender
	users        repository.UserRepository
	invitations  InvitationService
	permissions  PermissionService
	categories   CategoryService
	media        MediaService
	registration RegistrationService
	auth         AuthService
	mediaCfg     config.MediaConfig
	admin        *model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	logger := zap.NewNop()
	mail := &recordingSender{}
	notifier := NewNotifier(mail, logger, "Family Media")
	mail.flush = notifier.Wait
	t.Cleanup(notifier.Wait)

	userRepo := repository.NewGormUserRepository(db)
	inviteRepo := repository.NewGormInvitationRepository(db)
	categoryRepo := repository.NewGormCategoryRepository(db)
	mediaRepo := repository.NewGormMediaRepository(db)
	permRepo := repository.NewGormPermissionRepository(db)

	root := t.TempDir()
	mediaCfg := config.MediaConfig{
		RootDir:           root,
		ThumbnailDir:      root + "/thumbnails",
		MaxUploadBytes:    1 << 20,
		ImportConcurrency: 3,
	}

	jwtManager := jwtpkg.NewManager("test-key", "mediahub", time.Minute, time.Hour)
	invitations := NewInvitationService(inviteRepo, notifier, "https://media.example.com/", true)
	media := NewMediaService(mediaRepo, categoryRepo, nil, nil, mediaCfg, logger)
	env := &testEnv{
		db:           db,
		mail:         mail,
		users:        userRepo,
		invitations:  invitations,
		permissions:  NewPermissionService(permRepo, categoryRepo, userRepo, invitations, media),
		categories:   NewCategoryService(categoryRepo),
		media:        media,
		registration: NewRegistrationService(invitations, userRepo, repository.NewGormTransactor(db), notifier, logger),
		auth:         NewAuthService(userRepo, repository.NewMemorySessionStore(), jwtManager, logger),
		mediaCfg:     mediaCfg,
	}
	env.admin = env.createUser(t, "admin@example.com", model.RoleAdmin)
	return env
}

func (e *testEnv) createUser(t *testing.T, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		Email:        email,
		Username:     uuid.NewString()[:8],
		PasswordHash: "x",
		Role:         role,
		Status:       model.UserStatusActive,
	}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *testEnv) createCategory(t *testing.T, name string) *model.Category {
	t.Helper()
	c, err := e.categories.Create(context.Background(), name, "", nil)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

// importVideo places a small mp4 under the media root and imports it.
func (e *testEnv) importVideo(t *testing.T, name string, categoryID *uuid.UUID) *model.MediaItem {
	t.Helper()
	path := testutil.WriteFile(t, e.mediaCfg.RootDir, name, testutil.MP4Bytes(4096))
	item, err := e.media.Import(context.Background(), ImportInput{
		Path:       path,
		CategoryID: categoryID,
		UploadedBy: e.admin.ID,
	})
	if err != nil {
		t.Fatalf("import %s: %v", name, err)
	}
	return item
}
