package repository_test

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"familyvault/mediahub/internal/model"
	"familyvault/mediahub/internal/repository"
	"familyvault/mediahub/internal/testutil"
)

func TestUserExistsCountsSoftDeleted(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewGormUserRepository(db)

	u := &model.User{Email: "gone@example.com", Username: "gone", PasswordHash: "x", Role: model.RoleMember, Status: model.UserStatusActive}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := db.Delete(&model.User{}, "id = ?", u.ID).Error; err != nil {
		t.Fatal(err)
	}

	if _, err := repo.GetByEmail(ctx, "gone@example.com"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("GetByEmail(deleted) = %v, want ErrRecordNotFound", err)
	}
	if ok, err := repo.EmailExists(ctx, "gone@example.com"); err != nil || !ok {
		t.Errorf("EmailExists = %v, %v; want true", ok, err)
	}
	if ok, err := repo.UsernameExists(ctx, "gone"); err != nil || !ok {
		t.Errorf("UsernameExists = %v, %v; want true", ok, err)
	}
	if ok, _ := repo.EmailExists(ctx, "other@example.com"); ok {
		t.Error("EmailExists(unknown) = true")
	}
}

func TestUserUpdateRole(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGormUserRepository(testutil.NewDB(t))

	u := &model.User{Email: "a@example.com", Username: "a", PasswordHash: "x", Role: model.RoleNone, Status: model.UserStatusActive}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatal(err)
	}
	u.Role = model.RoleAdmin
	if err := repo.Update(ctx, u); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", got.Role)
	}
}
