package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"familyvault/mediahub/internal/model"
)

func zapNop() *zap.Logger { return zap.NewNop() }

func registerMember(t *testing.T, env *testEnv, email, password string) *model.Principal {
	t.Helper()
	ctx := context.Background()
	inv, err := env.invitations.CreateInvitation(ctx, email, env.admin.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	p, err := env.registration.Register(ctx, RegisterInput{Email: email, Password: password, Code: inv.Code})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoginAndResolve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := registerMember(t, env, "kim@example.com", "password123")

	if _, _, err := env.auth.Login(ctx, "kim@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v", err)
	}
	if _, _, err := env.auth.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v", err)
	}

	tokens, user, err := env.auth.Login(ctx, "KIM@example.com", "password123")
	if err != nil {
		t.Fatal(err)
	}
	if user.ID != p.UserID || tokens.TokenType != "Bearer" || tokens.ExpiresIn != 60 {
		t.Errorf("login = %+v, %+v", tokens, user)
	}

	resolved, err := env.auth.ResolvePrincipal(ctx, tokens.AccessToken)
	if err != nil || resolved.UserID != p.UserID || resolved.Role != model.RoleMember {
		t.Fatalf("ResolvePrincipal = %+v, %v", resolved, err)
	}
	if _, err := env.auth.ResolvePrincipal(ctx, tokens.RefreshToken); err == nil {
		t.Error("refresh token accepted as access token")
	}

	// The role comes from the store, not the token.
	user.Role = model.RoleNone
	if err := env.users.Update(ctx, user); err != nil {
		t.Fatal(err)
	}
	resolved, _ = env.auth.ResolvePrincipal(ctx, tokens.AccessToken)
	if resolved.Role != model.RoleNone {
		t.Errorf("stale role %q", resolved.Role)
	}

	user.Status = model.UserStatusDisabled
	if err := env.users.Update(ctx, user); err != nil {
		t.Fatal(err)
	}
	if _, err := env.auth.ResolvePrincipal(ctx, tokens.AccessToken); !errors.Is(err, ErrUserDisabled) {
		t.Errorf("disabled user err = %v", err)
	}
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerMember(t, env, "lee@example.com", "password123")

	tokens, _, err := env.auth.Login(ctx, "lee@example.com", "password123")
	if err != nil {
		t.Fatal(err)
	}
	rotated, err := env.auth.RefreshToken(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.auth.RefreshToken(ctx, tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Errorf("replayed refresh err = %v", err)
	}
	if _, err := env.auth.RefreshToken(ctx, rotated.AccessToken); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Errorf("access token as refresh err = %v", err)
	}

	if err := env.auth.Logout(ctx, rotated.RefreshToken); err != nil {
		t.Fatal(err)
	}
	if _, err := env.auth.RefreshToken(ctx, rotated.RefreshToken); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Errorf("refresh after logout err = %v", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.auth.EnsureAdmin(ctx, "", ""); err != nil {
		t.Errorf("empty bootstrap err = %v", err)
	}
	if err := env.auth.EnsureAdmin(ctx, "root@example.com", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak bootstrap password err = %v", err)
	}
	if err := env.auth.EnsureAdmin(ctx, "root@example.com", "password123"); err != nil {
		t.Fatal(err)
	}
	if _, u, err := env.auth.Login(ctx, "root@example.com", "password123"); err != nil || u.Role != model.RoleAdmin {
		t.Fatalf("bootstrap admin login = %+v, %v", u, err)
	}
	if err := env.auth.EnsureAdmin(ctx, "root@example.com", "password123"); err != nil {
		t.Errorf("repeat bootstrap err = %v", err)
	}

	p := registerMember(t, env, "promote@example.com", "password123")
	if err := env.auth.EnsureAdmin(ctx, "promote@example.com", ""); err != nil {
		t.Fatal(err)
	}
	u, _ := env.users.GetByID(ctx, p.UserID)
	if u.Role != model.RoleAdmin {
		t.Errorf("role after promotion = %q", u.Role)
	}
}
