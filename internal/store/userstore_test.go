package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Frandy4ever/atlas-mobile-intro/internal/db"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/errs"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/models"
	"github.com/Frandy4ever/atlas-mobile-intro/internal/session"

	"gorm.io/gorm"
)

func newTestConn(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "atlas-test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestUserStore(t *testing.T) (*UserStore, *session.Session, *gorm.DB) {
	t.Helper()
	conn := newTestConn(t)
	sess := session.New()
	return NewUserStore(conn, sess), sess, conn
}

func validRegistration() RegisterData {
	return RegisterData{
		Email:     "jane@example.com",
		Username:  "jane42",
		Password:  "x9z@p2m!",
		FirstName: "Jane",
		LastName:  "Doe",
		Phone:     "5551234567",
	}
}

func strPtr(s string) *string { return &s }

func TestUserStore_InitCreatesBootstrapAdmin(t *testing.T) {
	store, sess, conn := newTestUserStore(t)
	ctx := context.Background()

	if !sess.Loading() {
		t.Fatal("expected session to start in loading state")
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if sess.Loading() {
		t.Fatal("expected Init to finish session loading")
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}

	var count int64
	if err := conn.Model(&models.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one user after double Init, got %d", count)
	}

	admin, err := store.Login(ctx, bootstrapAdminUsername, bootstrapAdminPassword)
	if err != nil {
		t.Fatalf("login as bootstrap admin: %v", err)
	}
	if !admin.IsAdmin {
		t.Fatal("bootstrap account should be an admin")
	}
	if admin.Password == bootstrapAdminPassword {
		t.Fatal("bootstrap password stored in plaintext")
	}
}

func TestUserStore_Register(t *testing.T) {
	store, sess, _ := newTestUserStore(t)
	ctx := context.Background()

	user, err := store.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("expected assigned user id")
	}
	if user.IsAdmin {
		t.Fatal("registered users must not be admins")
	}
	if user.Password == "x9z@p2m!" {
		t.Fatal("password stored in plaintext")
	}
	if user.CreatedAt == 0 {
		t.Fatal("expected createdAt to be stamped")
	}

	current := sess.Current()
	if current == nil || current.ID != user.ID {
		t.Fatal("registration should sign the new account in")
	}
}

func TestUserStore_Register_Validation(t *testing.T) {
	store, _, _ := newTestUserStore(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*RegisterData)
	}{
		{"bad email", func(d *RegisterData) { d.Email = "not-an-email" }},
		{"short username", func(d *RegisterData) { d.Username = "ab" }},
		{"symbol in username", func(d *RegisterData) { d.Username = "jane_doe" }},
		{"weak password", func(d *RegisterData) { d.Password = "short" }},
		{"bad phone", func(d *RegisterData) { d.Phone = "12345" }},
		{"empty first name", func(d *RegisterData) { d.FirstName = "  " }},
		{"empty last name", func(d *RegisterData) { d.LastName = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := validRegistration()
			tc.mutate(&data)
			if _, err := store.Register(ctx, data); !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUserStore_Register_Duplicates(t *testing.T) {
	store, _, _ := newTestUserStore(t)
	ctx := context.Background()

	if _, err := store.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	dupEmail := validRegistration()
	dupEmail.Username = "otherjane"
	if _, err := store.Register(ctx, dupEmail); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}

	dupUsername := validRegistration()
	dupUsername.Email = "other@example.com"
	if _, err := store.Register(ctx, dupUsername); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict on duplicate username, got %v", err)
	}
}

func TestUserStore_Login(t *testing.T) {
	store, sess, _ := newTestUserStore(t)
	ctx := context.Background()

	registered, err := store.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	store.Logout()
	if sess.IsAuthenticated() {
		t.Fatal("expected logout to clear the session")
	}

	byUsername, err := store.Login(ctx, "jane42", "x9z@p2m!")
	if err != nil {
		t.Fatalf("login by username: %v", err)
	}
	if byUsername.ID != registered.ID {
		t.Fatalf("login returned user %d, want %d", byUsername.ID, registered.ID)
	}

	if _, err := store.Login(ctx, "jane@example.com", "x9z@p2m!"); err != nil {
		t.Fatalf("login by email: %v", err)
	}

	if _, err := store.Login(ctx, "jane42", "wrong@1pw"); !errors.Is(err, errs.ErrAuthentication) {
		t.Fatalf("expected authentication error on wrong password, got %v", err)
	}
	if _, err := store.Login(ctx, "nobody", "x9z@p2m!"); !errors.Is(err, errs.ErrAuthentication) {
		t.Fatalf("expected authentication error on unknown account, got %v", err)
	}
}

func TestUserStore_UpdateUser(t *testing.T) {
	store, sess, conn := newTestUserStore(t)
	ctx := context.Background()

	user, err := store.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := store.UpdateUser(ctx, user.ID, UpdateUserData{}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error on empty update, got %v", err)
	}

	if err := store.UpdateUser(ctx, user.ID, UpdateUserData{Phone: strPtr("5559876543")}); err != nil {
		t.Fatalf("update phone: %v", err)
	}
	var reloaded models.User
	if err := conn.First(&reloaded, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if reloaded.Phone != "5559876543" {
		t.Fatalf("phone not updated, got %q", reloaded.Phone)
	}
	if reloaded.Username != "jane42" {
		t.Fatalf("sparse update touched username, got %q", reloaded.Username)
	}

	if err := store.UpdateUser(ctx, user.ID, UpdateUserData{Username: strPtr("jane43")}); err != nil {
		t.Fatalf("update username: %v", err)
	}
	if current := sess.Current(); current == nil || current.Username != "jane43" {
		t.Fatal("expected session to reflect updated username")
	}

	if err := store.UpdateUser(ctx, 9999, UpdateUserData{Phone: strPtr("5550000000")}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}

	other := validRegistration()
	other.Email = "other@example.com"
	other.Username = "otherjane"
	second, err := store.Register(ctx, other)
	if err != nil {
		t.Fatalf("register second user: %v", err)
	}
	if err := store.UpdateUser(ctx, second.ID, UpdateUserData{Username: strPtr("jane43")}); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict on taken username, got %v", err)
	}
}

func TestUserStore_DeleteUser(t *testing.T) {
	store, sess, conn := newTestUserStore(t)
	ctx := context.Background()

	user, err := store.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := store.RequestPasswordReset(ctx, user.Username, user.Email); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}

	if err := store.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if sess.IsAuthenticated() {
		t.Fatal("deleting the signed-in account should clear the session")
	}

	var requests int64
	if err := conn.Model(&models.PasswordResetRequest{}).
		Where("userId = ?", user.ID).Count(&requests).Error; err != nil {
		t.Fatalf("count reset requests: %v", err)
	}
	if requests != 0 {
		t.Fatalf("expected reset requests to be removed with the user, found %d", requests)
	}

	if err := store.DeleteUser(ctx, user.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestUserStore_GetAllUsers(t *testing.T) {
	store, _, _ := newTestUserStore(t)
	ctx := context.Background()

	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := store.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	users, err := store.GetAllUsers(ctx)
	if err != nil {
		t.Fatalf("GetAllUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].Username != "jane42" {
		t.Fatalf("expected newest user first, got %q", users[0].Username)
	}

	cached := store.Users()
	if len(cached) != 2 {
		t.Fatalf("expected cache to hold 2 users, got %d", len(cached))
	}
}

func TestUserStore_GetAllUsers_SameTimestamp(t *testing.T) {
	store, _, conn := newTestUserStore(t)
	ctx := context.Background()

	// Accounts created within the same millisecond still list newest first.
	for _, name := range []string{"walker1", "walker2"} {
		user := models.User{
			Email: name + "@example.com", Username: name, Password: "hash",
			FirstName: "Walker", LastName: "One", Phone: "5550000000",
			CreatedAt: 1700000000000,
		}
		if err := conn.Create(&user).Error; err != nil {
			t.Fatalf("seed user %s: %v", name, err)
		}
	}

	users, err := store.GetAllUsers(ctx)
	if err != nil {
		t.Fatalf("GetAllUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].Username != "walker2" || users[1].Username != "walker1" {
		t.Fatalf("expected id to break the timestamp tie, got %q then %q", users[0].Username, users[1].Username)
	}
}

func TestUserStore_ResetUserPassword(t *testing.T) {
	store, _, _ := newTestUserStore(t)
	ctx := context.Background()

	user, err := store.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	store.Logout()

	if err := store.ResetUserPassword(ctx, user.ID, "weak"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error on weak password, got %v", err)
	}
	if err := store.ResetUserPassword(ctx, 9999, "n3w@P4sz"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}

	if err := store.ResetUserPassword(ctx, user.ID, "n3w@P4sz"); err != nil {
		t.Fatalf("ResetUserPassword: %v", err)
	}
	if _, err := store.Login(ctx, user.Username, "n3w@P4sz"); err != nil {
		t.Fatalf("login with reset password: %v", err)
	}
	if _, err := store.Login(ctx, user.Username, "x9z@p2m!"); !errors.Is(err, errs.ErrAuthentication) {
		t.Fatalf("old password should no longer work, got %v", err)
	}
}

func TestUserStore_PasswordResetWorkflow(t *testing.T) {
	store, _, conn := newTestUserStore(t)
	ctx := context.Background()

	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	user, err := store.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	store.Logout()

	if _, err := store.RequestPasswordReset(ctx, "jane42", "wrong@example.com"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found for mismatched email, got %v", err)
	}

	request, err := store.RequestPasswordReset(ctx, user.Username, user.Email)
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if request.Status != models.ResetStatusPending {
		t.Fatalf("expected pending status, got %q", request.Status)
	}
	if _, err := store.RequestPasswordReset(ctx, user.Username, user.Email); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict on second pending request, got %v", err)
	}

	pending, err := store.GetPendingResetRequests(ctx)
	if err != nil {
		t.Fatalf("GetPendingResetRequests: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != request.ID {
		t.Fatalf("expected the open request in the pending list, got %+v", pending)
	}

	if err := store.ApprovePasswordReset(ctx, request.ID); !errors.Is(err, errs.ErrAuthentication) {
		t.Fatalf("expected authentication error without a session, got %v", err)
	}

	admin, err := store.Login(ctx, bootstrapAdminUsername, bootstrapAdminPassword)
	if err != nil {
		t.Fatalf("login as admin: %v", err)
	}
	if err := store.ApprovePasswordReset(ctx, request.ID); err != nil {
		t.Fatalf("ApprovePasswordReset: %v", err)
	}
	var approved models.PasswordResetRequest
	if err := conn.First(&approved, request.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if approved.Status != models.ResetStatusApproved {
		t.Fatalf("expected approved status, got %q", approved.Status)
	}
	if approved.ApprovedBy == nil || *approved.ApprovedBy != admin.ID {
		t.Fatal("expected approvedBy to record the acting admin")
	}
	if approved.ApprovedAt == nil || *approved.ApprovedAt == 0 {
		t.Fatal("expected approvedAt to be stamped")
	}
	if err := store.ApprovePasswordReset(ctx, request.ID); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict approving twice, got %v", err)
	}

	if err := store.CompletePasswordReset(ctx, user.Username, user.Email, "n3w@P4sz"); err != nil {
		t.Fatalf("CompletePasswordReset: %v", err)
	}
	var completed models.PasswordResetRequest
	if err := conn.First(&completed, request.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if completed.Status != models.ResetStatusCompleted {
		t.Fatalf("expected completed status, got %q", completed.Status)
	}
	if completed.CompletedAt == nil || *completed.CompletedAt == 0 {
		t.Fatal("expected completedAt to be stamped")
	}
	store.Logout()
	if _, err := store.Login(ctx, user.Username, "n3w@P4sz"); err != nil {
		t.Fatalf("login with reset password: %v", err)
	}

	second, err := store.RequestPasswordReset(ctx, user.Username, user.Email)
	if err != nil {
		t.Fatalf("second RequestPasswordReset: %v", err)
	}
	if err := store.CancelPasswordReset(ctx, second.ID); err != nil {
		t.Fatalf("CancelPasswordReset: %v", err)
	}
	var cancelled models.PasswordResetRequest
	if err := conn.First(&cancelled, second.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if cancelled.Status != models.ResetStatusCancelled {
		t.Fatalf("expected cancelled status, got %q", cancelled.Status)
	}
	if err := store.CancelPasswordReset(ctx, second.ID); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict cancelling twice, got %v", err)
	}
}
