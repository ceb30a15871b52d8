package services

import (
	"testing"

	"triptribe/internal/testutil"
)

func TestCreateUser(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		f := newTestFixture(t)
		defer f.teardown(t)
		svc := NewUserService(f.db)

		user, err := svc.CreateUser("Alice@Example.com", "secret123", "Alice", "Smith")
		testutil.AssertNoError(t, err)

		if user.Email != "alice@example.com" {
			t.Errorf("expected lowercased email, got %s", user.Email)
		}
		if user.Password == "secret123" {
			t.Error("password should be stored hashed")
		}
		if !svc.VerifyPassword(user, "secret123") {
			t.Error("expected password to verify")
		}
		if svc.VerifyPassword(user, "wrong") {
			t.Error("expected wrong password to fail verification")
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		f := newTestFixture(t)
		defer f.teardown(t)
		svc := NewUserService(f.db)

		_, err := svc.CreateUser("dup@example.com", "secret123", "", "")
		testutil.AssertNoError(t, err)
		_, err = svc.CreateUser("dup@example.com", "secret456", "", "")
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("missing_fields", func(t *testing.T) {
		f := newTestFixture(t)
		defer f.teardown(t)
		svc := NewUserService(f.db)

		_, err := svc.CreateUser("", "secret", "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUserByID(t *testing.T) {
	f := newTestFixture(t)
	defer f.teardown(t)
	svc := NewUserService(f.db)
	user := f.user(t)

	got, err := svc.GetUserByID(user.ID)
	testutil.AssertNoError(t, err)
	if got.Email != user.Email {
		t.Errorf("expected email %s, got %s", user.Email, got.Email)
	}

	_, err = svc.GetUserByID("00000000-0000-0000-0000-000000000000")
	testutil.AssertAppError(t, err, "USER_NOT_FOUND")
}

func TestRefreshTokenHash(t *testing.T) {
	f := newTestFixture(t)
	defer f.teardown(t)
	svc := NewUserService(f.db)
	user := f.user(t)

	testutil.AssertNoError(t, svc.StoreRefreshTokenHash(user.ID, "deadbeef"))

	hash, err := svc.GetRefreshTokenHash(user.ID)
	testutil.AssertNoError(t, err)
	if hash != "deadbeef" {
		t.Errorf("expected stored hash, got %s", hash)
	}
}
