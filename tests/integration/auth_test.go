package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAuth_RegisterLoginRefresh(t *testing.T) {
	app := setupApp(t)

	// Register
	rec := app.request("POST", "/api/v1/auth/register",
		`{"email":"olga@test.com","password":"password123","first_name":"Olga","last_name":"Test"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	if result["access_token"] == "" || result["refresh_token"] == "" {
		t.Fatal("expected both tokens in register response")
	}

	// Duplicate email rejected
	rec = app.request("POST", "/api/v1/auth/register",
		`{"email":"olga@test.com","password":"password456","first_name":"Other","last_name":"User"}`, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_EMAIL")

	// Login
	rec = app.request("POST", "/api/v1/auth/login",
		`{"email":"olga@test.com","password":"password123"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	login := parseJSON(t, rec)
	accessToken := login["access_token"].(string)
	refreshToken := login["refresh_token"].(string)

	// Wrong password rejected
	rec = app.request("POST", "/api/v1/auth/login",
		`{"email":"olga@test.com","password":"wrong"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}

	// Profile with the access token
	rec = app.request("GET", "/api/v1/profile", "", accessToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile failed: %d %s", rec.Code, rec.Body.String())
	}
	user := parseJSON(t, rec)["user"].(map[string]interface{})
	if user["email"] != "olga@test.com" {
		t.Errorf("expected profile email olga@test.com, got %v", user["email"])
	}

	// Profile without a token is rejected
	rec = app.request("GET", "/api/v1/profile", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	// Refresh rotates the token pair
	rec = app.request("POST", "/api/v1/auth/refresh",
		fmt.Sprintf(`{"refresh_token":%q}`, refreshToken), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh failed: %d %s", rec.Code, rec.Body.String())
	}
	refreshed := parseJSON(t, rec)
	newRefresh := refreshed["refresh_token"].(string)

	// The old refresh token no longer matches the stored hash
	rec = app.request("POST", "/api/v1/auth/refresh",
		fmt.Sprintf(`{"refresh_token":%q}`, refreshToken), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for rotated-out refresh token, got %d", rec.Code)
	}

	// The new one works
	rec = app.request("POST", "/api/v1/auth/refresh",
		fmt.Sprintf(`{"refresh_token":%q}`, newRefresh), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh with rotated token failed: %d %s", rec.Code, rec.Body.String())
	}
}
