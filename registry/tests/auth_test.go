package tests

import (
	"errors"
	"mossi_registry/registry/auth"
	"mossi_registry/registry/schema"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestLoginSetsSessionCookie(t *testing.T) {
	env := setupTestEnv(t)
	c := env.newClient()

	var data struct {
		Success bool `json:"success"`
		User    struct {
			Id    uint   `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	res, err := c.Post("/api/auth/login").Json(loginInfo{Email: adminEmail, Password: adminPassword}).Do(&data)
	if err != nil {
		t.Fatal(err)
	}

	if !data.Success || data.User.Email != adminEmail || data.User.Id == 0 {
		t.Fatalf("invalid login response %+v", data)
	}

	cookie := sessionCookie(res)
	if cookie == nil {
		t.Fatal("session cookie not set")
	}
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode || cookie.Path != "/" || cookie.Secure {
		t.Fatalf("invalid cookie attributes %+v", cookie)
	}
	if cookie.MaxAge != int((7 * 24 * time.Hour).Seconds()) {
		t.Fatalf("invalid cookie max age %d", cookie.MaxAge)
	}

	if !strings.Contains(env.audit.String(), `"event":"login"`) {
		t.Fatal("login was not audit logged")
	}
}

func TestLoginFailures(t *testing.T) {
	env := setupTestEnv(t)
	c := env.newClient()

	for _, login := range []loginInfo{
		{Email: adminEmail, Password: "wrong_password"},
		{Email: "unknown@mossi.local", Password: adminPassword},
	} {
		res, err := c.Post("/api/auth/login").Json(login).Do(nil)
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("login with %v should be unauthorized, got %v", login.Email, err)
		}
		if msg := errorMessage(err); msg != "Invalid credentials" {
			t.Fatalf("invalid error message '%v'", msg)
		}
		if sessionCookie(res) != nil {
			t.Fatal("failed login should not set a cookie")
		}
	}

	_, err := c.Post("/api/auth/login").Json(loginInfo{Email: adminEmail}).Do(nil)
	if statusOf(err) != http.StatusBadRequest || errorMessage(err) != "Email and password are required" {
		t.Fatalf("expected bad request for missing password, got %v", err)
	}

	_, err = c.Post("/api/auth/login").Body(strings.NewReader("{not json")).Do(nil)
	if statusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected bad request for invalid body, got %v", err)
	}
}

func TestMeAndLogout(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	info, err := admin.me()
	if err != nil {
		t.Fatal(err)
	}
	if info.User.Email != adminEmail || info.User.CreatedAt.IsZero() {
		t.Fatalf("invalid current admin %+v", info)
	}

	res, err := admin.logout()
	if err != nil {
		t.Fatal(err)
	}
	cleared := sessionCookie(res)
	if cleared == nil || cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("logout should clear the session cookie, got %+v", cleared)
	}

	anonymous := env.newClient()
	if _, err := anonymous.me(); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("me without a session should be unauthorized, got %v", err)
	}
}

func TestMutationsRequireSession(t *testing.T) {
	env := setupTestEnv(t)
	c := env.newClient()

	if _, err := c.createArtwork(artworkFields{Code: "MOSS-0001", Name: "Forest Harmony", ImageUrl: "/uploads/demo.jpg"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("create without session should be unauthorized, got %v", err)
	}
	if _, err := c.updateArtwork(1, artworkFields{Code: "MOSS-0001", Name: "x"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("update without session should be unauthorized, got %v", err)
	}
	if err := c.deleteArtwork(1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("delete without session should be unauthorized, got %v", err)
	}
	if _, err := c.listArtworks(nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("list without session should be unauthorized, got %v", err)
	}

	if count := env.artworkCount(); count != 0 {
		t.Fatalf("expected no artworks, found %d", count)
	}
}

func TestInvalidSessionTokens(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	var user schema.AdminUser
	if err := env.db.First(&user, "email = ?", adminEmail).Error; err != nil {
		t.Fatal(err)
	}

	expired, err := auth.NewJwtManager(testSecret, -time.Hour).CreateSessionJwt(user)
	if err != nil {
		t.Fatal(err)
	}
	forged, err := auth.NewJwtManager([]byte("some other secret"), time.Hour).CreateSessionJwt(user)
	if err != nil {
		t.Fatal(err)
	}

	for name, token := range map[string]string{"expired": expired, "forged": forged, "garbage": "not.a.jwt"} {
		c := env.newClient()
		c.session = &http.Cookie{Name: auth.SessionCookieName, Value: token}
		if _, err := c.me(); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%v token should be unauthorized, got %v", name, err)
		}
	}

	bearer := env.newClient()
	if _, err := bearer.Get("/api/auth/me").Header("Authorization", "Bearer "+admin.session.Value).Do(nil); err != nil {
		t.Fatalf("bearer token should be accepted: %v", err)
	}

	if err := env.db.Delete(&schema.AdminUser{}, user.Id).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := admin.me(); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("token of a deleted admin should be unauthorized, got %v", err)
	}
}

func TestLoginRateLimit(t *testing.T) {
	variables := defaultTestVariables()
	variables.LoginRateLimit = 2
	env := setupTestEnvWithVariables(t, variables)
	c := env.newClient()

	for i := 0; i < 2; i++ {
		if _, err := c.Post("/api/auth/login").Json(loginInfo{Email: adminEmail, Password: "wrong"}).Do(nil); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	}

	_, err := c.Post("/api/auth/login").Json(loginInfo{Email: adminEmail, Password: adminPassword}).Do(nil)
	if statusOf(err) != http.StatusTooManyRequests {
		t.Fatalf("expected login to be rate limited, got %v", err)
	}
}
