// integration_test.go
package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"

	"github.com/markb/glogin/internal/auth"
	"github.com/markb/glogin/internal/db"
	"github.com/markb/glogin/internal/oauth"
	"github.com/markb/glogin/internal/server"
	"github.com/markb/glogin/internal/store"
)

var sessionPattern = regexp.MustCompile(`"glogin\.session",\s*"([^"]+)"`)

// newGoogle serves a userinfo endpoint that knows a single code.
func newGoogle(t *testing.T, code, id, name string) *httptest.Server {
	t.Helper()
	g := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != code {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_token"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": id, "name": name})
	}))
	t.Cleanup(g.Close)
	return g
}

func newApp(t *testing.T, google *httptest.Server) *server.Server {
	t.Helper()
	path := t.TempDir() + "/test.db"
	database, err := db.New(path)
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.RunMigrations(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	st := store.New(database.Privileged())
	provider := oauth.NewGoogleProvider(oauth.Config{
		ClientID:    "abc",
		RedirectURL: "http://localhost:8080/oauth2callback",
		ValidateURL: google.URL,
	}, google.Client())

	return server.New(server.Deps{
		Store:    st,
		Provider: provider,
		Sessions: auth.NewService(st, "test-secret-key-min-32-characters", "http://localhost:8080/auth/v1"),
	}, server.Options{})
}

func getUser(t *testing.T, srv *server.Server, token string) map[string]any {
	t.Helper()
	req := httptest.NewRequest("GET", "/auth/v1/user", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("get user failed: %d %s", w.Code, w.Body.String())
	}
	var user map[string]any
	json.Unmarshal(w.Body.Bytes(), &user)
	return user
}

func TestFullBrowserLoginFlow(t *testing.T) {
	google := newGoogle(t, "C", "108", "Ada Lovelace")
	srv := newApp(t, google)

	// 1. Login page links to /authorize
	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("index failed: %d", w.Code)
	}

	// 2. Authorize redirects to Google
	req = httptest.NewRequest("GET", "/authorize", nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusFound {
		t.Fatalf("authorize failed: %d %s", w.Code, w.Body.String())
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad redirect: %v", err)
	}
	if got := loc.Query().Get("redirect_uri"); got != "http://localhost:8080/oauth2callback" {
		t.Fatalf("unexpected redirect_uri %q", got)
	}
	state := loc.Query().Get("state")

	// 3. Google sends the browser back with a code
	req = httptest.NewRequest("GET", "/oauth2callback?code=C&state="+url.QueryEscape(state), nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("callback failed: %d %s", w.Code, w.Body.String())
	}
	m := sessionPattern.FindStringSubmatch(w.Body.String())
	if m == nil {
		t.Fatalf("callback page carries no session: %s", w.Body.String())
	}

	// 4. The main page's session resolves to the linked account
	user := getUser(t, srv, m[1])
	if user["first_name"] != "Ada" || user["last_name"] != "Lovelace" {
		t.Fatalf("unexpected user: %v", user)
	}

	t.Log("Full browser login flow completed successfully")
}

func TestFullFunctionLoginFlow(t *testing.T) {
	google := newGoogle(t, "C", "108", "Ada Lovelace")
	srv := newApp(t, google)

	call := func(body string) (int, server.FunctionResponse) {
		req := httptest.NewRequest("POST", "/functions/v1/accessGoogleUser", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		var resp server.FunctionResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		return w.Code, resp
	}

	// 1. First login creates the account
	code, first := call(`{"code":"C","email":"ada@example.com"}`)
	if code != http.StatusOK {
		t.Fatalf("first login failed: %d %s", code, first.Error)
	}

	// 2. Second login reuses it
	code, second := call(`{"code":"C"}`)
	if code != http.StatusOK {
		t.Fatalf("second login failed: %d %s", code, second.Error)
	}
	if getUser(t, srv, first.Result)["id"] != getUser(t, srv, second.Result)["id"] {
		t.Fatal("repeat login resolved to a different account")
	}

	// 3. A rejected code surfaces the provider error
	code, failed := call(`{"code":"WRONG"}`)
	if code != http.StatusBadGateway || failed.Error == "" {
		t.Fatalf("expected provider error, got %d %+v", code, failed)
	}

	t.Log("Full function login flow completed successfully")
}
