package countries

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != defaultBaseURL {
		t.Fatalf("url = %q, want %q", u.String(), defaultBaseURL)
	}

	u, err = parseBaseURL("example.com:1234/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Host != "example.com:1234" {
		t.Fatalf("url = %q, want http://example.com:1234", u.String())
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestClient_ListAndSearchEncodePaths(t *testing.T) {
	t.Parallel()

	var gotListQuery, gotSearchPath, gotRequestID, gotUserAgent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = r.Header.Get(headerRequestID)
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/countries/all":
			gotListQuery = r.URL.RawQuery
			_ = json.NewEncoder(w).Encode([]Country{{CCA3: "FRA"}, {CCA3: "DEU"}})
		case strings.HasPrefix(r.URL.Path, "/api/countries/"):
			gotSearchPath = r.URL.EscapedPath()
			_ = json.NewEncoder(w).Encode([]Country{{CCA3: "USA"}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	page, err := c.ListCountries(ctx, 3, 5)
	if err != nil {
		t.Fatalf("ListCountries returned error: %v", err)
	}
	if len(page) != 2 || page[0].Code() != "FRA" {
		t.Fatalf("ListCountries = %#v, want FRA, DEU", page)
	}
	if gotListQuery != "limit=5&page=3" {
		t.Fatalf("list query = %q, want limit=5&page=3", gotListQuery)
	}

	results, err := c.SearchCountries(ctx, FilterName, "United States")
	if err != nil {
		t.Fatalf("SearchCountries returned error: %v", err)
	}
	if len(results) != 1 || results[0].Code() != "USA" {
		t.Fatalf("SearchCountries = %#v, want USA", results)
	}
	if gotSearchPath != "/api/countries/name/United%20States" {
		t.Fatalf("search path = %q, want escaped query", gotSearchPath)
	}
	if gotRequestID == "" {
		t.Fatalf("X-Request-ID header missing")
	}
	if !strings.HasPrefix(gotUserAgent, "atlas/") {
		t.Fatalf("User-Agent = %q, want atlas/*", gotUserAgent)
	}
}

func TestClient_SearchRejectsBadInput(t *testing.T) {
	c, err := NewClient("127.0.0.1:1")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := c.SearchCountries(context.Background(), FilterKind("planet"), "x"); err == nil {
		t.Fatalf("SearchCountries with unknown kind returned nil error")
	}
	if _, err := c.SearchCountries(context.Background(), FilterName, "   "); err == nil {
		t.Fatalf("SearchCountries with empty query returned nil error")
	}
}

func TestClient_AttachesBearerTokenPerRequest(t *testing.T) {
	t.Parallel()

	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	t.Cleanup(server.Close)

	token := &mutableToken{}
	c, err := NewClient(server.URL, WithTokenSource(token))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if _, err := c.ListFavorites(context.Background()); err != nil {
		t.Fatalf("ListFavorites returned error: %v", err)
	}
	token.value = "abc"
	if _, err := c.ListFavorites(context.Background()); err != nil {
		t.Fatalf("ListFavorites returned error: %v", err)
	}

	if len(seen) != 2 || seen[0] != "" || seen[1] != "Bearer abc" {
		t.Fatalf("Authorization headers = %q, want [\"\" \"Bearer abc\"]", seen)
	}
}

func TestClient_AuthAndFavoriteMutations(t *testing.T) {
	t.Parallel()

	var added Favorite
	var deletedPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/auth/login":
			var creds Credentials
			_ = json.NewDecoder(r.Body).Decode(&creds)
			if creds.Password != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(AuthResponse{Token: "tok", User: User{Email: creds.Email}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/auth/register":
			_, _ = w.Write([]byte(`{"user":{"email":"x"}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/favorites":
			_ = json.NewDecoder(r.Body).Decode(&added)
			_ = json.NewEncoder(w).Encode(added)
		case r.Method == http.MethodDelete:
			deletedPath = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	resp, err := c.Login(ctx, Credentials{Email: "a@b.c", Password: "secret"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if resp.Token != "tok" || resp.User.Email != "a@b.c" {
		t.Fatalf("Login = %#v, want token tok", resp)
	}

	_, err = c.Login(ctx, Credentials{Email: "a@b.c", Password: "nope"})
	if !IsUnauthorized(err) {
		t.Fatalf("Login error = %v, want unauthorized", err)
	}
	if UserMessage(err) != "Invalid credentials" {
		t.Fatalf("UserMessage = %q, want server message", UserMessage(err))
	}

	if _, err := c.Register(ctx, Registration{Email: "x"}); err == nil {
		t.Fatalf("Register without token returned nil error")
	}

	fav := FavoriteFrom(Country{CCA3: "fra", Name: CountryName{Common: "France"}, Flags: Flags{PNG: "fr.png"}})
	got, err := c.AddFavorite(ctx, fav)
	if err != nil {
		t.Fatalf("AddFavorite returned error: %v", err)
	}
	if got != (Favorite{Code: "FRA", Name: "France", Flag: "fr.png"}) || added != got {
		t.Fatalf("AddFavorite = %#v (server saw %#v), want FRA payload", got, added)
	}

	if err := c.RemoveFavorite(ctx, "FRA"); err != nil {
		t.Fatalf("RemoveFavorite returned error: %v", err)
	}
	if deletedPath != "/api/favorites/FRA" {
		t.Fatalf("delete path = %q, want /api/favorites/FRA", deletedPath)
	}
	if err := c.RemoveFavorite(ctx, " "); err == nil {
		t.Fatalf("RemoveFavorite with empty code returned nil error")
	}
}

func TestClient_HTTPErrorAndDecodeError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/me":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("{not-json"))
		case "/api/favorites":
			http.Error(w, "nope", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.Me(context.Background())
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("Me error = %v, want decode response error", err)
	}

	_, err = c.ListFavorites(context.Background())
	if err == nil || !strings.Contains(err.Error(), "returned status 500") {
		t.Fatalf("ListFavorites error = %v, want status 500 error", err)
	}
	if UserMessage(err) != http.StatusText(http.StatusInternalServerError) {
		t.Fatalf("UserMessage = %q, want generic status text", UserMessage(err))
	}
}

type mutableToken struct {
	value string
}

func (m *mutableToken) Token() string { return m.value }
