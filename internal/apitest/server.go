package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/atlas-tui/atlas/internal/countries"
)

type account struct {
	user     countries.User
	password string
}

type failure struct {
	status  int
	message string
}

// API is an in-memory implementation of the countries backend. It is safe
// for concurrent use.
type API struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	router chi.Router

	mu        sync.Mutex
	countries []countries.Country
	accounts  map[string]*account // by email
	favorites map[string][]countries.Favorite
	failures  map[string][]failure // "METHOD /path" -> queued failures
	requests  []string
}

// Option customizes an API.
type Option func(*API)

// WithSecret sets the HS256 signing key.
func WithSecret(secret string) Option {
	return func(a *API) { a.secret = []byte(secret) }
}

// WithTokenTTL sets how long issued tokens stay valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(a *API) { a.ttl = ttl }
}

// WithClock overrides time.Now for token issue and verification.
func WithClock(now func() time.Time) Option {
	return func(a *API) { a.now = now }
}

// NewAPI builds an API serving data.
func NewAPI(data []countries.Country, opts ...Option) *API {
	a := &API{
		secret:    []byte("atlas-dev-secret"),
		ttl:       24 * time.Hour,
		now:       time.Now,
		countries: append([]countries.Country(nil), data...),
		accounts:  make(map[string]*account),
		favorites: make(map[string][]countries.Favorite),
		failures:  make(map[string][]failure),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.router = a.routes()
	return a
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *API) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(a.record)
	r.Use(a.injectFailures)

	r.Route("/api", func(r chi.Router) {
		r.Route("/countries", func(r chi.Router) {
			r.Get("/all", a.listCountries)
			r.Get("/{kind}/{query}", a.searchCountries)
		})
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", a.login)
			r.Post("/register", a.register)
			r.With(a.authenticate).Get("/me", a.me)
		})
		r.Route("/favorites", func(r chi.Router) {
			r.Use(a.authenticate)
			r.Get("/", a.listFavorites)
			r.Post("/", a.addFavorite)
			r.Delete("/{code}", a.removeFavorite)
		})
	})
	return r
}

// AddUser registers an account directly and returns it.
func (a *API) AddUser(username, email, password string) countries.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addUserLocked(username, email, password)
}

func (a *API) addUserLocked(username, email, password string) countries.User {
	u := countries.User{ID: uuid.NewString(), Username: username, Email: strings.ToLower(email)}
	a.accounts[u.Email] = &account{user: u, password: password}
	return u
}

// IssueToken signs a token for userID that expires after ttl.
func (a *API) IssueToken(userID string, ttl time.Duration) string {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// Fail queues a failure for the next request to method and path.
func (a *API) Fail(method, path string, status int, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := method + " " + path
	a.failures[key] = append(a.failures[key], failure{status: status, message: message})
}

// Requests returns "METHOD /path?query" for every request served so far.
func (a *API) Requests() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.requests...)
}

// Favorites returns the stored favorites for userID.
func (a *API) Favorites(userID string) []countries.Favorite {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]countries.Favorite(nil), a.favorites[userID]...)
}

// Server is an API listening on a loopback httptest server.
type Server struct {
	*API
	*httptest.Server
}

// New starts an API for the duration of the test.
func New(t testing.TB, data []countries.Country, opts ...Option) *Server {
	t.Helper()
	api := NewAPI(data, opts...)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return &Server{API: api, Server: srv}
}

func (a *API) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry := r.Method + " " + r.URL.EscapedPath()
		if r.URL.RawQuery != "" {
			entry += "?" + r.URL.RawQuery
		}
		a.mu.Lock()
		a.requests = append(a.requests, entry)
		a.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (a *API) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		a.mu.Lock()
		queue := a.failures[key]
		var f *failure
		if len(queue) > 0 {
			f = &queue[0]
			a.failures[key] = queue[1:]
		}
		a.mu.Unlock()
		if f != nil {
			writeMessage(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

func withUser(ctx context.Context, u countries.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func userFrom(ctx context.Context) countries.User {
	u, _ := ctx.Value(ctxKey{}).(countries.User)
	return u
}

func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeMessage(w, http.StatusUnauthorized, "No token, authorization denied")
			return
		}
		var claims jwt.RegisteredClaims
		_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
			return a.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Token is not valid")
			return
		}
		user, found := a.userByID(claims.Subject)
		if !found {
			writeMessage(w, http.StatusUnauthorized, "Token is not valid")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func (a *API) userByID(id string) (countries.User, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, acct := range a.accounts {
		if acct.user.ID == id {
			return acct.user, true
		}
	}
	return countries.User{}, false
}

func (a *API) listCountries(w http.ResponseWriter, r *http.Request) {
	page := atoiDefault(r.URL.Query().Get("page"), 1)
	limit := atoiDefault(r.URL.Query().Get("limit"), 10)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	a.mu.Lock()
	start := (page - 1) * limit
	var out []countries.Country
	if start < len(a.countries) {
		end := min(start+limit, len(a.countries))
		out = append(out, a.countries[start:end]...)
	}
	a.mu.Unlock()

	if out == nil {
		out = []countries.Country{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) searchCountries(w http.ResponseWriter, r *http.Request) {
	kind := countries.FilterKind(chi.URLParam(r, "kind"))
	query, err := url.PathUnescape(chi.URLParam(r, "query"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid query")
		return
	}
	query = strings.TrimSpace(query)
	if !kind.Valid() {
		writeMessage(w, http.StatusNotFound, "Unknown filter")
		return
	}

	a.mu.Lock()
	var out []countries.Country
	for _, c := range a.countries {
		if matches(c, kind, query) {
			out = append(out, c)
		}
	}
	a.mu.Unlock()

	if len(out) == 0 {
		writeMessage(w, http.StatusNotFound, "No countries found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// fold lowercases s and strips accents so "bresil" finds "Brésil".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func matches(c countries.Country, kind countries.FilterKind, query string) bool {
	q := fold(query)
	contains := func(s string) bool { return strings.Contains(fold(s), q) }
	switch kind {
	case countries.FilterName:
		return contains(c.Name.Common) || contains(c.Name.Official)
	case countries.FilterCode:
		return strings.EqualFold(c.CCA3, query) || strings.EqualFold(c.CCA2, query)
	case countries.FilterLanguage:
		for _, lang := range c.Languages {
			if contains(lang) {
				return true
			}
		}
	case countries.FilterRegion:
		return strings.EqualFold(c.Region, query)
	case countries.FilterSubregion:
		return strings.EqualFold(c.Subregion, query)
	case countries.FilterCapital:
		for _, capital := range c.Capital {
			if contains(capital) {
				return true
			}
		}
	case countries.FilterTranslation:
		for _, tr := range c.Translations {
			if contains(tr.Common) || contains(tr.Official) {
				return true
			}
		}
	}
	return false
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var creds countries.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	a.mu.Lock()
	acct, ok := a.accounts[strings.ToLower(strings.TrimSpace(creds.Email))]
	a.mu.Unlock()
	if !ok || acct.password != creds.Password {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, countries.AuthResponse{
		Token: a.IssueToken(acct.user.ID, a.ttl),
		User:  acct.user,
	})
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var reg countries.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(reg.Username) == "" || strings.TrimSpace(reg.Email) == "" || reg.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Please provide username, email and password")
		return
	}

	a.mu.Lock()
	if _, exists := a.accounts[strings.ToLower(reg.Email)]; exists {
		a.mu.Unlock()
		writeMessage(w, http.StatusConflict, "User already exists")
		return
	}
	user := a.addUserLocked(reg.Username, reg.Email, reg.Password)
	a.mu.Unlock()

	writeJSON(w, http.StatusCreated, countries.AuthResponse{
		Token: a.IssueToken(user.ID, a.ttl),
		User:  user,
	})
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()))
}

func (a *API) listFavorites(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	favs := a.Favorites(user.ID)
	if favs == nil {
		favs = []countries.Favorite{}
	}
	writeJSON(w, http.StatusOK, favs)
}

func (a *API) addFavorite(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	var fav countries.Favorite
	if err := json.NewDecoder(r.Body).Decode(&fav); err != nil || strings.TrimSpace(fav.Code) == "" {
		writeMessage(w, http.StatusBadRequest, "Country code is required")
		return
	}
	fav.Code = strings.ToUpper(strings.TrimSpace(fav.Code))

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, existing := range a.favorites[user.ID] {
		if existing.Code == fav.Code {
			writeMessage(w, http.StatusBadRequest, "Country already in favorites")
			return
		}
	}
	a.favorites[user.ID] = append(a.favorites[user.ID], fav)
	writeJSON(w, http.StatusCreated, fav)
}

func (a *API) removeFavorite(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	code, err := url.PathUnescape(chi.URLParam(r, "code"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid code")
		return
	}
	code = strings.ToUpper(code)

	a.mu.Lock()
	defer a.mu.Unlock()
	favs := a.favorites[user.ID]
	for i, f := range favs {
		if f.Code == code {
			a.favorites[user.ID] = append(favs[:i:i], favs[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Removed from favorites"})
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Favorite not found")
}

func atoiDefault(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
