package gatewayapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/epicrunze/evocable/internal/authn"
	"github.com/epicrunze/evocable/internal/broker"
	"github.com/epicrunze/evocable/internal/config"
	"github.com/epicrunze/evocable/internal/models"
	"github.com/epicrunze/evocable/internal/ratelimit"
	"github.com/epicrunze/evocable/internal/registry"
	"github.com/epicrunze/evocable/internal/signing"
)

// newTestServer wires a *Server against an in-process SQLite database so
// these scenario tests exercise the real gin.Engine without a live
// Postgres or Redis, per SPEC_FULL.md's test-tooling plan. The broker
// points at an unreachable Redis URL — every call site that pushes to it
// tolerates a push failure per spec.md's back-pressure policy, so the
// handlers under test still complete.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Book{}, &models.BookChunk{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	b, err := broker.New("redis://127.0.0.1:1")
	if err != nil {
		t.Fatalf("broker.New: %v", err)
	}

	dir := t.TempDir()
	cfg := config.Config{
		SecretKey:           "test-secret",
		CORSOrigins:         []string{"*"},
		APIBaseURL:          "http://localhost:8000",
		TextDataPath:        dir + "/text",
		WAVDataPath:         dir + "/wav",
		OGGDataPath:         dir + "/ogg",
		SignedURLExpiry:     time.Hour,
		SessionTokenExpiry:  24 * time.Hour,
		PasswordResetExpiry: time.Hour,
		DisableRateLimit:    true,
	}

	return &Server{
		DB:       db,
		Broker:   b,
		Registry: registry.New(db),
		Issuer:   authn.NewIssuer(cfg.SecretKey),
		Signer:   signing.NewSigner(cfg.SecretKey),
		Limiter:  ratelimit.New(true, ratelimit.AllPolicies()...),
		Cfg:      cfg,
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func registerAndLogin(t *testing.T, r http.Handler, username, email, password string) string {
	t.Helper()
	rr := doJSON(t, r, http.MethodPost, "/auth/register", RegisterRequest{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, r, http.MethodPost, "/auth/login/email", LoginRequest{
		Email:    email,
		Password: password,
	}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		SessionToken string `json:"sessionToken"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.SessionToken
}

const validPassword = "Correct-Horse9!"

func TestRegisterLoginProfileRoundTrip(t *testing.T) {
	s := newTestServer(t)
	r := NewRouter(s)

	token := registerAndLogin(t, r, "alice", "alice@example.com", validPassword)

	rr := doJSON(t, r, http.MethodGet, "/auth/profile", nil, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var profile map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile["username"] != "alice" {
		t.Fatalf("expected username alice, got %v", profile["username"])
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	s := newTestServer(t)
	r := NewRouter(s)

	rr := doJSON(t, r, http.MethodPost, "/auth/register", RegisterRequest{
		Username:        "bob",
		Email:           "bob@example.com",
		Password:        "weak",
		ConfirmPassword: "weak",
	}, "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a weak password, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	r := NewRouter(s)
	registerAndLogin(t, r, "carol", "carol@example.com", validPassword)

	rr := doJSON(t, r, http.MethodPost, "/auth/register", RegisterRequest{
		Username:        "carol2",
		Email:           "carol@example.com",
		Password:        validPassword,
		ConfirmPassword: validPassword,
	}, "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 conflict for a duplicate email, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestProtectedRouteRejectsMissingCredentials(t *testing.T) {
	s := newTestServer(t)
	r := NewRouter(s)

	rr := doJSON(t, r, http.MethodGet, "/api/v1/books", nil, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session token, got %d", rr.Code)
	}
}

func submitTestBook(t *testing.T, r http.Handler, token, title string) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("title", title)
	_ = w.WriteField("format", "txt")
	part, err := w.CreateFormFile("file", "book.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("Once upon a time. The end."))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/books", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit book: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	return out
}

func TestSubmitAndListBooks(t *testing.T) {
	s := newTestServer(t)
	r := NewRouter(s)
	token := registerAndLogin(t, r, "dave", "dave@example.com", validPassword)

	submitTestBook(t, r, token, "Moby Dick")

	rr := doJSON(t, r, http.MethodGet, "/api/v1/books", nil, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("list books: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var out struct {
		Books []map[string]any `json:"books"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(out.Books) != 1 {
		t.Fatalf("expected 1 book, got %d", len(out.Books))
	}
	if out.Books[0]["status"] != string(models.BookStatusExtracting) {
		t.Fatalf("expected extracting status, got %v", out.Books[0]["status"])
	}
}

func TestCrossUserBookAccessIs404NotForbidden(t *testing.T) {
	s := newTestServer(t)
	r := NewRouter(s)
	ownerToken := registerAndLogin(t, r, "erin", "erin@example.com", validPassword)
	otherToken := registerAndLogin(t, r, "frank", "frank@example.com", validPassword)

	created := submitTestBook(t, r, ownerToken, "Owned Book")
	bookID := int(created["book_id"].(float64))

	rr := doJSON(t, r, http.MethodGet, pathForBookStatus(bookID), nil, otherToken)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for cross-user access (never 403), got %d: %s", rr.Code, rr.Body.String())
	}
}

func pathForBookStatus(id int) string {
	return "/api/v1/books/" + itoa(id) + "/status"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestSignedURLRoundTripServesChunk(t *testing.T) {
	s := newTestServer(t)
	r := NewRouter(s)
	token := registerAndLogin(t, r, "grace", "grace@example.com", validPassword)

	created := submitTestBook(t, r, token, "Signed URL Book")
	bookID := uint(created["book_id"].(float64))

	if err := os.MkdirAll(s.Cfg.OGGDataPath, 0o755); err != nil {
		t.Fatalf("mkdir ogg dir: %v", err)
	}
	chunkPath := s.Cfg.OGGDataPath + "/chunk_000000.ogg"
	if err := os.WriteFile(chunkPath, []byte("fake-ogg-bytes"), 0o644); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	if _, err := s.Registry.ReplaceChunks(bookID, []registry.ChunkInput{
		{Seq: 0, DurationS: 3.14, FilePath: chunkPath, FileSize: int64(len("fake-ogg-bytes"))},
	}); err != nil {
		t.Fatalf("replace chunks: %v", err)
	}

	rr := doJSON(t, r, http.MethodPost, "/api/v1/books/"+itoa(int(bookID))+"/chunks/0/signed-url", nil, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("signed-url: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode signed-url response: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, stripHost(out.URL), nil)
	getRR := httptest.NewRecorder()
	r.ServeHTTP(getRR, req)
	if getRR.Code != http.StatusOK {
		t.Fatalf("expected the signed URL to serve the chunk, got %d: %s", getRR.Code, getRR.Body.String())
	}
	if getRR.Header().Get("Content-Type") != "audio/ogg" {
		t.Fatalf("expected audio/ogg content type, got %q", getRR.Header().Get("Content-Type"))
	}
}

func stripHost(url string) string {
	const prefix = "http://localhost:8000"
	if len(url) > len(prefix) && url[:len(prefix)] == prefix {
		return url[len(prefix):]
	}
	return url
}

func TestDeleteBookRemovesMetadataAndChunks(t *testing.T) {
	s := newTestServer(t)
	r := NewRouter(s)
	token := registerAndLogin(t, r, "heidi", "heidi@example.com", validPassword)
	created := submitTestBook(t, r, token, "Deletable Book")
	bookID := int(created["book_id"].(float64))

	rr := doJSON(t, r, http.MethodDelete, "/api/v1/books/"+itoa(bookID), nil, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, r, http.MethodGet, pathForBookStatus(bookID), nil, token)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}
