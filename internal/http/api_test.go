package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"library-server/internal/repository/sqlite"
	"library-server/internal/service"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	userRepo := sqlite.NewUserRepository(db)
	bookRepo := sqlite.NewBookRepository(db)
	authorRepo := sqlite.NewAuthorRepository(db)
	// books.borrowed_by references users(id), so users goes first.
	if err := userRepo.Init(ctx); err != nil {
		t.Fatalf("init users: %v", err)
	}
	if err := bookRepo.Init(ctx); err != nil {
		t.Fatalf("init books: %v", err)
	}
	if err := authorRepo.Init(ctx); err != nil {
		t.Fatalf("init authors: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	handler := NewHandler(
		service.NewAuthService(userRepo, "test-secret", time.Hour),
		service.NewBookService(bookRepo, userRepo),
		service.NewAuthorService(authorRepo),
		nil, // no cover storage in tests
		"covers",
		false,
		"http://localhost:3000",
		logger,
	)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body, cookie string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.Header.Set("Cookie", sessionCookieName+"="+cookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", sessionCookieName)
	return nil
}

func signupAndLogin(t *testing.T, router *gin.Engine, fullName, email, password string) (int64, string) {
	t.Helper()

	w := doRequest(t, router, http.MethodPost, "/auth/signup",
		fmt.Sprintf(`{"fullName":%q,"email":%q,"password":%q}`, fullName, email, password), "")
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: want 201, got %d: %s", w.Code, w.Body.String())
	}
	id := int64(decodeBody(t, w)["id"].(float64))

	w = doRequest(t, router, http.MethodPost, "/auth/login",
		fmt.Sprintf(`{"email":%q,"password":%q}`, email, password), "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: want 200, got %d: %s", w.Code, w.Body.String())
	}
	return id, sessionCookie(t, w).Value
}

func TestSignupLoginMeLogout(t *testing.T) {
	router := newTestRouter(t)

	// Signup returns the public identity, never the hash.
	w := doRequest(t, router, http.MethodPost, "/auth/signup",
		`{"fullName":"Ana","email":"ana@x.com","password":"pw123"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: want 201, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["fullName"] != "Ana" || body["email"] != "ana@x.com" {
		t.Fatalf("unexpected signup body: %v", body)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Fatalf("signup response leaks password material: %s", w.Body.String())
	}

	// Duplicate email conflicts.
	w = doRequest(t, router, http.MethodPost, "/auth/signup",
		`{"fullName":"Ana Again","email":"ana@x.com","password":"other"}`, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: want 409, got %d", w.Code)
	}

	// Wrong password is a generic 401.
	w = doRequest(t, router, http.MethodPost, "/auth/login",
		`{"email":"ana@x.com","password":"wrong"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: want 401, got %d", w.Code)
	}

	// Good login sets an HttpOnly session cookie.
	w = doRequest(t, router, http.MethodPost, "/auth/login",
		`{"email":"ana@x.com","password":"pw123"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: want 200, got %d: %s", w.Code, w.Body.String())
	}
	cookie := sessionCookie(t, w)
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}
	if cookie.MaxAge <= 0 {
		t.Fatalf("session cookie must have a positive MaxAge, got %d", cookie.MaxAge)
	}

	// The cookie restores the session.
	w = doRequest(t, router, http.MethodGet, "/auth/me", "", cookie.Value)
	if w.Code != http.StatusOK {
		t.Fatalf("me: want 200, got %d", w.Code)
	}
	user, ok := decodeBody(t, w)["user"].(map[string]any)
	if !ok || user["email"] != "ana@x.com" {
		t.Fatalf("unexpected me body: %s", w.Body.String())
	}

	// No cookie means anonymous, not an error.
	w = doRequest(t, router, http.MethodGet, "/auth/me", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous me: want 200, got %d", w.Code)
	}
	if decodeBody(t, w)["user"] != nil {
		t.Fatalf("anonymous me must report null user: %s", w.Body.String())
	}

	// A garbage cookie degrades to anonymous too.
	w = doRequest(t, router, http.MethodGet, "/auth/me", "", "garbage")
	if w.Code != http.StatusOK || decodeBody(t, w)["user"] != nil {
		t.Fatalf("invalid-token me must be anonymous: %d %s", w.Code, w.Body.String())
	}

	// Logout clears the cookie.
	w = doRequest(t, router, http.MethodPost, "/auth/logout", "", cookie.Value)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: want 200, got %d", w.Code)
	}
	cleared := sessionCookie(t, w)
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("logout must clear the cookie, got value=%q maxage=%d", cleared.Value, cleared.MaxAge)
	}
}

func TestBorrowReturnEndToEnd(t *testing.T) {
	router := newTestRouter(t)

	anaID, anaCookie := signupAndLogin(t, router, "Ana", "ana@x.com", "pw123")
	bobID, _ := signupAndLogin(t, router, "Bob", "bob@x.com", "pw456")

	// Create a book (authenticated).
	w := doRequest(t, router, http.MethodPost, "/books",
		`{"title":"1984","author":"George Orwell"}`, anaCookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create book: want 201, got %d: %s", w.Code, w.Body.String())
	}
	bookID := int64(decodeBody(t, w)["id"].(float64))

	// Ana borrows it.
	w = doRequest(t, router, http.MethodPost,
		fmt.Sprintf("/books/borrow/%d/%d", bookID, anaID), "", anaCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("borrow: want 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decodeBody(t, w)["borrowedBy"]; int64(got.(float64)) != anaID {
		t.Fatalf("want borrowedBy %d, got %v", anaID, got)
	}

	// Bob cannot borrow it now.
	w = doRequest(t, router, http.MethodPost,
		fmt.Sprintf("/books/borrow/%d/%d", bookID, bobID), "", anaCookie)
	if w.Code != http.StatusConflict {
		t.Fatalf("double borrow: want 409, got %d", w.Code)
	}

	// The ledger reflects the loan.
	w = doRequest(t, router, http.MethodGet,
		fmt.Sprintf("/books/borrowed/user/%d", anaID), "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"1984"`) {
		t.Fatalf("borrowed-by listing wrong: %d %s", w.Code, w.Body.String())
	}
	w = doRequest(t, router, http.MethodGet, "/books/borrowed/all", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"1984"`) {
		t.Fatalf("borrowed listing wrong: %d %s", w.Code, w.Body.String())
	}

	// Return it; the book is available again.
	w = doRequest(t, router, http.MethodPost,
		fmt.Sprintf("/books/return/%d", bookID), "", anaCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("return: want 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decodeBody(t, w)["borrowedBy"]; got != nil {
		t.Fatalf("want borrowedBy null after return, got %v", got)
	}

	// Returning again conflicts; a missing book is 404.
	w = doRequest(t, router, http.MethodPost,
		fmt.Sprintf("/books/return/%d", bookID), "", anaCookie)
	if w.Code != http.StatusConflict {
		t.Fatalf("second return: want 409, got %d", w.Code)
	}
	w = doRequest(t, router, http.MethodPost, "/books/borrow/9999/1", "", anaCookie)
	if w.Code != http.StatusNotFound {
		t.Fatalf("borrow missing book: want 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	router := newTestRouter(t)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodPost, "/books", `{"title":"X","author":"Y"}`},
		{http.MethodPost, "/books/borrow/1/1", ""},
		{http.MethodPost, "/books/return/1", ""},
		{http.MethodPost, "/authors", `{"name":"Z"}`},
	} {
		w := doRequest(t, router, tc.method, tc.path, tc.body, "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s without session: want 401, got %d", tc.method, tc.path, w.Code)
		}
	}

	// Public reads stay open.
	w := doRequest(t, router, http.MethodGet, "/books", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("public list: want 200, got %d", w.Code)
	}
}

func TestBookListFilters(t *testing.T) {
	router := newTestRouter(t)
	_, cookie := signupAndLogin(t, router, "Ana", "ana@x.com", "pw123")

	for _, book := range []string{
		`{"title":"1984","author":"George Orwell"}`,
		`{"title":"Emma","author":"Jane Austen"}`,
	} {
		if w := doRequest(t, router, http.MethodPost, "/books", book, cookie); w.Code != http.StatusCreated {
			t.Fatalf("create book: want 201, got %d", w.Code)
		}
	}

	w := doRequest(t, router, http.MethodGet, "/books?author=orwell", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("filtered list: want 200, got %d", w.Code)
	}
	var books []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &books); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(books) != 1 || books[0]["title"] != "1984" {
		t.Fatalf("author filter wrong: %s", w.Body.String())
	}

	w = doRequest(t, router, http.MethodGet, "/books?available=notabool", "", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad available flag: want 400, got %d", w.Code)
	}
}

func TestAuthorCRUD(t *testing.T) {
	router := newTestRouter(t)
	_, cookie := signupAndLogin(t, router, "Ana", "ana@x.com", "pw123")

	w := doRequest(t, router, http.MethodPost, "/authors",
		`{"name":"George Orwell","bio":"English novelist."}`, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create author: want 201, got %d: %s", w.Code, w.Body.String())
	}
	authorID := int64(decodeBody(t, w)["id"].(float64))

	w = doRequest(t, router, http.MethodGet, "/authors/George%20Orwell", "", "")
	if w.Code != http.StatusOK || decodeBody(t, w)["bio"] != "English novelist." {
		t.Fatalf("get author wrong: %d %s", w.Code, w.Body.String())
	}

	w = doRequest(t, router, http.MethodPut, fmt.Sprintf("/authors/%d", authorID),
		`{"name":"George Orwell","bio":"Author of 1984."}`, cookie)
	if w.Code != http.StatusOK || decodeBody(t, w)["bio"] != "Author of 1984." {
		t.Fatalf("update author wrong: %d %s", w.Code, w.Body.String())
	}

	w = doRequest(t, router, http.MethodDelete, fmt.Sprintf("/authors/%d", authorID), "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("delete author: want 200, got %d", w.Code)
	}
	w = doRequest(t, router, http.MethodGet, "/authors/George%20Orwell", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("deleted author lookup: want 404, got %d", w.Code)
	}
}

func TestCoverEndpointsWithoutStorage(t *testing.T) {
	router := newTestRouter(t)
	_, cookie := signupAndLogin(t, router, "Ana", "ana@x.com", "pw123")

	w := doRequest(t, router, http.MethodPost, "/books",
		`{"title":"Dune","author":"Frank Herbert"}`, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create book: want 201, got %d", w.Code)
	}
	bookID := int64(decodeBody(t, w)["id"].(float64))

	w = doRequest(t, router, http.MethodGet, fmt.Sprintf("/books/cover/%d", bookID), "", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("cover without storage: want 503, got %d", w.Code)
	}
	w = doRequest(t, router, http.MethodPost, fmt.Sprintf("/books/cover/%d", bookID), "", cookie)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("upload without storage: want 503, got %d", w.Code)
	}
}
