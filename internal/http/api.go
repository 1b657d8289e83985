package http

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"library-server/internal/domain"
	"library-server/internal/service"
	"library-server/internal/storage"
)

const (
	sessionCookieName = "token"
	coverURLTTL       = 15 * time.Minute
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth         service.AuthService
	books        service.BookService
	authors      service.AuthorService
	covers       storage.Service
	coverPrefix  string
	secureCookie bool
	corsOrigin   string
	logger       *logrus.Logger
}

func NewHandler(
	auth service.AuthService,
	books service.BookService,
	authors service.AuthorService,
	covers storage.Service,
	coverPrefix string,
	secureCookie bool,
	corsOrigin string,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		auth:         auth,
		books:        books,
		authors:      authors,
		covers:       covers,
		coverPrefix:  strings.Trim(coverPrefix, "/"),
		secureCookie: secureCookie,
		corsOrigin:   corsOrigin,
		logger:       logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger))
	router.Use(corsMiddleware(h.corsOrigin))

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/signup", h.signup)
		authRoutes.POST("/login", h.login)
		authRoutes.POST("/logout", h.logout)
		authRoutes.GET("/me", h.me)
	}

	books := router.Group("/books")
	{
		books.GET("", h.listBooks)
		books.GET("/borrowed/all", h.listBorrowed)
		books.GET("/borrowed/user/:user_id", h.listBorrowedByUser)
		books.GET("/cover/:id", h.getCover)
	}

	booksAuthed := router.Group("/books", h.requireUser())
	{
		booksAuthed.POST("", h.createBook)
		booksAuthed.PUT("/:id", h.updateBook)
		booksAuthed.DELETE("/:id", h.deleteBook)
		booksAuthed.POST("/borrow/:book_id/:user_id", h.borrowBook)
		booksAuthed.POST("/return/:book_id", h.returnBook)
		booksAuthed.POST("/cover/:id", h.uploadCover)
	}

	authors := router.Group("/authors")
	{
		authors.GET("", h.listAuthors)
		authors.GET("/:name", h.getAuthor)
	}

	authorsAuthed := router.Group("/authors", h.requireUser())
	{
		authorsAuthed.POST("", h.createAuthor)
		authorsAuthed.PUT("/:id", h.updateAuthor)
		authorsAuthed.DELETE("/:id", h.deleteAuthor)
	}
}

// --- auth ---

type signupRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.Signup(c.Request.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, userToResponse(user))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.setSessionCookie(c, token, int(h.auth.TokenTTL().Seconds()))
	c.JSON(http.StatusOK, gin.H{"user": userToResponse(user)})
}

func (h *Handler) logout(c *gin.Context) {
	// Tokens are stateless, so logout only clears the client cookie; the
	// token itself stays valid until its natural expiry.
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) me(c *gin.Context) {
	token, _ := c.Cookie(sessionCookieName)
	user, err := h.auth.UserFromToken(c.Request.Context(), token)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userToResponse(user)})
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, token, maxAge, "/", "", h.secureCookie, true)
}

// --- books ---

type bookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

func (h *Handler) listBooks(c *gin.Context) {
	filter := domain.BookFilter{
		Title:  c.Query("title"),
		Author: c.Query("author"),
	}
	if raw := c.Query("available"); raw != "" {
		avail, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flag available"})
			return
		}
		filter.Available = &avail
	}

	books, err := h.books.ListBooks(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booksToResponse(books))
}

func (h *Handler) createBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := h.books.CreateBook(c.Request.Context(), req.Title, req.Author)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bookToResponse(*book))
}

func (h *Handler) updateBook(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := h.books.UpdateBook(c.Request.Context(), id, req.Title, req.Author)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookToResponse(*book))
}

func (h *Handler) deleteBook(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.books.DeleteBook(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) borrowBook(c *gin.Context) {
	bookID, ok := paramID(c, "book_id")
	if !ok {
		return
	}
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}

	book, err := h.books.Borrow(c.Request.Context(), bookID, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookToResponse(*book))
}

func (h *Handler) returnBook(c *gin.Context) {
	bookID, ok := paramID(c, "book_id")
	if !ok {
		return
	}

	book, err := h.books.Return(c.Request.Context(), bookID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookToResponse(*book))
}

func (h *Handler) listBorrowed(c *gin.Context) {
	books, err := h.books.ListBorrowed(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booksToResponse(books))
}

func (h *Handler) listBorrowedByUser(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}

	books, err := h.books.ListBorrowedBy(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booksToResponse(books))
}

// --- covers ---

func (h *Handler) uploadCover(c *gin.Context) {
	if h.covers == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage service not configured"})
		return
	}

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	book, err := h.books.GetBook(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	header, err := c.FormFile("cover")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cover file is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer file.Close()

	key := fmt.Sprintf("book-%d-%s%s", id, uuid.NewString(), filepath.Ext(header.Filename))
	if h.coverPrefix != "" {
		key = h.coverPrefix + "/" + key
	}

	if err := h.covers.Put(c.Request.Context(), key, header.Header.Get("Content-Type"), file); err != nil {
		h.writeError(c, err)
		return
	}

	if err := h.books.SetCover(c.Request.Context(), id, key); err != nil {
		h.writeError(c, err)
		return
	}

	if book.CoverKey != "" && book.CoverKey != key {
		if err := h.covers.Delete(c.Request.Context(), book.CoverKey); err != nil {
			h.logger.Warnf("delete stale cover %s: %v", book.CoverKey, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "cover": key})
}

func (h *Handler) getCover(c *gin.Context) {
	if h.covers == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage service not configured"})
		return
	}

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	book, err := h.books.GetBook(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if book.CoverKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "book has no cover"})
		return
	}

	url, err := h.covers.PresignGet(c.Request.Context(), book.CoverKey, coverURLTTL)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

// --- authors ---

type authorRequest struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

func (h *Handler) listAuthors(c *gin.Context) {
	authors, err := h.authors.ListAuthors(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]AuthorResponse, len(authors))
	for i := range authors {
		resp[i] = authorToResponse(authors[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getAuthor(c *gin.Context) {
	author, err := h.authors.GetAuthorByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, authorToResponse(*author))
}

func (h *Handler) createAuthor(c *gin.Context) {
	var req authorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	author, err := h.authors.CreateAuthor(c.Request.Context(), req.Name, req.Bio)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authorToResponse(*author))
}

func (h *Handler) updateAuthor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req authorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	author, err := h.authors.UpdateAuthor(c.Request.Context(), id, req.Name, req.Bio)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, authorToResponse(*author))
}

func (h *Handler) deleteAuthor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.authors.DeleteAuthor(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// --- shared ---

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s", name)})
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error(), "field": vErr.Field})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrAlreadyBorrowed),
		errors.Is(err, domain.ErrNotBorrowed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrInvalidCredentials.Error()})
	default:
		h.logger.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type UserResponse struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type BookResponse struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	BorrowedBy *int64 `json:"borrowedBy"`
	HasCover   bool   `json:"hasCover"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

type AuthorResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		FullName: user.FullName,
		Email:    user.Email,
	}
}

func bookToResponse(book domain.Book) BookResponse {
	return BookResponse{
		ID:         book.ID,
		Title:      book.Title,
		Author:     book.Author,
		BorrowedBy: book.BorrowedBy,
		HasCover:   book.CoverKey != "",
		CreatedAt:  book.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  book.UpdatedAt.Format(time.RFC3339),
	}
}

func booksToResponse(books []domain.Book) []BookResponse {
	resp := make([]BookResponse, len(books))
	for i := range books {
		resp[i] = bookToResponse(books[i])
	}
	return resp
}

func authorToResponse(author domain.Author) AuthorResponse {
	return AuthorResponse{
		ID:        author.ID,
		Name:      author.Name,
		Bio:       author.Bio,
		CreatedAt: author.CreatedAt.Format(time.RFC3339),
		UpdatedAt: author.UpdatedAt.Format(time.RFC3339),
	}
}
