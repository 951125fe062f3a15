package gatewayapi

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/epicrunze/evocable/internal/apperr"
	"github.com/epicrunze/evocable/internal/authn"
	"github.com/epicrunze/evocable/internal/middleware"
)

const maxBatchSignedURLs = 20

// listChunksHandler implements §4.1 "List chunks".
func (s *Server) listChunksHandler(c *gin.Context) {
	book, aerr := s.ownedBook(c)
	if aerr != nil {
		middleware.Fail(c, aerr)
		return
	}
	chunks, totalDuration, err := s.Registry.List(book.ID)
	if err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}
	out := make([]gin.H, 0, len(chunks))
	for _, ch := range chunks {
		out = append(out, gin.H{
			"seq":        ch.Seq,
			"duration_s": ch.DurationS,
			"url":        fmt.Sprintf("/api/v1/books/%d/chunks/%d", book.ID, ch.Seq),
			"file_size":  ch.FileSize,
		})
	}
	c.JSON(http.StatusOK, gin.H{"chunks": out, "total_duration_s": totalDuration})
}

func endpointPath(bookID uint, seq int) string {
	return fmt.Sprintf("/api/v1/books/%d/chunks/%d", bookID, seq)
}

// signedURLHandler implements §4.1 "Single signed URL".
func (s *Server) signedURLHandler(c *gin.Context) {
	book, aerr := s.ownedBook(c)
	if aerr != nil {
		middleware.Fail(c, aerr)
		return
	}
	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil || seq < 0 {
		middleware.Fail(c, apperr.New(apperr.Validation, "invalid chunk sequence"))
		return
	}
	token := sessionTokenFromContext(c)
	url := s.buildSignedURL(book.ID, seq, token, s.Cfg.SignedURLExpiry)
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// batchSignedURLsHandler implements §4.1 "Batch signed URLs".
func (s *Server) batchSignedURLsHandler(c *gin.Context) {
	book, aerr := s.ownedBook(c)
	if aerr != nil {
		middleware.Fail(c, aerr)
		return
	}
	var req BatchSignedURLsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	if len(req.Chunks) < 1 || len(req.Chunks) > maxBatchSignedURLs {
		middleware.Fail(c, apperr.New(apperr.Validation, "chunks must contain between 1 and 20 entries"))
		return
	}
	for _, seq := range req.Chunks {
		if seq < 0 {
			middleware.Fail(c, apperr.New(apperr.Validation, "chunk sequence must be non-negative"))
			return
		}
	}

	token := sessionTokenFromContext(c)
	result := make(map[string]string, len(req.Chunks))
	for _, seq := range req.Chunks {
		url := s.buildSignedURL(book.ID, seq, token, s.Cfg.SignedURLExpiry)
		result[strconv.Itoa(seq)] = url
	}
	if len(result) == 0 {
		middleware.Fail(c, apperr.New(apperr.Internal, "failed to generate any signed urls"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"urls": result})
}

func (s *Server) buildSignedURL(bookID uint, seq int, token string, expiresIn time.Duration) string {
	expires := time.Now().Add(expiresIn).Unix()
	path := endpointPath(bookID, seq)
	sig := s.Signer.Sign(path, expires, token)
	return fmt.Sprintf("%s%s?expires=%d&signature=%s&token=%s", s.Cfg.APIBaseURL, path, expires, sig, token)
}

func sessionTokenFromContext(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.Query("token")
}

// getChunkHandler implements §4.1 "Get audio chunk": three mutually
// exclusive authentication paths — signed URL, bearer header, or `token`
// query param — then serves the file with caching headers.
func (s *Server) getChunkHandler(c *gin.Context) {
	bookID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		middleware.Fail(c, apperr.NotFoundErr())
		return
	}
	bookID := uint(bookID64)
	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil {
		middleware.Fail(c, apperr.NotFoundErr())
		return
	}

	userID, aerr := s.authenticateChunkRequest(c, bookID, seq)
	if aerr != nil {
		middleware.Fail(c, aerr)
		return
	}

	var book struct {
		ID     uint
		UserID uint
	}
	if err := s.DB.Table("books").Select("id, user_id").Where("id = ?", bookID).Scan(&book).Error; err != nil || book.ID == 0 {
		middleware.Fail(c, apperr.NotFoundErr())
		return
	}
	if book.UserID != userID {
		middleware.Fail(c, apperr.NotFoundErr())
		return
	}

	chunk, err := s.Registry.Get(bookID, seq)
	if err != nil {
		middleware.Fail(c, apperr.NotFoundErr())
		return
	}

	info, err := os.Stat(chunk.FilePath)
	if err != nil {
		middleware.Fail(c, apperr.NotFoundErr())
		return
	}
	etag := fmt.Sprintf(`"%x"`, sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", chunk.FilePath, info.ModTime().Unix(), info.Size()))))
	if match := c.GetHeader("If-None-Match"); match == etag {
		c.Status(http.StatusNotModified)
		return
	}

	c.Header("Content-Type", "audio/ogg")
	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("ETag", etag)
	c.File(chunk.FilePath)
}

// authenticateChunkRequest implements the three auth options of §4.1's
// "Get audio chunk" contract and returns the authenticated user id.
func (s *Server) authenticateChunkRequest(c *gin.Context, bookID uint, seq int) (uint, *apperr.Error) {
	expiresStr := c.Query("expires")
	signature := c.Query("signature")
	queryToken := c.Query("token")

	if expiresStr != "" || signature != "" {
		if expiresStr == "" || signature == "" || queryToken == "" {
			return 0, apperr.New(apperr.Unauthenticated, "incomplete signed-url parameters")
		}
		expires, err := strconv.ParseInt(expiresStr, 10, 64)
		if err != nil {
			return 0, apperr.New(apperr.Unauthenticated, "invalid expires parameter")
		}
		if time.Now().Unix() > expires {
			return 0, apperr.New(apperr.Unauthenticated, "signed url has expired")
		}
		path := endpointPath(bookID, seq)
		if !s.Signer.Verify(path, expires, queryToken, signature) {
			return 0, apperr.New(apperr.Unauthenticated, "invalid signature")
		}
		claims, aerr := s.Issuer.Parse(queryToken, authn.TokenSession)
		if aerr != nil {
			return 0, aerr
		}
		return parseSubject(claims.Subject), nil
	}

	token := sessionTokenFromContext(c)
	if token == "" {
		return 0, apperr.New(apperr.Unauthenticated, "missing credentials")
	}
	claims, aerr := s.Issuer.Parse(token, authn.TokenSession)
	if aerr != nil {
		return 0, aerr
	}
	return parseSubject(claims.Subject), nil
}

func parseSubject(subject string) uint {
	n, _ := strconv.ParseUint(subject, 10, 64)
	return uint(n)
}
