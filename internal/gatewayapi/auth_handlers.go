package gatewayapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/epicrunze/evocable/internal/apperr"
	"github.com/epicrunze/evocable/internal/authn"
	"github.com/epicrunze/evocable/internal/middleware"
	"github.com/epicrunze/evocable/internal/models"
)

// registerHandler implements §4.1 "Register": validates username/email/
// password shape, rejects duplicates with `conflict`, otherwise creates
// the user with is_verified=false.
func (s *Server) registerHandler(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if !usernamePattern.MatchString(username) {
		middleware.Fail(c, apperr.WithFields(apperr.Validation, "invalid username",
			map[string]string{"username": "must match [a-zA-Z0-9_-]{3,50}"}))
		return
	}
	if !emailPattern.MatchString(email) {
		middleware.Fail(c, apperr.WithFields(apperr.Validation, "invalid email",
			map[string]string{"email": "must be a valid email address"}))
		return
	}
	if req.Password != req.ConfirmPassword {
		middleware.Fail(c, apperr.WithFields(apperr.Validation, "passwords do not match",
			map[string]string{"confirm_password": "must match password"}))
		return
	}
	if verr := authn.ValidatePassword(req.Password); verr != nil {
		middleware.Fail(c, verr)
		return
	}

	var existing models.User
	err := s.DB.Where("username = ? OR email = ?", username, email).First(&existing).Error
	if err == nil {
		middleware.Fail(c, apperr.New(apperr.Conflict, "username or email already exists"))
		return
	}

	hash, err := authn.HashPassword(req.Password)
	if err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		IsVerified:   false,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		middleware.Fail(c, apperr.New(apperr.Conflict, "username or email already exists"))
		return
	}

	c.JSON(http.StatusCreated, userProfileJSON(&user))
}

// loginHandler implements §4.1 "Login (email)".
func (s *Server) loginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var user models.User
	if err := s.DB.Where("email = ?", email).First(&user).Error; err != nil {
		middleware.Fail(c, apperr.New(apperr.Unauthenticated, "invalid email or password"))
		return
	}
	if !user.IsActive {
		middleware.Fail(c, apperr.New(apperr.Unauthenticated, "account is deactivated"))
		return
	}
	if !authn.CheckPassword(user.PasswordHash, req.Password) {
		middleware.Fail(c, apperr.New(apperr.Unauthenticated, "invalid email or password"))
		return
	}

	ttl := s.Cfg.SessionTokenExpiry
	if req.Remember {
		ttl = 30 * 24 * time.Hour
	}
	token, expiresAt, err := s.Issuer.IssueSession(user.ID, user.Username, ttl)
	if err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionToken": token,
		"expiresAt":    expiresAt.UTC().Format(time.RFC3339),
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
		},
	})
}

// refreshHandler mints a fresh session token for the already-authenticated
// caller, the same expiry policy as a non-remembered login.
func (s *Server) refreshHandler(c *gin.Context) {
	userID := middleware.UserID(c)
	var user models.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		middleware.Fail(c, apperr.NotFoundErr())
		return
	}
	token, expiresAt, err := s.Issuer.IssueSession(user.ID, user.Username, s.Cfg.SessionTokenExpiry)
	if err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionToken": token, "expiresAt": expiresAt.UTC().Format(time.RFC3339)})
}

// logoutHandler is advisory only: spec.md §9's Open Question resolution
// keeps token validity until natural expiry, no deny-list is maintained.
func (s *Server) logoutHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"detail": "logged out"})
}

func (s *Server) getProfileHandler(c *gin.Context) {
	userID := middleware.UserID(c)
	var user models.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		middleware.Fail(c, apperr.NotFoundErr())
		return
	}
	c.JSON(http.StatusOK, userProfileJSON(&user))
}

func (s *Server) updateProfileHandler(c *gin.Context) {
	userID := middleware.UserID(c)
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	var user models.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		middleware.Fail(c, apperr.NotFoundErr())
		return
	}
	if req.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*req.Username))
		if !usernamePattern.MatchString(username) {
			middleware.Fail(c, apperr.WithFields(apperr.Validation, "invalid username",
				map[string]string{"username": "must match [a-zA-Z0-9_-]{3,50}"}))
			return
		}
		user.Username = username
	}
	if err := s.DB.Save(&user).Error; err != nil {
		middleware.Fail(c, apperr.New(apperr.Conflict, "username already exists"))
		return
	}
	c.JSON(http.StatusOK, userProfileJSON(&user))
}

func (s *Server) changePasswordHandler(c *gin.Context) {
	userID := middleware.UserID(c)
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	var user models.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		middleware.Fail(c, apperr.NotFoundErr())
		return
	}
	if !authn.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		middleware.Fail(c, apperr.New(apperr.Unauthenticated, "current password is incorrect"))
		return
	}
	if verr := authn.ValidatePassword(req.NewPassword); verr != nil {
		middleware.Fail(c, verr)
		return
	}
	hash, err := authn.HashPassword(req.NewPassword)
	if err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}
	user.PasswordHash = hash
	if err := s.DB.Save(&user).Error; err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "password changed"})
}

func (s *Server) forgotPasswordHandler(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	var user models.User
	if err := s.DB.Where("email = ?", email).First(&user).Error; err != nil {
		// Do not reveal whether the email exists.
		c.JSON(http.StatusOK, gin.H{"detail": "if the account exists, a reset link has been issued"})
		return
	}
	_, _, err := s.Issuer.IssueReset(user.ID, user.Username, s.Cfg.PasswordResetExpiry)
	if err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}
	// Delivery of the reset token (email) is out of scope; the token
	// would be dispatched through an external mailer here.
	c.JSON(http.StatusOK, gin.H{"detail": "if the account exists, a reset link has been issued"})
}

func (s *Server) resetPasswordHandler(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	claims, aerr := s.Issuer.Parse(req.Token, authn.TokenPasswordReset)
	if aerr != nil {
		middleware.Fail(c, aerr)
		return
	}
	if verr := authn.ValidatePassword(req.NewPassword); verr != nil {
		middleware.Fail(c, verr)
		return
	}
	var user models.User
	if err := s.DB.Where("id = ?", claims.Subject).First(&user).Error; err != nil {
		middleware.Fail(c, apperr.NotFoundErr())
		return
	}
	hash, err := authn.HashPassword(req.NewPassword)
	if err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}
	user.PasswordHash = hash
	if err := s.DB.Save(&user).Error; err != nil {
		middleware.Fail(c, apperr.InternalErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "password reset"})
}

func userProfileJSON(u *models.User) gin.H {
	return gin.H{
		"id":          u.ID,
		"username":    u.Username,
		"email":       u.Email,
		"is_active":   u.IsActive,
		"is_verified": u.IsVerified,
		"created_at":  u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
