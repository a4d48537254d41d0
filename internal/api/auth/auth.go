package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"taskhub/internal/api/httperr"
	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/pkg/metrics"
	"taskhub/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler 提供注册、登录与用户目录接口。
type Handler struct {
	accounts  *service.AccountService
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *slog.Logger
}

// NewHandler 创建 Auth Handler。
func NewHandler(accounts *service.AccountService, jwtSecret string, tokenTTL time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		accounts:  accounts,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

type registerRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Nome     *string `json:"nome"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse 对外公开的用户字段。
type UserResponse struct {
	ID    uint    `json:"id"`
	Email string  `json:"email"`
	Nome  *string `json:"nome"`
}

// NewUserResponse 去掉密码等内部字段。
func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Nome: u.Nome}
}

// Register 创建新用户。
//
// POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Nome:     req.Nome,
	})
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("register", "failure").Inc()
		httperr.Write(c, h.logger, err)
		return
	}

	metrics.AuthEventsTotal.WithLabelValues("register", "success").Inc()
	if h.logger != nil {
		h.logger.Info("user registered", slog.String("email", user.Email))
	}
	c.JSON(http.StatusCreated, gin.H{"message": "registration successful", "user": NewUserResponse(user)})
}

// Login 校验用户并返回 JWT。
//
// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("login", "failure").Inc()
		if apperr.KindOf(err) == apperr.KindUnauthenticated && h.logger != nil {
			h.logger.Warn("login failed", slog.String("client_ip", c.ClientIP()))
		}
		httperr.Write(c, h.logger, err)
		return
	}

	token, err := IssueToken(h.jwtSecret, user.ID, user.Email, h.tokenTTL)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("login", "failure").Inc()
		httperr.Write(c, h.logger, apperr.Internal("issue token failed", err))
		return
	}

	metrics.AuthEventsTotal.WithLabelValues("login", "success").Inc()
	c.JSON(http.StatusOK, gin.H{
		"message": "login successful",
		"token":   token,
		"user":    NewUserResponse(user),
	})
}

// ListUsers 返回全部用户的公开字段，按 id 升序。
//
// GET /auth/users
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.accounts.ListUsers(c.Request.Context())
	if err != nil {
		httperr.Write(c, h.logger, err)
		return
	}
	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, NewUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// GetUser 返回单个用户。
//
// GET /auth/users/:id
func (h *Handler) GetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	user, err := h.accounts.GetUser(c.Request.Context(), uint(id))
	if err != nil {
		httperr.Write(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, NewUserResponse(user))
}
