package service

import (
	"context"
	"errors"
	"strings"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/store"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterInput 注册请求。
type RegisterInput struct {
	Email    string
	Password string
	Nome     *string
}

// AccountService 负责注册、凭证校验与用户目录。令牌签发在 HTTP 层完成。
type AccountService struct {
	store *store.Store
	cost  int
}

func NewAccountService(s *store.Store) *AccountService {
	return &AccountService{store: s, cost: bcrypt.DefaultCost}
}

// NormalizeEmail 去除首尾空白并转为小写。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register 创建用户。邮箱已存在返回 Conflict。
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	email := NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, apperr.InvalidInput("email and password are required")
	}

	if _, err := s.store.Users.FindByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal("lookup user failed", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, apperr.Internal("hash password failed", err)
	}

	var nome *string
	if input.Nome != nil {
		if trimmed := strings.TrimSpace(*input.Nome); trimmed != "" {
			nome = &trimmed
		}
	}

	user := model.User{Email: email, Password: string(hash), Nome: nome}
	if err := s.store.Users.Create(ctx, &user); err != nil {
		if apperr.IsUniqueViolation(err) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, apperr.Internal("create user failed", err)
	}
	return &user, nil
}

// Authenticate 校验邮箱与密码；任何不匹配都返回同一个 Unauthenticated 错误。
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.InvalidInput("email and password are required")
	}
	user, err := s.store.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthenticated("invalid credentials")
		}
		return nil, apperr.Internal("lookup user failed", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.Unauthenticated("invalid credentials")
	}
	return user, nil
}

func (s *AccountService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.store.Users.List(ctx)
	if err != nil {
		return nil, apperr.Internal("list users failed", err)
	}
	return users, nil
}

func (s *AccountService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "user not found", "lookup user failed")
	}
	return user, nil
}
