package validator

import (
	"context"
	"errors"
	"strings"

	"marketplace/internal/repository"
	"marketplace/internal/usecase"

	playground "github.com/go-playground/validator/v10"
)

// サインアップ。bcryptは72バイトまで
type registerCredentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginCredentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authValidator struct {
	users    repository.UserRepository
	requests *playground.Validate
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users, requests: usecase.NewInputValidator()}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	// 必須・形式・長さ
	if err := usecase.ValidationFromTags(v.requests.Struct(registerCredentials{Email: email, Password: password})); err != nil {
		return err
	}

	// email重複チェック（最終的にはunique制約で弾く）
	u, err := v.users.FindByEmail(ctx, email)
	if err == nil && u != nil {
		return &usecase.AppError{Kind: usecase.ErrConflict, Message: "email already used"}
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return &usecase.AppError{Kind: usecase.ErrInternal, Message: "internal server error", Err: err}
	}

	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	return usecase.ValidationFromTags(v.requests.Struct(loginCredentials{Email: email, Password: password}))
}

// refresh 入力を検証。cookieが無いのは401
func (v *authValidator) ValidateRefresh(ctx context.Context, refreshToken string, userAgent string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return &usecase.AppError{Kind: usecase.ErrUnauthorized, Message: "missing refresh token"}
	}

	return nil
}

// 強制ログアウトの入力を検証
func (v *authValidator) ValidateForceLogout(ctx context.Context, targetUserID int64) error {
	if targetUserID <= 0 {
		return invalid("invalid user id")
	}
	return nil
}

func invalid(msg string) error {
	return &usecase.AppError{Kind: usecase.ErrValidation, Message: msg}
}
