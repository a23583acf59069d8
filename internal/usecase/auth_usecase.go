package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
	ValidateRefresh(ctx context.Context, refreshToken string, userAgent string) error
	ValidateForceLogout(ctx context.Context, targetUserID int64) error
}

// ログイン時のゲストカート統合
type CartMerger interface {
	MergeGuestCart(ctx context.Context, sessionID string, userID int64) (bool, error)
}

type AuthSettings struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
}

type UserDTO struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	IsApproved   bool   `json:"is_approved"`
	TokenVersion int    `json:"token_version"`
	IsActive     bool   `json:"is_active"`
}

type JwtAccessTokenDTO struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type AuthRegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type AuthRegisterResponse struct {
	User UserDTO `json:"user"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginResponse struct {
	User       UserDTO           `json:"user"`
	Token      JwtAccessTokenDTO `json:"token"`
	CartMerged bool              `json:"cart_merged"`
}

type ForceLogoutResponse struct {
	UserID          int64 `json:"user_id"`
	NewTokenVersion int   `json:"new_token_version"`
}

type LoginResult struct {
	Body              AuthLoginResponse
	RefreshTokenPlain string
	CsrfTokenPlain    string
}

type RefreshResult struct {
	Body              JwtAccessTokenDTO
	RefreshTokenPlain string
	CsrfTokenPlain    string
}

type AuthUsecase struct {
	settings  AuthSettings
	users     repository.UserRepository
	rtRepo    repository.RefreshTokenRepository
	validator AuthValidator
	carts     CartMerger
	clock     Clock
}

func NewAuthUsecase(
	settings AuthSettings,
	users repository.UserRepository,
	rtRepo repository.RefreshTokenRepository,
	validator AuthValidator,
	carts CartMerger,
	clock Clock,
) *AuthUsecase {
	if settings.BcryptCost == 0 {
		settings.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthUsecase{
		settings:  settings,
		users:     users,
		rtRepo:    rtRepo,
		validator: validator,
		carts:     carts,
		clock:     clock,
	}
}

// 顧客か出品者として登録。出品者は管理者の承認待ち
func (u *AuthUsecase) Register(ctx context.Context, req AuthRegisterRequest) (*AuthRegisterResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateRegister(ctx, req.Email, req.Password); err != nil {
		return nil, err
	}

	role := model.RoleCustomer
	if r := strings.ToUpper(strings.TrimSpace(req.Role)); r != "" {
		role = model.Role(r)
	}
	if !role.Registrable() {
		return nil, validationError("role must be CUSTOMER or SELLER")
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), u.settings.BcryptCost)
	if err != nil {
		return nil, internalError(err)
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: string(pwHash),
		Name:         strings.TrimSpace(req.Name),
		Role:         role,
		IsApproved:   role != model.RoleSeller,
		TokenVersion: 0,
		IsActive:     true,
	}

	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictError("email already used", err)
		}
		return nil, internalError(err)
	}

	return &AuthRegisterResponse{User: toUserDTO(user)}, nil
}

// ログイン。ゲストのセッションがあればトークン発行前にカートを統合する
func (u *AuthUsecase) Login(ctx context.Context, req AuthLoginRequest, userAgent string, guestSessionID string) (*LoginResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := u.validator.ValidateLogin(ctx, req.Email, req.Password); err != nil {
		return nil, err
	}

	user, err := u.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, unauthorizedError("invalid email or password")
	}
	if err != nil {
		return nil, internalError(err)
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return nil, forbiddenError("user is inactive")
	}

	//パスワード照合（bcrypt）
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, unauthorizedError("invalid email or password")
	}

	merged := false
	if guestSessionID != "" && user.Role == model.RoleCustomer && u.carts != nil {
		merged, err = u.carts.MergeGuestCart(ctx, guestSessionID, user.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := u.users.TouchLastLogin(ctx, user.ID); err != nil {
		return nil, internalError(err)
	}

	token, refreshPlain, csrfPlain, err := u.issueTokens(ctx, user, userAgent)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Body: AuthLoginResponse{
			User:       toUserDTO(user),
			Token:      token,
			CartMerged: merged,
		},
		RefreshTokenPlain: refreshPlain,
		CsrfTokenPlain:    csrfPlain,
	}, nil
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (*UserDTO, error) {
	if userID <= 0 {
		return nil, unauthorizedError("unauthorized")
	}

	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, unauthorizedError("unauthorized")
	}
	if err != nil {
		return nil, internalError(err)
	}

	if !user.IsActive {
		return nil, forbiddenError("user is inactive")
	}

	dto := toUserDTO(user)
	return &dto, nil
}

// リフレッシュトークンのローテーション。使用済みが来たらreplayとみなして全失効
func (u *AuthUsecase) Refresh(ctx context.Context, refreshTokenPlain string, userAgent string) (*RefreshResult, error) {
	if err := u.validator.ValidateRefresh(ctx, refreshTokenPlain, userAgent); err != nil {
		return nil, err
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(refreshTokenPlain))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, unauthorizedError("invalid refresh token")
	}
	if err != nil {
		return nil, internalError(err)
	}

	//期限切れ
	if rt.ExpiresAt.Before(u.clock.Now()) {
		_ = u.rtRepo.DeleteByID(ctx, rt.ID)
		return nil, unauthorizedError("refresh token expired")
	}

	//revoked
	if rt.RevokedAt != nil {
		return nil, unauthorizedError("invalid refresh token")
	}

	//used済みが来たら replay → 全削除
	if rt.UsedAt != nil {
		_ = u.rtRepo.DeleteAllByUserID(ctx, rt.UserID)
		return nil, unauthorizedError("refresh token reuse detected")
	}

	//user_agent違い（再認証扱い。全削除）
	if userAgent != "" && rt.UserAgent != "" && userAgent != rt.UserAgent {
		_ = u.rtRepo.DeleteAllByUserID(ctx, rt.UserID)
		return nil, unauthorizedError("refresh token reuse detected")
	}

	user, err := u.users.FindByID(ctx, rt.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, unauthorizedError("invalid refresh token")
	}
	if err != nil {
		return nil, internalError(err)
	}
	if !user.IsActive {
		return nil, forbiddenError("user is inactive")
	}

	//旧tokenをusedにする（同時に2回来たら片方は負ける）
	if err := u.rtRepo.MarkUsed(ctx, rt.ID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, internalError(err)
		}
		_ = u.rtRepo.DeleteAllByUserID(ctx, rt.UserID)
		return nil, unauthorizedError("refresh token reuse detected")
	}

	token, refreshPlain, csrfPlain, err := u.issueTokens(ctx, user, userAgent)
	if err != nil {
		return nil, err
	}

	return &RefreshResult{
		Body:              token,
		RefreshTokenPlain: refreshPlain,
		CsrfTokenPlain:    csrfPlain,
	}, nil
}

// refreshを削除（失効）。無くても成功扱い
func (u *AuthUsecase) Logout(ctx context.Context, refreshTokenPlain string) error {
	if refreshTokenPlain == "" {
		return nil
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(refreshTokenPlain))
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return internalError(err)
	}

	if err := u.rtRepo.DeleteByID(ctx, rt.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return internalError(err)
	}
	return nil
}

// token_versionを上げて発行済みアクセストークンを無効化し、refreshも全削除
func (u *AuthUsecase) ForceLogout(ctx context.Context, targetUserID int64) (*ForceLogoutResponse, error) {
	if err := u.validator.ValidateForceLogout(ctx, targetUserID); err != nil {
		return nil, err
	}

	err := u.users.IncrementTokenVersion(ctx, targetUserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("user not found")
	}
	if err != nil {
		return nil, internalError(err)
	}

	if err := u.rtRepo.DeleteAllByUserID(ctx, targetUserID); err != nil {
		return nil, internalError(err)
	}

	//更新後を取得してnew_token_versionを返す
	user, err := u.users.FindByID(ctx, targetUserID)
	if err != nil {
		return nil, internalError(err)
	}

	return &ForceLogoutResponse{
		UserID:          user.ID,
		NewTokenVersion: user.TokenVersion,
	}, nil
}

// access + refresh(DBにはhash) + csrf
func (u *AuthUsecase) issueTokens(ctx context.Context, user *model.User, userAgent string) (JwtAccessTokenDTO, string, string, error) {
	accessToken, expiresIn, err := u.issueAccessToken(user)
	if err != nil {
		return JwtAccessTokenDTO{}, "", "", internalError(err)
	}

	refreshPlain, refreshHash, err := newRandomTokenAndHash()
	if err != nil {
		return JwtAccessTokenDTO{}, "", "", internalError(err)
	}

	rt := &model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: refreshHash,
		UserAgent: userAgent,
		ExpiresAt: u.clock.Now().Add(u.settings.RefreshTokenTTL),
	}
	if err := u.rtRepo.Create(ctx, rt); err != nil {
		return JwtAccessTokenDTO{}, "", "", internalError(err)
	}

	csrfPlain, _, err := newRandomTokenAndHash()
	if err != nil {
		return JwtAccessTokenDTO{}, "", "", internalError(err)
	}

	return JwtAccessTokenDTO{
		AccessToken:  accessToken,
		ExpiresIn:    expiresIn,
		TokenVersion: user.TokenVersion,
	}, refreshPlain, csrfPlain, nil
}

// jwt発行
func (u *AuthUsecase) issueAccessToken(user *model.User) (string, int, error) {
	now := u.clock.Now()
	exp := now.Add(u.settings.AccessTokenTTL)

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"tv":   user.TokenVersion,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := t.SignedString([]byte(u.settings.JWTSecret))
	if err != nil {
		return "", 0, err
	}

	return signed, int(u.settings.AccessTokenTTL.Seconds()), nil
}

// refresh token生成（平文 + DB保存hash）
func newRandomTokenAndHash() (plain string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}

	plain = base64.RawURLEncoding.EncodeToString(b)
	return plain, hashToken(plain), nil
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// model.UserをAPI返却用DTOに変換。
func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         string(u.Role),
		IsApproved:   u.IsApproved,
		TokenVersion: u.TokenVersion,
		IsActive:     u.IsActive,
	}
}
