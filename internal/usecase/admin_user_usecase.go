package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/repository"

	"github.com/samber/lo"
)

// 出品者の承認・監査ログ閲覧
type AdminUserUsecase struct {
	users repository.UserRepository
	audit repository.AuditLogRepository
}

func NewAdminUserUsecase(users repository.UserRepository, audit repository.AuditLogRepository) *AdminUserUsecase {
	return &AdminUserUsecase{users: users, audit: audit}
}

type SellerListOutput struct {
	Items []UserDTO `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

type AuditLogQuery struct {
	ActorUserID  *int64
	Action       string
	ResourceType string
	ResourceID   *int64
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

// status: pending / approved / 空（全部）
func (u *AdminUserUsecase) ListSellers(ctx context.Context, status string, page, limit int) (SellerListOutput, error) {
	if page < 1 {
		return SellerListOutput{}, validationError("invalid page")
	}
	if limit < 1 || limit > 100 {
		return SellerListOutput{}, validationError("invalid limit")
	}

	f := repository.SellerFilter{Page: page, Limit: limit}
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "":
	case "pending":
		f.Approved = lo.ToPtr(false)
	case "approved":
		f.Approved = lo.ToPtr(true)
	default:
		return SellerListOutput{}, validationError("status must be pending or approved")
	}

	users, total, err := u.users.ListSellers(ctx, f)
	if err != nil {
		return SellerListOutput{}, internalError(err)
	}

	return SellerListOutput{
		Items: lo.Map(users, func(us model.User, _ int) UserDTO { return toUserDTO(&us) }),
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

func (u *AdminUserUsecase) ApproveSeller(ctx context.Context, actorID, sellerID int64) (UserDTO, error) {
	return u.setApproval(ctx, actorID, sellerID, true)
}

func (u *AdminUserUsecase) RevokeSeller(ctx context.Context, actorID, sellerID int64) (UserDTO, error) {
	return u.setApproval(ctx, actorID, sellerID, false)
}

func (u *AdminUserUsecase) setApproval(ctx context.Context, actorID, sellerID int64, approved bool) (UserDTO, error) {
	if actorID <= 0 {
		return UserDTO{}, unauthorizedError("unauthorized")
	}
	if sellerID <= 0 {
		return UserDTO{}, validationError("invalid id")
	}

	before, err := u.users.FindByID(ctx, sellerID)
	if errors.Is(err, repository.ErrNotFound) {
		return UserDTO{}, notFoundError("seller not found")
	}
	if err != nil {
		return UserDTO{}, internalError(err)
	}
	if before.Role != model.RoleSeller {
		return UserDTO{}, notFoundError("seller not found")
	}

	if err := u.users.SetApproved(ctx, sellerID, approved); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return UserDTO{}, notFoundError("seller not found")
		}
		return UserDTO{}, internalError(err)
	}

	action := model.AuditActionApproveSeller
	if !approved {
		action = model.AuditActionRevokeSeller
	}
	if err := u.audit.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceUser,
		ResourceID:   sellerID,
		BeforeJSON:   fmt.Sprintf(`{"is_approved":%t}`, before.IsApproved),
		AfterJSON:    fmt.Sprintf(`{"is_approved":%t}`, approved),
	}); err != nil {
		return UserDTO{}, internalError(err)
	}

	after := *before
	after.IsApproved = approved
	return toUserDTO(&after), nil
}

func (u *AdminUserUsecase) ListAuditLogs(ctx context.Context, q AuditLogQuery) ([]model.AuditLog, error) {
	f := repository.AuditLogFilter{
		ActorUserID: q.ActorUserID,
		ResourceID:  q.ResourceID,
		CreatedFrom: q.From,
		CreatedTo:   q.To,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	if q.Action != "" {
		a := model.AuditAction(strings.ToUpper(q.Action))
		f.Action = &a
	}
	if q.ResourceType != "" {
		rt := model.AuditResourceType(strings.ToLower(q.ResourceType))
		f.ResourceType = &rt
	}

	logs, err := u.audit.List(ctx, f)
	if err != nil {
		return nil, internalError(err)
	}
	return logs, nil
}
