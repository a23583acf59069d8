package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/repository"
)

type AddressDTO struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Zip       string    `json:"zip"`
	Phone     string    `json:"phone"`
	Country   string    `json:"country"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// 必須：name, street, city, state, zip, phone（countryは設定値で補う）
type AddressRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Street    string `json:"street" validate:"required,max=255"`
	City      string `json:"city" validate:"required,max=100"`
	State     string `json:"state" validate:"required,max=100"`
	Zip       string `json:"zip" validate:"required,max=20"`
	Phone     string `json:"phone" validate:"required,max=30"`
	Country   string `json:"country" validate:"max=100"`
	IsDefault bool   `json:"is_default"`
}

type AddressUsecase struct {
	tx             repository.TransactionManager
	addresses      repository.AddressRepository
	defaultCountry string
}

func NewAddressUsecase(tx repository.TransactionManager, addresses repository.AddressRepository, defaultCountry string) *AddressUsecase {
	return &AddressUsecase{tx: tx, addresses: addresses, defaultCountry: defaultCountry}
}

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]AddressDTO, error) {
	if userID <= 0 {
		return nil, unauthorizedError("unauthorized")
	}

	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, internalError(err)
	}

	out := make([]AddressDTO, 0, len(list))
	for i := range list {
		out = append(out, toAddressDTO(&list[i]))
	}
	return out, nil
}

// 最初の住所は自動でデフォルト
func (u *AddressUsecase) Create(ctx context.Context, userID int64, req AddressRequest) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, unauthorizedError("unauthorized")
	}

	a, err := u.fromRequest(req)
	if err != nil {
		return AddressDTO{}, err
	}
	a.UserID = userID

	var created model.Address
	err = u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		existing, err := r.Addresses().ListByUserID(ctx, userID)
		if err != nil {
			return err
		}

		created, err = r.Addresses().Create(ctx, a)
		if err != nil {
			return err
		}

		if req.IsDefault || len(existing) == 0 {
			if err := r.Addresses().SetDefault(ctx, userID, created.ID); err != nil {
				return err
			}
			created.IsDefault = true
		}
		return nil
	})
	if err != nil {
		return AddressDTO{}, mapAddressError(err)
	}

	return toAddressDTO(&created), nil
}

func (u *AddressUsecase) Update(ctx context.Context, userID int64, addressID int64, req AddressRequest) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, unauthorizedError("unauthorized")
	}
	if addressID <= 0 {
		return AddressDTO{}, validationError("invalid id")
	}

	a, err := u.fromRequest(req)
	if err != nil {
		return AddressDTO{}, err
	}
	a.ID = addressID
	a.UserID = userID

	var updated model.Address
	err = u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		//所有チェック（他人の住所は404）
		if err := r.Addresses().Update(ctx, a); err != nil {
			return err
		}
		if req.IsDefault {
			if err := r.Addresses().SetDefault(ctx, userID, addressID); err != nil {
				return err
			}
		}
		var err error
		updated, err = r.Addresses().FindByIDForUser(ctx, addressID, userID)
		return err
	})
	if err != nil {
		return AddressDTO{}, mapAddressError(err)
	}

	return toAddressDTO(&updated), nil
}

func (u *AddressUsecase) Delete(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return unauthorizedError("unauthorized")
	}
	if addressID <= 0 {
		return validationError("invalid id")
	}

	if err := u.addresses.Delete(ctx, addressID, userID); err != nil {
		return mapAddressError(err)
	}
	return nil
}

func (u *AddressUsecase) SetDefault(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return unauthorizedError("unauthorized")
	}
	if addressID <= 0 {
		return validationError("invalid id")
	}

	if err := u.addresses.SetDefault(ctx, userID, addressID); err != nil {
		return mapAddressError(err)
	}
	return nil
}

// 前後の空白を落としてから検証
func (u *AddressUsecase) fromRequest(req AddressRequest) (model.Address, error) {
	req = AddressRequest{
		Name:    strings.TrimSpace(req.Name),
		Street:  strings.TrimSpace(req.Street),
		City:    strings.TrimSpace(req.City),
		State:   strings.TrimSpace(req.State),
		Zip:     strings.TrimSpace(req.Zip),
		Phone:   strings.TrimSpace(req.Phone),
		Country: strings.TrimSpace(req.Country),
	}
	if err := validateInput(req); err != nil {
		return model.Address{}, err
	}
	if req.Country == "" {
		req.Country = u.defaultCountry
	}
	return model.Address{
		Name:    req.Name,
		Street:  req.Street,
		City:    req.City,
		State:   req.State,
		Zip:     req.Zip,
		Phone:   req.Phone,
		Country: req.Country,
	}, nil
}

func mapAddressError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFoundError("address not found")
	case errors.Is(err, repository.ErrDuplicate):
		return conflictError("another default address was set at the same time", err)
	default:
		return asAppErrorOrInternal(err)
	}
}

func toAddressDTO(a *model.Address) AddressDTO {
	return AddressDTO{
		ID:        a.ID,
		UserID:    a.UserID,
		Name:      a.Name,
		Street:    a.Street,
		City:      a.City,
		State:     a.State,
		Zip:       a.Zip,
		Phone:     a.Phone,
		Country:   a.Country,
		IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
