package usecase

import (
	"errors"
	"fmt"
)

// エラーの種類。handlerはこれでステータスコードを決める
var (
	//400 入力不足
	ErrValidation = errors.New("validation error")
	//401 認証失敗
	ErrUnauthorized = errors.New("unauthorized")
	//403 権限
	ErrForbidden = errors.New("forbidden")
	//404
	ErrNotFound = errors.New("not found")
	//409 競合
	ErrConflict = errors.New("conflict")
	//500
	ErrInternal = errors.New("internal error")
)

// usecaseが返すエラー。errors.Is(err, ErrXxx)で種類を判定できる
type AppError struct {
	Kind    error
	Message string //クライアントに返す文言
	Err     error  //ログ用の元エラー
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *AppError) Is(target error) bool {
	return target == e.Kind
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

func validationError(format string, args ...interface{}) error {
	return &AppError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func unauthorizedError(msg string) error {
	return &AppError{Kind: ErrUnauthorized, Message: msg}
}

func forbiddenError(msg string) error {
	return &AppError{Kind: ErrForbidden, Message: msg}
}

func notFoundError(format string, args ...interface{}) error {
	return &AppError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflictError(msg string, err error) error {
	return &AppError{Kind: ErrConflict, Message: msg, Err: err}
}

// 想定外。文言は固定、中身はErrに残す
func internalError(err error) error {
	return &AppError{Kind: ErrInternal, Message: "internal server error", Err: err}
}

// AppErrorでなければ500扱いにする
func asAppErrorOrInternal(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsAppError(err); ok {
		return err
	}
	return internalError(err)
}
