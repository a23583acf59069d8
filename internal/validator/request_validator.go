package validator

import (
	"marketplace/internal/usecase"

	playground "github.com/go-playground/validator/v10"
)

// EchoのValidator。handlerはBindの後にc.Validateを呼ぶ
type RequestValidator struct {
	v *playground.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{v: usecase.NewInputValidator()}
}

// 失敗はErrValidation（400）
func (rv *RequestValidator) Validate(i interface{}) error {
	return usecase.ValidationFromTags(rv.v.Struct(i))
}
