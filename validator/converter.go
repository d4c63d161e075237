// Package validator 提供统一的参数校验和错误转换
package validator

import (
	"errors"

	"github.com/Taro2021/springcloud/errcode"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validatable 可校验接口
type Validatable interface {
	Validate() error
}

// ValidateRequest 校验请求，ozzo-validation 错误转换为 errcode.ErrBadRequest
func ValidateRequest(req Validatable) error {
	err := req.Validate()
	if err == nil {
		return nil
	}

	var validationErrs validation.Errors
	if errors.As(err, &validationErrs) {
		return ConvertValidationError(validationErrs)
	}
	return errcode.ErrBadRequest.WithMsg(err.Error())
}

// ConvertValidationError 字段级错误放到 data.fields
func ConvertValidationError(validationErrs validation.Errors) error {
	fields := make(map[string]string, len(validationErrs))
	for field, fieldErr := range validationErrs {
		if fieldErr != nil {
			fields[field] = fieldErr.Error()
		}
	}

	return errcode.ErrBadRequest.WithData("fields", fields)
}
