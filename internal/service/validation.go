package service

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"krypton/internal/model"
)

// PasswordSymbols 密码中至少要出现其中一个
const PasswordSymbols = "@$!%*?&"

const passwordMinLength = 8

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return ValidPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("document_type", func(fl validator.FieldLevel) bool {
		return model.ValidDocumentType(fl.Field().String())
	})
	return v
}

// ValidPassword 至少 8 位，包含大写、小写、数字和一个特殊符号
func ValidPassword(p string) bool {
	if len(p) < passwordMinLength {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

// validateStruct 只报告第一个不合法的字段
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return newValidationError("", err.Error())
	}
	fe := verrs[0]
	return newValidationError(fe.Field(), tagMessage(fe))
}

// validateVar 校验单个值，field 用于错误提示
func validateVar(field string, value interface{}, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return newValidationError(field, tagMessage(verrs[0]))
	}
	return newValidationError(field, err.Error())
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "e164":
		return "must be an E.164 phone number, e.g. +15551234567"
	case "password":
		return "must be at least 8 characters with upper and lower case letters, a digit and one of " + PasswordSymbols
	case "document_type":
		return "must be one of: " + strings.Join(model.DocumentTypes, ", ")
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}
