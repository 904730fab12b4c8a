package services

import (
	"strings"
	"unicode/utf8"

	"food-order-bot/models"
)

const MinPasswordLen = 6

const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldPhone    = "phone"
	FieldAddress  = "address"
)

func ValidateLogin(in models.LoginInput) error {
	if strings.TrimSpace(in.Email) == "" {
		return &ValidationError{Field: FieldEmail, Key: "err_required"}
	}
	if in.Password == "" {
		return &ValidationError{Field: FieldPassword, Key: "err_required"}
	}
	return nil
}

func ValidateRegister(in models.RegisterInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: FieldName, Key: "err_required"}
	}
	if strings.TrimSpace(in.Email) == "" {
		return &ValidationError{Field: FieldEmail, Key: "err_required"}
	}
	if !strings.Contains(in.Email, "@") {
		return &ValidationError{Field: FieldEmail, Key: "err_email"}
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLen {
		return &ValidationError{Field: FieldPassword, Key: "err_password_short"}
	}
	return nil
}

func ValidateProfile(in models.ProfileUpdate) error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: FieldName, Key: "err_required"}
	}
	return nil
}
