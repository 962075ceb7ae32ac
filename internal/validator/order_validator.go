package validator

import (
	"errors"
	"regexp"
	"strings"
)

// メール形式の最低限チェック
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var (
	ErrNameRequired  = errors.New("customer_name is required")
	ErrEmailInvalid  = errors.New("customer_email is invalid")
	ErrPhoneRequired = errors.New("customer_phone is required")
)

// 注文者情報の検証。足りなければ最初に見つけたエラーを返す。
func ValidateCustomerInfo(name, email, phone string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return ErrEmailInvalid
	}
	if strings.TrimSpace(phone) == "" {
		return ErrPhoneRequired
	}
	return nil
}
