// Package validation содержит проверки реквизитов анкеты вендора.
package validation

import "regexp"

var (
	phoneRe   = regexp.MustCompile(`^[6-9]\d{9}$`)
	gstinRe   = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	ifscRe    = regexp.MustCompile(`^[A-Za-z]{4}\d{6,7}$`)
	accountRe = regexp.MustCompile(`^\d{9,18}$`)
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// IsValidPhone проверяет индийский мобильный номер: десять цифр, первая от 6 до 9.
func IsValidPhone(phone string) bool {
	return phoneRe.MatchString(phone)
}

// IsValidGSTIN проверяет формат 15-символьного номера GSTIN.
func IsValidGSTIN(gstin string) bool {
	return gstinRe.MatchString(gstin)
}

// IsValidIFSC проверяет формат банковского кода IFSC.
func IsValidIFSC(code string) bool {
	return ifscRe.MatchString(code)
}

// IsValidAccountNumber проверяет номер банковского счёта: от 9 до 18 цифр.
func IsValidAccountNumber(number string) bool {
	return accountRe.MatchString(number)
}

// IsValidEmail проверяет адрес электронной почты.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}
