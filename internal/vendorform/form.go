// Package vendorform реализует двухэтапную анкету подключения вендора:
// учётные данные, затем профиль бизнеса, сборка multipart-пакета и отправка.
package vendorform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mmeshcher/mealboard-admin/internal/validation"
)

// Image — изображение, приложенное к анкете.
type Image struct {
	Name string
	Data []byte
}

// MenuItem описывает блюдо меню, привязанное к дню недели.
type MenuItem struct {
	Day   string  `json:"day"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// MenuSection описывает раздел меню вендора.
type MenuSection struct {
	MenuType string     `json:"menuType"`
	MealType string     `json:"mealType"`
	Items    []MenuItem `json:"items"`
	Photos   []Image    `json:"-"`
}

// Credentials — этап 0 анкеты.
type Credentials struct {
	Phone           string
	Password        string
	ConfirmPassword string
}

// Profile — этап 1 анкеты.
type Profile struct {
	Name    string
	Email   string
	Address string
	Logo    *Image

	FSSAINumber      string
	FSSAICertificate *Image

	GSTIN          string
	GSTCertificate *Image

	AccountHolder string
	AccountNumber string
	IFSC          string
	BankName      string
	BankBranch    string

	OpeningTime string
	ClosingTime string

	Sections []MenuSection
}

// Draft — черновик анкеты. Живёт только пока открыт диалог подключения
// и никогда не сохраняется частично.
type Draft struct {
	Credentials Credentials
	Profile     Profile
	Stage       int
}

// FieldErrors сопоставляет имени поля сообщение об ошибке.
type FieldErrors map[string]string

// ValidationError сигнализирует, что анкета не прошла проверку полей.
// За пределы формы ошибки полей не выходят: вызывающая сторона показывает
// их рядом с полями.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("form validation failed: %s", strings.Join(names, ", "))
}

// ValidateCredentials проверяет этап 0: телефон, пароль и его подтверждение.
func ValidateCredentials(c Credentials) FieldErrors {
	errs := FieldErrors{}

	if c.Phone == "" {
		errs["phone"] = "phone is required"
	} else if !validation.IsValidPhone(c.Phone) {
		errs["phone"] = "enter a valid 10-digit mobile number"
	}

	if c.Password == "" {
		errs["password"] = "password is required"
	} else if len(c.Password) < 6 {
		errs["password"] = "password must be at least 6 characters"
	}

	if c.ConfirmPassword == "" {
		errs["confirmPassword"] = "confirm the password"
	} else if c.ConfirmPassword != c.Password {
		errs["confirmPassword"] = "passwords do not match"
	}

	return errs
}

// ValidateProfile проверяет этап 1: профиль бизнеса, документы, банк и меню.
func ValidateProfile(p Profile) FieldErrors {
	errs := FieldErrors{}

	if p.Name == "" {
		errs["name"] = "business name is required"
	}
	if p.Email == "" {
		errs["email"] = "email is required"
	} else if !validation.IsValidEmail(p.Email) {
		errs["email"] = "enter a valid email"
	}
	if p.Address == "" {
		errs["address"] = "address is required"
	}
	if p.Logo == nil {
		errs["logo"] = "logo image is required"
	}

	if p.FSSAINumber == "" {
		errs["fssaiNumber"] = "FSSAI number is required"
	}
	if p.FSSAICertificate == nil {
		errs["fssaiCertificate"] = "FSSAI certificate image is required"
	}

	// GSTIN необязателен, но указанный должен быть корректным.
	if p.GSTIN != "" && !validation.IsValidGSTIN(strings.ToUpper(p.GSTIN)) {
		errs["gstin"] = "enter a valid 15-character GSTIN"
	}

	if p.AccountHolder == "" {
		errs["accountHolder"] = "account holder name is required"
	}
	if p.AccountNumber == "" {
		errs["accountNumber"] = "account number is required"
	} else if !validation.IsValidAccountNumber(p.AccountNumber) {
		errs["accountNumber"] = "account number must be 9 to 18 digits"
	}
	if p.IFSC == "" {
		errs["ifsc"] = "IFSC code is required"
	} else if !validation.IsValidIFSC(p.IFSC) {
		errs["ifsc"] = "enter a valid IFSC code"
	}

	if p.OpeningTime == "" {
		errs["openingTime"] = "opening time is required"
	}
	if p.ClosingTime == "" {
		errs["closingTime"] = "closing time is required"
	}

	if len(p.Sections) == 0 {
		errs["menu"] = "add at least one menu section"
	}
	for i, s := range p.Sections {
		prefix := fmt.Sprintf("menu[%d].", i)
		if s.MenuType == "" {
			errs[prefix+"menuType"] = "menu type is required"
		}
		if s.MealType == "" {
			errs[prefix+"mealType"] = "meal type is required"
		}
		if len(s.Items) == 0 {
			errs[prefix+"items"] = "add at least one menu item"
		}
	}

	return errs
}

// Next пытается перевести черновик на следующий этап.
// Возвращает ошибки полей текущего этапа; пустой результат означает переход.
func (d *Draft) Next() FieldErrors {
	if d.Stage == 0 {
		if errs := ValidateCredentials(d.Credentials); len(errs) > 0 {
			return errs
		}
		d.Stage = 1
	}
	return nil
}

// Validate проверяет оба этапа анкеты перед отправкой.
func (d *Draft) Validate() FieldErrors {
	errs := ValidateCredentials(d.Credentials)
	for field, msg := range ValidateProfile(d.Profile) {
		errs[field] = msg
	}
	return errs
}
