package vendorform

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// Повторы отправки: всего submitAttempts попыток с паузой submitPause между ними.
const (
	submitAttempts = 3
	submitPause    = time.Second
)

// Submitter отправляет собранную multipart-анкету в бизнес-бэкенд.
type Submitter interface {
	CreateVendor(ctx context.Context, contentType string, payload []byte, idempotencyKey string) error
}

// Submit проверяет оба этапа анкеты, собирает multipart-пакет и отправляет
// его с ограниченным числом повторов. Первый успех прекращает повторы;
// после исчерпания попыток возвращается последняя ошибка.
func Submit(ctx context.Context, s Submitter, d *Draft) error {
	return submit(ctx, s, d, retry.NewConstant(submitPause))
}

func submit(ctx context.Context, s Submitter, d *Draft, pause retry.Backoff) error {
	if errs := d.Validate(); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}

	contentType, payload, err := buildPayload(d)
	if err != nil {
		return err
	}

	// Один ключ идемпотентности на все повторы одной отправки.
	key := uuid.NewString()

	backoff := retry.WithMaxRetries(submitAttempts-1, pause)
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.CreateVendor(ctx, contentType, payload, key); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// buildPayload собирает multipart-пакет: текстовые поля, меню в формате JSON
// и сжатые изображения.
func buildPayload(d *Draft) (string, []byte, error) {
	var buf strings.Builder
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"phone":         d.Credentials.Phone,
		"password":      d.Credentials.Password,
		"name":          d.Profile.Name,
		"email":         d.Profile.Email,
		"address":       d.Profile.Address,
		"fssaiNumber":   d.Profile.FSSAINumber,
		"gstin":         strings.ToUpper(d.Profile.GSTIN),
		"accountHolder": d.Profile.AccountHolder,
		"accountNumber": d.Profile.AccountNumber,
		"ifsc":          strings.ToUpper(d.Profile.IFSC),
		"bankName":      d.Profile.BankName,
		"bankBranch":    d.Profile.BankBranch,
		"openingTime":   d.Profile.OpeningTime,
		"closingTime":   d.Profile.ClosingTime,
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := w.WriteField(name, value); err != nil {
			return "", nil, fmt.Errorf("write field %s: %w", name, err)
		}
	}

	menu, err := json.Marshal(d.Profile.Sections)
	if err != nil {
		return "", nil, fmt.Errorf("marshal menu: %w", err)
	}
	if err := w.WriteField("menu", string(menu)); err != nil {
		return "", nil, fmt.Errorf("write menu: %w", err)
	}

	if err := writeImage(w, "logo", d.Profile.Logo); err != nil {
		return "", nil, err
	}
	if err := writeImage(w, "fssaiCertificate", d.Profile.FSSAICertificate); err != nil {
		return "", nil, err
	}
	if err := writeImage(w, "gstCertificate", d.Profile.GSTCertificate); err != nil {
		return "", nil, err
	}
	for i, section := range d.Profile.Sections {
		for j := range section.Photos {
			field := fmt.Sprintf("menuPhoto_%d_%d", i, j)
			if err := writeImage(w, field, &section.Photos[j]); err != nil {
				return "", nil, err
			}
		}
	}

	if err := w.Close(); err != nil {
		return "", nil, fmt.Errorf("close multipart writer: %w", err)
	}

	return w.FormDataContentType(), []byte(buf.String()), nil
}

func writeImage(w *multipart.Writer, field string, img *Image) error {
	if img == nil {
		return nil
	}

	compressed, err := CompressImage(img.Data)
	if err != nil {
		return fmt.Errorf("compress %s: %w", field, err)
	}

	part, err := w.CreateFormFile(field, img.Name)
	if err != nil {
		return fmt.Errorf("create part %s: %w", field, err)
	}
	if _, err := part.Write(compressed); err != nil {
		return fmt.Errorf("write part %s: %w", field, err)
	}
	return nil
}
