// Package enrich содержит best-effort обогащение анкеты вендора
// данными внешних справочников.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// BankInfo описывает банк и отделение, найденные по коду IFSC.
type BankInfo struct {
	Bank   string `json:"BANK"`
	Branch string `json:"BRANCH"`
}

// IFSCClient запрашивает справочник банков по коду IFSC.
// Ошибка поиска не фатальна: вызывающая сторона лишь отключает автозаполнение.
type IFSCClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewIFSCClient создаёт клиент справочника IFSC по указанному адресу.
func NewIFSCClient(baseURL string) *IFSCClient {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 1
	retryClient.RetryWaitMin = 300 * time.Millisecond
	retryClient.RetryWaitMax = time.Second
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = 5 * time.Second

	return &IFSCClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: retryClient.StandardClient(),
	}
}

// Lookup возвращает банк и отделение по коду IFSC.
func (c *IFSCClient) Lookup(ctx context.Context, code string) (*BankInfo, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("ifsc lookup not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+strings.ToUpper(code), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("ifsc code not found: %s", code)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var info BankInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &info, nil
}
