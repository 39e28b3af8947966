package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const PayPalSandboxURL = "https://api-m.sandbox.paypal.com"

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	ReturnURL    string
	CancelURL    string
}

// PayPal talks to the Orders v2 REST API. The OAuth token is cached and renewed
// one minute before it expires.
type PayPal struct {
	cfg        PayPalConfig
	httpClient *http.Client
	now        func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

type PayPalOrder struct {
	ID          string
	Status      string
	ApprovalURL string
	Amount      string
	Currency    string
	Raw         []byte
}

// PayPalError is the error body PayPal returns for 4xx/5xx responses.
type PayPalError struct {
	StatusCode int    `json:"-"`
	Name       string `json:"name"`
	Message    string `json:"message"`
	DebugID    string `json:"debug_id"`
	Details    []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
}

func (e *PayPalError) Error() string {
	return fmt.Sprintf("paypal %d %s: %s (debug_id=%s)", e.StatusCode, e.Name, e.Message, e.DebugID)
}

func (e *PayPalError) hasIssue(issue string) bool {
	for _, d := range e.Details {
		if d.Issue == issue {
			return true
		}
	}
	return false
}

func NewPayPal(cfg PayPalConfig) *PayPal {
	if cfg.BaseURL == "" {
		cfg.BaseURL = PayPalSandboxURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &PayPal{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
}

func (p *PayPal) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" && p.now().Before(p.expiresAt) {
		return p.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build paypal token request: %w", err)
	}
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var parsed struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if _, err := p.do(req, &parsed); err != nil {
		return "", fmt.Errorf("paypal token: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("paypal token response missing access_token")
	}

	p.token = parsed.AccessToken
	p.expiresAt = p.now().Add(time.Duration(parsed.ExpiresIn-60) * time.Second)
	return p.token, nil
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
	PurchaseUnits []struct {
		Amount *struct {
			CurrencyCode string `json:"currency_code"`
			Value        string `json:"value"`
		} `json:"amount"`
		Payments struct {
			Captures []struct {
				Status string `json:"status"`
				Amount struct {
					CurrencyCode string `json:"currency_code"`
					Value        string `json:"value"`
				} `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (o orderResponse) toOrder(raw []byte) *PayPalOrder {
	order := &PayPalOrder{ID: o.ID, Status: o.Status, Raw: raw}
	for _, l := range o.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			order.ApprovalURL = l.Href
		}
	}
	if len(o.PurchaseUnits) > 0 {
		pu := o.PurchaseUnits[0]
		if pu.Amount != nil {
			order.Amount, order.Currency = pu.Amount.Value, pu.Amount.CurrencyCode
		}
		if len(pu.Payments.Captures) > 0 {
			c := pu.Payments.Captures[0]
			order.Amount, order.Currency = c.Amount.Value, c.Amount.CurrencyCode
		}
	}
	return order
}

// CreateOrder opens a CAPTURE order for a USD amount formatted with two decimals.
func (p *PayPal) CreateOrder(ctx context.Context, usdAmount, description, referenceID string) (*PayPalOrder, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": referenceID,
			"description":  description,
			"amount": map[string]string{
				"currency_code": "USD",
				"value":         usdAmount,
			},
		}},
		"application_context": map[string]string{
			"return_url":  p.cfg.ReturnURL,
			"cancel_url":  p.cfg.CancelURL,
			"user_action": "PAY_NOW",
		},
	}
	return p.orderCall(ctx, http.MethodPost, "/v2/checkout/orders", payload)
}

func (p *PayPal) GetOrder(ctx context.Context, orderID string) (*PayPalOrder, error) {
	return p.orderCall(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(orderID), nil)
}

// CaptureOrder captures an approved order. An order captured earlier is read back
// instead so the caller can still check its status.
func (p *PayPal) CaptureOrder(ctx context.Context, orderID string) (*PayPalOrder, error) {
	order, err := p.orderCall(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", map[string]any{})
	if err != nil {
		var ppErr *PayPalError
		if errors.As(err, &ppErr) && ppErr.hasIssue("ORDER_ALREADY_CAPTURED") {
			return p.GetOrder(ctx, orderID)
		}
		return nil, err
	}
	return order, nil
}

func (p *PayPal) orderCall(ctx context.Context, method, path string, payload any) (*PayPalOrder, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal paypal payload: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build paypal request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	var parsed orderResponse
	raw, err := p.do(req, &parsed)
	if err != nil {
		return nil, err
	}
	return parsed.toOrder(raw), nil
}

func (p *PayPal) do(req *http.Request, out any) ([]byte, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read paypal response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		ppErr := &PayPalError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(raw, ppErr); jsonErr != nil || ppErr.Name == "" {
			ppErr.Name = http.StatusText(resp.StatusCode)
			ppErr.Message = strings.TrimSpace(string(raw))
		}
		return nil, ppErr
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode paypal response: %w", err)
	}
	return raw, nil
}
