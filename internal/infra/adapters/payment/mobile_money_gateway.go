package payment

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"marketplace-payments/internal/config"
	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/adapter"
	"marketplace-payments/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*MobileMoneyGateway)(nil)

const (
	opCollect = "collect"
	opStatus  = "status"
	opBalance = "balance"

	maxBodyBytes = 1 << 20
)

// MobileMoneyGateway talks to the HarakaPay REST API. It holds no per-payment
// state, so one instance is shared by request handlers and the reconciler.
type MobileMoneyGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func NewMobileMoneyGateway(cfg config.GatewayConfig) (*MobileMoneyGateway, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gateway api key empty")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gateway base url %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &MobileMoneyGateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

func (g *MobileMoneyGateway) Name() string { return "harakapay" }

// Collect pushes a USSD prompt to the payer's handset. The amount is sent
// as whole shillings; the provider rejects fractional values.
func (g *MobileMoneyGateway) Collect(ctx context.Context, phone string, amount decimal.Decimal, description string) (*adapter.CollectResult, error) {
	payload := map[string]any{
		"phone":       model.FormatPhone(phone),
		"amount":      amount.IntPart(),
		"description": description,
	}
	b, _ := json.Marshal(payload)

	var out struct {
		Success   bool            `json:"success"`
		OrderID   string          `json:"order_id"`
		Fee       decimal.Decimal `json:"fee"`
		NetAmount decimal.Decimal `json:"net_amount"`
		Error     string          `json:"error"`
	}
	raw, err := g.do(ctx, opCollect, http.MethodPost, "/api/v1/collect", b, &out)
	if err != nil {
		return nil, err
	}
	if !out.Success || out.OrderID == "" {
		return nil, g.reject(opCollect, out.Error)
	}
	return &adapter.CollectResult{
		OrderID:   out.OrderID,
		Fee:       out.Fee,
		NetAmount: out.NetAmount,
		Raw:       raw,
	}, nil
}

func (g *MobileMoneyGateway) CheckStatus(ctx context.Context, orderID string) (*adapter.StatusResult, error) {
	if orderID == "" {
		return nil, domain.ErrInvalidArgument
	}
	var out struct {
		Success bool `json:"success"`
		Payment struct {
			Status string `json:"status"`
		} `json:"payment"`
		Error string `json:"error"`
	}
	raw, err := g.do(ctx, opStatus, http.MethodGet, "/api/v1/status/"+url.PathEscape(orderID), nil, &out)
	if err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, g.reject(opStatus, out.Error)
	}
	return &adapter.StatusResult{
		Status: model.ParseGatewayStatus(out.Payment.Status),
		Raw:    raw,
	}, nil
}

func (g *MobileMoneyGateway) Balance(ctx context.Context) (decimal.Decimal, error) {
	var out struct {
		Success bool            `json:"success"`
		Balance decimal.Decimal `json:"balance"`
		Error   string          `json:"error"`
	}
	if _, err := g.do(ctx, opBalance, http.MethodGet, "/api/v1/balance", nil, &out); err != nil {
		return decimal.Zero, err
	}
	if !out.Success {
		return decimal.Zero, g.reject(opBalance, out.Error)
	}
	return out.Balance, nil
}

func (g *MobileMoneyGateway) reject(op, msg string) error {
	if msg == "" {
		msg = "unsuccessful response"
	}
	return domain.NewGatewayRejected(op, 0, msg)
}

// do sends one request and decodes a JSON body into out. It returns the raw
// body so callers can keep the provider's reply for audit.
func (g *MobileMoneyGateway) do(ctx context.Context, op, method, path string, body []byte, out any) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", domain.NewGatewayUnavailable(op, 0, err.Error())
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rdr)
	if err != nil {
		return "", domain.NewGatewayUnavailable(op, 0, err.Error())
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", g.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		metrics.ObserveGatewayRequest(op, "unavailable", time.Since(start))
		return "", domain.NewGatewayUnavailable(op, 0, err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveGatewayRequest(op, "unavailable", elapsed)
		return "", domain.NewGatewayUnavailable(op, resp.StatusCode, err.Error())
	}
	raw := string(data)

	switch {
	case resp.StatusCode >= 500:
		metrics.ObserveGatewayRequest(op, "unavailable", elapsed)
		return raw, domain.NewGatewayUnavailable(op, resp.StatusCode, errorMessage(data, resp.Status))
	case resp.StatusCode >= 400:
		metrics.ObserveGatewayRequest(op, "rejected", elapsed)
		return raw, domain.NewGatewayRejected(op, resp.StatusCode, errorMessage(data, resp.Status))
	}

	if err := json.Unmarshal(data, out); err != nil {
		metrics.ObserveGatewayRequest(op, "unavailable", elapsed)
		return raw, domain.NewGatewayUnavailable(op, resp.StatusCode, "decode response: "+err.Error())
	}
	metrics.ObserveGatewayRequest(op, "ok", elapsed)
	return raw, nil
}

// errorMessage pulls "error" or "message" out of a JSON error body.
func errorMessage(data []byte, fallback string) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return fallback
}
