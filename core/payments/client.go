// Package payments is a client for the payments HTTP API: email OTP login,
// profile, wallet balances and outgoing transfers.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/m3rciful/copperbot/core/logger"
	"github.com/m3rciful/copperbot/core/telegram/netutil"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultCurrency = "USDC"
	maxBodyBytes    = 1 << 20
)

// Observer receives one call per finished request. status is 0 on transport errors.
type Observer func(op string, status int, took time.Duration, err error)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default retrying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCurrency sets the currency sent with transfers.
func WithCurrency(currency string) Option {
	return func(c *Client) {
		if currency = strings.TrimSpace(currency); currency != "" {
			c.currency = currency
		}
	}
}

// WithObserver registers a request observer, typically metrics.
func WithObserver(fn Observer) Option {
	return func(c *Client) { c.observe = fn }
}

// Client talks to the payments API. It is safe for concurrent use.
type Client struct {
	baseURL  string
	currency string
	timeout  time.Duration
	http     *http.Client
	observe  Observer
}

// New builds a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		currency: defaultCurrency,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = netutil.NewClient(netutil.ClientOptions{
			Timeout:        c.timeout,
			MaxRetries:     2,
			RetryBackoff:   500 * time.Millisecond,
			IdempotentOnly: true,
		})
	}
	return c
}

// Currency returns the currency used for transfers.
func (c *Client) Currency() string { return c.currency }

// RequestOTP asks the API to email a one-time password.
func (c *Client) RequestOTP(ctx context.Context, email string) (OTPChallenge, error) {
	res, err := c.do(ctx, OpRequestOTP, http.MethodPost, "/api/auth/email-otp/request", "", map[string]any{
		"email": email,
	})
	if err != nil {
		return OTPChallenge{}, err
	}
	sid := res.Get("sid").String()
	if sid == "" {
		return OTPChallenge{}, c.unexpected(OpRequestOTP, "missing sid")
	}
	challenge := OTPChallenge{Email: res.Get("email").String(), SID: sid}
	if challenge.Email == "" {
		challenge.Email = email
	}
	return challenge, nil
}

// VerifyOTP exchanges the OTP for an access token.
func (c *Client) VerifyOTP(ctx context.Context, email, otp, sid string) (Authentication, error) {
	res, err := c.do(ctx, OpVerifyOTP, http.MethodPost, "/api/auth/email-otp/authenticate", "", map[string]any{
		"email": email,
		"otp":   otp,
		"sid":   sid,
	})
	if err != nil {
		return Authentication{}, err
	}
	token := res.Get("accessToken").String()
	if token == "" {
		return Authentication{}, c.unexpected(OpVerifyOTP, "missing accessToken")
	}
	expireAt, err := parseExpiry(res.Get("expireAt"))
	if err != nil {
		return Authentication{}, c.unexpected(OpVerifyOTP, err.Error())
	}
	return Authentication{
		AccessToken: token,
		ExpireAt:    expireAt,
		User:        parseUser(res.Get("user")),
	}, nil
}

// FetchProfile returns the profile of the token owner.
func (c *Client) FetchProfile(ctx context.Context, token string) (User, error) {
	res, err := c.do(ctx, OpFetchProfile, http.MethodGet, "/api/auth/me", token, nil)
	if err != nil {
		return User{}, err
	}
	if !res.IsObject() {
		return User{}, c.unexpected(OpFetchProfile, "profile is not an object")
	}
	return parseUser(res), nil
}

// FetchBalances lists the wallet balances of the token owner.
func (c *Client) FetchBalances(ctx context.Context, token string) ([]Balance, error) {
	res, err := c.do(ctx, OpFetchBalances, http.MethodGet, "/api/wallets/balances", token, nil)
	if err != nil {
		return nil, err
	}
	if !res.IsArray() {
		return nil, c.unexpected(OpFetchBalances, "balances is not an array")
	}
	items := res.Array()
	balances := make([]Balance, 0, len(items))
	for _, item := range items {
		currency := item.Get("currency").String()
		if currency == "" {
			currency = c.currency
		}
		balances = append(balances, Balance{
			Network:       item.Get("network").String(),
			Balance:       item.Get("balance").Float(),
			Currency:      currency,
			WalletAddress: item.Get("walletAddress").String(),
			WalletID:      item.Get("walletId").String(),
		})
	}
	return balances, nil
}

// TransferByEmail sends amount to the account registered under recipient.
func (c *Client) TransferByEmail(ctx context.Context, token, recipient string, amount float64, message string) error {
	_, err := c.do(ctx, OpTransferByEmail, http.MethodPost, "/api/transfers/send", token, map[string]any{
		"recipient": recipient,
		"amount":    amount,
		"message":   message,
		"currency":  c.currency,
	})
	return err
}

// TransferByWallet withdraws amount to an external address on network.
func (c *Client) TransferByWallet(ctx context.Context, token, address string, amount float64, network string) error {
	_, err := c.do(ctx, OpTransferByWallet, http.MethodPost, "/api/transfers/wallet-withdraw", token, map[string]any{
		"toAddress": address,
		"amount":    amount,
		"currency":  c.currency,
		"network":   network,
	})
	return err
}

func (c *Client) do(ctx context.Context, op, method, path, token string, payload any) (gjson.Result, error) {
	start := time.Now()
	requestID := uuid.NewString()

	status, body, err := c.roundTrip(ctx, op, method, path, token, requestID, payload)
	took := time.Since(start)
	if c.observe != nil {
		c.observe(op, status, took, err)
	}

	attrs := []slog.Attr{
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", requestID),
		slog.Int("http_code", status),
		slog.Duration("api_duration", took),
		slog.String("status", logger.Status(err)),
	}
	if err != nil {
		logger.Warn(ctx, logger.CompPayments, "payments.request", append(attrs, logger.Err(err))...)
		return gjson.Result{}, err
	}
	logger.Debug(ctx, logger.CompPayments, "payments.request", attrs...)
	return gjson.ParseBytes(body), nil
}

func (c *Client) roundTrip(ctx context.Context, op, method, path, token, requestID string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("payments %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("payments %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &APIError{Op: op, Message: fallbackMessage(op), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, &APIError{Op: op, Status: resp.StatusCode, Message: fallbackMessage(op), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fallbackMessage(op)
		if gjson.ValidBytes(body) {
			if m := strings.TrimSpace(gjson.GetBytes(body, "message").String()); m != "" {
				msg = m
			}
		}
		return resp.StatusCode, body, &APIError{Op: op, Status: resp.StatusCode, Message: msg}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return resp.StatusCode, []byte("{}"), nil
	}
	if !gjson.ValidBytes(body) {
		return resp.StatusCode, nil, &APIError{Op: op, Status: resp.StatusCode, Message: fallbackMessage(op), Err: ErrUnexpectedResponse}
	}
	return resp.StatusCode, body, nil
}

func (c *Client) unexpected(op, detail string) error {
	return &APIError{Op: op, Message: fallbackMessage(op), Err: fmt.Errorf("%w: %s", ErrUnexpectedResponse, detail)}
}

// parseExpiry accepts an RFC 3339 string or unix milliseconds.
func parseExpiry(v gjson.Result) (time.Time, error) {
	switch v.Type {
	case gjson.Number:
		return time.UnixMilli(v.Int()), nil
	case gjson.String:
		t, err := time.Parse(time.RFC3339Nano, v.String())
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid expireAt %q", v.String())
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("missing expireAt")
}

func parseUser(v gjson.Result) User {
	return User{
		ID:                v.Get("id").String(),
		FirstName:         v.Get("firstName").String(),
		LastName:          v.Get("lastName").String(),
		Email:             v.Get("email").String(),
		OrganizationID:    v.Get("organizationId").String(),
		Role:              v.Get("role").String(),
		Status:            v.Get("status").String(),
		Type:              v.Get("type").String(),
		WalletAddress:     v.Get("walletAddress").String(),
		WalletID:          v.Get("walletId").String(),
		WalletAccountType: v.Get("walletAccountType").String(),
	}
}
