package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   gjson.Result
}

func newTestServer(t *testing.T, status int, body string) (*Client, *[]recordedRequest) {
	t.Helper()
	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&raw)
		seen = append(seen, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   gjson.ParseBytes(raw),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", WithTimeout(2*time.Second)), &seen
}

func TestRequestOTP(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK, `{"email":"a@b.co","sid":"S1"}`)

	challenge, err := client.RequestOTP(context.Background(), "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, OTPChallenge{Email: "a@b.co", SID: "S1"}, challenge)

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/auth/email-otp/request", req.Path)
	assert.Equal(t, "a@b.co", req.Body.Get("email").String())
	assert.Empty(t, req.Header.Get("Authorization"))
	_, err = uuid.Parse(req.Header.Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestRequestOTPErrorMessage(t *testing.T) {
	client, _ := newTestServer(t, http.StatusBadRequest, `{"message":"Unknown email"}`)

	_, err := client.RequestOTP(context.Background(), "a@b.co")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, OpRequestOTP, apiErr.Op)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Unknown email", apiErr.Message)
}

func TestFallbackMessageWhenBodyHasNone(t *testing.T) {
	client, _ := newTestServer(t, http.StatusBadGateway, `<html>bad gateway</html>`)

	_, err := client.VerifyOTP(context.Background(), "a@b.co", "123456", "S1")
	assert.Equal(t, "Failed to authenticate", Message(err, "x"))
	assert.Equal(t, "x", Message(errors.New("plain"), "x"))
}

func TestVerifyOTP(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK, `{
		"accessToken": "T1",
		"expireAt": "2030-01-02T03:04:05Z",
		"user": {"id": "u1", "email": "a@b.co", "organizationId": "o1", "firstName": "Ann"}
	}`)

	auth, err := client.VerifyOTP(context.Background(), "a@b.co", "123456", "S1")
	require.NoError(t, err)
	assert.Equal(t, "T1", auth.AccessToken)
	assert.Equal(t, time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC), auth.ExpireAt.UTC())
	assert.Equal(t, "u1", auth.User.ID)
	assert.Equal(t, "o1", auth.User.OrganizationID)
	assert.Equal(t, "Ann", auth.User.FirstName)

	body := (*seen)[0].Body
	assert.Equal(t, "123456", body.Get("otp").String())
	assert.Equal(t, "S1", body.Get("sid").String())
}

func TestVerifyOTPRejectsMissingToken(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, `{"expireAt":"2030-01-02T03:04:05Z"}`)

	_, err := client.VerifyOTP(context.Background(), "a@b.co", "1", "S1")
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestVerifyOTPAcceptsMillisExpiry(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, `{"accessToken":"T","expireAt":1893456000000,"user":{}}`)

	auth, err := client.VerifyOTP(context.Background(), "a@b.co", "1", "S1")
	require.NoError(t, err)
	assert.Equal(t, int64(1893456000000), auth.ExpireAt.UnixMilli())
}

func TestFetchBalances(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK, `[
		{"network":"8453","balance":"60.5","currency":"USDC","walletAddress":"0xabc","walletId":"w1"},
		{"network":"137","balance":39.5}
	]`)

	balances, err := client.FetchBalances(context.Background(), "T1")
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, 60.5, balances[0].Balance)
	assert.Equal(t, "w1", balances[0].WalletID)
	assert.Equal(t, "USDC", balances[1].Currency)
	assert.InDelta(t, 100.0, TotalBalance(balances), 1e-9)
	assert.True(t, HasFunds(balances))

	req := (*seen)[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "Bearer T1", req.Header.Get("Authorization"))
}

func TestFetchBalancesRejectsObject(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, `{"balances":[]}`)

	_, err := client.FetchBalances(context.Background(), "T1")
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestFetchProfile(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK, `{"id":"u1","role":"owner","walletAddress":"0x1234"}`)

	user, err := client.FetchProfile(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "owner", user.Role)
	assert.Equal(t, "/api/auth/me", (*seen)[0].Path)
}

func TestTransfers(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK, `{"id":"tx1"}`)

	require.NoError(t, client.TransferByEmail(context.Background(), "T1", "bob@x.io", 50, ""))
	require.NoError(t, client.TransferByWallet(context.Background(), "T1", "0xabc", 75, "8453"))

	require.Len(t, *seen, 2)
	email := (*seen)[0]
	assert.Equal(t, "/api/transfers/send", email.Path)
	assert.Equal(t, "bob@x.io", email.Body.Get("recipient").String())
	assert.Equal(t, 50.0, email.Body.Get("amount").Float())
	assert.Equal(t, "", email.Body.Get("message").String())
	assert.Equal(t, "USDC", email.Body.Get("currency").String())

	wallet := (*seen)[1]
	assert.Equal(t, "/api/transfers/wallet-withdraw", wallet.Path)
	assert.Equal(t, "0xabc", wallet.Body.Get("toAddress").String())
	assert.Equal(t, 75.0, wallet.Body.Get("amount").Float())
	assert.Equal(t, "8453", wallet.Body.Get("network").String())
}

func TestTransferFailureUsesFallback(t *testing.T) {
	client, _ := newTestServer(t, http.StatusInternalServerError, ``)

	err := client.TransferByWallet(context.Background(), "T1", "0xabc", 1, "1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Failed to send funds to wallet", apiErr.Message)
}

func TestTransportErrorAndObserver(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var ops []string
	var statuses []int
	client := New(url, WithObserver(func(op string, status int, _ time.Duration, err error) {
		ops = append(ops, op)
		statuses = append(statuses, status)
	}), WithHTTPClient(&http.Client{Timeout: time.Second}))

	_, err := client.RequestOTP(context.Background(), "a@b.co")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.Status)
	assert.Equal(t, "Failed to request OTP", apiErr.Message)
	assert.Equal(t, []string{OpRequestOTP}, ops)
	assert.Equal(t, []int{0}, statuses)
}

func TestCurrencyOption(t *testing.T) {
	assert.Equal(t, "USDC", New("http://x").Currency())
	assert.Equal(t, "EURC", New("http://x", WithCurrency("EURC")).Currency())
}

func TestBalanceArithmeticInMinorUnits(t *testing.T) {
	balances := []Balance{{Balance: 0.7}, {Balance: 0.1}, {Balance: 0.2}}

	assert.Equal(t, 1.0, TotalBalance(balances))
	assert.Equal(t, int64(800000), MinorUnits(0.7+0.1))
	assert.True(t, Covers(balances, 1))
	assert.True(t, Covers(balances[:2], 0.8))
	assert.False(t, Covers(balances[:2], 0.800001))
	assert.False(t, Covers(nil, 0.01))
}
