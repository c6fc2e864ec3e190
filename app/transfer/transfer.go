// Package transfer drives the send funds dialog: method, destination,
// amount and confirmation.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/copperbot/app/auth"
	"github.com/m3rciful/copperbot/core/logger"
	"github.com/m3rciful/copperbot/core/payments"
	"github.com/m3rciful/copperbot/core/session"
	"github.com/m3rciful/copperbot/core/telegram/callbacks"
	"github.com/m3rciful/copperbot/core/telegram/format"
	"github.com/m3rciful/copperbot/core/telegram/reply"
	"github.com/m3rciful/copperbot/core/telegram/state"
)

var amountRe = regexp.MustCompile(`^\d+(\.\d+)?$`)

// API is the balance and transfer half of the payments client.
type API interface {
	FetchBalances(ctx context.Context, token string) ([]payments.Balance, error)
	TransferByEmail(ctx context.Context, token, recipient string, amount float64, message string) error
	TransferByWallet(ctx context.Context, token, address string, amount float64, network string) error
}

// Sessions is the part of the session store the dialog reads.
type Sessions interface {
	Get(chatID int64) (session.Session, bool)
}

// Controller runs the send funds state machine of every chat.
type Controller struct {
	flows     state.Manager
	sessions  Sessions
	api       API
	validator AddressValidator
	currency  string
	now       func() time.Time
}

// Option customises a Controller.
type Option func(*Controller)

// WithValidator replaces the default MinLength{20} address rule.
func WithValidator(v AddressValidator) Option {
	return func(c *Controller) {
		if v != nil {
			c.validator = v
		}
	}
}

// WithCurrency sets the currency named in prompts.
func WithCurrency(currency string) Option {
	return func(c *Controller) {
		if currency != "" {
			c.currency = currency
		}
	}
}

// WithClock overrides the time source used for session checks.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a Controller.
func New(flows state.Manager, sessions Sessions, api API, opts ...Option) *Controller {
	c := &Controller{
		flows:     flows,
		sessions:  sessions,
		api:       api,
		validator: MinLength{N: defaultMinAddressLength},
		currency:  "USDC",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens the dialog at method selection once the chat has a valid
// session and some funds.
func (c *Controller) Start(ctx context.Context, chatID int64, r reply.Responder) error {
	token, ok := c.token(chatID)
	if !ok {
		return r.Send(ctx, reply.Text(loginRequired))
	}

	balances, err := c.fetchBalances(ctx, token)
	if err != nil {
		return r.Send(ctx, reply.Text(balanceError(err)))
	}
	if !payments.HasFunds(balances) {
		logger.Info(ctx, logger.CompTransfer, "transfer.start",
			slog.String("status", "rejected"),
			slog.String("reason", "no_funds"),
		)
		return r.Send(ctx, reply.Text(noFunds))
	}

	c.flows.Put(chatID, SelectMethod{})
	logger.Info(ctx, logger.CompTransfer, "transfer.start", slog.String("status", "ok"))
	return r.Send(ctx, reply.Markdown(selectMethod, methodKeyboard()))
}

// HandleEvent consumes transfer button presses and text typed while a
// transfer dialog is open.
func (c *Controller) HandleEvent(ctx context.Context, ev state.Event, r reply.Responder) (bool, error) {
	if ev.IsCallback() {
		return c.handleCallback(ctx, ev, r)
	}
	if ev.Command() != "" {
		return false, nil
	}
	f, ok := c.flows.Get(ev.ChatID)
	if !ok || f.Owner() != Owner {
		return false, nil
	}

	text := strings.TrimSpace(ev.Text)
	if strings.EqualFold(text, "cancel") {
		return true, c.cancel(ctx, ev.ChatID, r)
	}

	switch f := f.(type) {
	case EnterEmail:
		return true, c.onRecipient(ctx, ev.ChatID, text, r)
	case EnterWalletAddress:
		return true, c.onAddress(ctx, ev.ChatID, text, r)
	case EnterAmount:
		return true, c.onAmount(ctx, ev.ChatID, f, text, r)
	default:
		return true, r.Send(ctx, reply.Text(useButtons))
	}
}

func (c *Controller) handleCallback(ctx context.Context, ev state.Event, r reply.Responder) (bool, error) {
	switch ev.Callback {
	case CallbackCancel:
		return true, c.cancel(ctx, ev.ChatID, r)
	case CallbackMethod, CallbackNetwork, CallbackConfirm:
	default:
		return false, nil
	}

	f, ok := c.flows.Get(ev.ChatID)
	if !ok || f.Owner() != Owner {
		logger.Info(ctx, logger.CompTransfer, "transfer.callback",
			slog.String("status", "skip"),
			slog.String("reason", "expired"),
			slog.String("cb_key", ev.Callback),
		)
		return true, r.Send(ctx, reply.Text(expired))
	}

	switch ev.Callback {
	case CallbackMethod:
		return true, c.onMethod(ctx, ev.ChatID, ev.Payload, r)
	case CallbackNetwork:
		sn, ok := f.(SelectNetwork)
		if !ok {
			return true, r.Send(ctx, reply.Text(expired))
		}
		return true, c.onNetwork(ctx, ev.ChatID, sn, ev.Payload, r)
	default:
		cf, ok := f.(Confirm)
		if !ok {
			return true, r.Send(ctx, reply.Text(expired))
		}
		return true, c.onConfirm(ctx, ev.ChatID, cf, r)
	}
}

func (c *Controller) onMethod(ctx context.Context, chatID int64, payload string, r reply.Responder) error {
	method, ok := callbacks.Choice(payload, MethodEmail, MethodWallet, MethodBank, methodBack)
	if !ok {
		return r.Send(ctx, reply.Text(unknownMethod))
	}
	switch method {
	case MethodEmail:
		c.flows.Put(chatID, EnterEmail{})
		return r.Send(ctx, reply.Markdown(promptEmail, cancelKeyboard()))
	case MethodWallet:
		c.flows.Put(chatID, EnterWalletAddress{})
		return r.Send(ctx, reply.Markdown(promptAddress, cancelKeyboard()))
	case MethodBank:
		c.flows.Put(chatID, SelectMethod{})
		return r.Send(ctx, reply.Text(bankUnavailable, bankKeyboard()))
	default:
		c.flows.Put(chatID, SelectMethod{})
		return r.Send(ctx, reply.Markdown(selectMethod, methodKeyboard()))
	}
}

func (c *Controller) onRecipient(ctx context.Context, chatID int64, text string, r reply.Responder) error {
	if !auth.ValidEmail(text) {
		return r.Send(ctx, reply.Text(invalidEmail))
	}
	c.flows.Put(chatID, EnterAmount{Destination: EmailDestination{Recipient: text}})
	msg := fmt.Sprintf("💰 *Enter Amount*\n\nPlease enter the amount of %s you want to send to %s:", c.currency, format.MD(text))
	return r.Send(ctx, reply.Markdown(msg, cancelKeyboard()))
}

func (c *Controller) onAddress(ctx context.Context, chatID int64, text string, r reply.Responder) error {
	if err := c.validator.Validate(text, ""); err != nil {
		logger.Debug(ctx, logger.CompTransfer, "transfer.address",
			slog.String("status", "rejected"),
			logger.Err(err),
		)
		return r.Send(ctx, reply.Text(invalidAddress))
	}
	c.flows.Put(chatID, SelectNetwork{Address: text})
	return r.Send(ctx, reply.Markdown(promptNetwork, networkKeyboard()))
}

func (c *Controller) onNetwork(ctx context.Context, chatID int64, f SelectNetwork, network string, r reply.Responder) error {
	network = strings.TrimSpace(network)
	if _, err := callbacks.PayloadInt64(network); err != nil {
		return r.Send(ctx, reply.Text(unknownNetwork))
	}
	if _, ok := payments.LookupNetwork(network); !ok {
		return r.Send(ctx, reply.Text(unknownNetwork))
	}
	if err := c.validator.Validate(f.Address, network); err != nil {
		c.flows.Put(chatID, EnterWalletAddress{})
		logger.Debug(ctx, logger.CompTransfer, "transfer.address",
			slog.String("status", "rejected"),
			slog.String("network", network),
			logger.Err(err),
		)
		return r.Send(ctx, reply.Text(invalidAddress))
	}

	c.flows.Put(chatID, EnterAmount{Destination: WalletDestination{Address: f.Address, Network: network}})
	msg := fmt.Sprintf("💰 *Enter Amount*\n\nPlease enter the amount of %s you want to send to the wallet address on %s:",
		c.currency, payments.NetworkName(network))
	return r.Send(ctx, reply.Markdown(msg, cancelKeyboard()))
}

func (c *Controller) onAmount(ctx context.Context, chatID int64, f EnterAmount, text string, r reply.Responder) error {
	amount, ok := ParseAmount(text)
	if !ok {
		return r.Send(ctx, reply.Text(invalidAmount))
	}
	token, ok := c.token(chatID)
	if !ok {
		c.flows.Delete(chatID)
		return r.Send(ctx, reply.Text(loginRequired))
	}

	balances, err := c.fetchBalances(ctx, token)
	if err != nil {
		return r.Send(ctx, reply.Text(balanceError(err)))
	}
	if !payments.Covers(balances, amount) {
		total := payments.TotalBalance(balances)
		logger.Info(ctx, logger.CompTransfer, "transfer.amount",
			slog.String("status", "rejected"),
			slog.String("reason", "insufficient_balance"),
		)
		return r.Send(ctx, reply.Text(fmt.Sprintf("⚠️ Insufficient balance. Your available balance is %s %s.", format.Amount(total), c.currency)))
	}

	c.flows.Put(chatID, Confirm{Destination: f.Destination, Amount: amount})
	return r.Send(ctx, reply.Markdown(c.summary(f.Destination, amount), confirmKeyboard()))
}

func (c *Controller) summary(d Destination, amount float64) string {
	var b strings.Builder
	b.WriteString("📝 *Confirm Transfer*\n\n")
	switch d := d.(type) {
	case EmailDestination:
		b.WriteString("• Recipient: " + format.MD(d.Recipient) + "\n")
	case WalletDestination:
		b.WriteString("• Wallet Address: " + format.Code(d.Address) + "\n")
		b.WriteString("• Network: " + payments.NetworkName(d.Network) + "\n")
	}
	b.WriteString("• Amount: " + formatAmount(amount) + " " + c.currency + "\n\n")
	b.WriteString("Do you want to proceed with this transfer?")
	return b.String()
}

func (c *Controller) onConfirm(ctx context.Context, chatID int64, f Confirm, r reply.Responder) error {
	token, ok := c.token(chatID)
	if !ok {
		c.flows.Delete(chatID)
		logger.Info(ctx, logger.CompTransfer, "transfer.submit",
			slog.String("status", "rejected"),
			slog.String("reason", "no_session"),
		)
		return r.Send(ctx, reply.Text(loginRequired))
	}
	if f.Destination == nil || !f.Destination.complete() || !(f.Amount > 0) {
		c.flows.Delete(chatID)
		logger.Warn(ctx, logger.CompTransfer, "transfer.submit",
			slog.String("status", "fail"),
			slog.String("reason", "flow_incomplete"),
		)
		return r.Send(ctx, reply.Text(incomplete))
	}
	if err := r.Send(ctx, reply.Text(processing)); err != nil {
		return err
	}

	start := time.Now()
	var (
		err error
		to  string
	)
	switch d := f.Destination.(type) {
	case EmailDestination:
		to = d.Recipient
		err = c.api.TransferByEmail(ctx, token, d.Recipient, f.Amount, d.Message)
	case WalletDestination:
		to = d.Address
		err = c.api.TransferByWallet(ctx, token, d.Address, f.Amount, d.Network)
	}
	c.flows.Delete(chatID)

	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("method", f.Destination.Method()),
		slog.Duration("api_duration", logger.Took(start)),
	}
	if err != nil {
		logger.Warn(ctx, logger.CompTransfer, "transfer.submit", append(attrs, logger.Err(err))...)
		return r.Send(ctx, reply.Text("❌ Transfer failed: "+payments.Message(err, "Unknown error")))
	}
	logger.Info(ctx, logger.CompTransfer, "transfer.submit", attrs...)

	msg := fmt.Sprintf("✅ *Transfer successful!*\n\n%s %s has been sent to %s.",
		formatAmount(f.Amount), c.currency, format.MD(to))
	return r.Send(ctx, reply.Markdown(msg, doneKeyboard()))
}

func (c *Controller) cancel(ctx context.Context, chatID int64, r reply.Responder) error {
	stage := ""
	if f, ok := c.flows.Get(chatID); ok && f.Owner() == Owner {
		stage = f.Stage()
		c.flows.Delete(chatID)
	}
	logger.Info(ctx, logger.CompTransfer, "transfer.cancel",
		slog.String("status", "cancelled"),
		slog.String("stage", stage),
	)
	return r.Send(ctx, reply.Text(cancelledText))
}

func (c *Controller) token(chatID int64) (string, bool) {
	sess, ok := c.sessions.Get(chatID)
	if !ok || !sess.ValidAt(c.now()) {
		return "", false
	}
	return sess.AccessToken, true
}

func (c *Controller) fetchBalances(ctx context.Context, token string) ([]payments.Balance, error) {
	start := time.Now()
	balances, err := c.api.FetchBalances(ctx, token)
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Int("wallets", len(balances)),
		slog.Duration("api_duration", logger.Took(start)),
	}
	if err != nil {
		logger.Warn(ctx, logger.CompTransfer, "transfer.balances", append(attrs, logger.Err(err))...)
		return nil, err
	}
	logger.Debug(ctx, logger.CompTransfer, "transfer.balances", attrs...)
	return balances, nil
}

// ParseAmount accepts plain positive decimals such as "75" or "12.5".
func ParseAmount(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if !amountRe.MatchString(text) {
		return 0, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func balanceError(err error) string {
	return "❌ Failed to fetch wallet balances: " + payments.Message(err, "Unknown error")
}
