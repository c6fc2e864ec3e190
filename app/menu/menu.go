package menu

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/copperbot/core/logger"
	"github.com/m3rciful/copperbot/core/payments"
	"github.com/m3rciful/copperbot/core/session"
	"github.com/m3rciful/copperbot/core/telegram/reply"
)

// Sessions is the part of the session store the menu reads.
type Sessions interface {
	Get(chatID int64) (session.Session, bool)
	IsValid(chatID int64) bool
}

// API fetches the data shown by the profile and wallet screens.
type API interface {
	FetchProfile(ctx context.Context, token string) (payments.User, error)
	FetchBalances(ctx context.Context, token string) ([]payments.Balance, error)
}

// TransferStarter opens the send funds dialog.
type TransferStarter interface {
	Start(ctx context.Context, chatID int64, r reply.Responder) error
}

// Menu renders the bot's informational screens.
type Menu struct {
	sessions Sessions
	api      API
	transfer TransferStarter
	currency string
	now      func() time.Time
}

// Option customises a Menu.
type Option func(*Menu)

// WithTransfer wires the "Send Funds" menu entry.
func WithTransfer(t TransferStarter) Option {
	return func(m *Menu) { m.transfer = t }
}

// WithCurrency sets the currency shown next to totals.
func WithCurrency(currency string) Option {
	return func(m *Menu) {
		if currency != "" {
			m.currency = currency
		}
	}
}

// New builds a Menu.
func New(sessions Sessions, api API, opts ...Option) *Menu {
	m := &Menu{
		sessions: sessions,
		api:      api,
		currency: "USDC",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start greets the user: the main menu when logged in, the introduction otherwise.
func (m *Menu) Start(ctx context.Context, chatID int64, r reply.Responder) error {
	if m.sessions.IsValid(chatID) {
		return reply.Sends(ctx, r,
			reply.Text("👋 Welcome back!"),
			reply.Text(menuPrompt, MainMenu()),
		)
	}
	return r.Send(ctx, reply.Text(introText))
}

// Help lists the available commands.
func (m *Menu) Help(ctx context.Context, _ int64, r reply.Responder) error {
	return r.Send(ctx, reply.Markdown(helpText))
}

// Profile fetches and renders the user's profile.
func (m *Menu) Profile(ctx context.Context, chatID int64, r reply.Responder) error {
	token, ok := m.token(chatID)
	if !ok {
		return r.Send(ctx, reply.Text(loginRequired))
	}
	if err := r.Send(ctx, reply.Text("🔍 Fetching your profile... Please wait.")); err != nil {
		return err
	}

	start := time.Now()
	user, err := m.api.FetchProfile(ctx, token)
	m.log(ctx, "menu.profile", start, err)
	if err != nil {
		return r.Send(ctx, reply.Text("❌ Failed to fetch profile: "+payments.Message(err, "Unknown error")))
	}
	return r.Send(ctx, reply.Markdown(RenderProfile(user)))
}

// Wallets fetches and renders the wallet balances.
func (m *Menu) Wallets(ctx context.Context, chatID int64, r reply.Responder) error {
	token, ok := m.token(chatID)
	if !ok {
		return r.Send(ctx, reply.Text(loginRequired))
	}
	if err := r.Send(ctx, reply.Text("💰 Fetching your wallets... Please wait.")); err != nil {
		return err
	}

	start := time.Now()
	balances, err := m.api.FetchBalances(ctx, token)
	m.log(ctx, "menu.wallets", start, err, slog.Int("wallets", len(balances)))
	if err != nil {
		return r.Send(ctx, reply.Text("❌ Failed to fetch wallet balances: "+payments.Message(err, "Unknown error")))
	}
	if len(balances) == 0 {
		return r.Send(ctx, reply.Text(noBalancesText))
	}
	return r.Send(ctx, reply.Markdown(RenderBalances(balances, m.currency), walletsKeyboard()))
}

// Select handles a main menu button press.
func (m *Menu) Select(ctx context.Context, chatID int64, item string, r reply.Responder) error {
	switch item {
	case ItemWallets:
		return m.Wallets(ctx, chatID, r)
	case ItemSend:
		if m.transfer == nil {
			return r.Send(ctx, reply.Text("Sending funds is not available right now."))
		}
		return m.transfer.Start(ctx, chatID, r)
	case ItemHistory:
		return r.Send(ctx, reply.Text(historyText))
	case ItemProfile:
		return m.Profile(ctx, chatID, r)
	case ItemHelp:
		return m.Help(ctx, chatID, r)
	case ItemBack:
		return r.Send(ctx, reply.Text(menuPrompt, MainMenu()))
	}
	logger.Debug(ctx, logger.CompApp, "menu.select",
		slog.String("status", "skip"),
		slog.String("item", item),
	)
	return r.Send(ctx, reply.Text("Unsupported menu option."))
}

func (m *Menu) token(chatID int64) (string, bool) {
	sess, ok := m.sessions.Get(chatID)
	if !ok || !sess.ValidAt(m.now()) {
		return "", false
	}
	return sess.AccessToken, true
}

func (m *Menu) log(ctx context.Context, event string, start time.Time, err error, extra ...slog.Attr) {
	attrs := append([]slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Duration("api_duration", logger.Took(start)),
	}, extra...)
	if err != nil {
		logger.Warn(ctx, logger.CompApp, event, append(attrs, logger.Err(err))...)
		return
	}
	logger.Info(ctx, logger.CompApp, event, attrs...)
}
