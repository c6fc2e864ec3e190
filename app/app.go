// Package app wires the login, transfer and menu controllers into the
// Telegram runtime.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/copperbot/app/auth"
	"github.com/m3rciful/copperbot/app/menu"
	"github.com/m3rciful/copperbot/app/transfer"
	coreconfig "github.com/m3rciful/copperbot/core/config"
	"github.com/m3rciful/copperbot/core/logger"
	"github.com/m3rciful/copperbot/core/metrics"
	"github.com/m3rciful/copperbot/core/payments"
	"github.com/m3rciful/copperbot/core/session"
	tg "github.com/m3rciful/copperbot/core/telegram"
	"github.com/m3rciful/copperbot/core/telegram/middleware"
	"github.com/m3rciful/copperbot/core/telegram/router"
	"github.com/m3rciful/copperbot/core/telegram/state"
)

// Deps are the long-lived services the bot runs on.
type Deps struct {
	Config   *coreconfig.Config
	Sessions *session.Store
	Flows    state.Manager
	Payments *payments.Client
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// App is the assembled bot.
type App struct {
	cfg      *coreconfig.Config
	metrics  *metrics.Metrics
	registry *tg.Registry
	gate     *middleware.Gate

	Auth     *auth.Controller
	Transfer *transfer.Controller
	Menu     *menu.Menu
}

// New builds the controllers and the command registry.
func New(d Deps) (*App, error) {
	switch {
	case d.Config == nil:
		return nil, errors.New("app: nil config")
	case d.Sessions == nil:
		return nil, errors.New("app: nil session store")
	case d.Payments == nil:
		return nil, errors.New("app: nil payments client")
	}
	flows := d.Flows
	if flows == nil {
		flows = state.NewMemoryManager()
	}

	currency := d.Payments.Currency()
	a := &App{
		cfg:     d.Config,
		metrics: d.Metrics,
		Auth:    auth.New(flows, d.Sessions, d.Payments),
		Transfer: transfer.New(flows, d.Sessions, d.Payments,
			transfer.WithValidator(transfer.ValidatorFor(d.Config.Transfer)),
			transfer.WithCurrency(currency),
		),
	}
	a.Menu = menu.New(d.Sessions, d.Payments,
		menu.WithTransfer(a.Transfer),
		menu.WithCurrency(currency),
	)

	reg, err := a.buildRegistry()
	if err != nil {
		return nil, err
	}
	a.registry = reg

	a.gate = &middleware.Gate{
		Flows: flows,
		Handlers: map[string]state.Handler{
			auth.Owner:     a.Auth,
			transfer.Owner: a.Transfer,
		},
		Sessions: d.Sessions,
		Public:   middleware.PublicCommands(reg.PublicCommands()...),
	}
	if d.Metrics != nil {
		a.gate.OnDecision = d.Metrics.GateDecision
	}
	return a, nil
}

// Registry exposes the command and callback registry.
func (a *App) Registry() *tg.Registry { return a.registry }

// Gate exposes the gatekeeper guarding every update.
func (a *App) Gate() *middleware.Gate { return a.gate }

// Routes binds commands, text fallbacks and callbacks.
func (a *App) Routes() []tg.Route {
	fb := menu.Fallbacks{}
	routes := router.CommandRoutes(a.registry)
	routes = append(routes, router.TextRoutes(a.registry, router.TextOptions{
		UnknownText:     fb.UnknownText(),
		UnknownDocument: fb.UnknownDocument(),
	})...)
	return append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{
		NotFound: fb.UnknownCallback(),
	}))
}

// Middlewares returns the global middleware chain ending in the gatekeeper.
func (a *App) Middlewares() []tg.Middleware {
	opts := tg.MiddlewareOptions{
		Config:    a.cfg,
		Gate:      a.gate,
		OnLimited: onLimited,
	}
	if a.metrics != nil {
		opts.Observer = a.metrics
		opts.OnRateLimited = a.metrics.RateLimited
	}
	return tg.DefaultMiddlewares(opts)
}

// TelegramRunOptions assembles everything RunTelegram needs.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    a.registry,
		Middlewares: a.Middlewares(),
		Routes:      a.Routes(),
		OnStart:     a.onStart,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt tg.Runtime) error {
	if a.metrics != nil && rt.Dispatcher != nil {
		d := rt.Dispatcher
		err := errors.Join(
			a.metrics.RegisterCounterFunc("sender", "sent_total", "Outgoing Telegram calls that succeeded.",
				func() float64 { return float64(d.SentCount()) }),
			a.metrics.RegisterCounterFunc("sender", "errors_total", "Outgoing Telegram calls that failed after retries.",
				func() float64 { return float64(d.ErrorCount()) }),
		)
		if err != nil {
			logger.Warn(ctx, logger.CompMetrics, "metrics.register",
				slog.String("status", "fail"),
				logger.Err(err),
			)
		}
	}
	logger.Info(ctx, logger.CompApp, "app.wired",
		slog.String("status", "ok"),
		slog.Int("commands", len(a.registry.Commands())),
		slog.Int("callbacks", len(a.registry.ListCallbacks())),
	)
	return nil
}
