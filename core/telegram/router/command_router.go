package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/copperbot/core/logger"
	tg "github.com/m3rciful/copperbot/core/telegram"
	"github.com/m3rciful/copperbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes binds every registered command and alias to a route that
// logs a handler summary.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for name, def := range reg.Commands() {
		h := commandHandler(name, def)
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range def.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}

	logger.Info(context.Background(), logger.CompTGWire, "tg.wire",
		slog.String("status", "ok"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}

func commandHandler(name string, def commands.Command) tele.HandlerFunc {
	handlerName := "command." + normalizeHandlerName(name)
	return func(c tele.Context) error {
		return handleWithSummary(c, handlerName, time.Now(), func() error {
			return def.Handler(c)
		}, slog.String("cmd", name))
	}
}
