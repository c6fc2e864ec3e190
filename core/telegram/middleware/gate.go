package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/copperbot/core/logger"
	"github.com/m3rciful/copperbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/copperbot/core/telegram/helpers"
	"github.com/m3rciful/copperbot/core/telegram/reply"
	"github.com/m3rciful/copperbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// Gate decisions, as logged and counted.
const (
	DecisionPublic  = "public"
	DecisionFlow    = "flow"
	DecisionReject  = "reject"
	DecisionForward = "forward"
	DecisionDrop    = "drop"
)

// DefaultAuthPrompt is sent when a gated event arrives without a valid session.
const DefaultAuthPrompt = "🔒 You need to authenticate first.\n\nUse /login to sign in with your email."

const noChatText = "Error: Could not determine chat ID."

// SessionChecker reports whether a chat holds a usable session.
type SessionChecker interface {
	IsValid(chatID int64) bool
}

// Gate decides what happens to each inbound event: public commands pass,
// active flows get first claim, and everything else needs a valid session.
type Gate struct {
	Flows    state.Manager
	Handlers map[string]state.Handler
	Sessions SessionChecker
	// Public holds lowercased slash commands that bypass the session check.
	Public map[string]struct{}
	// Prompt replaces DefaultAuthPrompt when set.
	Prompt     string
	OnDecision func(decision string)
}

// PublicCommands builds a Public set from command names.
func PublicCommands(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if !strings.HasPrefix(n, "/") {
			n = "/" + n
		}
		set[n] = struct{}{}
	}
	return set
}

// Admit runs the gate for ev. forward=true means normal dispatch should
// continue; otherwise the event was fully handled here.
func (g *Gate) Admit(ctx context.Context, ev state.Event, r reply.Responder) (bool, error) {
	decision, err := g.decide(ctx, ev, r)
	if g.OnDecision != nil {
		g.OnDecision(decision)
	}

	status := logger.Status(err)
	if err == nil && decision == DecisionReject {
		status = "rejected"
	}
	attrs := []slog.Attr{
		slog.String("decision", decision),
		slog.String("status", status),
	}
	if ev.IsCallback() {
		attrs = append(attrs, slog.String("cb_key", ev.Callback))
	} else if cmd := ev.Command(); cmd != "" {
		attrs = append(attrs, slog.String("cmd", cmd))
	}
	switch {
	case err != nil:
		logger.Warn(ctx, logger.CompGate, "gate.decision", append(attrs, logger.Err(err))...)
	case decision == DecisionReject:
		logger.Info(ctx, logger.CompGate, "gate.decision", attrs...)
	default:
		logger.Debug(ctx, logger.CompGate, "gate.decision", attrs...)
	}

	return decision == DecisionPublic || decision == DecisionForward, err
}

func (g *Gate) decide(ctx context.Context, ev state.Event, r reply.Responder) (string, error) {
	if cmd := ev.Command(); cmd != "" {
		if _, ok := g.Public[cmd]; ok {
			return DecisionPublic, nil
		}
	}

	if g.Flows != nil {
		if f, ok := g.Flows.Get(ev.ChatID); ok {
			if h, ok := g.Handlers[f.Owner()]; ok && h != nil {
				handled, err := h.HandleEvent(ctx, ev, r)
				if handled || err != nil {
					return DecisionFlow, err
				}
			}
		}
	}

	if g.Sessions == nil || !g.Sessions.IsValid(ev.ChatID) {
		prompt := g.Prompt
		if prompt == "" {
			prompt = DefaultAuthPrompt
		}
		return DecisionReject, r.Send(ctx, reply.Text(prompt))
	}
	return DecisionForward, nil
}

// EventFrom reduces a Telegram update to a flow event.
func EventFrom(c tele.Context, chatID int64) state.Event {
	ev := state.Event{ChatID: chatID}
	if cb := c.Callback(); cb != nil {
		ev.Callback, ev.Payload = callbacks.ParseCallbackData(cb)
		return ev
	}
	ev.Text = strings.TrimSpace(c.Text())
	return ev
}

// Gatekeeper adapts g to a telebot middleware. Only messages and callback
// presses are gated.
func Gatekeeper(g *Gate) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			upd := c.Update()
			if upd.Message == nil && upd.Callback == nil {
				return next(c)
			}

			ctx := tghelpers.BuildContext(c)
			chatID, ok := tghelpers.ChatID(c)
			if !ok {
				if g.OnDecision != nil {
					g.OnDecision(DecisionDrop)
				}
				logger.Warn(ctx, logger.CompGate, "gate.decision",
					slog.String("decision", DecisionDrop),
					slog.String("status", "rejected"),
					slog.String("reason", "no_chat"),
				)
				if upd.Callback != nil {
					return c.Respond(&tele.CallbackResponse{Text: noChatText})
				}
				return nil
			}

			ev := EventFrom(c, chatID)
			forward, err := g.Admit(ctx, ev, reply.FromContext(c))
			if forward {
				return next(c)
			}
			if ev.IsCallback() {
				_ = tghelpers.Acknowledge(c, "")
			}
			return err
		}
	}
}
