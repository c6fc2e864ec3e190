// Package auth drives the email + OTP login dialog.
package auth

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/m3rciful/copperbot/app/menu"
	"github.com/m3rciful/copperbot/core/logger"
	"github.com/m3rciful/copperbot/core/payments"
	"github.com/m3rciful/copperbot/core/session"
	"github.com/m3rciful/copperbot/core/telegram/keyboard"
	"github.com/m3rciful/copperbot/core/telegram/reply"
	"github.com/m3rciful/copperbot/core/telegram/state"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	otpRe   = regexp.MustCompile(`^\d+$`)
)

// ValidEmail reports whether s looks like local@domain.tld.
func ValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// API is the OTP half of the payments client.
type API interface {
	RequestOTP(ctx context.Context, email string) (payments.OTPChallenge, error)
	VerifyOTP(ctx context.Context, email, otp, sid string) (payments.Authentication, error)
}

// Sessions is the part of the session store the login dialog writes.
type Sessions interface {
	Create(ctx context.Context, chatID int64, id session.Identity, accessToken string, expireAt time.Time) session.Session
	Delete(ctx context.Context, chatID int64)
	IsValid(chatID int64) bool
}

// Controller runs the login state machine of every chat.
type Controller struct {
	flows    state.Manager
	sessions Sessions
	api      API
}

// New builds a Controller.
func New(flows state.Manager, sessions Sessions, api API) *Controller {
	return &Controller{flows: flows, sessions: sessions, api: api}
}

// Start (re)opens the dialog at the email prompt, dropping any previous flow.
func (c *Controller) Start(ctx context.Context, chatID int64, r reply.Responder) error {
	c.flows.Put(chatID, AwaitingEmail{})
	logger.Info(ctx, logger.CompAuth, "auth.start", slog.String("status", "ok"))
	return r.Send(ctx, reply.Markdown(promptEmail))
}

// Logout forgets the chat's session and any dialog in progress.
func (c *Controller) Logout(ctx context.Context, chatID int64, r reply.Responder) error {
	c.sessions.Delete(ctx, chatID)
	c.flows.Delete(chatID)
	logger.Info(ctx, logger.CompAuth, "auth.logout", slog.String("status", "ok"))
	return r.Send(ctx, reply.Text(loggedOut, keyboard.RemoveKeyboard()))
}

// IsAuthenticated reports whether the chat holds a valid session.
func (c *Controller) IsAuthenticated(chatID int64) bool {
	return c.sessions.IsValid(chatID)
}

// HandleEvent consumes text typed while a login dialog is open. Commands
// and button presses are left to normal dispatch.
func (c *Controller) HandleEvent(ctx context.Context, ev state.Event, r reply.Responder) (bool, error) {
	if ev.IsCallback() || ev.Command() != "" {
		return false, nil
	}
	f, ok := c.flows.Get(ev.ChatID)
	if !ok {
		return false, nil
	}
	switch f := f.(type) {
	case AwaitingEmail:
		return true, c.onEmail(ctx, ev.ChatID, strings.TrimSpace(ev.Text), r)
	case AwaitingOTP:
		return true, c.onOTP(ctx, ev.ChatID, f, strings.TrimSpace(ev.Text), r)
	}
	return false, nil
}

func (c *Controller) onEmail(ctx context.Context, chatID int64, text string, r reply.Responder) error {
	if !ValidEmail(text) {
		return r.Send(ctx, reply.Text(invalidEmail))
	}
	if err := r.Send(ctx, reply.Text(requestingOTP)); err != nil {
		return err
	}

	start := time.Now()
	ch, err := c.api.RequestOTP(ctx, text)
	attrs := []slog.Attr{
		slog.String("email", logger.MaskEmail(text)),
		slog.Duration("api_duration", logger.Took(start)),
	}
	if err != nil {
		logger.Warn(ctx, logger.CompAuth, "auth.otp_request", append(attrs, slog.String("status", "fail"), logger.Err(err))...)
		c.flows.Put(chatID, AwaitingEmail{})
		return r.Send(ctx, reply.Text("❌ Failed to request OTP: "+payments.Message(err, "Unknown error")))
	}
	logger.Info(ctx, logger.CompAuth, "auth.otp_request", append(attrs, slog.String("status", "ok"))...)

	email := ch.Email
	if email == "" {
		email = text
	}
	c.flows.Put(chatID, AwaitingOTP{Email: email, SID: ch.SID})

	kb := keyboard.ReplyButtons([]string{cancelButton})
	kb.OneTimeKeyboard = true
	return r.Send(ctx, reply.Text(promptOTP, kb))
}

func (c *Controller) onOTP(ctx context.Context, chatID int64, f AwaitingOTP, text string, r reply.Responder) error {
	if strings.EqualFold(text, cancelButton) {
		c.flows.Delete(chatID)
		logger.Info(ctx, logger.CompAuth, "auth.cancel", slog.String("status", "cancelled"))
		return r.Send(ctx, reply.Text(cancelled, keyboard.RemoveKeyboard()))
	}
	if !otpRe.MatchString(text) {
		return r.Send(ctx, reply.Text(invalidOTP))
	}
	if f.Email == "" || f.SID == "" {
		c.flows.Delete(chatID)
		logger.Warn(ctx, logger.CompAuth, "auth.verify",
			slog.String("status", "fail"),
			slog.String("reason", "flow_incomplete"),
		)
		return r.Send(ctx, reply.Text(missingChallenge, keyboard.RemoveKeyboard()))
	}
	if err := r.Send(ctx, reply.Text(verifyingOTP)); err != nil {
		return err
	}

	start := time.Now()
	res, err := c.api.VerifyOTP(ctx, f.Email, text, f.SID)
	attrs := []slog.Attr{
		slog.String("email", logger.MaskEmail(f.Email)),
		slog.Duration("api_duration", logger.Took(start)),
	}
	if err != nil {
		c.flows.Delete(chatID)
		logger.Warn(ctx, logger.CompAuth, "auth.verify", append(attrs, slog.String("status", "fail"), logger.Err(err))...)
		return r.Send(ctx, reply.Text("❌ Authentication failed: "+payments.Message(err, "Invalid OTP"), keyboard.RemoveKeyboard()))
	}

	email := res.User.Email
	if email == "" {
		email = f.Email
	}
	c.sessions.Create(ctx, chatID, session.Identity{
		UserID:         res.User.ID,
		Email:          email,
		OrganizationID: res.User.OrganizationID,
	}, res.AccessToken, res.ExpireAt)
	c.flows.Delete(chatID)
	logger.Info(ctx, logger.CompAuth, "auth.verify", append(attrs, slog.String("status", "ok"))...)

	return reply.Sends(ctx, r,
		reply.Text("✅ Authentication successful!", keyboard.RemoveKeyboard()),
		reply.Text(welcome(res.User)),
		reply.Text("What would you like to do?", menu.MainMenu()),
	)
}

func welcome(u payments.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return "Welcome!"
	}
	return "Welcome, " + name + "!"
}
