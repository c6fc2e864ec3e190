package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/copperbot/core/payments"
	"github.com/m3rciful/copperbot/core/session"
	"github.com/m3rciful/copperbot/core/telegram/reply"
	"github.com/m3rciful/copperbot/core/telegram/state"
)

type fakeAPI struct {
	challenge  payments.OTPChallenge
	auth       payments.Authentication
	requestErr error
	verifyErr  error

	requested []string
	verified  [][3]string
}

func (f *fakeAPI) RequestOTP(_ context.Context, email string) (payments.OTPChallenge, error) {
	f.requested = append(f.requested, email)
	return f.challenge, f.requestErr
}

func (f *fakeAPI) VerifyOTP(_ context.Context, email, otp, sid string) (payments.Authentication, error) {
	f.verified = append(f.verified, [3]string{email, otp, sid})
	return f.auth, f.verifyErr
}

type fixture struct {
	ctl      *Controller
	flows    state.Manager
	sessions *session.Store
	api      *fakeAPI
	rec      *reply.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	flows := state.NewMemoryManager()
	store := session.NewStore(context.Background(), nil)
	api := &fakeAPI{
		challenge: payments.OTPChallenge{Email: "a@b.com", SID: "S1"},
		auth: payments.Authentication{
			AccessToken: "T1",
			ExpireAt:    time.Now().Add(time.Hour),
			User:        payments.User{ID: "u1", FirstName: "Ada", LastName: "Lovelace", Email: "a@b.com", OrganizationID: "o1"},
		},
	}
	return &fixture{
		ctl:      New(flows, store, api),
		flows:    flows,
		sessions: store,
		api:      api,
		rec:      &reply.Recorder{},
	}
}

func (f *fixture) text(t *testing.T, chatID int64, text string) bool {
	t.Helper()
	handled, err := f.ctl.HandleEvent(context.Background(), state.Event{ChatID: chatID, Text: text}, f.rec)
	require.NoError(t, err)
	return handled
}

func stageOf(m state.Manager, chatID int64) string {
	f, ok := m.Get(chatID)
	if !ok {
		return ""
	}
	return f.Stage()
}

func TestLoginEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ctl.Start(ctx, 42, f.rec))
	assert.Equal(t, StageAwaitingEmail, stageOf(f.flows, 42))
	assert.False(t, f.ctl.IsAuthenticated(42))

	assert.True(t, f.text(t, 42, "a@b.com"))
	otp, ok := state.Lookup[AwaitingOTP](f.flows, 42)
	require.True(t, ok)
	assert.Equal(t, AwaitingOTP{Email: "a@b.com", SID: "S1"}, otp)
	assert.Equal(t, promptOTP, f.rec.Last().Text)
	require.NotNil(t, f.rec.Last().Markup)
	assert.True(t, f.rec.Last().Markup.OneTimeKeyboard)

	assert.True(t, f.text(t, 42, "123456"))
	assert.Equal(t, [][3]string{{"a@b.com", "123456", "S1"}}, f.api.verified)

	sess, ok := f.sessions.Get(42)
	require.True(t, ok)
	assert.Equal(t, "T1", sess.AccessToken)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, "o1", sess.OrganizationID)
	assert.True(t, f.ctl.IsAuthenticated(42))
	assert.False(t, f.flows.InProgress(42))

	texts := f.rec.Texts()
	assert.Equal(t, []string{"✅ Authentication successful!", "Welcome, Ada Lovelace!", "What would you like to do?"}, texts[len(texts)-3:])
	require.NotNil(t, f.rec.Last().Markup)
	assert.NotEmpty(t, f.rec.Last().Markup.InlineKeyboard)
}

func TestInvalidEmailKeepsStage(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctl.Start(context.Background(), 1, f.rec))

	for _, bad := range []string{"not-an-email", "a@b", "a b@c.d", "@b.com"} {
		assert.True(t, f.text(t, 1, bad))
		assert.Equal(t, StageAwaitingEmail, stageOf(f.flows, 1))
		assert.Equal(t, invalidEmail, f.rec.Last().Text)
	}
	assert.Empty(t, f.api.requested)
}

func TestOTPRequestFailureResetsToEmail(t *testing.T) {
	f := newFixture(t)
	f.api.requestErr = &payments.APIError{Op: payments.OpRequestOTP, Status: 400, Message: "User not found"}
	require.NoError(t, f.ctl.Start(context.Background(), 1, f.rec))

	assert.True(t, f.text(t, 1, "a@b.com"))
	assert.Equal(t, StageAwaitingEmail, stageOf(f.flows, 1))
	assert.Equal(t, "❌ Failed to request OTP: User not found", f.rec.Last().Text)
}

func TestOTPValidationAndCancel(t *testing.T) {
	f := newFixture(t)
	f.flows.Put(1, AwaitingOTP{Email: "a@b.com", SID: "S1"})

	assert.True(t, f.text(t, 1, "12ab"))
	assert.Equal(t, invalidOTP, f.rec.Last().Text)
	assert.Equal(t, StageAwaitingOTP, stageOf(f.flows, 1))

	assert.True(t, f.text(t, 1, "CANCEL"))
	assert.False(t, f.flows.InProgress(1))
	last := f.rec.Last()
	assert.Equal(t, cancelled, last.Text)
	require.NotNil(t, last.Markup)
	assert.True(t, last.Markup.RemoveKeyboard)
	assert.Empty(t, f.api.verified)

	assert.False(t, f.text(t, 1, "123456"), "no flow left to consume input")
}

func TestMissingChallengeAbortsFlow(t *testing.T) {
	f := newFixture(t)
	f.flows.Put(1, AwaitingOTP{Email: "a@b.com"})

	assert.True(t, f.text(t, 1, "123456"))
	assert.False(t, f.flows.InProgress(1))
	assert.Equal(t, missingChallenge, f.rec.Last().Text)
	assert.Empty(t, f.api.verified)
}

func TestVerifyFailureDeletesFlow(t *testing.T) {
	f := newFixture(t)
	f.api.verifyErr = errors.New("boom")
	f.flows.Put(1, AwaitingOTP{Email: "a@b.com", SID: "S1"})

	assert.True(t, f.text(t, 1, "000000"))
	assert.False(t, f.flows.InProgress(1))
	assert.False(t, f.ctl.IsAuthenticated(1))
	assert.Equal(t, "❌ Authentication failed: Invalid OTP", f.rec.Last().Text)
}

func TestCommandsAndCallbacksPassThrough(t *testing.T) {
	f := newFixture(t)
	f.flows.Put(1, AwaitingEmail{})

	assert.False(t, f.text(t, 1, "/login"))
	handled, err := f.ctl.HandleEvent(context.Background(), state.Event{ChatID: 1, Callback: "menu", Payload: "help"}, f.rec)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Equal(t, StageAwaitingEmail, stageOf(f.flows, 1))
	assert.Empty(t, f.rec.Messages())
}

func TestStartDiscardsPreviousFlow(t *testing.T) {
	f := newFixture(t)
	f.flows.Put(1, AwaitingOTP{Email: "x@y.z", SID: "old"})
	require.NoError(t, f.ctl.Start(context.Background(), 1, f.rec))
	_, ok := state.Lookup[AwaitingEmail](f.flows, 1)
	assert.True(t, ok)
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ctl.Logout(ctx, 9, f.rec))
	assert.Equal(t, loggedOut, f.rec.Last().Text)

	f.sessions.Create(ctx, 9, session.Identity{UserID: "u"}, "tok", time.Now().Add(time.Hour))
	f.flows.Put(9, AwaitingEmail{})
	require.NoError(t, f.ctl.Logout(ctx, 9, f.rec))
	assert.False(t, f.ctl.IsAuthenticated(9))
	assert.False(t, f.flows.InProgress(9))
}
