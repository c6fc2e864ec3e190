// Package teletest runs a fake Bot API so handlers can be exercised with a
// real telebot.Bot in tests.
package teletest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/copperbot/core/telegram/callbacks"
)

// Call is one Bot API request received by the server.
type Call struct {
	Method string
	Params map[string]string
}

// Server records Bot API calls and answers them with minimal success payloads.
type Server struct {
	*httptest.Server

	mu    sync.Mutex
	calls []Call
}

// NewServer starts a fake Bot API closed at test cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// NewBot returns an offline bot talking to s. Sends run inline.
func (s *Server) NewBot(t testing.TB) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{
		URL:     s.URL,
		Token:   "1:test",
		Offline: true,
		Client:  s.Client(),
	})
	if err != nil {
		t.Fatalf("teletest: new bot: %v", err)
	}
	return bot
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	params := map[string]string{}
	switch ct := r.Header.Get("Content-Type"); {
	case strings.HasPrefix(ct, "application/json"):
		var raw map[string]any
		_ = json.NewDecoder(r.Body).Decode(&raw)
		for k, v := range raw {
			switch vv := v.(type) {
			case string:
				params[k] = vv
			default:
				b, _ := json.Marshal(vv)
				params[k] = string(b)
			}
		}
	default:
		_ = r.ParseForm()
		for k := range r.Form {
			params[k] = r.Form.Get(k)
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: method, Params: params})
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "sendMessage", "editMessageText":
		chatID := params["chat_id"]
		if chatID == "" {
			chatID = "0"
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":` + url.QueryEscape(chatID) + `}}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}
}

// Calls returns every recorded call, optionally filtered by method.
func (s *Server) Calls(method ...string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(method) == 0 {
		return append([]Call(nil), s.calls...)
	}
	var out []Call
	for _, c := range s.calls {
		if c.Method == method[0] {
			out = append(out, c)
		}
	}
	return out
}

// Texts returns the text of every sendMessage call.
func (s *Server) Texts() []string {
	var out []string
	for _, c := range s.Calls("sendMessage") {
		out = append(out, c.Params["text"])
	}
	return out
}

// Reset forgets recorded calls.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Message builds an update carrying a text message from user id chatID in
// the private chat chatID.
func Message(updateID int, chatID int64, text string) tele.Update {
	return tele.Update{ID: updateID, Message: &tele.Message{
		ID:     updateID,
		Text:   text,
		Chat:   &tele.Chat{ID: chatID, Type: tele.ChatPrivate},
		Sender: &tele.User{ID: chatID},
	}}
}

// Callback builds an update for a button press encoded as \f<unique>|<payload>.
func Callback(updateID int, chatID int64, unique, payload string) tele.Update {
	return tele.Update{ID: updateID, Callback: &tele.Callback{
		ID:     "cb",
		Data:   callbacks.Encode(unique, payload),
		Sender: &tele.User{ID: chatID},
		Message: &tele.Message{
			ID:   1,
			Chat: &tele.Chat{ID: chatID, Type: tele.ChatPrivate},
		},
	}}
}
