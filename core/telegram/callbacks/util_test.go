package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name         string
		cb           *tele.Callback
		key, payload string
	}{
		{"nil", nil, "", ""},
		{"encoded", &tele.Callback{Data: Encode("transfer_method", "wallet")}, "transfer_method", "wallet"},
		{"no payload", &tele.Callback{Data: Encode("transfer_confirm", "")}, "transfer_confirm", ""},
		{"pipe in payload", &tele.Callback{Data: "\fmenu|a|b"}, "menu", "a|b"},
		{"parsed by telebot", &tele.Callback{Unique: "menu", Data: "wallet"}, "menu", "wallet"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := ParseCallbackData(tc.cb)
			assert.Equal(t, tc.key, key)
			assert.Equal(t, tc.payload, payload)
		})
	}
}

func TestChoiceAndInt(t *testing.T) {
	v, ok := Choice(" Email ", "email", "wallet", "bank")
	assert.True(t, ok)
	assert.Equal(t, "email", v)
	_, ok = Choice("crypto", "email", "wallet")
	assert.False(t, ok)

	n, err := PayloadInt64("8453")
	assert.NoError(t, err)
	assert.Equal(t, int64(8453), n)
	_, err = PayloadInt64("base")
	assert.Error(t, err)
}
