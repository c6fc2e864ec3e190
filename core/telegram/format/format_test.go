package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdown(t *testing.T) {
	v1, err := EscapeMarkdown("a_b*c[d]`e", MarkdownV1)
	assert.NoError(t, err)
	assert.Equal(t, "a\\_b\\*c\\[d]\\`e", v1)

	v2, err := EscapeMarkdown("1.5 (USDC)!", MarkdownV2)
	assert.NoError(t, err)
	assert.Equal(t, "1\\.5 \\(USDC\\)\\!", v2)

	_, err = EscapeMarkdown("x", 3)
	assert.Error(t, err)

	assert.Equal(t, "bob\\_smith@x.io", MD("bob_smith@x.io"))
	assert.Equal(t, "`0xab`", Code("0x`ab"))
}

func TestValues(t *testing.T) {
	assert.Equal(t, "0x123456...abcdef12", Address("0x1234567890abcdef1234567890abcdef12"))
	assert.Equal(t, "0x1234", Address("0x1234"))
	assert.Equal(t, "Not set", Address(""))
	assert.Equal(t, "100.00", Amount(100))
	assert.Equal(t, "0.13", Amount(0.125000001))
	assert.Equal(t, "Ann Lee", FullName("Ann", "Lee"))
	assert.Equal(t, "Lee", FullName("", "Lee"))
	assert.Equal(t, "Not set", FullName("", ""))
	assert.Equal(t, "N/A", OrDefault(" ", "N/A"))
}
