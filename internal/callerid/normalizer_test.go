package callerid

import (
	"strings"
	"testing"

	"github.com/mikey/tellows-fastagi/internal/core"
	"github.com/mikey/tellows-fastagi/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestNormalizer(t *testing.T, region string) *Normalizer {
	return NewNormalizer(region, utils.NewTextProcessor(zaptest.NewLogger(t)))
}

func TestNormalize_Unavailable(t *testing.T) {
	n := newTestNormalizer(t, "DE")

	for _, raw := range []string{"", "   ", "anonymous", "Anonymous", "unknown"} {
		t.Run(raw, func(t *testing.T) {
			got, err := n.Normalize(raw)
			assert.ErrorIs(t, err, core.ErrCallerUnavailable)
			assert.Empty(t, got)
		})
	}
}

func TestNormalize_Canonical(t *testing.T) {
	n := newTestNormalizer(t, "DE")

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "national with trunk prefix", raw: "016362096", want: "+4916362096"},
		{name: "national landline", raw: "030123456", want: "+4930123456"},
		{name: "international plus", raw: "+4930123456", want: "+4930123456"},
		{name: "international double zero", raw: "004930123456", want: "+4930123456"},
		{name: "foreign number", raw: "+442071838750", want: "+442071838750"},
		{name: "full width digits", raw: "０３０１２３４５６", want: "+4930123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := n.Normalize(got)
			require.NoError(t, err)
			assert.Equal(t, got, again, "normalizing a canonical number must be idempotent")
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	n := newTestNormalizer(t, "DE")
	first, err := n.Normalize("016362096")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		got, err := n.Normalize("016362096")
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}

func TestNormalize_Invalid(t *testing.T) {
	n := newTestNormalizer(t, "DE")

	got, err := n.Normalize("not a number")
	assert.ErrorIs(t, err, core.ErrInvalidCallerID)
	assert.Empty(t, got)
}

func TestNormalize_OverlongIsInvalidNotTruncated(t *testing.T) {
	n := newTestNormalizer(t, "DE")

	got, err := n.Normalize("030123456" + strings.Repeat(" ", 60) + "x999")
	assert.ErrorIs(t, err, core.ErrInvalidCallerID)
	assert.ErrorIs(t, err, utils.ErrCallerIDTooLong)
	assert.Empty(t, got)
}

func TestNewNormalizer_Region(t *testing.T) {
	assert.Equal(t, "DE", newTestNormalizer(t, "").Region())
	assert.Equal(t, "AT", newTestNormalizer(t, " at ").Region())

	n := newTestNormalizer(t, "US")
	got, err := n.Normalize("2015550123")
	require.NoError(t, err)
	assert.Equal(t, "+12015550123", got)
}
