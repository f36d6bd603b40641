package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

func TestBoxRoundTrip(t *testing.T) {
	box, err := NewBox("test-secret")
	require.NoError(t, err)

	token, err := box.Seal(payload{Name: "ООО Клиент", Amount: "4300.00"})
	require.NoError(t, err)
	assert.NotContains(t, token, "Клиент")

	var got payload
	require.NoError(t, box.Open(token, &got))
	assert.Equal(t, "ООО Клиент", got.Name)
	assert.Equal(t, "4300.00", got.Amount)
}

func TestBoxRejectsForeignKey(t *testing.T) {
	a, err := NewBox("key-a")
	require.NoError(t, err)
	b, err := NewBox("key-b")
	require.NoError(t, err)

	token, err := a.Seal(payload{Name: "x"})
	require.NoError(t, err)

	var got payload
	assert.Error(t, b.Open(token, &got))
}

func TestBoxMalformedToken(t *testing.T) {
	box, err := NewBox("k")
	require.NoError(t, err)

	var got payload
	assert.ErrorIs(t, box.Open("garbage", &got), ErrMalformedToken)
	assert.ErrorIs(t, box.Open("v1.!!!", &got), ErrMalformedToken)
	assert.ErrorIs(t, box.Open("v1.AAAA", &got), ErrMalformedToken)
}

func TestNewBoxRequiresSecret(t *testing.T) {
	_, err := NewBox("  ")
	assert.Error(t, err)
}
