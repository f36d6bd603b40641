package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func TestTelegramPostsMessage(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sent, err := NewTelegram(srv.URL, "TOKEN", "42", srv.Client()).Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
}

func TestTelegramNotConfigured(t *testing.T) {
	sent, err := NewTelegram("http://unused", "", "", nil).Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestTelegramErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad chat", http.StatusBadRequest)
	}))
	defer srv.Close()

	sent, err := NewTelegram(srv.URL, "TOKEN", "42", srv.Client()).Send(context.Background(), "hello")
	require.Error(t, err)
	assert.False(t, sent)
	assert.Contains(t, err.Error(), "400")
}

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func TestEmailSend(t *testing.T) {
	d := &fakeDialer{}
	sent, err := NewEmail(d, "desk@example.com", "ops@example.com").Send(context.Background(), "overdue")
	require.NoError(t, err)
	assert.True(t, sent)
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"ops@example.com"}, d.sent[0].GetHeader("To"))
}

func TestEmailDisabledWithoutRecipient(t *testing.T) {
	sent, err := NewEmail(&fakeDialer{}, "desk@example.com", "").Send(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestMultiJoinsErrorsAndReportsAnySent(t *testing.T) {
	failing := NewEmail(&fakeDialer{err: errors.New("smtp down")}, "a@b.c", "ops@b.c")
	working := NewEmail(&fakeDialer{}, "a@b.c", "ops@b.c")

	sent, err := Multi{failing, working}.Send(context.Background(), "x")
	assert.True(t, sent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}
