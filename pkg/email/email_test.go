package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML_EscapesMarkup(t *testing.T) {
	out := RenderHTML(`<b>&"test"</b>`)

	assert.Contains(t, out, `&lt;b&gt;&amp;"test"&lt;/b&gt;`)
	assert.NotContains(t, out, "<b>")
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
}

func TestRenderHTML_LineBreaks(t *testing.T) {
	out := RenderHTML("Water early\nMulch often\r\nHarvest daily")

	assert.Contains(t, out, "Water early<br>Mulch often<br>Harvest daily")
}

func TestResendClient_Send(t *testing.T) {
	var got sendEmailRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	c := NewResendClient("re_123", srv.URL+"/", time.Second)
	id, err := c.Send(context.Background(), Message{
		From:    "noreply@sproutify.com",
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Seed swap",
		HTML:    "<p>hi</p>",
	})

	require.NoError(t, err)
	assert.Equal(t, "msg_1", id)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, got.To)
	assert.Equal(t, "Seed swap", got.Subject)
	assert.Equal(t, "noreply@sproutify.com", got.From)
}

func TestResendClient_SendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from address"}`))
	}))
	defer srv.Close()

	c := NewResendClient("re_123", srv.URL, time.Second)
	_, err := c.Send(context.Background(), Message{To: []string{"a@example.com"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "invalid from address")
}

func TestDisabled_Send(t *testing.T) {
	_, err := Disabled{}.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBuildMessage_Recipients(t *testing.T) {
	single := buildMessage(Message{From: "noreply@sproutify.com", To: []string{"a@example.com"}, Subject: "Hi"})
	assert.Equal(t, []string{"a@example.com"}, single.GetHeader("To"))
	assert.Empty(t, single.GetHeader("Bcc"))

	many := buildMessage(Message{From: "noreply@sproutify.com", To: []string{"a@example.com", "b@example.com"}})
	assert.Equal(t, []string{"noreply@sproutify.com"}, many.GetHeader("To"))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, many.GetHeader("Bcc"))
}
