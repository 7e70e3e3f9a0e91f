package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeConfirmationIncludesLink(t *testing.T) {
	c := NewComposer()
	msg, err := c.ComposeConfirmation(ConfirmationParams{
		RecipientName: "Maria",
		DeviceName:    "Chrome on macOS",
		ConfirmLink:   "https://app.example.com/confirm?token=abc123",
	})
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "abc123")
	assert.Contains(t, msg.Text, "abc123")
	assert.NotEmpty(t, msg.Subject)
}

func TestComposeLoginNotification(t *testing.T) {
	c := NewComposer()
	msg, err := c.ComposeLoginNotification(LoginNotificationParams{
		RecipientName: "Maria",
		DeviceName:    "iPhone",
		OccurredAt:    "2025-01-15T10:00:00Z",
	})
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "iPhone")
}

func TestSendEmailWithoutAPIKeyReturnsFalse(t *testing.T) {
	sender := NewResendSender("", "noreply@example.com")
	ok := sender.SendEmail(context.Background(), "user@example.com", Message{Subject: "x"})
	assert.False(t, ok)
}
