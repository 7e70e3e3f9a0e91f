package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Sender is a single sendEmail({to, subject, html, text}) -> bool
// abstraction over an HTTP-based transactional mail provider.
type Sender interface {
	SendEmail(ctx context.Context, to string, msg Message) bool
}

// ResendSender transports messages through the Resend API
// (https://api.resend.com/emails), shaped like the teacher's
// NotificationClient/VerificationClient: a bounded-timeout *http.Client.
// SendEmail builds the request inline (JSON marshal, bearer auth) and checks
// only the response status; the response body is not decoded.
type ResendSender struct {
	apiKey      string
	fromAddress string
	httpClient  *http.Client
	log         *logrus.Entry
}

// NewResendSender builds a ResendSender. An empty apiKey is valid — SendEmail
// then logs a warning and returns false without failing the caller, matching
// the teacher's "warn and continue" posture for optional external
// dependencies.
func NewResendSender(apiKey, fromAddress string) *ResendSender {
	return &ResendSender{
		apiKey:      apiKey,
		fromAddress: fromAddress,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		log:         logrus.WithField("component", "email.ResendSender"),
	}
}

type resendRequest struct {
	From    string `json:"from"`
	To      []string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// SendEmail sends msg to recipient to. Missing credentials log a warning
// and return false without failing the caller.
func (s *ResendSender) SendEmail(ctx context.Context, to string, msg Message) bool {
	if s.apiKey == "" {
		s.log.Warn("RESEND_API_KEY não configurado, email não enviado")
		return false
	}

	payload := resendRequest{
		From:    s.fromAddress,
		To:      []string{to},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		s.log.WithError(err).Warn("falha ao serializar email")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.resend.com/emails", bytes.NewReader(encoded))
	if err != nil {
		s.log.WithError(err).Warn("falha ao preparar requisição de email")
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.WithError(err).Warn("falha ao enviar email")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.log.WithField("status", resp.StatusCode).Warn("provedor de email retornou erro")
		return false
	}
	return true
}
