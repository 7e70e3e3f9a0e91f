// Package email composes confirmation and login-notification emails and
// sends them through a Resend-backed transport, following the teacher's
// html/template composition and NotificationClient HTTP-transport shape.
package email

import (
	"bytes"
	"html/template"
)

// Message is the transport-agnostic payload produced by the composer.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// ConfirmationParams feeds the device-confirmation email template.
type ConfirmationParams struct {
	RecipientName string
	DeviceName    string
	IPAddress     string
	Locale        string
	Timezone      string
	ConfirmLink   string
}

// LoginNotificationParams feeds the login-notification email template.
type LoginNotificationParams struct {
	RecipientName string
	DeviceName    string
	IPAddress     string
	Locale        string
	Timezone      string
	OccurredAt    string
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background:#f4f4f7; padding:24px;">
  <div style="max-width:480px;margin:0 auto;background:#ffffff;border-radius:8px;padding:32px;">
    <h2 style="color:#1a1a1a;">Confirme seu novo dispositivo</h2>
    <p>Olá {{.RecipientName}},</p>
    <p>Detectamos um novo login a partir do dispositivo <strong>{{.DeviceName}}</strong>
       (IP {{.IPAddress}}, {{.Locale}}/{{.Timezone}}).</p>
    <p>Se foi você, confirme clicando no botão abaixo:</p>
    <p style="text-align:center;">
      <a href="{{.ConfirmLink}}" style="background:#2563eb;color:#fff;padding:12px 24px;border-radius:6px;text-decoration:none;">Confirmar dispositivo</a>
    </p>
    <p style="color:#888;font-size:12px;">Se não foi você, ignore este email.</p>
  </div>
</body>
</html>`))

var loginNotificationTemplate = template.Must(template.New("login").Parse(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background:#f4f4f7; padding:24px;">
  <div style="max-width:480px;margin:0 auto;background:#ffffff;border-radius:8px;padding:32px;">
    <h2 style="color:#1a1a1a;">Novo login confirmado</h2>
    <p>Olá {{.RecipientName}},</p>
    <p>Seu dispositivo <strong>{{.DeviceName}}</strong> (IP {{.IPAddress}}, {{.Locale}}/{{.Timezone}})
       acessou sua conta em {{.OccurredAt}}.</p>
  </div>
</body>
</html>`))

// Composer renders the confirmation and login-notification email bodies.
type Composer struct{}

// NewComposer builds a Composer.
func NewComposer() *Composer {
	return &Composer{}
}

// ComposeConfirmation renders the device-confirmation email.
func (c *Composer) ComposeConfirmation(p ConfirmationParams) (Message, error) {
	var buf bytes.Buffer
	if err := confirmationTemplate.Execute(&buf, p); err != nil {
		return Message{}, err
	}
	return Message{
		Subject: "Confirme seu novo dispositivo",
		HTML:    buf.String(),
		Text:    "Confirme seu novo dispositivo acessando: " + p.ConfirmLink,
	}, nil
}

// ComposeLoginNotification renders the login-notification email.
func (c *Composer) ComposeLoginNotification(p LoginNotificationParams) (Message, error) {
	var buf bytes.Buffer
	if err := loginNotificationTemplate.Execute(&buf, p); err != nil {
		return Message{}, err
	}
	return Message{
		Subject: "Novo login confirmado",
		HTML:    buf.String(),
		Text:    "Seu dispositivo " + p.DeviceName + " acessou sua conta em " + p.OccurredAt,
	}, nil
}
