package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tesseract-hub/dashboard-gateway/internal/apierr"
	"github.com/tesseract-hub/dashboard-gateway/internal/device"
	"github.com/tesseract-hub/dashboard-gateway/internal/email"
	"github.com/tesseract-hub/dashboard-gateway/internal/identity"
	"github.com/tesseract-hub/dashboard-gateway/internal/middleware"
	"github.com/tesseract-hub/dashboard-gateway/internal/security"
)

// DeviceHandler implements the device-lifecycle endpoints:
// /registerLoginEvent, /checkDeviceStatus, /confirmDevice.
type DeviceHandler struct {
	store       *device.Store
	composer    *email.Composer
	sender      email.Sender
	adminClient *identity.AdminClient
	confirmBase string
}

// NewDeviceHandler builds a DeviceHandler. confirmBase is the base URL the
// confirmation link is appended to (SECURITY_DEVICE_CONFIRM_URL, falling
// back to APP_BASE_URL — see internal/config). adminClient resolves a user
// id to its identity-provider email, needed by the confirm flow, which
// carries only a capability token and no authenticated Principal.
func NewDeviceHandler(store *device.Store, composer *email.Composer, sender email.Sender, adminClient *identity.AdminClient, confirmBase string) *DeviceHandler {
	return &DeviceHandler{store: store, composer: composer, sender: sender, adminClient: adminClient, confirmBase: confirmBase}
}

// recipientEmail resolves the real identity-provider email for userID,
// logging and returning "" on failure rather than falling back to a
// non-address string — callers must treat "" as "do not send".
func (h *DeviceHandler) recipientEmail(ctx context.Context, userID string) string {
	user, err := h.adminClient.GetUser(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", security.MaskID(userID)).Warn("falha ao resolver email do usuário para notificação")
		return ""
	}
	return user.Email
}

type deviceLoginRequest struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
	UserAgent  string `json:"userAgent"`
	Locale     string `json:"locale"`
	Timezone   string `json:"timezone"`
	Screen     string `json:"screen"`
	Resend     bool   `json:"resend"`
}

type deviceView struct {
	ID         string `json:"id"`
	DeviceName string `json:"deviceName"`
	Status     string `json:"status"`
}

type deviceResponse struct {
	Status               string      `json:"status"`
	RequiresConfirmation bool        `json:"requiresConfirmation"`
	Device               *deviceView `json:"device,omitempty"`
}

func (h *DeviceHandler) sendConfirmation(ctx context.Context, recipientName, deviceName, ip, locale, timezone, token string) {
	if token == "" {
		return
	}
	link := fmt.Sprintf("%s?token=%s", h.confirmBase, token)
	msg, err := h.composer.ComposeConfirmation(email.ConfirmationParams{
		RecipientName: recipientName,
		DeviceName:    deviceName,
		IPAddress:     ip,
		Locale:        locale,
		Timezone:      timezone,
		ConfirmLink:   link,
	})
	if err != nil {
		logrus.WithError(err).Warn("falha ao compor email de confirmação")
		return
	}
	h.sender.SendEmail(ctx, recipientName, msg)
}

func (h *DeviceHandler) sendLoginNotification(ctx context.Context, recipientName, deviceName, ip, locale, timezone string) {
	msg, err := h.composer.ComposeLoginNotification(email.LoginNotificationParams{
		RecipientName: recipientName,
		DeviceName:    deviceName,
		IPAddress:     ip,
		Locale:        locale,
		Timezone:      timezone,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		logrus.WithError(err).Warn("falha ao compor email de notificação de login")
		return
	}
	h.sender.SendEmail(ctx, recipientName, msg)
}

// RegisterLoginEvent implements POST /registerLoginEvent.
func (h *DeviceHandler) RegisterLoginEvent(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		ErrorResponse(c, apierr.Unauthenticated("autenticação ausente"))
		return
	}

	var req deviceLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestJSON(c, "corpo da requisição inválido")
		return
	}

	result, err := h.store.Login(c.Request.Context(), principal.ID, device.LoginRequest{
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
		UserAgent:  req.UserAgent,
		IPAddress:  middleware.ClientIP(c),
		Locale:     req.Locale,
		Timezone:   req.Timezone,
		Screen:     req.Screen,
		Resend:     req.Resend,
	})
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	recipient := principal.Email
	if recipient == "" {
		recipient = principal.ID
	}
	if result.ConfirmationToken != "" {
		h.sendConfirmation(c.Request.Context(), recipient, req.DeviceName, middleware.ClientIP(c), req.Locale, req.Timezone, result.ConfirmationToken)
	} else if result.Status == device.StatusApproved {
		h.sendLoginNotification(c.Request.Context(), recipient, req.DeviceName, middleware.ClientIP(c), req.Locale, req.Timezone)
	}

	c.JSON(http.StatusOK, deviceResponse{
		Status:               result.Status,
		RequiresConfirmation: result.RequiresConfirmation,
		Device:               deviceViewOf(result),
	})
}

type checkDeviceStatusRequest struct {
	DeviceID string `json:"deviceId"`
	Resend   bool   `json:"resend"`
}

// CheckDeviceStatus implements POST /checkDeviceStatus.
func (h *DeviceHandler) CheckDeviceStatus(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		ErrorResponse(c, apierr.Unauthenticated("autenticação ausente"))
		return
	}

	var req checkDeviceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestJSON(c, "corpo da requisição inválido")
		return
	}

	result, err := h.store.CheckStatus(c.Request.Context(), principal.ID, req.DeviceID, req.Resend)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	if result.ConfirmationToken != "" {
		recipient := principal.Email
		if recipient == "" {
			recipient = principal.ID
		}
		deviceName := ""
		if result.Device != nil {
			deviceName = result.Device.DeviceName
		}
		h.sendConfirmation(c.Request.Context(), recipient, deviceName, middleware.ClientIP(c), "", "", result.ConfirmationToken)
	}

	c.JSON(http.StatusOK, deviceResponse{
		Status:               result.Status,
		RequiresConfirmation: result.RequiresConfirmation,
		Device:               deviceViewOf(result),
	})
}

type confirmDeviceRequest struct {
	Token string `json:"token"`
}

// ConfirmDeviceGET implements GET /confirmDevice?token=…, rendering a
// self-contained HTML success or error page for the browser link the
// confirmation email carries.
func (h *DeviceHandler) ConfirmDeviceGET(c *gin.Context) {
	token := c.Query("token")
	record, err := h.store.Confirm(c.Request.Context(), token)
	if err != nil {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(confirmErrorPage))
		return
	}
	if recipient := h.recipientEmail(c.Request.Context(), record.UserID.String()); recipient != "" {
		h.sendLoginNotification(c.Request.Context(), recipient, record.DeviceName, record.IPAddress, record.Locale, record.Timezone)
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(confirmSuccessPage))
}

// ConfirmDevicePOST implements POST /confirmDevice {token}.
func (h *DeviceHandler) ConfirmDevicePOST(c *gin.Context) {
	var req confirmDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestJSON(c, "corpo da requisição inválido")
		return
	}
	record, err := h.store.Confirm(c.Request.Context(), req.Token)
	if err != nil {
		ErrorResponse(c, err)
		return
	}
	if recipient := h.recipientEmail(c.Request.Context(), record.UserID.String()); recipient != "" {
		h.sendLoginNotification(c.Request.Context(), recipient, record.DeviceName, record.IPAddress, record.Locale, record.Timezone)
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

func deviceViewOf(result device.LoginResult) *deviceView {
	if result.Device == nil {
		return nil
	}
	return &deviceView{
		ID:         result.Device.ID.String(),
		DeviceName: result.Device.DeviceName,
		Status:     result.Status,
	}
}

const confirmSuccessPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Dispositivo confirmado</title></head>
<body style="font-family:Arial,sans-serif;background:#f4f4f7;padding:48px;text-align:center;">
<div style="max-width:420px;margin:0 auto;background:#fff;border-radius:8px;padding:32px;">
<h2 style="color:#16a34a;">Dispositivo confirmado</h2>
<p>Você já pode fechar esta janela e voltar ao aplicativo.</p>
</div></body></html>`

const confirmErrorPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Token inválido</title></head>
<body style="font-family:Arial,sans-serif;background:#f4f4f7;padding:48px;text-align:center;">
<div style="max-width:420px;margin:0 auto;background:#fff;border-radius:8px;padding:32px;">
<h2 style="color:#dc2626;">Token não encontrado</h2>
<p>Este link de confirmação já foi utilizado ou expirou.</p>
</div></body></html>`
