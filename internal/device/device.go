// Package device implements the device-approval state machine: absent,
// pending, and approved device records keyed by (principal, device id),
// single-use confirmation tokens, resend semantics, and the append-only
// login-event audit trail.
package device

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tesseract-hub/dashboard-gateway/internal/apierr"
	"github.com/tesseract-hub/dashboard-gateway/internal/registry"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// LoginRequest carries the device attributes reported at login time.
type LoginRequest struct {
	DeviceID   string
	DeviceName string
	UserAgent  string
	IPAddress  string
	Locale     string
	Timezone   string
	Screen     string
	Resend     bool
}

// LoginResult is returned to the caller after Login runs the state machine.
type LoginResult struct {
	Status               string
	RequiresConfirmation bool
	Device               *registry.DeviceRecord
	ConfirmationToken     string // only set when a fresh token was minted
}

// repository is the narrow slice of registry.Repository the state machine
// needs, declared here so tests can supply a fake without a live database —
// the same seam the teacher's services accept a repo interface through.
type repository interface {
	GetDeviceByUserDevice(ctx context.Context, userID, deviceID string) (*registry.DeviceRecord, error)
	GetDeviceByToken(ctx context.Context, token string) (*registry.DeviceRecord, error)
	UpsertDevice(ctx context.Context, d *registry.DeviceRecord) error
	UpdateDevice(ctx context.Context, id string, patch map[string]any) error
	RecordLoginEvent(ctx context.Context, e *registry.LoginEvent) error
}

// Store wraps the registry repository with the device state machine.
type Store struct {
	repo repository
}

// New builds a Store over the central registry repository.
func New(repo *registry.Repository) *Store {
	return &Store{repo: repo}
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(buf), nil
}

// Login runs the absent/pending/approved transitions described by the
// device-approval state machine for one login attempt.
func (s *Store) Login(ctx context.Context, principalID string, req LoginRequest) (LoginResult, error) {
	if req.DeviceID == "" {
		return LoginResult{}, apierr.BadRequest("deviceId inválido ou ausente")
	}

	userID, err := uuid.Parse(principalID)
	if err != nil {
		return LoginResult{}, apierr.BadRequest("identificador de usuário inválido")
	}

	existing, err := s.repo.GetDeviceByUserDevice(ctx, principalID, req.DeviceID)
	if err != nil && !errors.Is(err, registry.ErrNotFound) {
		return LoginResult{}, apierr.Internal("falha ao consultar dispositivo", err)
	}

	now := time.Now().UTC()

	if errors.Is(err, registry.ErrNotFound) {
		token, terr := generateToken()
		if terr != nil {
			return LoginResult{}, apierr.Internal("falha ao gerar token de confirmação", terr)
		}
		record := &registry.DeviceRecord{
			UserID:        userID,
			DeviceID:      req.DeviceID,
			DeviceName:    req.DeviceName,
			UserAgent:     req.UserAgent,
			IPAddress:     req.IPAddress,
			Locale:        req.Locale,
			Timezone:      req.Timezone,
			Screen:        req.Screen,
			Status:        StatusPending,
			ApprovalToken: &token,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.UpsertDevice(ctx, record); err != nil {
			return LoginResult{}, apierr.Internal("falha ao registrar dispositivo", err)
		}
		return LoginResult{
			Status:               StatusPending,
			RequiresConfirmation: true,
			Device:               record,
			ConfirmationToken:    token,
		}, nil
	}

	switch existing.Status {
	case StatusPending:
		token := existing.ApprovalToken
		mintNew := req.Resend || token == nil
		var freshToken string
		if mintNew {
			generated, terr := generateToken()
			if terr != nil {
				return LoginResult{}, apierr.Internal("falha ao gerar token de confirmação", terr)
			}
			freshToken = generated
			token = &freshToken
		}
		patch := map[string]any{
			"device_name":    req.DeviceName,
			"user_agent":     req.UserAgent,
			"ip_address":     req.IPAddress,
			"locale":         req.Locale,
			"timezone":       req.Timezone,
			"screen":         req.Screen,
			"approval_token": token,
			"updated_at":     now,
		}
		if err := s.repo.UpdateDevice(ctx, existing.ID.String(), patch); err != nil {
			return LoginResult{}, apierr.Internal("falha ao atualizar dispositivo", err)
		}
		existing.ApprovalToken = token
		return LoginResult{
			Status:               StatusPending,
			RequiresConfirmation: true,
			Device:               existing,
			ConfirmationToken:    freshToken,
		}, nil

	case StatusApproved:
		patch := map[string]any{
			"device_name": req.DeviceName,
			"user_agent":  req.UserAgent,
			"ip_address":  req.IPAddress,
			"locale":      req.Locale,
			"timezone":    req.Timezone,
			"screen":      req.Screen,
			"last_seen_at": now,
			"updated_at":  now,
		}
		if err := s.repo.UpdateDevice(ctx, existing.ID.String(), patch); err != nil {
			return LoginResult{}, apierr.Internal("falha ao atualizar dispositivo", err)
		}
		if err := s.repo.RecordLoginEvent(ctx, &registry.LoginEvent{
			UserID:     userID,
			DeviceID:   req.DeviceID,
			DeviceName: req.DeviceName,
			IPAddress:  req.IPAddress,
			UserAgent:  req.UserAgent,
			Locale:     req.Locale,
			Timezone:   req.Timezone,
			CreatedAt:  now,
		}); err != nil {
			return LoginResult{}, apierr.Internal("falha ao registrar evento de login", err)
		}
		return LoginResult{Status: StatusApproved, RequiresConfirmation: false, Device: existing}, nil

	default:
		return LoginResult{}, apierr.Internal("estado de dispositivo desconhecido", nil)
	}
}

// CheckStatus reports a device's current state without mutating it, unless
// resend is requested for a pending device (in which case it behaves like
// the pending branch of Login).
func (s *Store) CheckStatus(ctx context.Context, principalID, deviceID string, resend bool) (LoginResult, error) {
	if deviceID == "" {
		return LoginResult{}, apierr.BadRequest("deviceId inválido ou ausente")
	}
	existing, err := s.repo.GetDeviceByUserDevice(ctx, principalID, deviceID)
	if errors.Is(err, registry.ErrNotFound) {
		return LoginResult{Status: "absent", RequiresConfirmation: true}, nil
	}
	if err != nil {
		return LoginResult{}, apierr.Internal("falha ao consultar dispositivo", err)
	}
	if existing.Status == StatusApproved {
		return LoginResult{Status: StatusApproved, RequiresConfirmation: false, Device: existing}, nil
	}
	if !resend {
		return LoginResult{Status: StatusPending, RequiresConfirmation: true, Device: existing}, nil
	}
	return s.Login(ctx, principalID, LoginRequest{
		DeviceID:   deviceID,
		DeviceName: existing.DeviceName,
		UserAgent:  existing.UserAgent,
		IPAddress:  existing.IPAddress,
		Locale:     existing.Locale,
		Timezone:   existing.Timezone,
		Screen:     existing.Screen,
		Resend:     true,
	})
}

// Confirm resolves a single-use approval token, transitioning the device
// to approved, clearing the token, and recording a login event.
func (s *Store) Confirm(ctx context.Context, token string) (*registry.DeviceRecord, error) {
	if token == "" {
		return nil, apierr.BadRequest("token de confirmação ausente")
	}
	record, err := s.repo.GetDeviceByToken(ctx, token)
	if errors.Is(err, registry.ErrNotFound) {
		return nil, apierr.NotFound("token de confirmação não encontrado")
	}
	if err != nil {
		return nil, apierr.Internal("falha ao consultar token de confirmação", err)
	}

	now := time.Now().UTC()
	patch := map[string]any{
		"status":         StatusApproved,
		"confirmed_at":   now,
		"approval_token": nil,
		"last_seen_at":   now,
		"updated_at":     now,
	}
	if err := s.repo.UpdateDevice(ctx, record.ID.String(), patch); err != nil {
		return nil, apierr.Internal("falha ao confirmar dispositivo", err)
	}

	if err := s.repo.RecordLoginEvent(ctx, &registry.LoginEvent{
		UserID:     record.UserID,
		DeviceID:   record.DeviceID,
		DeviceName: record.DeviceName,
		IPAddress:  record.IPAddress,
		UserAgent:  record.UserAgent,
		Locale:     record.Locale,
		Timezone:   record.Timezone,
		CreatedAt:  now,
	}); err != nil {
		return nil, apierr.Internal("falha ao registrar evento de confirmação", err)
	}

	record.Status = StatusApproved
	record.ConfirmedAt = &now
	record.ApprovalToken = nil
	return record, nil
}

// RequireApproved fails Forbidden unless the device is present and in the
// approved state with confirmed_at set.
func (s *Store) RequireApproved(ctx context.Context, principalID, deviceID string) error {
	if deviceID == "" {
		return apierr.Forbidden("cabeçalho X-Client-Device-Id ausente")
	}
	record, err := s.repo.GetDeviceByUserDevice(ctx, principalID, deviceID)
	if errors.Is(err, registry.ErrNotFound) {
		return apierr.Forbidden("dispositivo não aprovado")
	}
	if err != nil {
		return apierr.Internal("falha ao consultar dispositivo", err)
	}
	if record.Status != StatusApproved || record.ConfirmedAt == nil {
		return apierr.Forbidden("dispositivo não aprovado")
	}
	return nil
}
