package device

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tesseract-hub/dashboard-gateway/internal/registry"
)

type fakeRepo struct {
	byUserDevice map[string]*registry.DeviceRecord
	byToken      map[string]*registry.DeviceRecord
	events       []*registry.LoginEvent
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byUserDevice: make(map[string]*registry.DeviceRecord),
		byToken:      make(map[string]*registry.DeviceRecord),
	}
}

func key(userID, deviceID string) string { return userID + "|" + deviceID }

func (f *fakeRepo) GetDeviceByUserDevice(ctx context.Context, userID, deviceID string) (*registry.DeviceRecord, error) {
	r, ok := f.byUserDevice[key(userID, deviceID)]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) GetDeviceByToken(ctx context.Context, token string) (*registry.DeviceRecord, error) {
	r, ok := f.byToken[token]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) UpsertDevice(ctx context.Context, d *registry.DeviceRecord) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	f.byUserDevice[key(d.UserID.String(), d.DeviceID)] = d
	if d.ApprovalToken != nil {
		f.byToken[*d.ApprovalToken] = d
	}
	return nil
}

func (f *fakeRepo) UpdateDevice(ctx context.Context, id string, patch map[string]any) error {
	for _, r := range f.byUserDevice {
		if r.ID.String() != id {
			continue
		}
		if r.ApprovalToken != nil {
			delete(f.byToken, *r.ApprovalToken)
		}
		applyPatch(r, patch)
		if r.ApprovalToken != nil {
			f.byToken[*r.ApprovalToken] = r
		}
		return nil
	}
	return registry.ErrNotFound
}

func applyPatch(r *registry.DeviceRecord, patch map[string]any) {
	if v, ok := patch["status"]; ok {
		r.Status = v.(string)
	}
	if v, ok := patch["approval_token"]; ok {
		if v == nil {
			r.ApprovalToken = nil
		} else {
			r.ApprovalToken = v.(*string)
		}
	}
	if v, ok := patch["device_name"]; ok {
		r.DeviceName = v.(string)
	}
}

func (f *fakeRepo) RecordLoginEvent(ctx context.Context, e *registry.LoginEvent) error {
	f.events = append(f.events, e)
	return nil
}

func TestLoginAbsentCreatesPendingWithToken(t *testing.T) {
	repo := newFakeRepo()
	s := &Store{repo: repo}
	userID := uuid.New().String()

	result, err := s.Login(context.Background(), userID, LoginRequest{DeviceID: "dev-1", DeviceName: "Laptop"})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, result.Status)
	assert.True(t, result.RequiresConfirmation)
	assert.NotEmpty(t, result.ConfirmationToken)
}

func TestDeviceGateMonotonicity(t *testing.T) {
	repo := newFakeRepo()
	s := &Store{repo: repo}
	userID := uuid.New().String()

	result, err := s.Login(context.Background(), userID, LoginRequest{DeviceID: "dev-1"})
	require.NoError(t, err)

	err = s.RequireApproved(context.Background(), userID, "dev-1")
	require.Error(t, err)

	record, err := s.Confirm(context.Background(), result.ConfirmationToken)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, record.Status)

	require.NoError(t, s.RequireApproved(context.Background(), userID, "dev-1"))
	require.NoError(t, s.RequireApproved(context.Background(), userID, "dev-1"))
}

func TestConfirmConsumesTokenSingleUse(t *testing.T) {
	repo := newFakeRepo()
	s := &Store{repo: repo}
	userID := uuid.New().String()

	result, err := s.Login(context.Background(), userID, LoginRequest{DeviceID: "dev-1"})
	require.NoError(t, err)

	_, err = s.Confirm(context.Background(), result.ConfirmationToken)
	require.NoError(t, err)

	_, err = s.Confirm(context.Background(), result.ConfirmationToken)
	require.Error(t, err)
}

func TestRequireApprovedFailsWithoutDeviceID(t *testing.T) {
	repo := newFakeRepo()
	s := &Store{repo: repo}
	err := s.RequireApproved(context.Background(), uuid.New().String(), "")
	require.Error(t, err)
}

func TestLoginResendOnlyMintsNewTokenWhenRequested(t *testing.T) {
	repo := newFakeRepo()
	s := &Store{repo: repo}
	userID := uuid.New().String()

	first, err := s.Login(context.Background(), userID, LoginRequest{DeviceID: "dev-1"})
	require.NoError(t, err)

	second, err := s.Login(context.Background(), userID, LoginRequest{DeviceID: "dev-1", Resend: false})
	require.NoError(t, err)
	assert.Empty(t, second.ConfirmationToken)

	third, err := s.Login(context.Background(), userID, LoginRequest{DeviceID: "dev-1", Resend: true})
	require.NoError(t, err)
	assert.NotEmpty(t, third.ConfirmationToken)
	assert.NotEqual(t, first.ConfirmationToken, third.ConfirmationToken)
}
