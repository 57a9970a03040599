package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatepass-backend/internal/apperr"
	"gatepass-backend/internal/clock"
	"gatepass-backend/internal/model"
	"gatepass-backend/internal/store"
)

// fakeStore keeps credentials in a map and records verification stamps.
type fakeStore struct {
	creds    map[string]model.Credential
	stampErr error
}

func newFakeStore(creds ...model.Credential) *fakeStore {
	fs := &fakeStore{creds: make(map[string]model.Credential)}
	for _, c := range creds {
		fs.creds[c.ID] = c
	}
	return fs
}

func (f *fakeStore) Get(_ context.Context, id string) (model.Credential, error) {
	cred, ok := f.creds[id]
	if !ok {
		return model.Credential{}, apperr.ErrNotFound
	}
	return cred, nil
}

func (f *fakeStore) UpdateVerification(_ context.Context, id, verifierID string, at time.Time) error {
	if f.stampErr != nil {
		return f.stampErr
	}
	cred := f.creds[id]
	cred.VerifiedBy = &verifierID
	cred.VerifiedAt = &at
	f.creds[id] = cred
	return nil
}

func (f *fakeStore) Create(context.Context, store.CreateParams) (model.Credential, error) {
	panic("not used")
}

func (f *fakeStore) SetStatus(context.Context, string, model.CredentialStatus) (model.Credential, error) {
	panic("not used")
}

func (f *fakeStore) MarkArrived(context.Context, string, string, time.Time) (model.Credential, error) {
	panic("not used")
}

func (f *fakeStore) List(context.Context, store.Filter, store.Page) (store.CredentialPage, error) {
	panic("not used")
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func inWindowCredential(id string, status model.CredentialStatus) model.Credential {
	return model.Credential{
		ID:        id,
		Name:      "Asha Rao",
		Status:    status,
		ValidFrom: datePtr(2025, time.March, 1),
		ValidTo:   datePtr(2025, time.March, 3),
	}
}

var scanTime = time.Date(2025, time.March, 2, 10, 30, 0, 0, time.UTC)

func TestVerifyUnknownCredential(t *testing.T) {
	svc := NewService(newFakeStore(), clock.NewFixed(scanTime))

	_, err := svc.Verify(context.Background(), "missing", "gate-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVerifyRevokedNeverGranted(t *testing.T) {
	fs := newFakeStore(inWindowCredential("c1", model.StatusRevoked))
	svc := NewService(fs, clock.NewFixed(scanTime))

	result, err := svc.Verify(context.Background(), "c1", "gate-1")
	require.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, ReasonRevoked, result.Reason)
	// The denied snapshot still comes back so the gate can show who it was.
	require.NotNil(t, result.Credential)
	assert.Equal(t, "Asha Rao", result.Credential.Name)
	assert.Nil(t, fs.creds["c1"].VerifiedBy, "a denied scan must not stamp")
}

func TestVerifyPendingDenied(t *testing.T) {
	fs := newFakeStore(inWindowCredential("c1", model.StatusPending))
	svc := NewService(fs, clock.NewFixed(scanTime))

	result, err := svc.Verify(context.Background(), "c1", "gate-1")
	require.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, ReasonNotApproved, result.Reason)
	require.NotNil(t, result.Credential)
}

func TestVerifyWindowClosed(t *testing.T) {
	fs := newFakeStore(inWindowCredential("c1", model.StatusApproved))

	before := NewService(fs, clock.NewFixed(time.Date(2025, time.February, 28, 12, 0, 0, 0, time.UTC)))
	result, err := before.Verify(context.Background(), "c1", "gate-1")
	require.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, "not started", result.Reason)

	after := NewService(fs, clock.NewFixed(time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)))
	result, err = after.Verify(context.Background(), "c1", "gate-1")
	require.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, "expired", result.Reason)
}

func TestVerifyApprovedInWindowGrantsAndStamps(t *testing.T) {
	fs := newFakeStore(inWindowCredential("c1", model.StatusApproved))
	svc := NewService(fs, clock.NewFixed(scanTime))

	result, err := svc.Verify(context.Background(), "c1", "gate-1")
	require.NoError(t, err)
	assert.True(t, result.Granted)
	assert.Empty(t, result.Reason)

	stored := fs.creds["c1"]
	require.NotNil(t, stored.VerifiedBy)
	assert.Equal(t, "gate-1", *stored.VerifiedBy)
	require.NotNil(t, stored.VerifiedAt)
	assert.Equal(t, scanTime, *stored.VerifiedAt)
}

func TestVerifyRepeatScanRestamps(t *testing.T) {
	// Credentials are reusable within their window: the second scan is
	// granted again and the stamp reflects the second verifier.
	fs := newFakeStore(inWindowCredential("c1", model.StatusApproved))
	svc := NewService(fs, clock.NewFixed(scanTime))

	first, err := svc.Verify(context.Background(), "c1", "gate-1")
	require.NoError(t, err)
	assert.True(t, first.Granted)

	second, err := svc.Verify(context.Background(), "c1", "gate-2")
	require.NoError(t, err)
	assert.True(t, second.Granted)

	stored := fs.creds["c1"]
	require.NotNil(t, stored.VerifiedBy)
	assert.Equal(t, "gate-2", *stored.VerifiedBy)
}

func TestVerifyWithoutVerifierSkipsStamp(t *testing.T) {
	fs := newFakeStore(inWindowCredential("c1", model.StatusApproved))
	svc := NewService(fs, clock.NewFixed(scanTime))

	result, err := svc.Verify(context.Background(), "c1", "")
	require.NoError(t, err)
	assert.True(t, result.Granted)
	assert.Nil(t, fs.creds["c1"].VerifiedBy)
}

func TestVerifyStampFailureStillGrants(t *testing.T) {
	fs := newFakeStore(inWindowCredential("c1", model.StatusApproved))
	fs.stampErr = errors.New("connection reset")
	svc := NewService(fs, clock.NewFixed(scanTime))

	result, err := svc.Verify(context.Background(), "c1", "gate-1")
	require.NoError(t, err, "a stamp failure must never surface as the gate decision")
	assert.True(t, result.Granted)
	assert.Nil(t, fs.creds["c1"].VerifiedBy)
}

func TestVerifyNoWindowCredential(t *testing.T) {
	fs := newFakeStore(model.Credential{ID: "c1", Name: "Legacy Import", Status: model.StatusApproved})
	svc := NewService(fs, clock.NewFixed(scanTime))

	result, err := svc.Verify(context.Background(), "c1", "gate-1")
	require.NoError(t, err)
	assert.True(t, result.Granted, "credentials without dates are not date-gated")
}
