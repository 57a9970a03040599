package internal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gatepass-backend/internal/apperr"
	"gatepass-backend/internal/clock"
	"gatepass-backend/internal/db"
	"gatepass-backend/internal/model"
	"gatepass-backend/internal/occupancy"
	"gatepass-backend/internal/store"
	"gatepass-backend/internal/verify"
)

// TestEventDayLifecycle walks one credential and one lobby through a full
// open day: registration, approval, the gate scan before/during the window,
// arrival marking, and the lobby's check-in/batch-exit/reset cycle.
func TestEventDayLifecycle(t *testing.T) {
	testDB, err := gorm.Open(sqlite.Open("file:lifecycle?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	ctx := context.Background()
	credentials := store.NewGormStore(testDB, 100)

	visitDay := time.Date(2025, time.November, 30, 0, 0, 0, 0, time.UTC)

	// --- Registration ---
	cred, err := credentials.Create(ctx, store.CreateParams{
		Name:              "Asha Rao",
		Email:             "asha@example.com",
		EventID:           "ev-openday",
		EventName:         "OPEN DAY 1",
		Category:          model.CategoryStudent,
		AreaOfInterest:    []string{"Computer Science", "Design"},
		AccompanyingCount: 2,
		VisitDate:         &visitDay,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, cred.Status)

	// --- Gate scan the day before, even after approval: denied ---
	_, err = credentials.SetStatus(ctx, cred.ID, model.StatusApproved)
	require.NoError(t, err)

	dayBefore := verify.NewService(credentials, clock.NewFixed(visitDay.Add(-6*time.Hour)))
	result, err := dayBefore.Verify(ctx, cred.ID, "gate-1")
	require.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, "not started", result.Reason)

	// --- Gate scan on the visit day: granted and stamped ---
	scanTime := visitDay.Add(9 * time.Hour)
	gate := verify.NewService(credentials, clock.NewFixed(scanTime))
	result, err = gate.Verify(ctx, cred.ID, "gate-1")
	require.NoError(t, err)
	require.True(t, result.Granted)

	stored, err := credentials.Get(ctx, cred.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.VerifiedBy)
	assert.Equal(t, "gate-1", *stored.VerifiedBy)
	require.NotNil(t, stored.VerifiedAt)
	assert.True(t, stored.VerifiedAt.Equal(scanTime))

	// --- Arrival desk marks the holder as inside ---
	stored, err = credentials.MarkArrived(ctx, cred.ID, "desk-1", scanTime.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, stored.HasArrived)

	// --- Lobby flow: the holding area fills, empties in batches, resets ---
	ledger := occupancy.NewLedger(testDB, clock.NewFixed(scanTime), 100)

	lobby, err := ledger.CheckIn(ctx, "Lobby 1", 10, "op-1")
	require.NoError(t, err)
	assert.Equal(t, 10, lobby.CurrentCount)

	batch, lobby, err := ledger.CreateBatchExit(ctx, occupancy.BatchExitParams{
		LobbyName:   "Lobby 1",
		PeopleCount: 4,
		Volunteers:  []model.Volunteer{{Name: "A", IDNumber: "R1"}},
		CreatedBy:   "op-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, batch.BatchNumber)
	assert.Equal(t, 6, lobby.CurrentCount)

	_, _, err = ledger.CreateBatchExit(ctx, occupancy.BatchExitParams{
		LobbyName:   "Lobby 1",
		PeopleCount: 10,
		Volunteers:  []model.Volunteer{{Name: "A", IDNumber: "R1"}},
		CreatedBy:   "op-1",
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	lobby, err = ledger.Reset(ctx, "Lobby 1", "supervisor")
	require.NoError(t, err)
	assert.Zero(t, lobby.CurrentCount)
	assert.Zero(t, lobby.TotalCheckedIn)
	assert.Zero(t, lobby.TotalSentOut)

	page, err := ledger.ListBatches(ctx, "Lobby 1", &visitDay, 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1, "the day's ledger survives the reset")
	assert.Equal(t, 4, page.Items[0].PeopleCount)

	// --- Late revocation: the credential stops working immediately ---
	_, err = credentials.SetStatus(ctx, cred.ID, model.StatusRevoked)
	require.NoError(t, err)
	result, err = gate.Verify(ctx, cred.ID, "gate-2")
	require.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, "revoked", result.Reason)
	// The stamp from the earlier granted scan is untouched.
	stored, err = credentials.Get(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, "gate-1", *stored.VerifiedBy)
}

// TestLobbiesAreIndependent exercises two lobbies mutating concurrently;
// neither may observe the other's counters or batch numbering.
func TestLobbiesAreIndependent(t *testing.T) {
	testDB, err := gorm.Open(sqlite.Open("file:independent?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	ctx := context.Background()
	ledger := occupancy.NewLedger(testDB, clock.NewFixed(time.Date(2025, time.November, 30, 10, 0, 0, 0, time.UTC)), 100)

	for _, name := range []string{"Lobby 1", "Lobby 2"} {
		_, err := ledger.CheckIn(ctx, name, 3, "op-1")
		require.NoError(t, err)
	}

	for i := 0; i < 3; i++ {
		for _, name := range []string{"Lobby 1", "Lobby 2"} {
			batch, _, err := ledger.CreateBatchExit(ctx, occupancy.BatchExitParams{
				LobbyName:   name,
				PeopleCount: 1,
				Volunteers:  []model.Volunteer{{Name: fmt.Sprintf("V%d", i)}},
				CreatedBy:   "op-1",
			})
			require.NoError(t, err)
			assert.Equal(t, i+1, batch.BatchNumber)
		}
	}

	for _, name := range []string{"Lobby 1", "Lobby 2"} {
		lobby, err := ledger.Status(ctx, name)
		require.NoError(t, err)
		assert.Zero(t, lobby.CurrentCount)
		assert.Equal(t, 3, lobby.TotalSentOut)
	}
}
