// Package occupancy owns the per-lobby headcount and the append-only
// batch-exit ledger. Every mutation of one lobby runs under that lobby's
// mutex and inside a single transaction, so concurrent operators cannot pass
// the capacity check against a stale count or collide on batch numbers.
// Different lobbies proceed in parallel.
package occupancy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gatepass-backend/internal/apperr"
	"gatepass-backend/internal/clock"
	"gatepass-backend/internal/metrics"
	"gatepass-backend/internal/model"
)

// Ledger serializes mutations per lobby and keeps the counters consistent
// with the batch-exit history.
type Ledger struct {
	db          *gorm.DB
	clock       clock.Clock
	maxPageSize int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLedger creates a ledger. maxPageSize caps ListBatches page sizes.
func NewLedger(db *gorm.DB, c clock.Clock, maxPageSize int) *Ledger {
	if c == nil {
		c = clock.NewSystem()
	}
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &Ledger{
		db:          db,
		clock:       c,
		maxPageSize: maxPageSize,
		locks:       make(map[string]*sync.Mutex),
	}
}

// lobbyLock returns the mutex for one lobby, creating it on first use.
func (l *Ledger) lobbyLock(name string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[name] = lock
	}
	return lock
}

// CheckIn adds delta people to the lobby, creating the lobby row with zeros
// on first use. Safe to retry.
func (l *Ledger) CheckIn(ctx context.Context, lobbyName string, delta int, updatedBy string) (model.Lobby, error) {
	if err := validLobbyName(lobbyName); err != nil {
		return model.Lobby{}, err
	}
	if delta < 1 {
		return model.Lobby{}, fmt.Errorf("%w: delta must be at least 1", apperr.ErrInvalidArgument)
	}

	lock := l.lobbyLock(lobbyName)
	lock.Lock()
	defer lock.Unlock()

	var lobby model.Lobby
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		lobby, err = loadOrCreateLobby(tx, lobbyName)
		if err != nil {
			return err
		}
		lobby.CurrentCount += delta
		lobby.TotalCheckedIn += delta
		lobby.UpdatedBy = updatedBy
		lobby.UpdatedAt = l.clock.Now()
		if err := tx.Save(&lobby).Error; err != nil {
			return storeErr("update lobby", err)
		}
		return nil
	})
	if err != nil {
		return model.Lobby{}, err
	}
	metrics.CheckIns.Add(float64(delta))
	return lobby, nil
}

// BatchExitParams carries the inputs for CreateBatchExit.
type BatchExitParams struct {
	LobbyName   string
	PeopleCount int
	Volunteers  []model.Volunteer
	Notes       string
	CreatedBy   string
}

// CreateBatchExit appends one batch-exit row and moves its people from the
// lobby's current count to the sent-out total. Batch numbers are assigned
// per lobby, starting at 1. Not idempotent: retrying a successful call
// records a second departure.
func (l *Ledger) CreateBatchExit(ctx context.Context, params BatchExitParams) (model.BatchExit, model.Lobby, error) {
	if err := validLobbyName(params.LobbyName); err != nil {
		return model.BatchExit{}, model.Lobby{}, err
	}
	if params.PeopleCount < 1 {
		return model.BatchExit{}, model.Lobby{}, fmt.Errorf("%w: people_count must be at least 1", apperr.ErrInvalidArgument)
	}
	if len(params.Volunteers) == 0 {
		return model.BatchExit{}, model.Lobby{}, fmt.Errorf("%w: at least one volunteer is required", apperr.ErrInvalidArgument)
	}
	for _, v := range params.Volunteers {
		if strings.TrimSpace(v.Name) == "" {
			return model.BatchExit{}, model.Lobby{}, fmt.Errorf("%w: volunteer name must not be empty", apperr.ErrInvalidArgument)
		}
	}

	lock := l.lobbyLock(params.LobbyName)
	lock.Lock()
	defer lock.Unlock()

	var (
		batch model.BatchExit
		lobby model.Lobby
	)
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&lobby, "name = ?", params.LobbyName).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: lobby %q has nobody checked in", apperr.ErrInvalidArgument, params.LobbyName)
			}
			return storeErr("load lobby", err)
		}
		if params.PeopleCount > lobby.CurrentCount {
			return fmt.Errorf("%w: cannot send out %d people, only %d present",
				apperr.ErrInvalidArgument, params.PeopleCount, lobby.CurrentCount)
		}

		var maxNumber int
		if err := tx.Model(&model.BatchExit{}).
			Where("lobby_name = ?", params.LobbyName).
			Select("COALESCE(MAX(batch_number), 0)").
			Scan(&maxNumber).Error; err != nil {
			return storeErr("read batch numbers", err)
		}

		now := l.clock.Now()
		batch = model.BatchExit{
			ID:          uuid.NewString(),
			LobbyName:   params.LobbyName,
			BatchNumber: maxNumber + 1,
			PeopleCount: params.PeopleCount,
			Volunteers:  params.Volunteers,
			Notes:       params.Notes,
			CreatedBy:   params.CreatedBy,
			CreatedAt:   now,
		}
		if err := tx.Create(&batch).Error; err != nil {
			return storeErr("append batch exit", err)
		}

		lobby.CurrentCount -= params.PeopleCount
		lobby.TotalSentOut += params.PeopleCount
		lobby.UpdatedBy = params.CreatedBy
		lobby.UpdatedAt = now
		if err := tx.Save(&lobby).Error; err != nil {
			return storeErr("update lobby", err)
		}
		return nil
	})
	if err != nil {
		return model.BatchExit{}, model.Lobby{}, err
	}
	metrics.BatchExits.Inc()
	return batch, lobby, nil
}

// SetCount overrides the current count directly. It is a manual correction
// tool: the checked-in and sent-out totals stay untouched, so the count may
// no longer equal their difference afterwards. The override is recorded as a
// lobby action.
func (l *Ledger) SetCount(ctx context.Context, lobbyName string, newCount int, updatedBy string) (model.Lobby, error) {
	if err := validLobbyName(lobbyName); err != nil {
		return model.Lobby{}, err
	}
	if newCount < 0 {
		return model.Lobby{}, fmt.Errorf("%w: count must not be negative", apperr.ErrInvalidArgument)
	}

	lock := l.lobbyLock(lobbyName)
	lock.Lock()
	defer lock.Unlock()

	var lobby model.Lobby
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		lobby, err = loadOrCreateLobby(tx, lobbyName)
		if err != nil {
			return err
		}
		detail := fmt.Sprintf("count %d -> %d", lobby.CurrentCount, newCount)
		lobby.CurrentCount = newCount
		lobby.UpdatedBy = updatedBy
		lobby.UpdatedAt = l.clock.Now()
		if err := tx.Save(&lobby).Error; err != nil {
			return storeErr("update lobby", err)
		}
		return l.logAction(tx, lobbyName, model.ActionSetCount, detail, updatedBy)
	})
	if err != nil {
		return model.Lobby{}, err
	}
	return lobby, nil
}

// Reset zeroes the lobby's counters. Batch-exit history is kept; the reset
// itself is recorded as a lobby action.
func (l *Ledger) Reset(ctx context.Context, lobbyName string, resetBy string) (model.Lobby, error) {
	if err := validLobbyName(lobbyName); err != nil {
		return model.Lobby{}, err
	}

	lock := l.lobbyLock(lobbyName)
	lock.Lock()
	defer lock.Unlock()

	var lobby model.Lobby
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		lobby, err = loadOrCreateLobby(tx, lobbyName)
		if err != nil {
			return err
		}
		detail := fmt.Sprintf("current=%d checked_in=%d sent_out=%d",
			lobby.CurrentCount, lobby.TotalCheckedIn, lobby.TotalSentOut)
		lobby.CurrentCount = 0
		lobby.TotalCheckedIn = 0
		lobby.TotalSentOut = 0
		lobby.UpdatedBy = resetBy
		lobby.UpdatedAt = l.clock.Now()
		if err := tx.Save(&lobby).Error; err != nil {
			return storeErr("update lobby", err)
		}
		return l.logAction(tx, lobbyName, model.ActionReset, detail, resetBy)
	})
	if err != nil {
		return model.Lobby{}, err
	}
	return lobby, nil
}

// BatchPage is one page of batch-exit history, newest first.
type BatchPage struct {
	Items  []model.BatchExit
	Total  int64
	Limit  int
	Offset int
}

// ListBatches returns the lobby's batch exits, optionally narrowed to the
// calendar date of creation, newest first.
func (l *Ledger) ListBatches(ctx context.Context, lobbyName string, date *time.Time, limit, offset int) (BatchPage, error) {
	if err := validLobbyName(lobbyName); err != nil {
		return BatchPage{}, err
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > l.maxPageSize {
		limit = l.maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	filtered := func() *gorm.DB {
		q := l.db.WithContext(ctx).Model(&model.BatchExit{}).Where("lobby_name = ?", lobbyName)
		if date != nil {
			dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
			q = q.Where("created_at >= ? AND created_at < ?", dayStart, dayStart.Add(24*time.Hour))
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return BatchPage{}, storeErr("count batch exits", err)
	}

	var items []model.BatchExit
	if err := filtered().Order("created_at DESC").Order("batch_number DESC").
		Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return BatchPage{}, storeErr("list batch exits", err)
	}

	return BatchPage{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// Status returns the snapshot of one lobby.
func (l *Ledger) Status(ctx context.Context, lobbyName string) (model.Lobby, error) {
	if err := validLobbyName(lobbyName); err != nil {
		return model.Lobby{}, err
	}
	var lobby model.Lobby
	if err := l.db.WithContext(ctx).First(&lobby, "name = ?", lobbyName).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Lobby{}, fmt.Errorf("%w: lobby %q", apperr.ErrNotFound, lobbyName)
		}
		return model.Lobby{}, storeErr("load lobby", err)
	}
	return lobby, nil
}

// StatusAll returns snapshots of every known lobby, ordered by name.
func (l *Ledger) StatusAll(ctx context.Context) ([]model.Lobby, error) {
	var lobbies []model.Lobby
	if err := l.db.WithContext(ctx).Order("name").Find(&lobbies).Error; err != nil {
		return nil, storeErr("list lobbies", err)
	}
	return lobbies, nil
}

func (l *Ledger) logAction(tx *gorm.DB, lobbyName, action, detail, performedBy string) error {
	row := model.LobbyAction{
		LobbyName:   lobbyName,
		Action:      action,
		Detail:      detail,
		PerformedBy: performedBy,
		CreatedAt:   l.clock.Now(),
	}
	if err := tx.Create(&row).Error; err != nil {
		return storeErr("log lobby action", err)
	}
	return nil
}

func loadOrCreateLobby(tx *gorm.DB, name string) (model.Lobby, error) {
	var lobby model.Lobby
	err := tx.First(&lobby, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		lobby = model.Lobby{Name: name}
		if err := tx.Create(&lobby).Error; err != nil {
			return model.Lobby{}, storeErr("create lobby", err)
		}
		return lobby, nil
	}
	if err != nil {
		return model.Lobby{}, storeErr("load lobby", err)
	}
	return lobby, nil
}

func validLobbyName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: lobby name must not be empty", apperr.ErrInvalidArgument)
	}
	return nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", apperr.ErrStoreUnavailable, op, err)
}
