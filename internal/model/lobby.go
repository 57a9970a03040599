package model

import "time"

// Lobby tracks how many people currently occupy one named holding area.
// CurrentCount is a cache of TotalCheckedIn - TotalSentOut; a manual count
// override is the only operation allowed to break that equality.
type Lobby struct {
	Name           string `gorm:"primaryKey;size:128"`
	CurrentCount   int    `gorm:"not null"`
	TotalCheckedIn int    `gorm:"not null"`
	TotalSentOut   int    `gorm:"not null"`
	UpdatedBy      string `gorm:"size:128"`
	UpdatedAt      time.Time
}

// Volunteer identifies one escort accompanying a batch out of a lobby.
type Volunteer struct {
	Name     string `json:"name"`
	IDNumber string `json:"id_number"`
}

// BatchExit is one append-only row of the batch-exit ledger. Rows are never
// updated or deleted; a lobby reset zeroes the counters but keeps these.
type BatchExit struct {
	ID          string      `gorm:"primaryKey;size:36"`
	LobbyName   string      `gorm:"size:128;not null;index:idx_batch_lobby_number,unique"`
	BatchNumber int         `gorm:"not null;index:idx_batch_lobby_number,unique"`
	PeopleCount int         `gorm:"not null"`
	Volunteers  []Volunteer `gorm:"serializer:json;not null"`
	Notes       string      `gorm:"size:512"`
	CreatedBy   string      `gorm:"size:128;not null"`
	CreatedAt   time.Time   `gorm:"not null;index"`
}

// LobbyAction records administrative mutations (count overrides, resets) so a
// broken count cache can be traced back to who broke it.
type LobbyAction struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	LobbyName   string `gorm:"size:128;not null;index"`
	Action      string `gorm:"size:32;not null"`
	Detail      string `gorm:"size:256"`
	PerformedBy string `gorm:"size:128"`
	CreatedAt   time.Time
}

const (
	ActionSetCount = "set_count"
	ActionReset    = "reset"
)
