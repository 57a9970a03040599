package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gatepass-backend/config"
	"gatepass-backend/internal/apperr"
	"gatepass-backend/internal/clock"
	"gatepass-backend/internal/model"
	"gatepass-backend/internal/occupancy"
	"gatepass-backend/internal/store"
	"gatepass-backend/internal/verify"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.CredentialStore
	verifier *verify.Service
	ledger   *occupancy.Ledger
	clock    clock.Clock
	api      config.APIConfig
}

// NewHandler creates a new API handler.
func NewHandler(s store.CredentialStore, v *verify.Service, l *occupancy.Ledger, clk clock.Clock, apiCfg config.APIConfig) *Handler {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Handler{store: s, verifier: v, ledger: l, clock: clk, api: apiCfg}
}

// respondError maps the core error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrStoreUnavailable):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

const dateLayout = "2006-01-02"

// parseDate parses an optional YYYY-MM-DD value.
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

// credentialResponse is the wire shape of a credential.
type credentialResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	RegisterNumber    string     `json:"register_number,omitempty"`
	EventID           string     `json:"event_id,omitempty"`
	EventName         string     `json:"event_name,omitempty"`
	Category          string     `json:"category"`
	Status            string     `json:"status"`
	Purpose           string     `json:"purpose,omitempty"`
	AreaOfInterest    []string   `json:"area_of_interest,omitempty"`
	AccompanyingCount int        `json:"accompanying_count"`
	ValidFrom         *string    `json:"valid_from,omitempty"`
	ValidTo           *string    `json:"valid_to,omitempty"`
	VisitDate         *string    `json:"visit_date,omitempty"`
	VerifiedBy        *string    `json:"verified_by,omitempty"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	HasArrived        bool       `json:"has_arrived"`
	ArrivedAt         *time.Time `json:"arrived_at,omitempty"`
	CheckedInBy       *string    `json:"checked_in_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func toCredentialResponse(cred model.Credential) credentialResponse {
	return credentialResponse{
		ID:                cred.ID,
		Name:              cred.Name,
		Email:             cred.Email,
		Phone:             cred.Phone,
		RegisterNumber:    cred.RegisterNumber,
		EventID:           cred.EventID,
		EventName:         cred.EventName,
		Category:          string(cred.Category),
		Status:            string(cred.Status),
		Purpose:           cred.Purpose,
		AreaOfInterest:    cred.AreaOfInterest,
		AccompanyingCount: cred.AccompanyingCount,
		ValidFrom:         formatDate(cred.ValidFrom),
		ValidTo:           formatDate(cred.ValidTo),
		VisitDate:         formatDate(cred.VisitDate),
		VerifiedBy:        cred.VerifiedBy,
		VerifiedAt:        cred.VerifiedAt,
		HasArrived:        cred.HasArrived,
		ArrivedAt:         cred.ArrivedAt,
		CheckedInBy:       cred.CheckedInBy,
		CreatedAt:         cred.CreatedAt,
		UpdatedAt:         cred.UpdatedAt,
	}
}

// lobbyResponse is the wire shape of a lobby snapshot.
type lobbyResponse struct {
	Name           string    `json:"name"`
	CurrentCount   int       `json:"current_count"`
	TotalCheckedIn int       `json:"total_checked_in"`
	TotalSentOut   int       `json:"total_sent_out"`
	UpdatedBy      string    `json:"updated_by,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toLobbyResponse(lobby model.Lobby) lobbyResponse {
	return lobbyResponse{
		Name:           lobby.Name,
		CurrentCount:   lobby.CurrentCount,
		TotalCheckedIn: lobby.TotalCheckedIn,
		TotalSentOut:   lobby.TotalSentOut,
		UpdatedBy:      lobby.UpdatedBy,
		UpdatedAt:      lobby.UpdatedAt,
	}
}

// batchExitResponse is the wire shape of one batch-exit row.
type batchExitResponse struct {
	ID          string            `json:"id"`
	LobbyName   string            `json:"lobby_name"`
	BatchNumber int               `json:"batch_number"`
	PeopleCount int               `json:"people_count"`
	Volunteers  []model.Volunteer `json:"volunteers"`
	Notes       string            `json:"notes,omitempty"`
	CreatedBy   string            `json:"created_by"`
	CreatedAt   time.Time         `json:"created_at"`
}

func toBatchExitResponse(batch model.BatchExit) batchExitResponse {
	return batchExitResponse{
		ID:          batch.ID,
		LobbyName:   batch.LobbyName,
		BatchNumber: batch.BatchNumber,
		PeopleCount: batch.PeopleCount,
		Volunteers:  batch.Volunteers,
		Notes:       batch.Notes,
		CreatedBy:   batch.CreatedBy,
		CreatedAt:   batch.CreatedAt,
	}
}
