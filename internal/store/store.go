package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gatepass-backend/internal/apperr"
	"gatepass-backend/internal/model"
)

// CredentialStore defines the persistence operations for credentials.
type CredentialStore interface {
	Create(ctx context.Context, params CreateParams) (model.Credential, error)
	Get(ctx context.Context, id string) (model.Credential, error)
	SetStatus(ctx context.Context, id string, status model.CredentialStatus) (model.Credential, error)
	UpdateVerification(ctx context.Context, id, verifierID string, at time.Time) error
	MarkArrived(ctx context.Context, id, checkedInBy string, at time.Time) (model.Credential, error)
	List(ctx context.Context, filter Filter, page Page) (CredentialPage, error)
}

// CreateParams carries the caller-supplied fields for a new credential.
type CreateParams struct {
	Name              string
	Email             string
	Phone             string
	RegisterNumber    string
	EventID           string
	EventName         string
	Category          model.CredentialCategory
	Purpose           string
	AreaOfInterest    []string
	AccompanyingCount int
	ValidFrom         *time.Time
	ValidTo           *time.Time
	VisitDate         *time.Time
}

// Filter narrows a credential listing. Zero values mean "no constraint".
type Filter struct {
	Status   model.CredentialStatus
	EventID  string
	Category model.CredentialCategory
	Search   string
}

// Page is an offset-based pagination request.
type Page struct {
	Limit  int
	Offset int
}

// CredentialPage is one page of a credential listing.
type CredentialPage struct {
	Items  []model.Credential
	Total  int64
	Limit  int
	Offset int
}

// gormStore implements CredentialStore using GORM.
type gormStore struct {
	db          *gorm.DB
	maxPageSize int
}

// NewGormStore creates a new GORM-backed credential store. maxPageSize caps
// the page size a caller may request from List.
func NewGormStore(db *gorm.DB, maxPageSize int) CredentialStore {
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &gormStore{db: db, maxPageSize: maxPageSize}
}

// Create validates the fields and persists a new pending credential.
func (s *gormStore) Create(ctx context.Context, params CreateParams) (model.Credential, error) {
	if strings.TrimSpace(params.Name) == "" {
		return model.Credential{}, fmt.Errorf("%w: name is required", apperr.ErrInvalidArgument)
	}
	if params.Category == "" {
		params.Category = model.CategoryStudent
	}
	if !params.Category.Valid() {
		return model.Credential{}, fmt.Errorf("%w: unknown category %q", apperr.ErrInvalidArgument, params.Category)
	}
	if (params.ValidFrom == nil) != (params.ValidTo == nil) {
		return model.Credential{}, fmt.Errorf("%w: valid_from and valid_to must be set together", apperr.ErrInvalidArgument)
	}
	if params.ValidFrom != nil && params.ValidFrom.After(*params.ValidTo) {
		return model.Credential{}, fmt.Errorf("%w: valid_from is after valid_to", apperr.ErrInvalidArgument)
	}
	if params.AccompanyingCount < 0 {
		return model.Credential{}, fmt.Errorf("%w: accompanying_count must not be negative", apperr.ErrInvalidArgument)
	}

	cred := model.Credential{
		ID:                uuid.NewString(),
		Name:              strings.TrimSpace(params.Name),
		Email:             strings.ToLower(strings.TrimSpace(params.Email)),
		Phone:             strings.TrimSpace(params.Phone),
		RegisterNumber:    strings.TrimSpace(params.RegisterNumber),
		EventID:           params.EventID,
		EventName:         params.EventName,
		Category:          params.Category,
		Status:            model.StatusPending,
		Purpose:           params.Purpose,
		AreaOfInterest:    params.AreaOfInterest,
		AccompanyingCount: params.AccompanyingCount,
		ValidFrom:         params.ValidFrom,
		ValidTo:           params.ValidTo,
		VisitDate:         params.VisitDate,
	}
	if err := s.db.WithContext(ctx).Create(&cred).Error; err != nil {
		return model.Credential{}, storeErr("create credential", err)
	}
	return cred, nil
}

// Get loads a single credential by id.
func (s *gormStore) Get(ctx context.Context, id string) (model.Credential, error) {
	var cred model.Credential
	if err := s.db.WithContext(ctx).First(&cred, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Credential{}, fmt.Errorf("%w: credential %s", apperr.ErrNotFound, id)
		}
		return model.Credential{}, storeErr("load credential", err)
	}
	return cred, nil
}

// SetStatus transitions a credential's status. Setting the current status
// again is a no-op, not an error.
func (s *gormStore) SetStatus(ctx context.Context, id string, status model.CredentialStatus) (model.Credential, error) {
	if !status.Valid() {
		return model.Credential{}, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidArgument, status)
	}

	var cred model.Credential
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&cred, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: credential %s", apperr.ErrNotFound, id)
			}
			return storeErr("load credential", err)
		}
		if cred.Status == status {
			return nil
		}
		if status == model.StatusPending {
			return fmt.Errorf("%w: cannot return a credential to pending", apperr.ErrInvalidArgument)
		}
		cred.Status = status
		if err := tx.Model(&cred).Update("status", status).Error; err != nil {
			return storeErr("update credential status", err)
		}
		return nil
	})
	if err != nil {
		return model.Credential{}, err
	}
	return cred, nil
}

// UpdateVerification stamps who verified the credential and when. The
// verification service treats a failure here as best-effort bookkeeping.
func (s *gormStore) UpdateVerification(ctx context.Context, id, verifierID string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.Credential{}).Where("id = ?", id).Updates(map[string]any{
		"verified_by": verifierID,
		"verified_at": at,
	})
	if res.Error != nil {
		return storeErr("stamp verification", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: credential %s", apperr.ErrNotFound, id)
	}
	return nil
}

// MarkArrived flags the holder as arrived. Re-marking keeps the original
// arrival time and operator.
func (s *gormStore) MarkArrived(ctx context.Context, id, checkedInBy string, at time.Time) (model.Credential, error) {
	var cred model.Credential
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&cred, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: credential %s", apperr.ErrNotFound, id)
			}
			return storeErr("load credential", err)
		}
		if cred.HasArrived {
			return nil
		}
		cred.HasArrived = true
		cred.ArrivedAt = &at
		cred.CheckedInBy = &checkedInBy
		if err := tx.Model(&cred).Updates(map[string]any{
			"has_arrived":   true,
			"arrived_at":    at,
			"checked_in_by": checkedInBy,
		}).Error; err != nil {
			return storeErr("mark arrival", err)
		}
		return nil
	})
	if err != nil {
		return model.Credential{}, err
	}
	return cred, nil
}

// List returns a filtered, offset-paginated page of credentials.
func (s *gormStore) List(ctx context.Context, filter Filter, page Page) (CredentialPage, error) {
	if page.Limit <= 0 {
		page.Limit = 20
	}
	if page.Limit > s.maxPageSize {
		page.Limit = s.maxPageSize
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	// Build the filter fresh for the count and the page query; reusing one
	// builder across Count and Find pollutes the statement.
	filtered := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&model.Credential{})
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.EventID != "" {
			q = q.Where("event_id = ?", filter.EventID)
		}
		if filter.Category != "" {
			q = q.Where("category = ?", filter.Category)
		}
		if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
			pattern := "%" + search + "%"
			q = q.Where(
				"LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ? OR LOWER(register_number) LIKE ?",
				pattern, pattern, pattern, pattern,
			)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return CredentialPage{}, storeErr("count credentials", err)
	}

	var items []model.Credential
	if err := filtered().Order("created_at DESC").Limit(page.Limit).Offset(page.Offset).Find(&items).Error; err != nil {
		return CredentialPage{}, storeErr("list credentials", err)
	}

	return CredentialPage{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", apperr.ErrStoreUnavailable, op, err)
}
