// Package verify implements the gate-scan decision: load the credential,
// check status and visit window, and stamp who verified it.
package verify

import (
	"context"
	"errors"
	"log"

	"gatepass-backend/internal/apperr"
	"gatepass-backend/internal/clock"
	"gatepass-backend/internal/metrics"
	"gatepass-backend/internal/model"
	"gatepass-backend/internal/store"
	"gatepass-backend/internal/validity"
)

const ReasonRevoked = "revoked"
const ReasonNotApproved = "not approved"

// Result is the outcome of a gate scan. Credential is nil only when the id
// did not resolve; a denied scan still returns the snapshot so the gate UI
// can show who was turned away.
type Result struct {
	Granted    bool
	Reason     string
	Credential *model.Credential
}

// Service decides whether a scanned credential grants access.
type Service struct {
	store store.CredentialStore
	clock clock.Clock
}

// NewService creates a verification service.
func NewService(s store.CredentialStore, c clock.Clock) *Service {
	if c == nil {
		c = clock.NewSystem()
	}
	return &Service{store: s, clock: c}
}

// Verify checks the credential against its status and visit window.
// Credentials are reusable within their window: repeat scans of a valid
// credential are granted again and re-stamp the verifier metadata.
//
// The verifier stamp is best-effort bookkeeping. A stamp failure is logged
// and the grant is still reported, because the gate decision must not hinge
// on a secondary write.
func (s *Service) Verify(ctx context.Context, credentialID, verifierID string) (Result, error) {
	cred, err := s.store.Get(ctx, credentialID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			metrics.Verifications.WithLabelValues("not_found").Inc()
		}
		return Result{}, err
	}

	now := s.clock.Now()

	if cred.Status == model.StatusRevoked {
		metrics.Verifications.WithLabelValues("denied").Inc()
		return Result{Reason: ReasonRevoked, Credential: &cred}, nil
	}

	if decision := validity.Evaluate(cred, now); !decision.Open {
		metrics.Verifications.WithLabelValues("denied").Inc()
		return Result{Reason: decision.Reason, Credential: &cred}, nil
	}

	if cred.Status == model.StatusPending {
		metrics.Verifications.WithLabelValues("denied").Inc()
		return Result{Reason: ReasonNotApproved, Credential: &cred}, nil
	}

	if verifierID != "" {
		if err := s.store.UpdateVerification(ctx, cred.ID, verifierID, now); err != nil {
			log.Printf("warning: verification stamp failed for credential %s: %v", cred.ID, err)
		} else {
			cred.VerifiedBy = &verifierID
			cred.VerifiedAt = &now
		}
	}

	metrics.Verifications.WithLabelValues("granted").Inc()
	return Result{Granted: true, Credential: &cred}, nil
}
