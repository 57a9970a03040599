package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gatepass-backend/internal/model"
	"gatepass-backend/internal/store"
)

type createCredentialRequest struct {
	Name              string   `json:"name" binding:"required"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone"`
	RegisterNumber    string   `json:"register_number"`
	EventID           string   `json:"event_id"`
	EventName         string   `json:"event_name"`
	Category          string   `json:"category"`
	Purpose           string   `json:"purpose"`
	AreaOfInterest    []string `json:"area_of_interest"`
	AccompanyingCount int      `json:"accompanying_count"`
	ValidFrom         string   `json:"valid_from"`
	ValidTo           string   `json:"valid_to"`
	VisitDate         string   `json:"visit_date"`
}

// CreateCredential handles POST /api/credentials.
func (h *Handler) CreateCredential(c *gin.Context) {
	var req createCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	validFrom, err := parseDate(req.ValidFrom)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "valid_from must be YYYY-MM-DD"})
		return
	}
	validTo, err := parseDate(req.ValidTo)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "valid_to must be YYYY-MM-DD"})
		return
	}
	visitDate, err := parseDate(req.VisitDate)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "visit_date must be YYYY-MM-DD"})
		return
	}

	cred, err := h.store.Create(c.Request.Context(), store.CreateParams{
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		RegisterNumber:    req.RegisterNumber,
		EventID:           req.EventID,
		EventName:         req.EventName,
		Category:          model.CredentialCategory(req.Category),
		Purpose:           req.Purpose,
		AreaOfInterest:    req.AreaOfInterest,
		AccompanyingCount: req.AccompanyingCount,
		ValidFrom:         validFrom,
		ValidTo:           validTo,
		VisitDate:         visitDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCredentialResponse(cred))
}

// GetCredential handles GET /api/credentials/:id.
func (h *Handler) GetCredential(c *gin.Context) {
	cred, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCredentialResponse(cred))
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetCredentialStatus handles PATCH /api/credentials/:id/status.
func (h *Handler) SetCredentialStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	cred, err := h.store.SetStatus(c.Request.Context(), c.Param("id"), model.CredentialStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCredentialResponse(cred))
}

type verifyRequest struct {
	VerifierID string `json:"verifier_id"`
}

// verifyResponse reports the gate decision. The denied credential snapshot is
// included so the gate UI can show who was turned away.
type verifyResponse struct {
	Granted    bool                `json:"granted"`
	Reason     string              `json:"reason,omitempty"`
	Credential *credentialResponse `json:"credential,omitempty"`
}

// VerifyCredential handles POST /api/credentials/:id/verify.
func (h *Handler) VerifyCredential(c *gin.Context) {
	// The body is optional; a scan without an operator id is still decided,
	// it just leaves no verifier stamp.
	var req verifyRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}

	result, err := h.verifier.Verify(c.Request.Context(), c.Param("id"), req.VerifierID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := verifyResponse{Granted: result.Granted, Reason: result.Reason}
	if result.Credential != nil {
		cr := toCredentialResponse(*result.Credential)
		resp.Credential = &cr
	}
	c.JSON(http.StatusOK, resp)
}

type markArrivedRequest struct {
	CheckedInBy string `json:"checked_in_by" binding:"required"`
}

// MarkArrived handles POST /api/credentials/:id/arrival.
func (h *Handler) MarkArrived(c *gin.Context) {
	var req markArrivedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	cred, err := h.store.MarkArrived(c.Request.Context(), c.Param("id"), req.CheckedInBy, h.clock.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCredentialResponse(cred))
}

// credentialPageResponse is one page of a credential listing.
type credentialPageResponse struct {
	Items  []credentialResponse `json:"items"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// ListCredentials handles GET /api/credentials.
func (h *Handler) ListCredentials(c *gin.Context) {
	limit, offset := h.pagination(c)
	page, err := h.store.List(c.Request.Context(), store.Filter{
		Status:   model.CredentialStatus(c.Query("status")),
		EventID:  c.Query("event_id"),
		Category: model.CredentialCategory(c.Query("category")),
		Search:   c.Query("q"),
	}, store.Page{Limit: limit, Offset: offset})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := credentialPageResponse{
		Items:  make([]credentialResponse, 0, len(page.Items)),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for _, cred := range page.Items {
		resp.Items = append(resp.Items, toCredentialResponse(cred))
	}
	c.JSON(http.StatusOK, resp)
}

// pagination reads limit/offset query params, falling back to configured
// defaults. The store enforces the hard cap.
func (h *Handler) pagination(c *gin.Context) (limit, offset int) {
	limit = h.api.DefaultPageSize
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
