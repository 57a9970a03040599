package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gatepass-backend/internal/model"
	"gatepass-backend/internal/occupancy"
)

type checkInRequest struct {
	Delta     int    `json:"delta"`
	UpdatedBy string `json:"updated_by"`
}

// CheckIn handles POST /api/lobbies/:name/checkin. A missing delta means one
// person.
func (h *Handler) CheckIn(c *gin.Context) {
	req := checkInRequest{Delta: 1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if req.Delta == 0 {
			req.Delta = 1
		}
	}

	lobby, err := h.ledger.CheckIn(c.Request.Context(), c.Param("name"), req.Delta, req.UpdatedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLobbyResponse(lobby))
}

type volunteerRequest struct {
	Name     string `json:"name" binding:"required"`
	IDNumber string `json:"id_number"`
}

type createBatchExitRequest struct {
	PeopleCount int                `json:"people_count" binding:"required"`
	Volunteers  []volunteerRequest `json:"volunteers" binding:"required"`
	Notes       string             `json:"notes"`
	CreatedBy   string             `json:"created_by"`
}

// createBatchExitResponse returns both the appended ledger row and the lobby
// state it produced.
type createBatchExitResponse struct {
	Batch batchExitResponse `json:"batch"`
	Lobby lobbyResponse     `json:"lobby"`
}

// CreateBatchExit handles POST /api/lobbies/:name/batch-exits.
func (h *Handler) CreateBatchExit(c *gin.Context) {
	var req createBatchExitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	volunteers := make([]model.Volunteer, 0, len(req.Volunteers))
	for _, v := range req.Volunteers {
		volunteers = append(volunteers, model.Volunteer{Name: v.Name, IDNumber: v.IDNumber})
	}

	batch, lobby, err := h.ledger.CreateBatchExit(c.Request.Context(), occupancy.BatchExitParams{
		LobbyName:   c.Param("name"),
		PeopleCount: req.PeopleCount,
		Volunteers:  volunteers,
		Notes:       req.Notes,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createBatchExitResponse{
		Batch: toBatchExitResponse(batch),
		Lobby: toLobbyResponse(lobby),
	})
}

type setCountRequest struct {
	Count     *int   `json:"count" binding:"required"`
	UpdatedBy string `json:"updated_by"`
}

// SetLobbyCount handles POST /api/lobbies/:name/count.
func (h *Handler) SetLobbyCount(c *gin.Context) {
	var req setCountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Count == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	lobby, err := h.ledger.SetCount(c.Request.Context(), c.Param("name"), *req.Count, req.UpdatedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLobbyResponse(lobby))
}

type resetRequest struct {
	ResetBy string `json:"reset_by"`
}

// ResetLobby handles POST /api/lobbies/:name/reset.
func (h *Handler) ResetLobby(c *gin.Context) {
	var req resetRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}
	lobby, err := h.ledger.Reset(c.Request.Context(), c.Param("name"), req.ResetBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLobbyResponse(lobby))
}

// batchPageResponse is one page of batch-exit history.
type batchPageResponse struct {
	Items  []batchExitResponse `json:"items"`
	Total  int64               `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// ListBatches handles GET /api/lobbies/:name/batch-exits.
func (h *Handler) ListBatches(c *gin.Context) {
	date, err := parseDate(c.Query("date"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	limit, offset := h.pagination(c)

	page, err := h.ledger.ListBatches(c.Request.Context(), c.Param("name"), date, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := batchPageResponse{
		Items:  make([]batchExitResponse, 0, len(page.Items)),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for _, batch := range page.Items {
		resp.Items = append(resp.Items, toBatchExitResponse(batch))
	}
	c.JSON(http.StatusOK, resp)
}

// GetLobbyStatus handles GET /api/lobbies/:name.
func (h *Handler) GetLobbyStatus(c *gin.Context) {
	lobby, err := h.ledger.Status(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLobbyResponse(lobby))
}

// ListLobbies handles GET /api/lobbies.
func (h *Handler) ListLobbies(c *gin.Context) {
	lobbies, err := h.ledger.StatusAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]lobbyResponse, 0, len(lobbies))
	for _, lobby := range lobbies {
		resp = append(resp, toLobbyResponse(lobby))
	}
	c.JSON(http.StatusOK, resp)
}
