package handler

import (
	"net/http"
	"strconv"

	"complaintdesk/backend/internal/analysis"
	"complaintdesk/backend/internal/apperrors"
	"complaintdesk/backend/internal/complaint"

	"github.com/gin-gonic/gin"
)

type createComplaintRequest struct {
	Title       string  `json:"title" binding:"max=200"`
	Category    string  `json:"category"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	Image       *string `json:"image" binding:"omitempty,url"`
	ImageURL    *string `json:"image_url" binding:"omitempty,url"`
}

type updateStatusRequest struct {
	Status  string `json:"status"`
	Remarks string `json:"remarks" binding:"max=2000"`
}

type addUpdateRequest struct {
	Message string `json:"message" binding:"max=2000"`
}

func complaintID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperrors.Validation(apperrors.CodeInvalidInput, "invalid complaint id"))
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperrors.Validation(apperrors.CodeInvalidInput, err.Error()))
		return false
	}
	return true
}

// ListComplaints returns the caller's view of the complaint list.
func (h *Handler) ListComplaints(c *gin.Context) {
	identity, _ := currentIdentity(c)
	list, err := h.Complaints.List(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetComplaint returns one complaint.
func (h *Handler) GetComplaint(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	identity, _ := currentIdentity(c)
	detail, err := h.Complaints.Get(c.Request.Context(), identity, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// CreateComplaint files a complaint for the calling student.
func (h *Handler) CreateComplaint(c *gin.Context) {
	var req createComplaintRequest
	if !bindJSON(c, &req) {
		return
	}
	image := req.ImageURL
	if image == nil {
		image = req.Image
	}

	identity, _ := currentIdentity(c)
	created, err := h.Complaints.Create(c.Request.Context(), identity, complaint.CreateInput{
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    image,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ClaimComplaint assigns the complaint to the calling admin.
func (h *Handler) ClaimComplaint(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	identity, _ := currentIdentity(c)
	claimed, err := h.Complaints.Claim(c.Request.Context(), identity, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claimed)
}

// UpdateStatus resolves or rejects a claimed complaint.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	identity, _ := currentIdentity(c)
	updated, err := h.Complaints.Resolve(c.Request.Context(), identity, id, complaint.ResolveInput{
		Status:  req.Status,
		Remarks: req.Remarks,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// AddUpdate appends a progress note.
func (h *Handler) AddUpdate(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	var req addUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	identity, _ := currentIdentity(c)
	update, err := h.Complaints.AddUpdate(c.Request.Context(), identity, id, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, update)
}

// Timeline returns the ordered history of a complaint.
func (h *Handler) Timeline(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	identity, _ := currentIdentity(c)
	events, err := h.Complaints.Timeline(c.Request.Context(), identity, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// Stats returns the oversight summary.
func (h *Handler) Stats(c *gin.Context) {
	counts, err := h.Storage.ComplaintCounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis.Summarize(counts))
}
