package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"opd-claims/models"
	"opd-claims/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MemberHandler handles HTTP requests for members
type MemberHandler struct {
	members repository.MemberStore
	log     *zap.SugaredLogger
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(members repository.MemberStore, log *zap.SugaredLogger) *MemberHandler {
	return &MemberHandler{members: members, log: log}
}

// CreateMemberRequest is the body of POST /members
type CreateMemberRequest struct {
	ID       string           `json:"id" binding:"required"`
	Name     string           `json:"name" binding:"required"`
	PolicyID string           `json:"policy_id" binding:"required"`
	JoinDate models.Timestamp `json:"join_date"`
	Gender   *string          `json:"gender"`
}

// ListMembers handles GET /members
func (h *MemberHandler) ListMembers(c *gin.Context) {
	members, err := h.members.List(c.Request.Context())
	if err != nil {
		h.log.Errorw("Failed to list members", "error", err)
		respondDetail(c, http.StatusInternalServerError, "Failed to list members")
		return
	}

	c.JSON(http.StatusOK, members)
}

// GetMember handles GET /members/:id
func (h *MemberHandler) GetMember(c *gin.Context) {
	id := c.Param("id")

	member, err := h.members.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondDetail(c, http.StatusNotFound, fmt.Sprintf("Member %s not found", id))
			return
		}
		h.log.Errorw("Failed to get member", "memberID", id, "error", err)
		respondDetail(c, http.StatusInternalServerError, "Failed to get member")
		return
	}

	c.JSON(http.StatusOK, member)
}

// CreateMember handles POST /members
func (h *MemberHandler) CreateMember(c *gin.Context) {
	var req CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.JoinDate.IsZero() {
		respondDetail(c, http.StatusUnprocessableEntity, "join_date is required")
		return
	}

	member := &models.Member{
		ID:              req.ID,
		Name:            req.Name,
		PolicyID:        req.PolicyID,
		JoinDate:        models.NewDate(req.JoinDate.Time),
		AnnualLimitUsed: decimal.Zero,
		Gender:          req.Gender,
	}

	if err := h.members.Create(c.Request.Context(), member); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			respondDetail(c, http.StatusBadRequest, fmt.Sprintf("Member %s already exists", req.ID))
			return
		}
		h.log.Errorw("Failed to create member", "memberID", req.ID, "error", err)
		respondDetail(c, http.StatusInternalServerError, "Failed to create member")
		return
	}

	h.log.Infow("Member created", "memberID", member.ID)
	c.JSON(http.StatusOK, member)
}

// respondDetail writes the {"detail": ...} error body the API uses everywhere
func respondDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
