package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"slotmarket/internal/app/commands"
	"slotmarket/internal/app/dto"
	SlotsApp "slotmarket/internal/app/handlers/slots"
	"slotmarket/internal/app/queries"
	domainslot "slotmarket/internal/domain/slot"
)

// SlotHTTP exposes campaign slot submission and review endpoints.
type SlotHTTP interface {
	Submit(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Approve(c *gin.Context)
	Reject(c *gin.Context)
	GoLive(c *gin.Context)
	End(c *gin.Context)
}

type SlotHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type submitSlotBody struct {
	CampaignName string    `json:"campaign_name"`
	Keyword      string    `json:"keyword"`
	ProductURL   string    `json:"product_url"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

func (h SlotHandler) Submit(c *gin.Context) {
	user, ok := requireRole(c, "provider")
	if !ok {
		return
	}
	var req submitSlotBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	cmd := SlotsApp.SubmitSlotCommand{
		CommandID:       generateCommandID(),
		ProviderID:      user.ID,
		CampaignName:    req.CampaignName,
		Keyword:         req.Keyword,
		ProductURL:      req.ProductURL,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[SlotsApp.SubmitSlotCommand, *SlotsApp.SubmitSlotResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h SlotHandler) List(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	query := SlotsApp.ListSlotsQuery{}
	switch {
	case user.HasRole("admin"):
		query.State = domainslot.SlotState(strings.ToUpper(strings.TrimSpace(c.Query("state"))))
		query.ProviderID = strings.TrimSpace(c.Query("provider_id"))
	case user.HasRole("provider"):
		query.ProviderID = user.ID
	default:
		// requesters browse the approved catalog only
		query.State = domainslot.StateApproved
	}
	result, err := queries.Ask[SlotsApp.ListSlotsQuery, dto.SlotList](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h SlotHandler) Get(c *gin.Context) {
	if _, ok := requireRole(c, ""); !ok {
		return
	}
	query := SlotsApp.SlotByIDQuery{SlotID: c.Param("id")}
	result, err := queries.Ask[SlotsApp.SlotByIDQuery, dto.Slot](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type reviewSlotBody struct {
	Note   string `json:"note"`
	Reason string `json:"reason"`
}

func (h SlotHandler) Approve(c *gin.Context) {
	user, ok := requireRole(c, "admin")
	if !ok {
		return
	}
	var req reviewSlotBody
	if !bindOptionalJSON(c, &req) {
		return
	}
	cmd := SlotsApp.ApproveSlotCommand{
		SlotID:          c.Param("id"),
		ReviewerID:      user.ID,
		Note:            req.Note,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[SlotsApp.ApproveSlotCommand, *SlotsApp.ReviewResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h SlotHandler) Reject(c *gin.Context) {
	user, ok := requireRole(c, "admin")
	if !ok {
		return
	}
	var req reviewSlotBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	cmd := SlotsApp.RejectSlotCommand{
		SlotID:          c.Param("id"),
		ReviewerID:      user.ID,
		Reason:          req.Reason,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[SlotsApp.RejectSlotCommand, *SlotsApp.ReviewResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h SlotHandler) GoLive(c *gin.Context) {
	user, ok := requireRole(c, "admin")
	if !ok {
		return
	}
	cmd := SlotsApp.GoLiveCommand{SlotID: c.Param("id"), ActorID: user.ID}
	result, err := commands.Dispatch[SlotsApp.GoLiveCommand, *SlotsApp.ReviewResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h SlotHandler) End(c *gin.Context) {
	user, ok := requireRole(c, "admin")
	if !ok {
		return
	}
	cmd := SlotsApp.EndSlotCommand{SlotID: c.Param("id"), ActorID: user.ID}
	result, err := commands.Dispatch[SlotsApp.EndSlotCommand, *SlotsApp.ReviewResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h SlotHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainslot.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domainslot.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, SlotsApp.ErrReviewerForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
	case errors.Is(err, domainslot.ErrCampaignRequired),
		errors.Is(err, domainslot.ErrKeywordRequired),
		errors.Is(err, domainslot.ErrReasonRequired),
		errors.Is(err, domainslot.ErrProviderRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("slot operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ SlotHTTP = SlotHandler{}
