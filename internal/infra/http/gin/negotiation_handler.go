package ginserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"slotmarket/internal/app/commands"
	"slotmarket/internal/app/dto"
	NegotiationApp "slotmarket/internal/app/handlers/negotiation"
	"slotmarket/internal/app/queries"
	domainnegotiation "slotmarket/internal/domain/negotiation"
	domainslot "slotmarket/internal/domain/slot"
)

// NegotiationHTTP exposes the guarantee negotiation endpoints.
type NegotiationHTTP interface {
	OpenRequest(c *gin.Context)
	ListRequests(c *gin.Context)
	State(c *gin.Context)
	ListMessages(c *gin.Context)
	SendMessage(c *gin.Context)
	SubmitProposal(c *gin.Context)
	Accept(c *gin.Context)
	Finalize(c *gin.Context)
	Reject(c *gin.Context)
	Renegotiate(c *gin.Context)
	MarkRead(c *gin.Context)
}

type NegotiationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type openRequestBody struct {
	SlotID          string `json:"slot_id"`
	TargetRank      int    `json:"target_rank"`
	GuaranteeCount  int    `json:"guarantee_count"`
	GuaranteePeriod int    `json:"guarantee_period"`
	InitialBudget   int64  `json:"initial_budget"`
	BudgetType      string `json:"budget_type"`
	Message         string `json:"message"`
}

func (h NegotiationHandler) OpenRequest(c *gin.Context) {
	user, ok := requireRole(c, "requester")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req openRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	cmd := NegotiationApp.OpenRequestCommand{
		CommandID:       generateCommandID(),
		SlotID:          req.SlotID,
		RequesterID:     user.ID,
		TargetRank:      req.TargetRank,
		GuaranteeCount:  req.GuaranteeCount,
		GuaranteePeriod: req.GuaranteePeriod,
		InitialBudget:   req.InitialBudget,
		BudgetType:      domainnegotiation.BudgetType(req.BudgetType),
		Message:         req.Message,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[NegotiationApp.OpenRequestCommand, *NegotiationApp.OpenRequestResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h NegotiationHandler) ListRequests(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	query := NegotiationApp.ListRequestsQuery{PartyID: user.ID}
	if user.HasRole("admin") {
		query.PartyID = strings.TrimSpace(c.Query("party_id"))
		query.Status = domainnegotiation.RequestStatus(strings.TrimSpace(c.Query("status")))
	}
	result, err := queries.Ask[NegotiationApp.ListRequestsQuery, dto.RequestList](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h NegotiationHandler) State(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	query := NegotiationApp.NegotiationStateQuery{
		RequestID: c.Param("id"),
		ViewerID:  user.ID,
	}
	result, err := queries.Ask[NegotiationApp.NegotiationStateQuery, dto.NegotiationState](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h NegotiationHandler) ListMessages(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var after time.Time
	if raw := strings.TrimSpace(c.Query("after")); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "after must be RFC3339"})
			return
		}
		after = parsed
	}
	query := NegotiationApp.ThreadFeedQuery{
		RequestID: c.Param("id"),
		ViewerID:  user.ID,
		After:     after,
		Limit:     parsePositiveInt(c.Query("limit"), 0),
	}
	result, err := queries.Ask[NegotiationApp.ThreadFeedQuery, dto.ThreadFeed](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type sendMessageBody struct {
	Text        string               `json:"text"`
	Attachments []dto.FeedAttachment `json:"attachments"`
}

func (h NegotiationHandler) SendMessage(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req sendMessageBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	attachments := make([]domainnegotiation.Attachment, 0, len(req.Attachments))
	for _, att := range req.Attachments {
		attachments = append(attachments, domainnegotiation.Attachment{
			Name:     att.Name,
			URL:      att.URL,
			Size:     att.Size,
			MimeType: att.MimeType,
		})
	}
	cmd := NegotiationApp.SubmitMessageCommand{
		CommandID:       generateCommandID(),
		RequestID:       c.Param("id"),
		SenderID:        user.ID,
		Text:            req.Text,
		Attachments:     attachments,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[NegotiationApp.SubmitMessageCommand, *NegotiationApp.SubmitMessageResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type submitProposalBody struct {
	Text           string `json:"text"`
	DailyAmount    int64  `json:"daily_amount"`
	TotalAmount    int64  `json:"total_amount"`
	GuaranteeCount int    `json:"guarantee_count"`
	TargetRank     int    `json:"target_rank"`
	WorkPeriod     int    `json:"work_period"`
	BudgetType     string `json:"budget_type"`
	CounterOffer   bool   `json:"counter_offer"`
}

func (h NegotiationHandler) SubmitProposal(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req submitProposalBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	cmd := NegotiationApp.SubmitProposalCommand{
		CommandID:       generateCommandID(),
		RequestID:       c.Param("id"),
		SenderID:        user.ID,
		Text:            req.Text,
		DailyAmount:     req.DailyAmount,
		TotalAmount:     req.TotalAmount,
		GuaranteeCount:  req.GuaranteeCount,
		TargetRank:      req.TargetRank,
		WorkPeriod:      req.WorkPeriod,
		BudgetType:      domainnegotiation.BudgetType(req.BudgetType),
		CounterOffer:    req.CounterOffer,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[NegotiationApp.SubmitProposalCommand, *NegotiationApp.SubmitMessageResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type threadActionBody struct {
	Text string `json:"text"`
}

func (h NegotiationHandler) Accept(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req threadActionBody
	if !bindOptionalJSON(c, &req) {
		return
	}
	cmd := NegotiationApp.AcceptCommand{
		CommandID:       generateCommandID(),
		RequestID:       c.Param("id"),
		SenderID:        user.ID,
		Text:            req.Text,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[NegotiationApp.AcceptCommand, *NegotiationApp.SubmitMessageResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h NegotiationHandler) Finalize(c *gin.Context) {
	user, ok := requireRole(c, "provider")
	if !ok {
		return
	}
	cmd := NegotiationApp.FinalizeCommand{
		CommandID:       generateCommandID(),
		RequestID:       c.Param("id"),
		SenderID:        user.ID,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[NegotiationApp.FinalizeCommand, *NegotiationApp.FinalizeResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type rejectBody struct {
	Reason string `json:"reason"`
}

func (h NegotiationHandler) Reject(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req rejectBody
	if !bindOptionalJSON(c, &req) {
		return
	}
	cmd := NegotiationApp.RejectCommand{
		CommandID:       generateCommandID(),
		RequestID:       c.Param("id"),
		SenderID:        user.ID,
		Reason:          req.Reason,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[NegotiationApp.RejectCommand, *NegotiationApp.SubmitMessageResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h NegotiationHandler) Renegotiate(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req threadActionBody
	if !bindOptionalJSON(c, &req) {
		return
	}
	cmd := NegotiationApp.RenegotiateCommand{
		CommandID:       generateCommandID(),
		RequestID:       c.Param("id"),
		SenderID:        user.ID,
		Text:            req.Text,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[NegotiationApp.RenegotiateCommand, *NegotiationApp.SubmitMessageResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type markReadBody struct {
	Messages []string `json:"messages"`
}

func (h NegotiationHandler) MarkRead(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req markReadBody
	if !bindOptionalJSON(c, &req) {
		return
	}
	cmd := NegotiationApp.MarkReadCommand{
		RequestID: c.Param("id"),
		ReaderID:  user.ID,
		Messages:  req.Messages,
	}
	result, err := commands.Dispatch[NegotiationApp.MarkReadCommand, *NegotiationApp.MarkReadResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h NegotiationHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainnegotiation.ErrRequestNotFound),
		errors.Is(err, domainnegotiation.ErrMessageNotFound),
		errors.Is(err, domainslot.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domainnegotiation.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a thread participant"})
	case errors.Is(err, domainnegotiation.ErrActionNotAllowed),
		errors.Is(err, domainnegotiation.ErrInvalidTransition),
		errors.Is(err, domainslot.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domainnegotiation.ErrTermsRequired),
		errors.Is(err, domainnegotiation.ErrAmountNotPositive),
		errors.Is(err, domainnegotiation.ErrPeriodNotPositive),
		errors.Is(err, domainnegotiation.ErrGuaranteeRequired),
		errors.Is(err, domainnegotiation.ErrPeriodTooShort),
		errors.Is(err, domainnegotiation.ErrUnknownBudgetType),
		errors.Is(err, domainnegotiation.ErrEmptyMessage),
		errors.Is(err, domainnegotiation.ErrPartiesRequired),
		errors.Is(err, domainnegotiation.ErrSameParty):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("negotiation operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func bindOptionalJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	return true
}

func generateCommandID() string {
	return uuid.NewString()
}

func parsePositiveInt(raw string, def int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return def
	}
	return value
}

var _ NegotiationHTTP = NegotiationHandler{}
