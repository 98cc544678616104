package ginserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"slotmarket/internal/app/dto"
	"slotmarket/internal/app/export"
	NegotiationApp "slotmarket/internal/app/handlers/negotiation"
	"slotmarket/internal/app/queries"
	domainnegotiation "slotmarket/internal/domain/negotiation"
)

// ExportHTTP serves request reports as file downloads.
type ExportHTTP interface {
	Requests(c *gin.Context)
}

type ExportHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

// Requests streams the caller's negotiations as CSV. Admins may export the
// whole marketplace, optionally filtered by status.
func (h ExportHandler) Requests(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	query := NegotiationApp.ListRequestsQuery{PartyID: user.ID}
	if user.HasRole("admin") {
		query.PartyID = strings.TrimSpace(c.Query("party_id"))
		query.Status = domainnegotiation.RequestStatus(strings.TrimSpace(c.Query("status")))
	}
	list, err := queries.Ask[NegotiationApp.ListRequestsQuery, dto.RequestList](c.Request.Context(), h.Queries, query)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("request export failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	filename := export.Filename(time.Now())
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := (export.RequestReport{}).Write(c.Writer, list); err != nil {
		if h.Logger != nil {
			h.Logger.Error("request export write failed", "error", err)
		}
	}
}

var _ ExportHTTP = ExportHandler{}
