package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"slotmarket/internal/app/dto"
)

// RequestReport writes negotiation requests with their resolved terms as CSV.
// Finalized rows carry the agreed terms; open rows leave those columns empty.
type RequestReport struct {
	// Comma overrides the field separator. Zero means ','.
	Comma rune
}

var reportHeader = []string{
	"request_id",
	"slot_id",
	"requester_id",
	"provider_id",
	"status",
	"target_rank",
	"guarantee_count",
	"guarantee_period",
	"initial_budget",
	"budget_type",
	"final_daily_amount",
	"final_total_amount",
	"final_work_period",
	"created_at",
	"updated_at",
}

func (r RequestReport) Write(w io.Writer, list dto.RequestList) error {
	cw := csv.NewWriter(w)
	if r.Comma != 0 {
		cw.Comma = r.Comma
	}
	if err := cw.Write(reportHeader); err != nil {
		return err
	}
	for _, item := range list.Items {
		if err := cw.Write(reportRow(item)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func reportRow(item dto.RequestSummary) []string {
	row := []string{
		item.ID,
		item.SlotID,
		item.RequesterID,
		item.ProviderID,
		item.Status,
		strconv.Itoa(item.TargetRank),
		strconv.Itoa(item.GuaranteeCount),
		strconv.Itoa(item.GuaranteePeriod),
		strconv.FormatInt(item.InitialBudget, 10),
		item.BudgetType,
		"", "", "",
		item.CreatedAt.UTC().Format(time.RFC3339),
		item.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if terms := item.FinalTerms; terms != nil {
		row[10] = strconv.FormatInt(terms.DailyAmount, 10)
		row[11] = strconv.FormatInt(terms.TotalAmount, 10)
		row[12] = strconv.Itoa(terms.WorkPeriod)
	}
	return row
}

// Filename returns the attachment name for a report generated at the given
// time, e.g. "requests-20260831.csv".
func Filename(at time.Time) string {
	return fmt.Sprintf("requests-%s.csv", at.UTC().Format("20060102"))
}
