package negotiation

import (
	"errors"
	"strings"

	"slotmarket/internal/domain/shared/money"
)

var (
	ErrTermsRequired     = errors.New("negotiation: proposal terms required")
	ErrAmountNotPositive = errors.New("negotiation: proposed amount must be positive")
	ErrPeriodNotPositive = errors.New("negotiation: work period must be positive")
	ErrGuaranteeRequired = errors.New("negotiation: guarantee count must be positive")
	ErrPeriodTooShort    = errors.New("negotiation: work period shorter than guarantee count")
	ErrUnknownBudgetType = errors.New("negotiation: unknown budget type")
)

// BudgetType governs how the daily and total amounts of a proposal are
// interpreted and cross-derived.
type BudgetType string

const (
	BudgetDaily BudgetType = "daily"
	BudgetTotal BudgetType = "total"
)

// InferBudgetType guesses the budget type from rendered message text when the
// stored field is absent. Legacy rows marked a total budget with a localized
// "총" (or "total") token; everything else defaults to daily.
func InferBudgetType(text string) BudgetType {
	lowered := strings.ToLower(text)
	if strings.Contains(lowered, "총") || strings.Contains(lowered, "total") {
		return BudgetTotal
	}
	return BudgetDaily
}

// Proposal carries the candidate terms of a price_proposal or counter_offer.
type Proposal struct {
	DailyAmount    money.Money
	TotalAmount    money.Money
	GuaranteeCount int
	TargetRank     int
	WorkPeriod     int
	BudgetType     BudgetType
}

// Validate rejects malformed terms before any store write happens.
func (p Proposal) Validate() error {
	switch p.BudgetType {
	case BudgetDaily:
		if !p.DailyAmount.IsPositive() {
			return ErrAmountNotPositive
		}
	case BudgetTotal:
		if !p.TotalAmount.IsPositive() {
			return ErrAmountNotPositive
		}
	default:
		return ErrUnknownBudgetType
	}
	if p.GuaranteeCount <= 0 {
		return ErrGuaranteeRequired
	}
	if p.WorkPeriod <= 0 {
		return ErrPeriodNotPositive
	}
	if p.WorkPeriod < p.GuaranteeCount {
		return ErrPeriodTooShort
	}
	return nil
}

// Terms is a fully resolved agreement: both amounts populated regardless of
// the budget type the proposal was expressed in.
type Terms struct {
	DailyAmount    money.Money
	TotalAmount    money.Money
	GuaranteeCount int
	TargetRank     int
	WorkPeriod     int
	BudgetType     BudgetType
}

// FinalTerms normalizes the latest proposal against the originating request.
// Missing proposal fields fall back to the request; the work period falls back
// to the request guarantee period and finally to 1 so the derived division is
// always defined.
func FinalTerms(latest *Message, request *Request) (Terms, error) {
	if latest == nil || latest.Proposal == nil {
		return Terms{}, ErrTermsRequired
	}
	p := *latest.Proposal

	budgetType := p.BudgetType
	if budgetType == "" {
		budgetType = InferBudgetType(latest.Text)
	}

	workPeriod := p.WorkPeriod
	if workPeriod <= 0 && request != nil {
		workPeriod = request.GuaranteePeriod
	}
	if workPeriod <= 0 {
		workPeriod = 1
	}

	terms := Terms{
		GuaranteeCount: p.GuaranteeCount,
		TargetRank:     p.TargetRank,
		WorkPeriod:     workPeriod,
		BudgetType:     budgetType,
	}
	if request != nil {
		if terms.GuaranteeCount <= 0 {
			terms.GuaranteeCount = request.GuaranteeCount
		}
		if terms.TargetRank <= 0 {
			terms.TargetRank = request.TargetRank
		}
	}

	switch budgetType {
	case BudgetTotal:
		terms.TotalAmount = p.TotalAmount
		daily, err := p.TotalAmount.DivRound(int64(workPeriod))
		if err != nil {
			return Terms{}, err
		}
		terms.DailyAmount = daily
	case BudgetDaily:
		terms.DailyAmount = p.DailyAmount
		if p.TotalAmount.IsPositive() {
			// explicit totals win over the derived product
			terms.TotalAmount = p.TotalAmount
		} else {
			terms.TotalAmount = p.DailyAmount.Multiply(int64(workPeriod))
		}
	default:
		return Terms{}, ErrUnknownBudgetType
	}
	return terms, nil
}
