package restservice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/solestate/estated/internal/core/application"
	"github.com/solestate/estated/internal/core/domain"
)

// Amount is a uint64 carried as a base-10 JSON string. Bare JSON numbers are
// accepted on input.
type Amount uint64

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(a), 10))
}

func (a *Amount) UnmarshalJSON(buf []byte) error {
	buf = bytes.Trim(buf, `"`)
	v, err := strconv.ParseUint(string(buf), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s", string(buf))
	}
	*a = Amount(v)
	return nil
}

type ListPropertyRequest struct {
	Name            string `json:"name"`
	Location        string `json:"location"`
	ImageURL        string `json:"imageUrl"`
	PricePerLot     Amount `json:"pricePerLot"`
	TotalShares     Amount `json:"totalShares"`
	Issuer          string `json:"issuer"`
	SettlementAsset string `json:"settlementAsset"`
}

type BuySharesRequest struct {
	Buyer  string `json:"buyer"`
	Shares Amount `json:"shares"`
	Source string `json:"source,omitempty"`
}

type FundRequest struct {
	Owner  string `json:"owner"`
	Mint   string `json:"mint"`
	Amount Amount `json:"amount"`
}

type Property struct {
	Address            string `json:"address"`
	Bump               uint8  `json:"bump"`
	Name               string `json:"name"`
	Location           string `json:"location"`
	ImageURL           string `json:"imageUrl"`
	Issuer             string `json:"issuer"`
	SettlementAsset    string `json:"settlementAsset"`
	Vault              string `json:"vault"`
	VaultBump          uint8  `json:"vaultBump"`
	PricePerLot        Amount `json:"pricePerLot"`
	PricePerLotDecimal string `json:"pricePerLotDecimal"`
	SharePrice         Amount `json:"sharePrice"`
	SharePriceDecimal  string `json:"sharePriceDecimal"`
	TotalShares        Amount `json:"totalShares"`
	SharesSold         Amount `json:"sharesSold"`
	AvailableShares    Amount `json:"availableShares"`
	TotalRentCollected Amount `json:"totalRentCollected"`
	SoldOut            bool   `json:"soldOut"`
	CreatedAt          int64  `json:"createdAt"`
	UpdatedAt          int64  `json:"updatedAt"`
}

type Position struct {
	Address      string `json:"address"`
	Bump         uint8  `json:"bump"`
	Owner        string `json:"owner"`
	Property     string `json:"property"`
	SharesOwned  Amount `json:"sharesOwned"`
	TotalClaimed Amount `json:"totalClaimed"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

type Account struct {
	Address       string `json:"address"`
	Mint          string `json:"mint"`
	Owner         string `json:"owner"`
	Amount        Amount `json:"amount"`
	AmountDecimal string `json:"amountDecimal"`
}

type PurchaseReceipt struct {
	Property    Property `json:"property"`
	Position    Position `json:"position"`
	Source      string   `json:"source"`
	Cost        Amount   `json:"cost"`
	CostDecimal string   `json:"costDecimal"`
	NewPosition bool     `json:"newPosition"`
}

type Quote struct {
	Property          string `json:"property"`
	Shares            Amount `json:"shares"`
	SharePrice        Amount `json:"sharePrice"`
	Cost              Amount `json:"cost"`
	CostDecimal       string `json:"costDecimal"`
	ExactCost         Amount `json:"exactCost"`
	Shortfall         Amount `json:"shortfall"`
	AvailableShares   Amount `json:"availableShares"`
	ExactCostDecimal  string `json:"exactCostDecimal"`
	ShortfallDecimal  string `json:"shortfallDecimal"`
	SharePriceDecimal string `json:"sharePriceDecimal"`
}

type Holding struct {
	Position     Position `json:"position"`
	Property     Property `json:"property"`
	Value        Amount   `json:"value"`
	ValueDecimal string   `json:"valueDecimal"`
}

type Portfolio struct {
	Owner             string    `json:"owner"`
	Holdings          []Holding `json:"holdings"`
	TotalShares       Amount    `json:"totalShares"`
	TotalValue        Amount    `json:"totalValue"`
	TotalValueDecimal string    `json:"totalValueDecimal"`
}

type Event struct {
	Type string       `json:"type"`
	Data domain.Event `json:"data"`
}

type Violation struct {
	Property  string `json:"property"`
	Invariant string `json:"invariant"`
	Expected  Amount `json:"expected"`
	Actual    Amount `json:"actual"`
}

type AuditReport struct {
	CheckedAt  int64       `json:"checkedAt"`
	Properties int         `json:"properties"`
	Healthy    bool        `json:"healthy"`
	Violations []Violation `json:"violations"`
}

type ErrorResponse struct {
	Code     uint16            `json:"code"`
	Name     string            `json:"name"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func toProperty(p domain.Property) Property {
	return Property{
		Address:            p.Address,
		Bump:               p.Bump,
		Name:               p.Name,
		Location:           p.Location,
		ImageURL:           p.ImageURL,
		Issuer:             p.Issuer,
		SettlementAsset:    p.SettlementAsset,
		Vault:              p.Vault,
		VaultBump:          p.VaultBump,
		PricePerLot:        Amount(p.PricePerLot),
		PricePerLotDecimal: domain.FormatAmount(p.PricePerLot),
		SharePrice:         Amount(p.SharePrice()),
		SharePriceDecimal:  domain.FormatAmount(p.SharePrice()),
		TotalShares:        Amount(p.TotalShares),
		SharesSold:         Amount(p.SharesSold),
		AvailableShares:    Amount(p.AvailableShares()),
		TotalRentCollected: Amount(p.TotalRentCollected),
		SoldOut:            p.IsSoldOut(),
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func toPosition(p domain.InvestorPosition) Position {
	return Position{
		Address:      p.Address,
		Bump:         p.Bump,
		Owner:        p.Owner,
		Property:     p.Property,
		SharesOwned:  Amount(p.SharesOwned),
		TotalClaimed: Amount(p.TotalClaimed),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toAccount(a domain.TokenAccount) Account {
	return Account{
		Address:       a.Address,
		Mint:          a.Mint,
		Owner:         a.Owner,
		Amount:        Amount(a.Amount),
		AmountDecimal: domain.FormatAmount(a.Amount),
	}
}

func toReceipt(r application.PurchaseReceipt) PurchaseReceipt {
	return PurchaseReceipt{
		Property:    toProperty(r.Property),
		Position:    toPosition(r.Position),
		Source:      r.Source,
		Cost:        Amount(r.Cost),
		CostDecimal: domain.FormatAmount(r.Cost),
		NewPosition: r.NewPosition,
	}
}

func toQuote(q application.Quote) Quote {
	return Quote{
		Property:          q.Property,
		Shares:            Amount(q.Shares),
		SharePrice:        Amount(q.SharePrice),
		SharePriceDecimal: domain.FormatAmount(q.SharePrice),
		Cost:              Amount(q.Cost),
		CostDecimal:       domain.FormatAmount(q.Cost),
		ExactCost:         Amount(q.ExactCost),
		ExactCostDecimal:  domain.FormatAmount(q.ExactCost),
		Shortfall:         Amount(q.Shortfall),
		ShortfallDecimal:  domain.FormatAmount(q.Shortfall),
		AvailableShares:   Amount(q.AvailableShares),
	}
}

func toPortfolio(p application.Portfolio) Portfolio {
	holdings := make([]Holding, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		// Value cannot fail here: the portfolio total was computed from it.
		value, _ := h.Value()
		holdings = append(holdings, Holding{
			Position:     toPosition(h.Position),
			Property:     toProperty(h.Property),
			Value:        Amount(value),
			ValueDecimal: domain.FormatAmount(value),
		})
	}
	return Portfolio{
		Owner:             p.Owner,
		Holdings:          holdings,
		TotalShares:       Amount(p.TotalShares),
		TotalValue:        Amount(p.TotalValue),
		TotalValueDecimal: domain.FormatAmount(p.TotalValue),
	}
}

func toEvents(events []domain.Event) []Event {
	list := make([]Event, 0, len(events))
	for _, e := range events {
		list = append(list, Event{Type: e.GetType().String(), Data: e})
	}
	return list
}

func toAuditReport(r application.AuditReport) AuditReport {
	violations := make([]Violation, 0, len(r.Violations))
	for _, v := range r.Violations {
		violations = append(violations, Violation{
			Property:  v.Property,
			Invariant: v.Invariant,
			Expected:  Amount(v.Expected),
			Actual:    Amount(v.Actual),
		})
	}
	return AuditReport{
		CheckedAt:  r.CheckedAt,
		Properties: r.Properties,
		Healthy:    r.Healthy(),
		Violations: violations,
	}
}
