package ports

import "context"

const (
	PropertyListed     Topic = "Property Listed"
	SharesPurchased    Topic = "Shares Purchased"
	InvariantViolation Topic = "Invariant Violation"
)

type Topic string

type Alerts interface {
	Publish(ctx context.Context, topic Topic, message interface{}) error
}

type PropertyListedAlert struct {
	Property        string
	Name            string
	Issuer          string
	Vault           string
	SettlementAsset string
	PricePerLot     uint64
	TotalShares     uint64
}

type SharesPurchasedAlert struct {
	Property    string
	Buyer       string
	Shares      uint64
	Cost        uint64
	SharesSold  uint64
	TotalShares uint64
}

type InvariantViolationAlert struct {
	Property  string
	Invariant string
	Expected  uint64
	Actual    uint64
}
