package domain

import (
	"encoding/json"
	"fmt"
)

const PropertyTopic = "property"

type EventType int

const (
	EventTypeUndefined EventType = iota
	EventTypePropertyListed
	EventTypeSharesPurchased
)

func (t EventType) String() string {
	switch t {
	case EventTypePropertyListed:
		return "PropertyListed"
	case EventTypeSharesPurchased:
		return "SharesPurchased"
	default:
		return "Undefined"
	}
}

type Event interface {
	GetTopic() string
	GetType() EventType
}

type PropertyListed struct {
	Id              string
	Type            EventType
	Name            string
	Issuer          string
	SettlementAsset string
	Vault           string
	PricePerLot     uint64
	TotalShares     uint64
	Timestamp       int64
}

func (e PropertyListed) GetTopic() string   { return PropertyTopic }
func (e PropertyListed) GetType() EventType { return EventTypePropertyListed }

type SharesPurchased struct {
	Id          string
	Type        EventType
	Buyer       string
	Position    string
	Source      string
	Shares      uint64
	Cost        uint64
	SharesSold  uint64
	TotalShares uint64
	SharesOwned uint64
	NewPosition bool
	Timestamp   int64
}

func (e SharesPurchased) GetTopic() string   { return PropertyTopic }
func (e SharesPurchased) GetType() EventType { return EventTypeSharesPurchased }

func NewPropertyListed(p Property) PropertyListed {
	return PropertyListed{
		Id:              p.Address,
		Type:            EventTypePropertyListed,
		Name:            p.Name,
		Issuer:          p.Issuer,
		SettlementAsset: p.SettlementAsset,
		Vault:           p.Vault,
		PricePerLot:     p.PricePerLot,
		TotalShares:     p.TotalShares,
		Timestamp:       p.CreatedAt,
	}
}

// DecodeEvent decodes a JSON encoded event using its Type discriminator.
func DecodeEvent(buf []byte) (Event, error) {
	var eventType struct {
		Type EventType
	}
	if err := json.Unmarshal(buf, &eventType); err != nil {
		return nil, err
	}

	switch eventType.Type {
	case EventTypePropertyListed:
		var event PropertyListed
		if err := json.Unmarshal(buf, &event); err != nil {
			return nil, err
		}
		return event, nil
	case EventTypeSharesPurchased:
		var event SharesPurchased
		if err := json.Unmarshal(buf, &event); err != nil {
			return nil, err
		}
		return event, nil
	}

	return nil, fmt.Errorf("unknown event type %d", eventType.Type)
}
