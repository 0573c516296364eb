package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/solestate/estated/internal/core/domain"
	"github.com/solestate/estated/internal/core/ports"
)

// forwardEvents publishes the latest event of a property to the alerts port.
// The event store hands over the property's whole history on each save.
func (s *service) forwardEvents(events []domain.Event) {
	if len(events) == 0 {
		return
	}

	switch e := events[len(events)-1].(type) {
	case domain.PropertyListed:
		s.publishAlert(ports.PropertyListed, ports.PropertyListedAlert{
			Property:        e.Id,
			Name:            e.Name,
			Issuer:          e.Issuer,
			Vault:           e.Vault,
			SettlementAsset: e.SettlementAsset,
			PricePerLot:     e.PricePerLot,
			TotalShares:     e.TotalShares,
		})
	case domain.SharesPurchased:
		s.publishAlert(ports.SharesPurchased, ports.SharesPurchasedAlert{
			Property:    e.Id,
			Buyer:       e.Buyer,
			Shares:      e.Shares,
			Cost:        e.Cost,
			SharesSold:  e.SharesSold,
			TotalShares: e.TotalShares,
		})
	}
}

func (s *service) publishAlert(topic ports.Topic, message any) {
	if s.alerts == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.alerts.Publish(ctx, topic, message); err != nil {
		log.WithError(err).WithField("topic", topic).Warn("failed to publish alert")
	}
}
