package domain

import "context"

type PropertyRepository interface {
	// AddProperty fails with ErrRecordExists if the address is taken.
	AddProperty(ctx context.Context, property Property) error
	GetProperty(ctx context.Context, address string) (*Property, error)
	UpdateProperty(ctx context.Context, property Property) error
	ListProperties(ctx context.Context) ([]Property, error)
	Close()
}

type PositionRepository interface {
	// AddPosition fails with ErrRecordExists if the address is taken.
	AddPosition(ctx context.Context, position InvestorPosition) error
	GetPosition(ctx context.Context, address string) (*InvestorPosition, error)
	UpdatePosition(ctx context.Context, position InvestorPosition) error
	ListPositionsByOwner(ctx context.Context, owner string) ([]InvestorPosition, error)
	ListPositionsByProperty(ctx context.Context, property string) ([]InvestorPosition, error)
	Close()
}

type AccountRepository interface {
	// AddAccount fails with ErrRecordExists if the address is taken.
	AddAccount(ctx context.Context, account TokenAccount) error
	GetAccount(ctx context.Context, address string) (*TokenAccount, error)
	UpdateAccount(ctx context.Context, account TokenAccount) error
	Close()
}

type EventRepository interface {
	Save(ctx context.Context, topic string, id string, events []Event) error
	// ListEvents returns the events saved for id in topic, oldest first.
	ListEvents(ctx context.Context, topic string, id string) ([]Event, error)
	RegisterEventsHandler(topic string, handler func(events []Event))
	ClearRegisteredHandlers(topics ...string)
	Close()
}
