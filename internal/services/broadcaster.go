package services

import "wager-settlement-backend/internal/models"

const (
	EventMinesSettled    = "MINES_SETTLED"
	EventCoinflipSettled = "COINFLIP_SETTLED"
	EventRoyaleSettled   = "ROYALE_SETTLED"
)

// SettlementEvent is pushed to feed subscribers after a terminal transition.
type SettlementEvent struct {
	Type   string          `json:"type"`
	Game   models.GameType `json:"game"`
	ID     uint64          `json:"id"`
	Wallet string          `json:"wallet"`
	Data   interface{}     `json:"data"`
}

type Broadcaster interface {
	BroadcastSettlement(event SettlementEvent)
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastSettlement(SettlementEvent) {}

func orNop(b Broadcaster) Broadcaster {
	if b == nil {
		return nopBroadcaster{}
	}
	return b
}
