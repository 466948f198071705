package state

import (
	"context"
	"time"
)

// ClientRecord is the persisted form of a confirmed client, used to seed
// the grace period after a restart. Records are keyed by owner, since the
// server-assigned id changes with every boot.
type ClientRecord struct {
	Owner       string    `json:"owner"`
	ClientID    uint64    `json:"client_id"`
	Verifier    []byte    `json:"verifier"`
	Principal   string    `json:"principal,omitempty"`
	Addr        string    `json:"addr,omitempty"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// ClientStore persists confirmed client records across restarts.
type ClientStore interface {
	PutClient(ctx context.Context, rec *ClientRecord) error
	DeleteClient(ctx context.Context, owner string) error
	ListClients(ctx context.Context) ([]*ClientRecord, error)
}
