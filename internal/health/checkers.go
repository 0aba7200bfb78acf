package health

import (
	"context"
	"errors"
	"fmt"
)

// Pinger is satisfied by *pgxpool.Pool and *pgx.Conn.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports whether p answers a ping.
func PingCheck(name string, p Pinger) Checker {
	return Checker{Name: name, Check: func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
		return nil
	}}
}

// Connection is satisfied by *nats.Conn.
type Connection interface {
	IsConnected() bool
}

// ConnectedCheck fails while c is disconnected or reconnecting.
func ConnectedCheck(name string, c Connection) Checker {
	return Checker{Name: name, Check: func(context.Context) error {
		if !c.IsConnected() {
			return errors.New("not connected")
		}
		return nil
	}}
}

// NonEmptyCheck fails while count returns zero. It guards reference data such
// as the persona registry.
func NonEmptyCheck(name string, count func() int) Checker {
	return Checker{Name: name, Check: func(context.Context) error {
		if count() == 0 {
			return errors.New("nothing loaded")
		}
		return nil
	}}
}
