/*
Package bridge implements the cross-instance message bridge over NATS.

Each online user owns a per-user subject. The instance holding the user's
connection subscribes the subject at login and unsubscribes at logout or
disconnect; any instance can publish an envelope to the subject to reach the
user wherever they are connected. Inbound messages arrive on NATS goroutines
and re-enter the router through the configured inbound handler.
*/
package bridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"clusterchat/internal/pkg/logx"
)

const (
	// subjectPrefix namespaces the per-user subjects on the shared NATS deployment.
	subjectPrefix = "chat.user."

	connectTimeout = 5 * time.Second
	reconnectWait  = 2 * time.Second
)

// InboundHandler receives an envelope published for userID. It is invoked on a
// NATS goroutine, concurrently with connection-originated dispatch.
type InboundHandler func(ctx context.Context, userID int64, payload []byte)

// Bridge is the NATS-backed implementation of the router's cross-instance
// publish/subscribe contract.
type Bridge struct {
	nc      *nats.Conn
	handler InboundHandler

	mu   sync.Mutex
	subs map[int64]*nats.Subscription

	logger zerolog.Logger
}

// Connect dials the NATS deployment and returns a Bridge routing inbound
// messages to handler.
func Connect(url, instanceName string, handler InboundHandler) (*Bridge, error) {
	nc, err := nats.Connect(url,
		nats.Name(instanceName),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logx.Warn("NATS connection lost.", "error", fmt.Sprint(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logx.Info("NATS connection restored.", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	return &Bridge{
		nc:      nc,
		handler: handler,
		subs:    make(map[int64]*nats.Subscription),
		logger:  logx.Logger().With().Str("component", "Bridge").Logger(),
	}, nil
}

// Subscribe starts listening on userID's subject. Subscribing a user twice is
// a no-op so a reconnecting login cannot leak subscriptions.
func (b *Bridge) Subscribe(userID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[userID]; ok {
		return nil
	}

	sub, err := b.nc.Subscribe(subject(userID), func(msg *nats.Msg) {
		b.dispatch(msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe user %d: %w", userID, err)
	}

	b.subs[userID] = sub
	return nil
}

// Unsubscribe stops listening on userID's subject. Unsubscribing a user with
// no subscription is a no-op.
func (b *Bridge) Unsubscribe(userID int64) error {
	b.mu.Lock()
	sub, ok := b.subs[userID]
	delete(b.subs, userID)
	b.mu.Unlock()

	if !ok {
		return nil
	}

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("unsubscribe user %d: %w", userID, err)
	}
	return nil
}

// Publish sends payload to userID's subject for delivery by whichever
// instance currently holds the subscription.
func (b *Bridge) Publish(userID int64, payload []byte) error {
	if err := b.nc.Publish(subject(userID), payload); err != nil {
		return fmt.Errorf("publish to user %d: %w", userID, err)
	}
	return nil
}

// Close drops all subscriptions and drains the NATS connection.
func (b *Bridge) Close() {
	b.mu.Lock()
	for userID, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil {
			b.logger.Warn().Err(err).Int64("user_id", userID).Msg("Unsubscribe during close failed")
		}
	}
	b.subs = make(map[int64]*nats.Subscription)
	b.mu.Unlock()

	if err := b.nc.Drain(); err != nil {
		b.logger.Warn().Err(err).Msg("NATS drain failed")
	}
}

// dispatch parses the user id back out of the subject and hands the payload
// to the inbound handler.
func (b *Bridge) dispatch(msg *nats.Msg) {
	userID, err := userIDFromSubject(msg.Subject)
	if err != nil {
		b.logger.Error().Err(err).Str("subject", msg.Subject).Msg("Unroutable bridge message")
		return
	}

	b.handler(context.Background(), userID, msg.Data)
}

// subject returns the per-user subject for userID.
func subject(userID int64) string {
	return subjectPrefix + strconv.FormatInt(userID, 10)
}

// userIDFromSubject inverts subject.
func userIDFromSubject(s string) (int64, error) {
	idStr, ok := strings.CutPrefix(s, subjectPrefix)
	if !ok {
		return 0, fmt.Errorf("subject %q lacks prefix %q", s, subjectPrefix)
	}

	userID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("subject %q carries a non-numeric user id: %w", s, err)
	}
	return userID, nil
}
