// Package ts owns the server-query connection: login, channel placement of
// the query identity, notification registration, and translation of raw
// protocol notifications into typed events. The wire protocol itself is
// supplied by github.com/multiplay/go-ts3; this package only adapts it.
package ts

import (
	"context"
	"errors"
	"strconv"
)

// ClientJoined is delivered when a client connects to the server. UniqueID is
// the platform-assigned durable identifier; SessionID is only valid for the
// lifetime of this connection.
type ClientJoined struct {
	UniqueID  string
	SessionID int
	ChannelID int
	Nickname  string
}

// ClientLeft is delivered when a client disconnects. Only the transient
// session id is available.
type ClientLeft struct {
	SessionID int
}

// ClientMoved is delivered when a client switches channels. InvokerUID is the
// durable id of the mover when another client initiated the move, or empty
// for a self-move.
type ClientMoved struct {
	InvokerUID string
	SessionID  int
	ChannelID  int
}

// TextMessage is delivered for a chat message visible to the query client.
type TextMessage struct {
	InvokerUID string
	SessionID  int
	TargetMode int
	Message    string
}

// Handler consumes typed notifications. Implementations must tolerate
// concurrent delivery and must not panic; a handler failure for one
// notification must not affect any other.
type Handler interface {
	HandleClientJoined(ctx context.Context, e ClientJoined)
	HandleClientLeft(ctx context.Context, e ClientLeft)
	HandleClientMoved(ctx context.Context, e ClientMoved)
	HandleTextMessage(ctx context.Context, e TextMessage)
}

// ErrMalformedNotification is returned by the parse helpers when a required
// field is missing or not numeric.
var ErrMalformedNotification = errors.New("malformed notification payload")

func parseClientJoined(data map[string]string) (ClientJoined, error) {
	clid, err := intField(data, "clid")
	if err != nil {
		return ClientJoined{}, err
	}
	uid := data["client_unique_identifier"]
	if uid == "" {
		return ClientJoined{}, ErrMalformedNotification
	}
	ctid, _ := intField(data, "ctid") // target channel may be absent on some servers
	return ClientJoined{
		UniqueID:  uid,
		SessionID: clid,
		ChannelID: ctid,
		Nickname:  data["client_nickname"],
	}, nil
}

func parseClientLeft(data map[string]string) (ClientLeft, error) {
	clid, err := intField(data, "clid")
	if err != nil {
		return ClientLeft{}, err
	}
	return ClientLeft{SessionID: clid}, nil
}

func parseClientMoved(data map[string]string) (ClientMoved, error) {
	clid, err := intField(data, "clid")
	if err != nil {
		return ClientMoved{}, err
	}
	ctid, err := intField(data, "ctid")
	if err != nil {
		return ClientMoved{}, err
	}
	return ClientMoved{
		InvokerUID: data["invokeruid"],
		SessionID:  clid,
		ChannelID:  ctid,
	}, nil
}

func parseTextMessage(data map[string]string) (TextMessage, error) {
	uid := data["invokeruid"]
	if uid == "" {
		return TextMessage{}, ErrMalformedNotification
	}
	clid, _ := intField(data, "invokerid")
	mode, _ := intField(data, "targetmode")
	return TextMessage{
		InvokerUID: uid,
		SessionID:  clid,
		TargetMode: mode,
		Message:    data["msg"],
	}, nil
}

// intField parses a required integer value out of a notification payload.
func intField(data map[string]string, key string) (int, error) {
	v, ok := data[key]
	if !ok {
		return 0, ErrMalformedNotification
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, ErrMalformedNotification
	}
	return n, nil
}
