// Package ts owns the server-query connection. This file implements the
// Controller: connection lifecycle, query nickname, channel placement, and
// the notification loop feeding a Handler.
package ts

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	ts3 "github.com/multiplay/go-ts3"
	"github.com/rs/zerolog"
)

// Config carries the connection settings for one server-query session.
type Config struct {
	Host               string
	Port               string
	User               string
	Password           string
	ServerID           int
	Nickname           string
	ChannelName        string
	ChannelDescription string
}

// ErrConnectionClosed is returned by Run when the server closes the
// notification stream.
var ErrConnectionClosed = errors.New("server query connection closed")

// queryClient is the slice of *ts3.Client the controller uses. Narrowing the
// dependency keeps the controller testable without a live server.
type queryClient interface {
	ExecCmd(cmd *ts3.Cmd) ([]string, error)
	Register(event ts3.NotifyCategory) error
	Notifications() <-chan ts3.Notification
	Close() error
}

// Controller holds one authenticated server-query session placed in the
// configured channel. It is the only component talking to the chat server;
// the core never assumes the connection exists at construction time.
type Controller struct {
	cfg       Config
	client    queryClient
	log       zerolog.Logger
	channelID int
}

// Connect dials the server query port, authenticates, selects the virtual
// server, names the query client, and moves it into the configured channel
// (creating the channel when absent). Nickname and move failures are logged
// and tolerated; everything else aborts the connect.
func Connect(cfg Config, lg zerolog.Logger) (*Controller, error) {
	lg.Debug().Str("host", cfg.Host).Str("user", cfg.User).Msg("spawning query connection")

	client, err := ts3.NewClient(net.JoinHostPort(cfg.Host, cfg.Port), ts3.Timeout(10*time.Second))
	if err != nil {
		return nil, err
	}
	if err := client.Login(cfg.User, cfg.Password); err != nil {
		client.Close()
		return nil, err
	}
	if err := client.Use(cfg.ServerID); err != nil {
		client.Close()
		return nil, err
	}

	c := &Controller{cfg: cfg, client: client, log: lg}
	if err := c.init(); err != nil {
		client.Close()
		return nil, err
	}
	return c, nil
}

// ConnectWithRetry repeatedly attempts Connect with exponential backoff.
// attempts <= 0 retries until the context is cancelled. Each failure is
// logged; the last error is returned when the budget is exhausted.
func ConnectWithRetry(ctx context.Context, cfg Config, attempts int, backoff time.Duration, lg zerolog.Logger) (*Controller, error) {
	if backoff <= 0 {
		backoff = time.Second
	}
	var lastErr error
	for attempt := 1; attempts <= 0 || attempt <= attempts; attempt++ {
		lg.Info().Int("attempt", attempt).Msg("trying to connect")
		c, err := Connect(cfg, lg)
		if err == nil {
			return c, nil
		}
		lastErr = err
		lg.Warn().Err(err).Int("attempt", attempt).Dur("backoff", backoff).Msg("connection failed")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < time.Minute {
			backoff *= 2
		}
	}
	return nil, lastErr
}

// init names the query client, ensures the configured channel exists, moves
// the query identity into it, and registers for notifications.
func (c *Controller) init() error {
	if err := c.setNickname(c.cfg.Nickname); err != nil {
		c.log.Error().Err(err).Str("nickname", c.cfg.Nickname).Msg("setting query nickname failed")
	}

	ownID, err := c.whoami()
	if err != nil {
		return err
	}

	channelID, err := c.ensureChannel()
	if err != nil {
		return err
	}
	c.channelID = channelID

	c.log.Debug().Int("channel_id", channelID).Str("channel", c.cfg.ChannelName).Msg("moving query to channel")
	_, err = c.client.ExecCmd(ts3.NewCmd("clientmove").WithArgs(
		ts3.NewArg("clid", ownID),
		ts3.NewArg("cid", channelID),
	))
	if err != nil {
		// Already being in the channel is not worth failing the connect over.
		c.log.Error().Err(err).Msg("moving query client failed")
	}

	for _, cat := range []ts3.NotifyCategory{ts3.ServerEvents, ts3.ChannelEvents, ts3.TextChannelEvents} {
		if err := c.client.Register(cat); err != nil {
			return err
		}
	}

	c.log.Info().Str("nickname", c.cfg.Nickname).Str("channel", c.cfg.ChannelName).Msg("query session initialized")
	return nil
}

func (c *Controller) setNickname(name string) error {
	if name == "" {
		return nil
	}
	_, err := c.client.ExecCmd(ts3.NewCmd("clientupdate").WithArgs(
		ts3.NewArg("client_nickname", name),
	))
	return err
}

func (c *Controller) whoami() (int, error) {
	var w struct {
		ClientID int `ms:"client_id"`
	}
	if _, err := c.client.ExecCmd(ts3.NewCmd("whoami").WithResponse(&w)); err != nil {
		return 0, err
	}
	return w.ClientID, nil
}

// ensureChannel returns the id of the channel with the exact configured
// name, creating a permanent channel at the top of the list when none exists.
func (c *Controller) ensureChannel() (int, error) {
	var found []struct {
		ID   int    `ms:"cid"`
		Name string `ms:"channel_name"`
	}
	_, err := c.client.ExecCmd(ts3.NewCmd("channelfind").WithArgs(
		ts3.NewArg("pattern", c.cfg.ChannelName),
	).WithResponse(&found))
	if err == nil {
		// channelfind matches substrings; require the exact name.
		for _, ch := range found {
			if ch.Name == c.cfg.ChannelName {
				return ch.ID, nil
			}
		}
	}

	c.log.Info().Str("channel", c.cfg.ChannelName).Msg("creating channel")
	var created struct {
		ID int `ms:"cid"`
	}
	_, err = c.client.ExecCmd(ts3.NewCmd("channelcreate").WithArgs(
		ts3.NewArg("channel_name", c.cfg.ChannelName),
		ts3.NewArg("channel_order", 0),
		ts3.NewArg("channel_description", c.cfg.ChannelDescription),
		ts3.NewArg("channel_flag_permanent", 1),
	).WithResponse(&created))
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

// SendChannelMessage posts a message to the channel the query client sits in.
func (c *Controller) SendChannelMessage(msg string) error {
	_, err := c.client.ExecCmd(ts3.NewCmd("sendtextmessage").WithArgs(
		ts3.NewArg("targetmode", 2),
		ts3.NewArg("target", c.channelID),
		ts3.NewArg("msg", msg),
	))
	return err
}

// Run consumes the notification stream until the context is cancelled or the
// server closes the connection. Every notification is handled to completion
// before the next one is read; handler failures never stop the loop.
func (c *Controller) Run(ctx context.Context, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-c.client.Notifications():
			if !ok {
				return ErrConnectionClosed
			}
			c.dispatch(ctx, h, n.Type, n.Data)
		}
	}
}

// dispatch translates one raw notification into a typed Handler call.
// Malformed payloads are logged and dropped; unhandled kinds are a no-op.
func (c *Controller) dispatch(ctx context.Context, h Handler, typ string, data map[string]string) {
	if data == nil {
		c.log.Warn().Str("type", typ).Msg("notification without payload dropped")
		return
	}
	switch strings.TrimPrefix(typ, "notify") {
	case "cliententerview":
		// Other query clients join too; only voice clients are of interest.
		if data["client_type"] == "1" {
			return
		}
		e, err := parseClientJoined(data)
		if err != nil {
			c.log.Warn().Err(err).Str("type", typ).Msg("notification dropped")
			return
		}
		h.HandleClientJoined(ctx, e)
	case "clientleftview":
		e, err := parseClientLeft(data)
		if err != nil {
			c.log.Warn().Err(err).Str("type", typ).Msg("notification dropped")
			return
		}
		h.HandleClientLeft(ctx, e)
	case "clientmoved":
		e, err := parseClientMoved(data)
		if err != nil {
			c.log.Warn().Err(err).Str("type", typ).Msg("notification dropped")
			return
		}
		h.HandleClientMoved(ctx, e)
	case "textmessage":
		e, err := parseTextMessage(data)
		if err != nil {
			c.log.Warn().Err(err).Str("type", typ).Msg("notification dropped")
			return
		}
		h.HandleTextMessage(ctx, e)
	default:
		c.log.Debug().Str("type", typ).Msg("unhandled notification kind")
	}
}

// Close tears down the query session.
func (c *Controller) Close() error {
	return c.client.Close()
}
