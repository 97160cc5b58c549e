// Package matrix connects the interpretation engine to Matrix rooms.
//
// The client wraps maunium.net/go/mautrix: it joins the configured ops rooms,
// filters incoming events down to text messages from other users, and hands
// them to a registered handler. Responses are sent as formatted messages with
// an HTML body rendered from the envelope plus a plain-text fallback.
package matrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Config holds Matrix client configuration.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// Rooms are the room IDs the bot joins and answers in. Messages from any
	// other room are ignored.
	Rooms []string
	// DB is an optional SQLite connection used to persist the Matrix sync
	// token (next_batch) across restarts. When nil, an in-memory store is
	// used and all room history will be replayed on every restart.
	DB *sql.DB
}

// MessageHandler processes one incoming text message.
type MessageHandler func(ctx context.Context, evt *event.Event)

// Client wraps the mautrix client.
type Client struct {
	client  *mautrix.Client
	config  *Config
	stopCh  chan struct{}
	handler MessageHandler
}

// New creates a Matrix client. It does not connect yet; Start does.
func New(config *Config) (*Client, error) {
	client, err := mautrix.NewClient(config.Homeserver, id.UserID(config.UserID), config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Matrix client: %w", err)
	}

	c := &Client{
		client: client,
		config: config,
		stopCh: make(chan struct{}),
	}

	// Persist the sync position so a restart resumes where the last run
	// stopped instead of replaying room history through the engine.
	if config.DB != nil {
		client.Store = NewDBSyncStore(config.DB)
		slog.Info("Matrix sync store: using persistent SQLite store")
	} else {
		slog.Warn("Matrix sync store: no DB configured, using in-memory store (history will replay on restart)")
	}

	return c, nil
}

// Start joins the configured rooms and begins syncing with the homeserver.
// Incoming text messages are passed to handler.
func (c *Client) Start(ctx context.Context, handler MessageHandler) error {
	c.handler = handler

	// E2EE is not implemented; messages travel in plaintext.
	slog.Warn("Matrix E2EE is not enabled; messages are transmitted in plaintext")

	syncer := c.client.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.EventMessage, c.handleMessage)

	for _, roomID := range c.config.Rooms {
		if err := c.joinRoom(id.RoomID(roomID)); err != nil {
			return fmt.Errorf("failed to join room %s: %w", roomID, err)
		}
	}

	// Sync in the background with exponential back-off reconnection. Without
	// retries a transient homeserver error would silently kill the sync
	// goroutine and leave the bot deaf to all new messages.
	go func() {
		const (
			backoffMin = 2 * time.Second
			backoffMax = 5 * time.Minute
		)
		backoff := backoffMin
		for {
			backoff = backoffMin // reset before each attempt
			if err := c.client.Sync(); err != nil {
				select {
				case <-c.stopCh:
					return
				default:
				}
				slog.Error("Matrix sync stopped; reconnecting", "err", err, "backoff", backoff)
				select {
				case <-c.stopCh:
					return
				case <-time.After(backoff):
				}
				backoff *= 2
				if backoff > backoffMax {
					backoff = backoffMax
				}
				continue
			}
			// Sync returned nil — only happens on a clean StopSync() call.
			return
		}
	}()

	return nil
}

// Stop stops syncing.
func (c *Client) Stop() {
	close(c.stopCh)
	c.client.StopSync()
}

// SendFormattedMessage sends a message with an HTML body and a plain-text
// fallback for clients that do not render HTML.
func (c *Client) SendFormattedMessage(roomID, html, plaintext string) error {
	content := event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          plaintext,
		Format:        event.FormatHTML,
		FormattedBody: html,
	}

	_, err := c.client.SendMessageEvent(context.Background(), id.RoomID(roomID), event.EventMessage, &content)
	if err != nil {
		return fmt.Errorf("failed to send formatted message: %w", err)
	}
	return nil
}

// UserID returns the bot's own user ID.
func (c *Client) UserID() string {
	return c.config.UserID
}

// handleMessage filters incoming events down to text messages from other
// users in the configured rooms.
func (c *Client) handleMessage(ctx context.Context, evt *event.Event) {
	if evt.Sender == id.UserID(c.config.UserID) {
		return
	}

	msgContent := evt.Content.AsMessage()
	if msgContent == nil || msgContent.MsgType != event.MsgText {
		return
	}

	if !c.allowedRoom(evt.RoomID.String()) {
		return
	}

	if c.handler != nil {
		c.handler(ctx, evt)
	}
}

func (c *Client) allowedRoom(roomID string) bool {
	for _, r := range c.config.Rooms {
		if r == roomID {
			return true
		}
	}
	return false
}

// joinRoom attempts to join a room.
func (c *Client) joinRoom(roomID id.RoomID) error {
	_, err := c.client.JoinRoomByID(context.Background(), roomID)
	if err != nil {
		// Homeservers answer M_FORBIDDEN when the bot is already a member.
		if errors.Is(err, mautrix.MForbidden) {
			slog.Warn("joinRoom: already a member or access denied, continuing", "room", roomID)
			return nil
		}
		return err
	}
	return nil
}
