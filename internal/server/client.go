// ABOUTME: One WebSocket connection bound to one session
// ABOUTME: Reads envelopes, dispatches them to session handlers and streams results back
package server

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/harper/obala/internal/session"
)

type client struct {
	conn    *websocket.Conn
	session *session.Session
	ctx     context.Context
	cancel  context.CancelFunc
	writeMu sync.Mutex
	tasks   conc.WaitGroup
	logger  zerolog.Logger
}

// newClient binds a connection to a session. The client's context is not the
// request context: hijacked connections outlive the HTTP server's shutdown.
func newClient(parent context.Context, conn *websocket.Conn, sess *session.Session, logger zerolog.Logger) *client {
	ctx, cancel := context.WithCancel(parent)
	return &client{
		conn:    conn,
		session: sess,
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.With().Str("session", sess.ID()).Logger(),
	}
}

// close cancels in-flight work and closes the socket, ending run's read loop
func (c *client) close() {
	c.cancel()
	_ = c.conn.Close()
}

// run sends the opening conversation and serves requests until the socket closes.
// Background speech tasks are cancelled and drained before it returns.
func (c *client) run() {
	ctx := c.ctx
	defer func() {
		c.cancel()
		c.tasks.Wait()
		_ = c.conn.Close()
	}()

	c.sendConversation()
	for _, w := range c.session.StartupWarnings() {
		c.send(MsgWarning, w)
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				c.logger.Warn().Msg("inbound frame exceeds the size limit, closing connection")
			} else if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug().Err(err).Msg("read loop ended")
			}
			return
		}
		c.dispatch(ctx, data)
	}
}

func (c *client) dispatch(ctx context.Context, data []byte) {
	msgType, payload, err := Unmarshal(data)
	if err != nil {
		c.logger.Warn().Err(err).Msg("malformed envelope")
		c.sendError(err)
		return
	}

	switch msgType {
	case MsgUserText:
		p, err := UnmarshalPayload[UserTextPayload](payload)
		if err != nil {
			c.sendError(err)
			return
		}
		c.handleText(ctx, p.Text)
	case MsgUserAudio:
		p, err := UnmarshalPayload[UserAudioPayload](payload)
		if err != nil {
			c.sendError(err)
			return
		}
		c.handleAudio(ctx, p.Audio)
	case MsgTranslate:
		p, err := UnmarshalPayload[TranslatePayload](payload)
		if err != nil {
			c.sendError(err)
			return
		}
		c.handleTranslate(ctx, p.TurnID)
	case MsgReset:
		c.session.Reset()
		c.sendConversation()
	case MsgSync:
		c.sendConversation()
	default:
		c.logger.Warn().Str("type", string(msgType)).Msg("unknown message type")
		c.sendError(errors.New("unknown message type: " + string(msgType)))
	}
}

// handleText delivers the text reply first and synthesizes speech in the background
func (c *client) handleText(ctx context.Context, text string) {
	reply, err := c.session.Respond(ctx, text)
	if err != nil {
		c.sendError(err)
		return
	}
	c.sendReply(reply)

	if reply.Assistant == nil || !reply.Assistant.IsReply() {
		return
	}
	turnID := reply.Assistant.TurnID
	c.tasks.Go(func() {
		c.speak(ctx, turnID)
	})
}

func (c *client) speak(ctx context.Context, turnID string) {
	ref, warning, err := c.session.Speak(ctx, turnID)
	if err != nil {
		c.logger.Debug().Err(err).Str("turn_id", turnID).Msg("speech skipped")
		return
	}
	if warning != nil {
		c.send(MsgWarning, warning)
	}
	if ref != "" {
		c.send(MsgAudio, AudioPayload{TurnID: turnID, AudioURL: audioURL(c.session.ID(), turnID)})
	}
}

func (c *client) handleAudio(ctx context.Context, audio []byte) {
	reply, err := c.session.SubmitVoice(ctx, audio)
	if err != nil {
		c.sendError(err)
		return
	}
	c.sendReply(reply)
	if reply.AudioRef != "" && reply.Assistant != nil {
		c.send(MsgAudio, AudioPayload{TurnID: reply.Assistant.TurnID, AudioURL: audioURL(c.session.ID(), reply.Assistant.TurnID)})
	}
}

func (c *client) handleTranslate(ctx context.Context, turnID string) {
	text, warning, err := c.session.Translate(ctx, turnID)
	if err != nil {
		c.sendError(err)
		return
	}
	if warning != nil {
		c.send(MsgWarning, warning)
		return
	}
	c.send(MsgTranslation, TranslationPayload{TurnID: turnID, Text: text})
}

func (c *client) sendReply(reply session.Reply) {
	if reply.User != nil {
		c.send(MsgTurn, TurnPayload{Turn: view(c.session, *reply.User), Transcript: reply.Transcript})
	}
	if reply.Assistant != nil {
		c.send(MsgTurn, TurnPayload{Turn: view(c.session, *reply.Assistant)})
	}
	for _, w := range reply.Warnings {
		c.send(MsgWarning, w)
	}
}

func (c *client) sendConversation() {
	turns := c.session.Conversation()
	views := make([]TurnView, 0, len(turns))
	for _, t := range turns {
		views = append(views, view(c.session, t))
	}
	c.send(MsgConversation, ConversationPayload{SessionID: c.session.ID(), Turns: views})
}

func (c *client) sendError(err error) {
	c.send(MsgError, ErrorPayload{Message: err.Error()})
}

func (c *client) send(msgType MessageType, payload interface{}) {
	data, err := Marshal(msgType, payload)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to encode message")
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Debug().Err(err).Str("type", string(msgType)).Msg("write failed")
	}
}
