package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/deadliner/internal/chat"
	"github.com/ent0n29/deadliner/internal/protocol"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsIdleTimeout  = 120 * time.Second
)

func (s *Server) handleChannelWS(w http.ResponseWriter, r *http.Request) {
	channelID := strings.TrimSpace(chi.URLParam(r, "id"))
	if channelID == "" {
		respondError(w, http.StatusBadRequest, "invalid_channel_id", "missing channel id")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.hub.subscribe(channelID)
	defer s.hub.unsubscribe(channelID, sub)
	s.logger.Info("channel listener connected", "channel_id", channelID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-sub.out:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					s.logger.Warn("channel write failed", "channel_id", channelID, "err", err)
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.ObserveWSMessage("outbound", string(t))
				}
			}
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		if msgType != websocket.TextMessage {
			continue
		}
		msg, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.enqueue(ctx, sub, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				ChannelID: channelID,
				Code:      "invalid_client_message",
				Detail:    err.Error(),
			})
			continue
		}
		s.metrics.ObserveWSMessage("inbound", string(msg.Type))

		replies, err := s.handler.Handle(ctx, chat.Message{ActorID: msg.ActorID, ChannelID: channelID, Text: msg.Text})
		if err != nil {
			s.logger.Error("handle channel message failed", "channel_id", channelID, "actor_id", msg.ActorID, "err", err)
			s.enqueue(ctx, sub, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				ChannelID: channelID,
				Code:      "internal_error",
				Detail:    "message could not be processed",
			})
			continue
		}
		if len(replies) == 0 {
			continue
		}
		s.enqueue(ctx, sub, protocol.ReplyEvent{
			Type:      protocol.TypeReply,
			ChannelID: channelID,
			ActorID:   msg.ActorID,
			Replies:   replies,
		})
	}

	cancel()
	<-writerDone
	s.logger.Info("channel listener disconnected", "channel_id", channelID)
}

// enqueue hands msg to the connection's single writer.
func (s *Server) enqueue(ctx context.Context, sub *subscriber, msg any) {
	select {
	case <-ctx.Done():
	case sub.out <- msg:
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ReplyEvent:
		return m.Type, true
	case protocol.ReminderEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
