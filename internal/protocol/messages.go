package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeChatMessage MessageType = "chat_message"
	TypeReply       MessageType = "reply"
	TypeReminder    MessageType = "reminder"
	TypeErrorEvent  MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// Embed is a transport-neutral rich message: a title, body, accent colour and
// optional named fields.
type Embed struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Footer      string  `json:"footer,omitempty"`
}

type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Reply is one outbound answer to an inbound chat message. Plain replies
// carry Text only.
type Reply struct {
	Text  string `json:"text,omitempty"`
	Embed *Embed `json:"embed,omitempty"`
}

func TextReply(text string) Reply {
	return Reply{Text: text}
}

func EmbedReply(e Embed) Reply {
	return Reply{Embed: &e}
}

// ChatMessage is an inbound message from an actor on a channel.
type ChatMessage struct {
	Type      MessageType `json:"type"`
	ActorID   string      `json:"actor_id"`
	ChannelID string      `json:"channel_id,omitempty"`
	Text      string      `json:"text"`
}

type ReplyEvent struct {
	Type      MessageType `json:"type"`
	ChannelID string      `json:"channel_id"`
	ActorID   string      `json:"actor_id"`
	Replies   []Reply     `json:"replies"`
}

// ReminderEvent is pushed to a channel when a task crosses a deadline
// threshold.
type ReminderEvent struct {
	Type      MessageType `json:"type"`
	ChannelID string      `json:"channel_id"`
	TaskID    string      `json:"task_id"`
	Threshold string      `json:"threshold"`
	Embed     Embed       `json:"embed"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	ChannelID string      `json:"channel_id,omitempty"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (ChatMessage, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ChatMessage{}, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeChatMessage, "":
		// A frame without a type is a chat message.
		var msg ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return ChatMessage{}, err
		}
		msg.Type = TypeChatMessage
		if strings.TrimSpace(msg.ActorID) == "" {
			return ChatMessage{}, errors.New("invalid chat_message: actor_id is required")
		}
		return msg, nil
	default:
		return ChatMessage{}, ErrUnsupportedType
	}
}
