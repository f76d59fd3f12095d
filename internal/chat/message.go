package chat

import "strings"

// Kind classifies an inbound text payload.
type Kind int

const (
	// KindBroadcast is text without '@'; it goes to every registered channel.
	KindBroadcast Kind = iota
	// KindDirected is "<from>@<to>: <body>"; it goes to one channel.
	KindDirected
	// KindMalformed contains '@' but does not parse as a directed message.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindBroadcast:
		return "broadcast"
	case KindDirected:
		return "directed"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// DirectPrefix marks a private delivery on the wire.
const DirectPrefix = "@@"

// Message is the parsed form of one inbound text payload. From, To and
// Body are only set for KindDirected; To and Body are trimmed, From is as
// written before the '@'.
type Message struct {
	Kind Kind
	Text string
	From string
	To   string
	Body string
}

// Parse classifies raw text in two stages:
//
//  1. Text without '@' is a broadcast.
//  2. Otherwise split on the last ':' into label and body, then split the
//     label on its first '@' into from and to.
//
// Text with '@' but no ':', with no '@' left of the last ':', or with an
// empty recipient is malformed.
func Parse(text string) Message {
	if !strings.Contains(text, "@") {
		return Message{Kind: KindBroadcast, Text: text}
	}

	idx := strings.LastIndex(text, ":")
	if idx < 0 {
		return Message{Kind: KindMalformed, Text: text}
	}
	label, body := text[:idx], text[idx+1:]

	from, to, ok := strings.Cut(label, "@")
	if !ok {
		return Message{Kind: KindMalformed, Text: text}
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return Message{Kind: KindMalformed, Text: text}
	}

	return Message{
		Kind: KindDirected,
		Text: text,
		From: from,
		To:   to,
		Body: strings.TrimSpace(body),
	}
}

// Outgoing renders a directed message as delivered to its recipient:
// "@@<from>: <body>".
func (m Message) Outgoing() string {
	return DirectPrefix + senderLabel(m.From) + ": " + m.Body
}

// senderLabel trims the sender part of a directed message. The chat page
// prefixes every line with "<name>: ", so a directed line typed there
// arrives as "<name>: @<to>: <body>" and the sender part ends with the
// label colon; that one trailing ':' is dropped.
func senderLabel(from string) string {
	from = strings.TrimSpace(from)
	return strings.TrimSuffix(from, ":")
}
