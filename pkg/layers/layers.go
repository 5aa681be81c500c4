// Package layers defines the typed parts that make up inbound messages and
// outbound responses. A message is an ordered stack of layers; triggers
// inspect the stack and response layers may patch the next register.
package layers

import "context"

// Layer is a single typed part of a message or a response.
type Layer interface {
	// Kind returns a stable identifier for the layer type, used for
	// platform capability checks and logging.
	Kind() string
}

// Patchable is implemented by response layers that contribute side-channel
// data to the next register, such as a list of selectable choices that the
// next incoming message can be matched against.
type Patchable interface {
	Layer

	// PatchRegister folds this layer's contribution into the transition
	// register and returns the patched map.
	PatchRegister(ctx context.Context, register map[string]any) (map[string]any, error)
}

// RawText is a plain text message, inbound or outbound.
type RawText struct {
	Text string
}

func (RawText) Kind() string { return "raw_text" }

// QuickReply is what we receive when the user taps a quick reply that was
// offered by a previous QuickRepliesList.
type QuickReply struct {
	Slug string
}

func (QuickReply) Kind() string { return "quick_reply" }

// Postback is arbitrary data sent by the platform when the user clicks a
// button that the bot programmed earlier.
type Postback struct {
	Payload map[string]any
}

func (Postback) Kind() string { return "postback" }

// Image is a picture attached to a message.
type Image struct {
	URL string
}

func (Image) Kind() string { return "image" }

// Sticker is a platform sticker attached to a message.
type Sticker struct {
	Slug string
}

func (Sticker) Kind() string { return "sticker" }
