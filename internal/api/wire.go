package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/roach88/telemetryd/internal/event"
)

// wireMessage is the POST /messages body.
type wireMessage struct {
	Metadata *wireMetadata  `json:"metadata"`
	Message  map[string]any `json:"message"`
}

type wireMetadata struct {
	Channel       string    `json:"channel"`
	MessageNumber int64     `json:"messageNumber"`
	MessageType   string    `json:"messageType"`
	MessageTime   time.Time `json:"messageTime"`
}

// decodeMessage parses a POST /messages body into an event.
//
// Unknown fields are rejected. Message values may be strings, numbers or
// booleans; numbers keep their literal text, so "launchSpeed": 500 and
// "launchSpeed": "500" decode identically. Nulls are dropped.
func decodeMessage(body []byte) (event.Event, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	dec.UseNumber()

	var msg wireMessage
	if err := dec.Decode(&msg); err != nil {
		return event.Event{}, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return event.Event{}, errors.New("unexpected data after message")
	}
	if msg.Metadata == nil {
		return event.Event{}, errors.New("missing metadata")
	}

	payload := make(event.Payload, len(msg.Message))
	for k, v := range msg.Message {
		switch v := v.(type) {
		case nil:
		case string:
			payload[k] = v
		case json.Number:
			payload[k] = v.String()
		case bool:
			payload[k] = strconv.FormatBool(v)
		default:
			return event.Event{}, fmt.Errorf("message field %q: expected a scalar, got %T", k, v)
		}
	}

	md := msg.Metadata
	return event.New(md.Channel, md.MessageNumber, md.MessageType, payload, md.MessageTime), nil
}
