// Copyright 2026 Macrometa Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Message is a message received by a Consumer.
type Message struct {
	ID          string
	Payload     []byte
	Properties  map[string]string
	PublishTime time.Time
}

// Consumer receives messages from a stream topic under a subscription.
type Consumer struct {
	socket       *socket
	subscription string
}

// NewConsumer connects a consumer to target. An empty subscription gets a
// random name.
func NewConsumer(ctx context.Context, target Target, subscription string, opts ...Option) (*Consumer, error) {
	var options options
	for _, opt := range opts {
		opt.apply(&options)
	}
	options.applyDefaults()
	if subscription == "" {
		subscription = uuid.NewString()
	}
	rawURL, err := target.ConsumerURL(subscription)
	if err != nil {
		return nil, err
	}
	s, err := dial(ctx, rawURL, target.Header, &options)
	if err != nil {
		return nil, err
	}
	return &Consumer{socket: s, subscription: subscription}, nil
}

// Subscription returns the consumer's subscription name.
func (c *Consumer) Subscription() string {
	return c.subscription
}

type consumeMessage struct {
	MessageID   string            `json:"messageId"`
	Payload     string            `json:"payload"`
	Properties  map[string]string `json:"properties"`
	PublishTime string            `json:"publishTime"`
}

// Receive waits for the next message. Cancelling ctx only abandons the
// wait; the consumer stays usable.
func (c *Consumer) Receive(ctx context.Context) (Message, error) {
	data, err := c.socket.next(ctx)
	if err != nil {
		return Message{}, err
	}
	var raw consumeMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, errors.Wrap(err, "stream: decoding message")
	}
	payload, err := base64.StdEncoding.DecodeString(raw.Payload)
	if err != nil {
		return Message{}, errors.Wrapf(err, "stream: decoding payload of %s", raw.MessageID)
	}
	msg := Message{ID: raw.MessageID, Payload: payload, Properties: raw.Properties}
	if raw.PublishTime != "" {
		if msg.PublishTime, err = time.Parse(time.RFC3339Nano, raw.PublishTime); err != nil {
			return Message{}, errors.Wrapf(err, "stream: decoding publish time of %s", raw.MessageID)
		}
	}
	return msg, nil
}

// Ack acknowledges the message with the given ID.
func (c *Consumer) Ack(ctx context.Context, id string) error {
	return c.socket.writeJSON(ctx, struct {
		MessageID string `json:"messageId"`
	}{MessageID: id})
}

// Close closes the consumer's socket.
func (c *Consumer) Close() error {
	return c.socket.close()
}
