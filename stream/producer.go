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
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Producer publishes messages to a stream topic.
type Producer struct {
	socket *socket
	// mu serializes Send so that acknowledgements are read by the call
	// that is waiting for them.
	mu sync.Mutex
}

// NewProducer connects a producer to target.
func NewProducer(ctx context.Context, target Target, opts ...Option) (*Producer, error) {
	var options options
	for _, opt := range opts {
		opt.apply(&options)
	}
	options.applyDefaults()
	rawURL, err := target.ProducerURL()
	if err != nil {
		return nil, err
	}
	s, err := dial(ctx, rawURL, target.Header, &options)
	if err != nil {
		return nil, err
	}
	return &Producer{socket: s}, nil
}

type produceMessage struct {
	Payload    string            `json:"payload"`
	Properties map[string]string `json:"properties,omitempty"`
	Context    string            `json:"context"`
}

type produceAck struct {
	Result    string `json:"result"`
	MessageID string `json:"messageId"`
	ErrorMsg  string `json:"errorMsg"`
	Context   string `json:"context"`
}

// Send publishes payload and waits for the server's acknowledgement. It
// returns the ID the server assigned to the message.
func (p *Producer) Send(ctx context.Context, payload []byte, properties map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := produceMessage{
		Payload:    base64.StdEncoding.EncodeToString(payload),
		Properties: properties,
		Context:    uuid.NewString(),
	}
	if err := p.socket.writeJSON(ctx, msg); err != nil {
		return "", err
	}
	for {
		data, err := p.socket.next(ctx)
		if err != nil {
			return "", err
		}
		var ack produceAck
		if err := json.Unmarshal(data, &ack); err != nil {
			return "", errors.Wrap(err, "stream: decoding acknowledgement")
		}
		if ack.Context != msg.Context {
			// Late acknowledgement of a Send whose caller gave up.
			p.socket.log.V(1).Info("dropping stale acknowledgement", "context", ack.Context)
			continue
		}
		if ack.Result != "ok" {
			return "", errors.Newf("stream: send failed: %s %s", ack.Result, ack.ErrorMsg)
		}
		return ack.MessageID, nil
	}
}

// Close closes the producer's socket.
func (p *Producer) Close() error {
	return p.socket.close()
}
