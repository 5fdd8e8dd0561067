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
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const writeWait = 10 * time.Second

// socket owns one WebSocket connection. A background reader hands frames
// to next, and a background pinger keeps the connection alive.
type socket struct {
	conn     *websocket.Conn
	log      logr.Logger
	incoming chan []byte
	done     chan struct{}
	group    errgroup.Group

	// readErr is written before incoming is closed, so it can only be read
	// once incoming is observed closed.
	readErr error

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func dial(ctx context.Context, rawURL string, header http.Header, opts *options) (*socket, error) {
	conn, resp, err := opts.dialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
			_ = resp.Body.Close()
			return nil, errors.Wrapf(err, "stream: dialing %s: HTTP %d %s", rawURL, resp.StatusCode, body)
		}
		return nil, errors.Wrapf(err, "stream: dialing %s", rawURL)
	}
	s := &socket{
		conn:     conn,
		log:      opts.logger.WithValues("url", rawURL),
		incoming: make(chan []byte),
		done:     make(chan struct{}),
	}
	ticker := opts.clock.NewTicker(opts.pingInterval)
	s.group.Go(s.readLoop)
	s.group.Go(func() error {
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return nil
			case <-ticker.Chan():
				deadline := time.Now().Add(writeWait)
				if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					// Expected once the other end goes away; the reader
					// reports the failure.
					s.log.V(1).Info("failed to write ping", "error", err.Error())
					return nil
				}
			}
		}
	})
	s.log.V(1).Info("stream socket open")
	return s, nil
}

func (s *socket) readLoop() error {
	defer close(s.incoming)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.readErr = err
			return nil
		}
		select {
		case s.incoming <- data:
		case <-s.done:
			s.readErr = ErrClosed
			return nil
		}
	}
}

// next returns the next frame read from the socket.
func (s *socket) next(ctx context.Context) ([]byte, error) {
	select {
	case data, ok := <-s.incoming:
		if !ok {
			return nil, s.terminalErr()
		}
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *socket) terminalErr() error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	if websocket.IsCloseError(s.readErr, websocket.CloseNormalClosure) {
		return errors.Wrapf(ErrClosed, "by peer: %v", s.readErr)
	}
	return errors.Wrap(s.readErr, "stream: reading")
}

func (s *socket) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "stream: encoding message")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return errors.Wrap(err, "stream: writing")
	}
	return errors.Wrap(s.conn.WriteMessage(websocket.TextMessage, data), "stream: writing")
}

func (s *socket) close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		// Tell the other end we are closing.
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		s.closeErr = s.conn.Close()
		_ = s.group.Wait()
		s.log.V(1).Info("stream socket closed")
	})
	return s.closeErr
}
