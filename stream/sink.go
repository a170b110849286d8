package stream

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/atarist-core/emucore/logger"
)

// Sink is the transport side of a subscription: it receives each drained
// event's metadata and, when present, the binary payload that must follow
// it 1:1.
type Sink interface {
	WriteEvent(ev Event) error
}

// WebsocketSink frames events onto a websocket connection: the metadata as
// a JSON text message, the binary payload (if any) as the immediately
// following binary message.
type WebsocketSink struct {
	Conn *websocket.Conn
}

func (s *WebsocketSink) WriteEvent(ev Event) error {
	if err := s.Conn.WriteJSON(ev.Payload); err != nil {
		return err
	}
	if ev.Binary != nil {
		if err := s.Conn.WriteMessage(websocket.BinaryMessage, ev.Binary); err != nil {
			return err
		}
	}
	return nil
}

// Drain pumps events from p into sink until ctx is cancelled or the sink
// errors. It runs on the transport's goroutine, never the emulation
// task's. A sink error closes the publisher and ends the drain.
func Drain(ctx context.Context, p *Publisher, sink Sink) error {
	for {
		for {
			ev, ok := p.Next()
			if !ok {
				break
			}
			if err := sink.WriteEvent(ev); err != nil {
				p.Close()
				logger.Logf(logger.Allow, "stream", "%s: sink failed: %v", p.Name(), err)
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.Notify():
		}
	}
}
