package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ankravcenko/medikeep/internal/common"
	"github.com/coder/websocket"
)

// Observe dials the backend change feed. Events arrive as JSON envelopes;
// the channel closes when the socket drops or ctx ends. Reconnecting is the
// caller's job (the sync engine wraps this in a backoff loop), so a single
// call maps to a single connection.
func (s *HTTPStore) Observe(ctx context.Context) (<-chan ChangeEvent, error) {
	access, _ := s.tokens()
	if access == "" {
		return nil, ErrUnauthorized
	}

	wsURL := strings.Replace(s.baseURL, "http", "ws", 1) + "/api/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: map[string][]string{
			common.AuthHeaderName: {common.BearerPrefix + access},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	events := make(chan ChangeEvent, 64)
	go func() {
		defer close(events)
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var e ChangeEvent
			if err := json.Unmarshal(data, &e); err != nil {
				// A malformed frame is dropped; the next snapshot
				// redelivers the document.
				continue
			}
			select {
			case events <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
