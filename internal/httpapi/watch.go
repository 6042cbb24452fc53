package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	// watchBuffer is how many undelivered pushes a client may accumulate
	// before it is considered too slow and disconnected.
	watchBuffer = 8

	watchWriteTimeout = 5 * time.Second
)

// watchClient is one /v1/watch subscriber. Pushes go through msgs with a
// non-blocking send; a full buffer trips closeSlow.
type watchClient struct {
	id        string
	msgs      chan []byte
	closeSlow func()
}

// handleWatch upgrades the connection and pumps pushes until the client
// goes away. Inbound frames are discarded.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "handler exited")

	cl := &watchClient{
		id:   uuid.NewString(),
		msgs: make(chan []byte, watchBuffer),
		closeSlow: func() {
			conn.Close(websocket.StatusPolicyViolation, "too slow to keep up with updates")
		},
	}
	s.addWatcher(cl)
	defer s.removeWatcher(cl.id)

	s.logger.Info("watch client connected", zap.String("client", cl.id))
	defer s.logger.Info("watch client disconnected", zap.String("client", cl.id))

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case msg := <-cl.msgs:
			if err := writeWithTimeout(ctx, conn, msg); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func writeWithTimeout(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, watchWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}

// NotifyFetchComplete pushes the current display list to every watch
// client. Sends never block: a client whose buffer is full is closed
// instead of stalling the caller.
func (s *Server) NotifyFetchComplete() {
	payload, err := json.Marshal(itemsResponse{Items: Render(s.model.GetItemsForDisplay())})
	if err != nil {
		s.logger.Error("encode watch update", zap.Error(err))
		return
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, cl := range s.watchers {
		select {
		case cl.msgs <- payload:
		default:
			s.logger.Debug("watch client too slow", zap.String("client", cl.id))
			go cl.closeSlow()
		}
	}
}

// WatcherCount returns the number of connected watch clients.
func (s *Server) WatcherCount() int {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return len(s.watchers)
}

func (s *Server) addWatcher(cl *watchClient) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.watchers[cl.id] = cl
}

func (s *Server) removeWatcher(id string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	delete(s.watchers, id)
}
