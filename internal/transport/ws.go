package transport

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ysy950803/tgflow/internal/errors"
	"github.com/ysy950803/tgflow/internal/wire"
)

// Frame types exchanged with the gateway. The gateway pushes "updates"
// frames on its own schedule; everything else is a request/reply pair
// correlated by id.
const (
	frameUpdates   = "updates"
	frameRPC       = "rpc"
	frameRPCResult = "rpc_result"
)

type frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *frameError     `json:"error,omitempty"`
}

type frameError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResult struct {
	payload json.RawMessage
	err     error
}

// WS is the websocket gateway transport. A single read loop owns the
// connection's receive side and routes frames either to the update queue or
// to the pending call waiting on the frame's id. Writes are serialized with
// a mutex since gorilla allows one concurrent writer.
type WS struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	updates chan *wire.Updates

	mu      sync.Mutex
	pending map[string]chan rpcResult

	closed    chan struct{}
	closeOnce sync.Once
	readErr   error
}

// Dial connects to the gateway and starts the read loop.
func Dial(ctx context.Context, url string) (*WS, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.DialFailed(url, err)
	}
	t := &WS{
		conn:    conn,
		updates: make(chan *wire.Updates, 16),
		pending: make(map[string]chan rpcResult),
		closed:  make(chan struct{}),
	}
	go t.readLoop()
	log.Info().Str("url", url).Msg("gateway connected")
	return t, nil
}

func (t *WS) readLoop() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.shutdown(errors.RecvFailed(err))
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.shutdown(errors.DecodeFailed(err))
			return
		}
		switch f.Type {
		case frameUpdates:
			var box wire.Updates
			if err := json.Unmarshal(f.Payload, &box); err != nil {
				t.shutdown(errors.DecodeFailed(err))
				return
			}
			select {
			case t.updates <- &box:
			case <-t.closed:
				return
			}
		case frameRPCResult:
			t.resolve(&f)
		default:
			log.Warn().Str("type", f.Type).Msg("unknown gateway frame, dropped")
		}
	}
}

func (t *WS) resolve(f *frame) {
	t.mu.Lock()
	ch, ok := t.pending[f.ID]
	delete(t.pending, f.ID)
	t.mu.Unlock()
	if !ok {
		log.Warn().Str("id", f.ID).Msg("rpc result without a pending call, dropped")
		return
	}
	res := rpcResult{payload: f.Payload}
	if f.Error != nil {
		res.err = errors.New(f.Error.Code, f.Error.Message)
	}
	ch <- res
}

// shutdown fails every pending call and unblocks Recv. The first error wins.
func (t *WS) shutdown(err error) {
	t.closeOnce.Do(func() {
		t.readErr = err
		close(t.closed)
	})
	t.mu.Lock()
	for id, ch := range t.pending {
		delete(t.pending, id)
		ch <- rpcResult{err: errors.ErrTransportClosed}
	}
	t.mu.Unlock()
}

// Recv blocks for the next pushed update batch.
func (t *WS) Recv(ctx context.Context) (*wire.Updates, error) {
	select {
	case box := <-t.updates:
		return box, nil
	case <-t.closed:
		return nil, t.readErr
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// invoke sends one rpc frame and blocks for its correlated reply. out, when
// non-nil, receives the decoded payload.
func (t *WS) invoke(ctx context.Context, method string, params any, out any) error {
	payload, err := json.Marshal(params)
	if err != nil {
		return errors.InvalidArg(method)
	}
	id := uuid.NewString()
	ch := make(chan rpcResult, 1)

	t.mu.Lock()
	select {
	case <-t.closed:
		t.mu.Unlock()
		return t.readErr
	default:
	}
	t.pending[id] = ch
	t.mu.Unlock()

	f := frame{Type: frameRPC, ID: id, Method: method, Payload: payload}
	t.writeMu.Lock()
	err = t.conn.WriteJSON(f)
	t.writeMu.Unlock()
	if err != nil {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		return errors.InvokeFailed(method, err)
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return res.err
		}
		if out != nil {
			if err := json.Unmarshal(res.payload, out); err != nil {
				return errors.DecodeFailed(err)
			}
		}
		return nil
	case <-t.closed:
		return t.readErr
	case <-ctx.Done():
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		return ctx.Err()
	}
}

func (t *WS) SendMessage(ctx context.Context, req *wire.SendMessageRequest) (*wire.UpdateShortSentMessage, error) {
	var ack wire.UpdateShortSentMessage
	if err := t.invoke(ctx, "messages.sendMessage", req, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

func (t *WS) EditMessage(ctx context.Context, req *wire.EditMessageRequest) error {
	return t.invoke(ctx, "messages.editMessage", req, nil)
}

func (t *WS) DeleteMessages(ctx context.Context, req *wire.DeleteMessagesRequest) error {
	return t.invoke(ctx, "messages.deleteMessages", req, nil)
}

func (t *WS) ForwardMessages(ctx context.Context, req *wire.ForwardMessagesRequest) error {
	return t.invoke(ctx, "messages.forwardMessages", req, nil)
}

func (t *WS) SendReaction(ctx context.Context, req *wire.SendReactionRequest) error {
	return t.invoke(ctx, "messages.sendReaction", req, nil)
}

func (t *WS) PinMessage(ctx context.Context, req *wire.PinMessageRequest) error {
	return t.invoke(ctx, "messages.updatePinnedMessage", req, nil)
}

func (t *WS) ReadHistory(ctx context.Context, req *wire.ReadHistoryRequest) error {
	return t.invoke(ctx, "messages.readHistory", req, nil)
}

func (t *WS) GetMessages(ctx context.Context, req *wire.GetMessagesRequest) (*wire.Messages, error) {
	var resp wire.Messages
	if err := t.invoke(ctx, "messages.getMessages", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (t *WS) Close() error {
	t.shutdown(errors.ErrTransportClosed)
	t.writeMu.Lock()
	_ = t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.writeMu.Unlock()
	return t.conn.Close()
}
