package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/codalotl/blockdiff/internal/session"
	"github.com/codalotl/blockdiff/internal/simplelogger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one websocket connection. send is closed by the hub only.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// hub fans session events out to websocket clients.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	sess   *session.Session
	cancel func()
	done   chan struct{}
}

// stateMessage is sent to a client when it connects, so it starts from the current history.
type stateMessage struct {
	Kind  string          `json:"kind"`
	State historyResponse `json:"state"`
}

func newHub(sess *session.Session) *hub {
	events, cancel := sess.Subscribe(sendBuffer)
	h := &hub{
		clients: map[*client]struct{}{},
		sess:    sess,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.run(events)
	return h
}

func (h *hub) run(events <-chan session.Event) {
	defer close(h.done)
	for e := range events {
		msg, err := json.Marshal(e)
		if err != nil {
			simplelogger.Log("server: encode event: %v", err)
			continue
		}
		h.broadcast(msg)
	}
}

func (h *hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Too slow; drop it rather than block every other client.
			simplelogger.Log("server: dropping slow client %s", c.id)
			h.removeLocked(c)
		}
	}
}

func (h *hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) close() {
	h.cancel()
	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	c := &client{id: uuid.New().String(), send: make(chan []byte, sendBuffer)}
	st := h.sess.History()
	hello, err := json.Marshal(stateMessage{Kind: "state", State: historyResponse{State: st, CanUndo: st.CanUndo(), CanRedo: st.CanRedo()}})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	c.send <- hello

	// Register before the handshake completes so no event published after the client sees the upgrade is missed.
	if !h.add(c) {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		simplelogger.Log("server: websocket upgrade: %v", err)
		h.remove(c)
		return
	}
	c.conn = conn
	simplelogger.Log("server: client %s connected", c.id)

	go h.writePump(c)
	go h.readPump(c)
}

// readPump drains incoming frames so control messages (pong, close) are processed. Clients have nothing to say beyond that.
func (h *hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		simplelogger.Log("server: client %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				simplelogger.Log("server: client %s: %v", c.id, err)
			}
			return
		}
	}
}

func (h *hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}
