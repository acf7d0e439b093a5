package authoritymock

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"pkt.systems/pslog"

	"pkt.systems/courtside/schema"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	maxFrameSize = 64 << 10
	sendDepth    = 64
)

// Server exposes a Scoreboard over the WebSocket Command Channel.
type Server struct {
	board    *Scoreboard
	log      pslog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	peers map[*peer]struct{}
	// Commands records every command received, for tests.
	commands []schema.CommandRequest
}

type peer struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (p *peer) close() {
	p.once.Do(func() { close(p.send) })
}

// NewServer returns a server publishing board.
func NewServer(board *Scoreboard, log pslog.Logger) *Server {
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Server{
		board: board,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		peers: make(map[*peer]struct{}),
	}
}

// Handler returns the HTTP handler serving /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// Board returns the served scoreboard.
func (s *Server) Board() *Scoreboard {
	return s.board
}

// ServeHTTP upgrades the request and serves one operator connection.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("mock authority upgrade failed", "err", err)
		return
	}
	p := &peer{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendDepth)}
	s.mu.Lock()
	s.peers[p] = struct{}{}
	count := len(s.peers)
	s.mu.Unlock()
	s.log.Info("mock authority peer connected", "peer", p.id, "peers", count)

	go s.writePump(p)
	s.readPump(p)
}

// Peers reports the number of connected peers.
func (s *Server) Peers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// Commands returns a copy of the commands received so far.
func (s *Server) Commands() []schema.CommandRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.CommandRequest, len(s.commands))
	copy(out, s.commands)
	return out
}

// Broadcast publishes the current snapshot to every peer.
func (s *Server) Broadcast() {
	payload, err := s.board.Snapshot().Encode()
	if err != nil {
		s.log.Error("mock authority snapshot encode failed", "err", err)
		return
	}
	s.BroadcastRaw(payload)
}

// BroadcastRaw publishes payload verbatim as a stateUpdated frame.
func (s *Server) BroadcastRaw(payload []byte) {
	data, err := json.Marshal(schema.Frame{Type: schema.FrameStateUpdated, Payload: string(payload)})
	if err != nil {
		s.log.Error("mock authority frame encode failed", "err", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.peers {
		select {
		case p.send <- data:
		default:
			s.log.Warn("mock authority peer too slow, dropping", "peer", p.id)
			delete(s.peers, p)
			p.close()
		}
	}
}

// DropPeers closes every peer connection.
func (s *Server) DropPeers() {
	s.mu.Lock()
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
		delete(s.peers, p)
	}
	s.mu.Unlock()
	for _, p := range peers {
		_ = p.conn.Close()
		p.close()
	}
}

// Run ticks the scoreboard clocks and publishes every change until ctx ends.
func (s *Server) Run(ctx context.Context) {
	s.board.Run(ctx, s.Broadcast)
}

func (s *Server) unregister(p *peer) {
	s.mu.Lock()
	if _, ok := s.peers[p]; ok {
		delete(s.peers, p)
		p.close()
	}
	s.mu.Unlock()
}

func (s *Server) reply(p *peer, res schema.CommandResult) {
	data, err := json.Marshal(schema.Frame{Type: schema.FrameResult, Result: &res})
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.peers[p]; !ok {
		return
	}
	select {
	case p.send <- data:
	default:
		s.log.Warn("mock authority result dropped", "peer", p.id, "id", res.ID)
	}
}

func (s *Server) readPump(p *peer) {
	defer func() {
		s.unregister(p)
		_ = p.conn.Close()
		s.log.Info("mock authority peer disconnected", "peer", p.id)
	}()
	p.conn.SetReadLimit(maxFrameSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("mock authority read failed", "peer", p.id, "err", err)
			}
			return
		}
		_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.handle(p, data)
	}
}

func (s *Server) handle(p *peer, data []byte) {
	var frame schema.Frame
	if err := json.Unmarshal(data, &frame); err != nil || frame.Type != schema.FrameCommand || frame.Command == nil {
		s.log.Warn("mock authority frame ignored", "peer", p.id)
		return
	}
	req := *frame.Command
	s.mu.Lock()
	s.commands = append(s.commands, req)
	s.mu.Unlock()

	res, changed := s.board.Apply(req)
	log := s.log.With("peer", p.id, "command", req.Name)
	if !res.OK {
		log.Info("mock authority rejected command", "reason", res.Error)
	} else {
		log.Debug("mock authority applied command")
	}
	if req.Reply {
		s.reply(p, res)
	}
	if changed {
		s.Broadcast()
	}
}

func (s *Server) writePump(p *peer) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()
	for {
		select {
		case data, ok := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
