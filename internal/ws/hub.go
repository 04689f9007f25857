package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"log/slog"

	"github.com/google/uuid"

	"codeshare/internal/app"
	"codeshare/internal/exec"
	"codeshare/internal/room"
	"codeshare/internal/session"
	"codeshare/pkg/metrics"
	"codeshare/pkg/ratelimit"
)

// Runner executes code remotely. Satisfied by *exec.Client; tests swap in a
// double.
type Runner interface {
	Execute(ctx context.Context, language, version, code string) (exec.Result, error)
}

// client is one connected socket: its identity, its session state machine,
// and its outbound queue. The hub never writes to a socket directly; it
// enqueues and the connection's write loop drains.
type client struct {
	id      string
	out     chan []byte
	sess    *session.Session
	limiter *ratelimit.Bucket
}

// send enqueues without blocking; a client that cannot keep up loses frames
// rather than stalling the room.
func (c *client) send(b []byte) {
	select {
	case c.out <- b:
	default:
	}
}

// Hub is the coordination core. All membership mutation and the broadcasts
// it triggers happen under one mutex, so a join/leave/move is atomic as far
// as any observer can tell and per-room broadcasts stay in causal order.
// The only suspending operation, the execute call, runs outside the lock.
type Hub struct {
	log    *slog.Logger
	reg    *room.Registry
	runner Runner
	cfg    app.Config

	mu    sync.Mutex
	conns map[string]map[*client]struct{} // joined clients by room key
}

func NewHub(logger *slog.Logger, reg *room.Registry, runner Runner, cfg app.Config) *Hub {
	return &Hub{
		log:    logger,
		reg:    reg,
		runner: runner,
		cfg:    cfg,
		conns:  map[string]map[*client]struct{}{},
	}
}

func (h *Hub) newClient() *client {
	return &client{
		id:      uuid.NewString(),
		out:     make(chan []byte, 256),
		sess:    session.New(),
		limiter: ratelimit.NewBucket(h.cfg.WSEventsPerSec, h.cfg.WSEventBurst),
	}
}

// ServeWS handles a new /ws connection for its whole lifetime.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sock, err := Accept(w, r)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}

	c := h.newClient()
	conn := NewConn(sock)
	metrics.ActiveConnections.Inc()
	h.log.Info("ws.connect", "conn", c.id)

	go conn.WriteLoop(ctx, c.out)

	for {
		payload, ok := conn.Read(ctx)
		if !ok {
			break
		}
		if !c.limiter.Allow() {
			continue // over budget, drop the event
		}
		h.handleEvent(c, payload)
	}

	// Transport teardown behaves exactly like an explicit leave.
	h.handleLeave(c)
	_ = conn.Close()
	metrics.ActiveConnections.Dec()
	h.log.Info("ws.disconnect", "conn", c.id)
}

// handleEvent dispatches one inbound frame. Undecodable frames, unknown
// events, and payloads missing required fields are dropped without touching
// any state.
func (h *Hub) handleEvent(c *client, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.log.Debug("ws.frame.bad", "conn", c.id, "err", err)
		return
	}

	switch env.Event {
	case EventJoin:
		var p joinPayload
		if json.Unmarshal(env.Data, &p) != nil || p.RoomID == "" || p.Username == "" {
			return
		}
		h.handleJoin(c, p)
	case EventCodeChange:
		var p codeChangePayload
		if json.Unmarshal(env.Data, &p) != nil || p.RoomID == "" {
			return
		}
		h.relay(p.RoomID, c, encode(EventCodeUpdate, p.Code))
	case EventRunCode:
		var p codeChangePayload
		if json.Unmarshal(env.Data, &p) != nil || p.RoomID == "" {
			return
		}
		h.broadcast(p.RoomID, encode(EventCodeExecuted, p.Code))
	case EventTabSwitch:
		var p tabSwitchPayload
		if json.Unmarshal(env.Data, &p) != nil || p.RoomID == "" || p.Username == "" || p.State == "" {
			return
		}
		h.relay(p.RoomID, c, encode(EventTabStatus, tabStatusPayload{Username: p.Username, State: p.State}))
	case EventLeaveRoom:
		h.handleLeave(c)
	case EventTyping:
		var p typingPayload
		if json.Unmarshal(env.Data, &p) != nil || p.RoomID == "" || p.Username == "" {
			return
		}
		h.relay(p.RoomID, c, encode(EventUserTyping, p.Username))
	case EventLanguageChange:
		var p languageChangePayload
		if json.Unmarshal(env.Data, &p) != nil || p.RoomID == "" || p.Language == "" {
			return
		}
		// Authoritative language state: everyone converges, sender included.
		h.broadcast(p.RoomID, encode(EventLanguageUpdate, p.Language))
	case EventCompileCode:
		var p compileCodePayload
		if json.Unmarshal(env.Data, &p) != nil || p.RoomID == "" {
			return
		}
		h.handleCompile(p)
	default:
		h.log.Debug("ws.event.unknown", "conn", c.id, "event", env.Event)
		return
	}
	metrics.EventsTotal.WithLabelValues(env.Event).Inc()
}

// handleJoin moves the client into a room. If it was already in one, the
// old room's leave side effects run first, all under the same lock, so no
// observer sees membership in both rooms or a half-completed move.
func (h *Hub) handleJoin(c *client, p joinPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev, moved := c.sess.Join(p.RoomID, p.Username)
	if moved {
		h.detachLocked(c, prev)
	}

	h.reg.AddMember(p.RoomID, p.Username)
	set := h.conns[p.RoomID]
	if set == nil {
		set = map[*client]struct{}{}
		h.conns[p.RoomID] = set
	}
	set[c] = struct{}{}

	h.broadcastLocked(p.RoomID, encode(EventUserJoined, h.reg.MembersOf(p.RoomID)), nil)
	metrics.ActiveRooms.Set(float64(h.reg.Len()))
	h.log.Debug("ws.join", "conn", c.id, "room", p.RoomID, "user", p.Username)
}

// handleLeave runs the leave side effects for the client's current room.
// A no-op when the client never joined, so double-leave and a disconnect
// after leaveroom are harmless.
func (h *Hub) handleLeave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev, ok := c.sess.Leave()
	if !ok {
		return
	}
	h.detachLocked(c, prev)
	metrics.ActiveRooms.Set(float64(h.reg.Len()))
	h.log.Debug("ws.leave", "conn", c.id, "room", prev.RoomKey, "user", prev.Username)
}

// detachLocked removes a membership and announces the shrunken member list
// to whoever remains. Caller holds h.mu.
func (h *Hub) detachLocked(c *client, m session.Membership) {
	h.reg.RemoveMember(m.RoomKey, m.Username)
	if set := h.conns[m.RoomKey]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, m.RoomKey)
		}
	}
	h.broadcastLocked(m.RoomKey, encode(EventUserJoined, h.reg.MembersOf(m.RoomKey)), nil)
}

// handleCompile proxies code to the execution service. The call runs on its
// own goroutine and its own context: the initiator disconnecting does not
// cancel it, and the result goes to whoever is in the room when it lands.
func (h *Hub) handleCompile(p compileCodePayload) {
	if !h.reg.Exists(p.RoomID) {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.ExecTimeout)
		defer cancel()

		res, err := h.runner.Execute(ctx, p.Language, p.Version, p.Code)
		if err != nil {
			metrics.ExecutionsTotal.WithLabelValues("failure").Inc()
			h.log.Warn("exec.failed", "room", p.RoomID, "language", p.Language, "err", err)
			h.broadcast(p.RoomID, encode(EventExecutionFailed, executionFailedPayload{Error: "execution failed"}))
			return
		}

		metrics.ExecutionsTotal.WithLabelValues("success").Inc()
		h.reg.SetLastOutput(p.RoomID, res.Output)

		// The full service response, passed through untouched.
		b, _ := json.Marshal(envelope{Event: EventCodeResponse, Data: res.Raw})
		h.broadcast(p.RoomID, b)
	}()
}

// relay sends to every other client in the room, never back to the sender.
func (h *Hub) relay(roomKey string, sender *client, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(roomKey, msg, sender)
}

// broadcast sends to every client in the room.
func (h *Hub) broadcast(roomKey string, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(roomKey, msg, nil)
}

func (h *Hub) broadcastLocked(roomKey string, msg []byte, except *client) {
	set := h.conns[roomKey]
	if len(set) == 0 {
		return
	}
	for c := range set {
		if c == except {
			continue
		}
		c.send(msg)
	}
	metrics.BroadcastsTotal.Inc()
}
