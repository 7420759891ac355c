package realtime

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/erancha/RENTracker-sub000/internal/auth"
	"github.com/erancha/RENTracker-sub000/internal/registry"
	"github.com/erancha/RENTracker-sub000/internal/storage"
	"github.com/erancha/RENTracker-sub000/pkg/json"
	"github.com/erancha/RENTracker-sub000/pkg/metrics"
)

// Gateway orchestrates the lifecycle of client connections on one
// instance: handshake, token validation, registry registration, initial
// state push, command dispatch, and teardown. All state is instance-scoped
// so tests can run several gateways in one process.
type Gateway struct {
	instanceID string
	validator  *auth.Validator
	store      storage.Store
	registry   registry.Registry
	table      *Table
	dispatcher *Dispatcher
	router     *Router
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

// NewGateway wires the lifecycle manager for one instance.
func NewGateway(
	instanceID string,
	validator *auth.Validator,
	store storage.Store,
	reg registry.Registry,
	table *Table,
	dispatcher *Dispatcher,
	router *Router,
	allowedOrigins string,
	log *zap.Logger,
) *Gateway {
	return &Gateway{
		instanceID: instanceID,
		validator:  validator,
		store:      store,
		registry:   reg,
		table:      table,
		dispatcher: dispatcher,
		router:     router,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins, log),
		},
		log: log.With(zap.String("module", "gateway")),
	}
}

// HandleWS upgrades the HTTP request and runs the connection to
// completion. The token travels as a query parameter because a browser's
// WebSocket handshake cannot carry custom headers.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Info("upgrade failed", zap.Error(err))
		return
	}

	sock := newSocket(conn, g.log)
	go sock.writePump()

	identity, err := g.validator.Validate(r.URL.Query().Get("token"))
	if err != nil {
		metrics.TokenErrors.WithLabelValues(tokenErrorType(err)).Inc()
		g.log.Info("handshake rejected", zap.Error(err))
		sock.Send(errorFrame(err.Error()))
		sock.Close()
		return
	}

	g.runConnection(r.Context(), sock, identity)
}

// runConnection takes a validated connection through Active to Closed.
func (g *Gateway) runConnection(ctx context.Context, sock *socket, identity auth.Identity) {
	log := g.log.With(zap.String("user_id", identity.UserID))

	// Idempotent profile upsert; storage trouble here also dooms the
	// initial read, but the socket still gets its error frames.
	if err := g.store.EnsureUser(ctx, identity.UserID, identity.DisplayName); err != nil {
		log.Warn("user upsert failed", zap.Error(err))
	}

	// Best-effort: a failed registry write must not keep the socket from
	// going Active. The user is unreachable cross-instance until a later
	// connect succeeds.
	if err := g.registry.Register(ctx, identity.UserID, g.instanceID, identity.DisplayName); err != nil {
		log.Warn("registry registration failed", zap.Error(err))
	}

	g.table.Put(identity.UserID, sock)
	metrics.ActiveConnections.Inc()
	log.Info("client connected", zap.Int("connections", g.table.Len()))

	g.pushInitialState(ctx, sock, identity.UserID)

	// Blocks until the socket closes; commands for this connection are
	// processed strictly in arrival order.
	g.readPump(ctx, sock, identity.UserID)

	g.disconnect(sock, identity.UserID)
}

// pushInitialState sends the new socket a scoped read of the user's
// apartments, equivalent to an explicit read command. Only the new socket
// receives it.
func (g *Gateway) pushInitialState(ctx context.Context, sock *socket, userID string) {
	cmd := Command{
		Type:   ActionRead,
		Params: CommandParams{Resource: string(storage.ResourceApartment)},
	}
	frame, _, err := g.dispatcher.Execute(ctx, cmd, userID)
	if err != nil {
		g.log.Warn("initial state read failed", zap.String("user_id", userID), zap.Error(err))
		sock.Send(errorFrame("initial state unavailable"))
		return
	}
	sock.Send(frame)
}

// readPump reads and executes commands until the socket closes. Execution
// is synchronous per connection; other connections run their own pumps
// concurrently and are never blocked by this one.
func (g *Gateway) readPump(ctx context.Context, sock *socket, userID string) {
	sock.conn.SetReadLimit(maxMessageSize)
	sock.conn.SetReadDeadline(time.Now().Add(pongWait))
	sock.conn.SetPongHandler(func(string) error {
		sock.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := sock.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Warn("read error", zap.String("user_id", userID), zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			g.log.Warn("malformed client message", zap.String("user_id", userID), zap.Error(err))
			sock.Send(errorFrame("malformed message"))
			continue
		}

		frame, targets, err := g.dispatcher.Execute(ctx, msg.Command, userID)
		if err != nil {
			// Failures are reported to the sending connection only, never
			// broadcast.
			sock.Send(errorFrame(err.Error()))
			continue
		}
		g.router.Route(ctx, frame, targets)
	}
}

// disconnect tears the connection down: local table first, then the shared
// registry. The registry delete is best-effort; a stale entry degrades
// remote resolution to "no delivery" and is overwritten on next connect.
func (g *Gateway) disconnect(sock *socket, userID string) {
	g.table.Remove(userID, sock)
	sock.Close()
	metrics.ActiveConnections.Dec()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.registry.Deregister(ctx, userID); err != nil {
		g.log.Warn("registry deregistration failed", zap.String("user_id", userID), zap.Error(err))
	}
	g.log.Info("client disconnected", zap.String("user_id", userID), zap.Int("connections", g.table.Len()))
}

func tokenErrorType(err error) string {
	if errors.Is(err, auth.ErrTokenExpired) {
		return "expired"
	}
	return "invalid"
}

// originChecker builds the upgrader's origin check from a comma-separated
// allow list. Non-browser clients send no Origin and are admitted.
func originChecker(allowed string, log *zap.Logger) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if allowed == "" || allowed == "*" {
			return true
		}

		originHost := origin
		if i := strings.Index(originHost, "://"); i >= 0 {
			originHost = originHost[i+3:]
		}
		if i := strings.Index(originHost, ":"); i >= 0 {
			originHost = originHost[:i]
		}

		for _, a := range strings.Split(allowed, ",") {
			a = strings.TrimSpace(a)
			if a == "*" || a == originHost {
				return true
			}
			if strings.HasPrefix(a, "*.") && strings.HasSuffix(originHost, a[1:]) {
				return true
			}
		}
		log.Warn("rejected connection origin", zap.String("origin", origin))
		return false
	}
}
