package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erancha/RENTracker-sub000/internal/auth"
	"github.com/erancha/RENTracker-sub000/internal/registry"
	"github.com/erancha/RENTracker-sub000/internal/storage"
	"github.com/erancha/RENTracker-sub000/pkg/json"
)

func testToken(t *testing.T, sub, name string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub, "name": name}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	// The gateway decodes without verifying, so the signing key is arbitrary.
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

type gatewayFixture struct {
	srv      *httptest.Server
	registry *registry.Memory
	table    *Table
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	store := storage.NewMemory()
	reg := registry.NewMemory()
	table := NewTable()
	router := NewRouter("i1", table, reg, &recorderPublisher{}, zap.NewNop())
	gw := NewGateway("i1", auth.NewValidator(), store, reg,
		table, NewDispatcher(store, zap.NewNop()), router, "", zap.NewNop())

	srv := httptest.NewServer(http.HandlerFunc(gw.HandleWS))
	t.Cleanup(srv.Close)
	return &gatewayFixture{srv: srv, registry: reg, table: table}
}

func (f *gatewayFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws?token=" + url.QueryEscape(token)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func TestHandshakeRejectsExpiredToken(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, testToken(t, "u1", "User One", time.Now().Add(-time.Hour)))

	frame := readFrame(t, conn)
	require.Contains(t, frame, "error")

	// The server closes after the error frame.
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.False(t, f.table.Has("u1"))
}

func TestHandshakeRejectsGarbageToken(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "not-a-token")

	frame := readFrame(t, conn)
	assert.Contains(t, frame, "error")
}

func TestConnectPushesInitialState(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, testToken(t, "landlord-1", "Landlord", time.Now().Add(time.Hour)))

	frame := readFrame(t, conn)
	require.Contains(t, frame, "dataRead")

	var payload map[string][]storage.Apartment
	require.NoError(t, json.Unmarshal(frame["dataRead"], &payload))
	assert.Empty(t, payload["apartment"])

	owner, err := f.registry.Resolve(context.Background(), "landlord-1")
	require.NoError(t, err)
	assert.Equal(t, "i1", owner)
}

func TestCommandRoundTrip(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, testToken(t, "landlord-1", "Landlord", time.Now().Add(time.Hour)))
	readFrame(t, conn) // initial state

	msg, err := json.Marshal(map[string]interface{}{
		"command": map[string]interface{}{
			"type": "create",
			"params": map[string]interface{}{
				"resource": "apartment",
				"data":     map[string]interface{}{"address": "5 Dizengoff St", "rooms": 2, "rent": 4800},
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))

	frame := readFrame(t, conn)
	require.Contains(t, frame, "dataCreated")

	var payload map[string]storage.Apartment
	require.NoError(t, json.Unmarshal(frame["dataCreated"], &payload))
	assert.Equal(t, "landlord-1", payload["apartment"].LandlordID)
	assert.Equal(t, "5 Dizengoff St", payload["apartment"].Address)
}

func TestUnsupportedCommandAnswersSenderOnly(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, testToken(t, "landlord-1", "Landlord", time.Now().Add(time.Hour)))
	readFrame(t, conn)

	msg := []byte(`{"command":{"type":"update","params":{"resource":"activity"}}}`)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))

	frame := readFrame(t, conn)
	assert.Contains(t, frame, "error")
}

func TestDisconnectCleansUp(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, testToken(t, "u1", "User One", time.Now().Add(time.Hour)))
	readFrame(t, conn)
	require.True(t, f.table.Has("u1"))

	conn.Close()

	require.Eventually(t, func() bool {
		if f.table.Has("u1") {
			return false
		}
		owner, _ := f.registry.Resolve(context.Background(), "u1")
		return owner == ""
	}, 3*time.Second, 20*time.Millisecond)
}
