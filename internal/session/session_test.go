package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/marketplace-client/internal/model"
	"github.com/fairyhunter13/marketplace-client/internal/notify"
	"github.com/fairyhunter13/marketplace-client/internal/push"
)

// unsignedToken builds a JWT-shaped token with the given claims and an empty
// signature, enough for the unverified role decode.
func unsignedToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	enc := func(v any) string {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return base64.RawURLEncoding.EncodeToString(b)
	}
	header := map[string]string{"alg": "none", "typ": "JWT"}
	return enc(header) + "." + enc(claims) + "."
}

func TestRoleFromToken(t *testing.T) {
	role, err := RoleFromToken(unsignedToken(t, map[string]any{"role": "buyer", "sub": "u1"}))
	require.NoError(t, err)
	assert.Equal(t, model.RoleBuyer, role)

	role, err = RoleFromToken(unsignedToken(t, map[string]any{"role": "supplier"}))
	require.NoError(t, err)
	assert.Equal(t, model.RoleSupplier, role)

	_, err = RoleFromToken(unsignedToken(t, map[string]any{"role": "admin"}))
	require.Error(t, err)

	_, err = RoleFromToken("garbage")
	require.Error(t, err)
}

type countingDialer struct {
	mu    sync.Mutex
	dials int
	conn  *scriptConn
}

type scriptConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newScriptConn() *scriptConn {
	return &scriptConn{frames: make(chan []byte, 8), closed: make(chan struct{})}
}

func (c *scriptConn) ReadMessage() ([]byte, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.closed:
		return nil, errors.New("closed")
	}
}

func (c *scriptConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (d *countingDialer) Dial(ctx context.Context, url string, header http.Header) (push.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.conn == nil {
		return nil, errors.New("refused")
	}
	return d.conn, nil
}

func (d *countingDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func testCfg(role model.Role) Config {
	return Config{
		Role:         role,
		PushURL:      "ws://test/ws",
		SessionToken: "tok",
		Backoff:      5 * time.Millisecond,
		MaxRetries:   1,
		Buffer:       8,
		DismissAfter: time.Minute,
	}
}

func TestSupplierNeverSubscribes(t *testing.T) {
	d := &countingDialer{conn: newScriptConn()}
	s := New(testCfg(model.RoleSupplier), d)
	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, push.StateDisconnected, s.PushState())
	assert.Equal(t, 0, d.dialCount())
	s.Close()
}

func TestBuyerEventsReachReconciler(t *testing.T) {
	conn := newScriptConn()
	d := &countingDialer{conn: conn}
	s := New(testCfg(model.RoleBuyer), d)
	s.Start(context.Background())
	defer s.Close()

	conn.frames <- []byte(`{"event":"product_created","data":{"product_id":"p5","product_name":"fresh"}}`)

	require.Eventually(t, func() bool {
		_, ok := s.Notifications().Visible(notify.KindProduct)
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	n, _ := s.Notifications().Visible(notify.KindProduct)
	assert.Equal(t, "fresh", n.Body)
	assert.Equal(t, push.StateConnected, s.PushState())
}

func TestCloseReleasesSubscription(t *testing.T) {
	conn := newScriptConn()
	d := &countingDialer{conn: conn}
	s := New(testCfg(model.RoleBuyer), d)
	s.Start(context.Background())
	require.Eventually(t, func() bool {
		return s.PushState() == push.StateConnected
	}, 2*time.Second, 5*time.Millisecond)

	s.Close()
	assert.Equal(t, push.StateDisconnected, s.PushState())
	assert.Empty(t, s.Notifications().Snapshot())
	// second close is a no-op
	s.Close()
}
