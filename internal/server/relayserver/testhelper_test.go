package relayserver

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/imrelay/internal/core/domain"
	"github.com/yndnr/imrelay/internal/core/service"
	"github.com/yndnr/imrelay/internal/telemetry/logger"
	"github.com/yndnr/imrelay/internal/telemetry/metric"
)

// sha1("secret")
const secretSHA1 = "e5e9fa1ba31ecd1ae84f75caaa474f3a663f05f4"

// fakeGateway records submitted commands and answers through a handler.
type fakeGateway struct {
	mu          sync.Mutex
	calls       []string
	inflight    int
	maxInflight int
	reconnects  int
	handler     func(command string) (string, error)

	notifications chan string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{notifications: make(chan string, 64)}
}

func (g *fakeGateway) Start(ctx context.Context) error { return nil }

func (g *fakeGateway) Submit(ctx context.Context, command string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, command)
	g.inflight++
	if g.inflight > g.maxInflight {
		g.maxInflight = g.inflight
	}
	h := g.handler
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.inflight--
		g.mu.Unlock()
	}()

	if h == nil {
		return "", nil
	}
	return h(command)
}

func (g *fakeGateway) Notifications() <-chan string { return g.notifications }

func (g *fakeGateway) Close() error { return nil }

func (g *fakeGateway) Reconnect(ctx context.Context) error {
	g.mu.Lock()
	g.reconnects++
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) setHandler(h func(string) (string, error)) {
	g.mu.Lock()
	g.handler = h
	g.mu.Unlock()
}

func (g *fakeGateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *fakeGateway) Reconnects() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reconnects
}

func (g *fakeGateway) MaxInflight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxInflight
}

// harness runs an Engine on a loopback listener.
type harness struct {
	t       *testing.T
	e       *Engine
	gw      *fakeGateway
	metrics *metric.Registry
	addr    string
	cancel  context.CancelFunc
	done    chan error
}

type harnessOption func(cfg *Config, authCfg *service.AuthServiceConfig)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	return newHarnessWithSetup(t, nil, opts...)
}

func newHarnessWithSetup(t *testing.T, setup func(e *Engine, gw *fakeGateway), opts ...harnessOption) *harness {
	t.Helper()

	cfg := DefaultConfig()
	cfg.WatchdogInterval = time.Hour
	cfg.HandshakeTimeout = 2 * time.Second
	cfg.WriteTimeout = 2 * time.Second
	authCfg := &service.AuthServiceConfig{Rate: 0, Burst: 1}
	for _, opt := range opts {
		opt(cfg, authCfg)
	}

	creds, err := domain.NewCredentials("alice", secretSHA1)
	if err != nil {
		t.Fatalf("NewCredentials() error = %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

	gw := newFakeGateway()
	reg := metric.NewRegistry()
	e := NewEngine(cfg, gw, service.NewAuthService(creds, authCfg), reg, logger.Discard())
	if setup != nil {
		setup(e, gw)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		t:       t,
		e:       e,
		gw:      gw,
		metrics: reg,
		addr:    ln.Addr().String(),
		cancel:  cancel,
		done:    make(chan error, 1),
	}
	go func() { h.done <- e.Run(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(5 * time.Second):
			t.Error("engine did not stop")
		}
	})
	return h
}

// testClient is a relay client speaking plain TCP.
type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func (h *harness) dial() *testClient {
	h.t.Helper()
	conn, err := net.Dial("tcp", h.addr)
	if err != nil {
		h.t.Fatalf("dial error = %v", err)
	}
	h.t.Cleanup(func() { conn.Close() })
	return &testClient{t: h.t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *testClient) send(lines ...string) {
	c.t.Helper()
	payload := strings.Join(lines, "\n") + "\n"
	if _, err := c.conn.Write([]byte(payload)); err != nil {
		c.t.Fatalf("write error = %v", err)
	}
}

// readLine returns the next raw line including its terminator.
func (c *testClient) readLine(timeout time.Duration) (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	return c.r.ReadString('\n')
}

func (c *testClient) expect(want string) {
	c.t.Helper()
	got, err := c.readLine(2 * time.Second)
	if err != nil {
		c.t.Fatalf("expected %q, read error = %v", want, err)
	}
	if got != want+"\n" {
		c.t.Fatalf("received %q, want %q", got, want+"\n")
	}
}

// expectNothing asserts that no data arrives within d.
func (c *testClient) expectNothing(d time.Duration) {
	c.t.Helper()
	got, err := c.readLine(d)
	var netErr net.Error
	if err == nil || !errors.As(err, &netErr) || !netErr.Timeout() {
		c.t.Fatalf("expected no data, got %q (err = %v)", got, err)
	}
}

// expectClosed asserts that the relay closed the connection.
func (c *testClient) expectClosed() {
	c.t.Helper()
	got, err := c.readLine(2 * time.Second)
	if err == nil {
		c.t.Fatalf("expected connection close, got %q", got)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		c.t.Fatal("expected connection close, read timed out")
	}
}

// login authenticates a new client and waits until the engine has
// registered it as the active sink.
func (h *harness) login() *testClient {
	h.t.Helper()
	c := h.dial()
	c.send("USERNAME alice", "PASSWORD secret")
	c.expect("PASSWORD OK")

	local := c.conn.LocalAddr().String()
	h.waitFor("client registered", func(st Status) bool {
		for _, s := range st.Sessions {
			if s.RemoteAddr == local && s.Active {
				return true
			}
		}
		return false
	})
	return c
}

func (h *harness) status() Status {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := h.e.Status(ctx)
	if err != nil {
		h.t.Fatalf("Status() error = %v", err)
	}
	return st
}

func (h *harness) waitFor(what string, cond func(Status) bool) {
	h.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond(h.status()) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.t.Fatalf("timed out waiting for %s", what)
}

func waitForCalls(t *testing.T, gw *fakeGateway, n int) []string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if calls := gw.Calls(); len(calls) >= n {
			return calls
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d gateway calls, got %v", n, gw.Calls())
	return nil
}

// selfSignedCert returns a certificate valid for 127.0.0.1 and a pool
// trusting it.
func selfSignedCert(t *testing.T) (tls.Certificate, *x509.CertPool) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "imrelay test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate() error = %v", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate() error = %v", err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}, pool
}
