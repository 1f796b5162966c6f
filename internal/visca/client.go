package visca

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/muurk/ptzlink/internal/logging"
)

const (
	// DefaultDialTimeout bounds one connection attempt
	DefaultDialTimeout = 5 * time.Second

	// DefaultReplyTimeout bounds the wait for the camera's ack when the
	// caller's context has no earlier deadline
	DefaultReplyTimeout = 2 * time.Second

	// DefaultCompletionTimeout bounds the wait for completion once a command
	// is acked. Slow preset recalls run for tens of seconds.
	DefaultCompletionTimeout = 30 * time.Second
)

// Config configures a Client
type Config struct {
	// Address is the camera address (default: DefaultAddress)
	Address int

	DialTimeout       time.Duration
	ReplyTimeout      time.Duration
	CompletionTimeout time.Duration

	// Backoff returns a fresh retry policy for each connect loop
	// (default: exponential from 250ms up to 10s, retrying forever)
	Backoff func() backoff.BackOff

	// Dial opens the TCP connection (default: net.Dialer.DialContext)
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)

	// OnStatus is called on every status change. It runs with the Client's
	// lock held and must not call back into the Client.
	OnStatus func(status Status, reason string)
}

// session is one Open target: its connect loop, and the connection once up
type session struct {
	target string
	ctx    context.Context
	cancel context.CancelFunc
	ready  chan struct{}
	conn   net.Conn
	reader *bufio.Reader
}

// Client is a VISCA-over-TCP command channel to one camera at a time
type Client struct {
	cfg Config

	mu     sync.Mutex
	sess   *session
	status Status

	// sendMu keeps one request/reply exchange on the wire at a time and
	// guards pending
	sendMu sync.Mutex

	// pending holds sockets of acked commands whose completion was not
	// waited for on pendingConn; their late replies are dropped
	pending     map[byte]bool
	pendingConn net.Conn
}

// NewClient creates a Client. Nothing is dialed until Open.
func NewClient(cfg Config) *Client {
	if cfg.Address == 0 {
		cfg.Address = DefaultAddress
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReplyTimeout == 0 {
		cfg.ReplyTimeout = DefaultReplyTimeout
	}
	if cfg.CompletionTimeout == 0 {
		cfg.CompletionTimeout = DefaultCompletionTimeout
	}
	if cfg.Backoff == nil {
		cfg.Backoff = defaultBackoff
	}
	if cfg.Dial == nil {
		d := &net.Dialer{}
		cfg.Dial = d.DialContext
	}
	return &Client{cfg: cfg, status: StatusDisconnected}
}

func defaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Open starts connecting to host:port and returns immediately. Opening the
// target that is already connecting or connected does nothing; a different
// target replaces the current one.
func (c *Client) Open(host string, port int) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != nil && c.sess.target == addr {
		logging.Debug("VISCA open ignored, target unchanged", zap.String("target", addr))
		return
	}
	c.teardownLocked()

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{target: addr, ctx: ctx, cancel: cancel, ready: make(chan struct{})}
	c.sess = s
	c.setStatusLocked(StatusConnecting, "connecting")
	go c.connect(s)
}

// Close stops any connect loop, closes the connection and reports status
// with reason.
func (c *Client) Close(reason string, status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.setStatusLocked(status, reason)
}

// Status returns the last reported status
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Target returns the host:port being served, or "" when closed
func (c *Client) Target() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.target
}

// WaitReady blocks until the connection is up, the Client is closed or
// retargeted (ErrClosed), or ctx is done.
func (c *Client) WaitReady(ctx context.Context) error {
	c.mu.Lock()
	s := c.sess
	var ready chan struct{}
	if s != nil {
		ready = s.ready
	}
	c.mu.Unlock()

	if s == nil {
		return ErrClosed
	}
	select {
	case <-ready:
		return nil
	case <-s.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendCommand sends cmd and waits for its completion. A camera error reply
// is returned as *ProtocolError; channel faults as *TransportError. When the
// camera acked but ctx or the completion timeout ran out first, the error
// wraps ErrCompletionPending and the channel stays up.
func (c *Client) SendCommand(ctx context.Context, cmd Command) error {
	_, err := c.exchange(ctx, cmd.Payload)
	if err != nil {
		logging.Debug("VISCA command failed", zap.String("command", cmd.Name), zap.Error(err))
	}
	return err
}

// SendInquiry sends q and returns the data of the camera's answer
func (c *Client) SendInquiry(ctx context.Context, q Inquiry) (Answer, error) {
	reply, err := c.exchange(ctx, q.Payload)
	if err != nil {
		logging.Debug("VISCA inquiry failed", zap.String("inquiry", q.Name), zap.Error(err))
		return Answer{}, err
	}
	return Answer{Data: append([]byte(nil), reply.Data()...)}, nil
}

func (c *Client) teardownLocked() {
	s := c.sess
	if s == nil {
		return
	}
	c.sess = nil
	s.cancel()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

func (c *Client) setStatusLocked(status Status, reason string) {
	c.status = status
	target := ""
	if c.sess != nil {
		target = c.sess.target
	}
	logging.LogTransportStatus(target, status.String(), reason)
	if c.cfg.OnStatus != nil {
		c.cfg.OnStatus(status, reason)
	}
}

// connect dials s.target until it succeeds or s is cancelled
func (c *Client) connect(s *session) {
	var conn net.Conn
	attempt := func() error {
		ctx, cancel := context.WithTimeout(s.ctx, c.cfg.DialTimeout)
		defer cancel()
		cn, err := c.cfg.Dial(ctx, "tcp", s.target)
		if err != nil {
			return err
		}
		conn = cn
		return nil
	}
	notify := func(err error, next time.Duration) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.sess != s {
			return
		}
		logging.Debug("VISCA connect failed, retrying",
			zap.String("target", s.target),
			zap.Duration("next", next),
			zap.Error(err),
		)
		c.setStatusLocked(StatusConnectionFailure, err.Error())
	}

	if err := backoff.RetryNotify(attempt, backoff.WithContext(c.cfg.Backoff(), s.ctx), notify); err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != s || s.ctx.Err() != nil {
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.reader = bufio.NewReader(conn)
	c.setStatusLocked(StatusOK, "connected")
	close(s.ready)
}

// fault drops a broken connection and starts reconnecting to the same target
func (c *Client) fault(s *session, conn net.Conn, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != s || s.conn != conn {
		return
	}
	_ = conn.Close()
	s.conn = nil
	s.reader = nil
	s.ready = make(chan struct{})
	c.setStatusLocked(StatusConnecting, err.Error())
	go c.connect(s)
}

// exchange writes one packet and reads replies until completion or error
func (c *Client) exchange(ctx context.Context, payload []byte) (Packet, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	s := c.sess
	var conn net.Conn
	var r *bufio.Reader
	if s != nil {
		conn, r = s.conn, s.reader
	}
	c.mu.Unlock()

	if conn == nil {
		target := ""
		if s != nil {
			target = s.target
		}
		return nil, &TransportError{Op: "send", Target: target, Err: ErrNotConnected}
	}

	if c.pendingConn != conn {
		c.pending = make(map[byte]bool)
		c.pendingConn = conn
	}

	_ = conn.SetDeadline(replyDeadline(ctx, c.cfg.ReplyTimeout))
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	pkt := Encode(c.cfg.Address, payload)
	logging.LogPacket("send", pkt)
	if _, err := conn.Write(pkt); err != nil {
		c.fault(s, conn, err)
		return nil, &TransportError{Op: "write", Target: s.target, Err: err}
	}

	var (
		acked  bool
		socket byte
	)
	for {
		reply, err := ReadPacket(r)
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			if acked {
				c.pending[socket] = true
				logging.Debug("VISCA completion still pending",
					zap.Uint8("socket", socket),
					zap.Error(err),
				)
				return nil, fmt.Errorf("%w: socket %d: %v", ErrCompletionPending, socket, err)
			}
			// The stream position is unknown after a failed read
			c.fault(s, conn, err)
			return nil, &TransportError{Op: "read", Target: s.target, Err: err}
		}
		logging.LogPacket("recv", reply)

		kind := reply.Kind()
		if (kind == KindCompletion || kind == KindError) && c.pending[reply.Socket()] {
			delete(c.pending, reply.Socket())
			logging.Debug("Dropping late VISCA reply", zap.Stringer("packet", reply))
			continue
		}

		switch kind {
		case KindAck:
			acked, socket = true, reply.Socket()
			delete(c.pending, socket)
			_ = conn.SetDeadline(replyDeadline(ctx, c.cfg.CompletionTimeout))
		case KindCompletion:
			return reply, nil
		case KindError:
			return nil, reply.Err()
		default:
			logging.Debug("Ignoring unexpected VISCA packet", zap.Stringer("packet", reply))
		}
	}
}

// replyDeadline is now+d, or ctx's deadline when that comes first
func replyDeadline(ctx context.Context, d time.Duration) time.Time {
	deadline := time.Now().Add(d)
	if cd, ok := ctx.Deadline(); ok && cd.Before(deadline) {
		return cd
	}
	return deadline
}
