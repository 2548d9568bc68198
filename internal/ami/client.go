package ami

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	dialTimeout  = 5 * time.Second
	loginTimeout = 5 * time.Second
	maxBackoff   = 30 * time.Second
)

// Client is the concrete manager connection: a line-oriented TCP protocol of
// "Key: Value" frames separated by blank lines. It logs in, pumps events to
// the Events channel, and reconnects with capped exponential backoff when the
// connection drops. OnConnect fires after every successful login so the
// caller can reconcile queue state.
type Client struct {
	addr     string
	username string
	secret   string
	logger   *zap.Logger

	// OnConnect is invoked in its own goroutine after each (re)login.
	OnConnect func(ctx context.Context)

	events chan Event
	live   atomic.Bool
	seq    atomic.Int64

	mu      sync.Mutex
	conn    net.Conn
	pending map[string]chan map[string]string
	dump    *dumpCollector
}

type dumpCollector struct {
	actionID string
	result   QueueStatusDump
	done     chan struct{}
}

func NewClient(addr, username, secret string, logger *zap.Logger) *Client {
	return &Client{
		addr:     addr,
		username: username,
		secret:   secret,
		logger:   logger,
		events:   make(chan Event, 256),
		pending:  make(map[string]chan map[string]string),
	}
}

func (c *Client) Events() <-chan Event { return c.events }

func (c *Client) Live() bool { return c.live.Load() }

// Run maintains the manager connection until ctx is cancelled. Each connect
// attempt that fails doubles the backoff up to maxBackoff; a successful login
// resets it.
func (c *Client) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := c.connect(ctx); err != nil {
			c.logger.Error("manager connect failed", zap.String("addr", c.addr), zap.Error(err))
		} else {
			backoff = time.Second
			c.serve(ctx)
		}

		c.live.Store(false)
		select {
		case <-ctx.Done():
			close(c.events)
			return
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// connect dials and logs in synchronously. The event loop is not running yet,
// so the login response is read directly off the socket.
func (c *Client) connect(ctx context.Context) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial manager: %w", err)
	}

	br := bufio.NewReader(conn)
	// Greeting banner, e.g. "Asterisk Call Manager/1.1".
	_ = conn.SetReadDeadline(time.Now().Add(loginTimeout))
	if _, err := br.ReadString('\n'); err != nil {
		conn.Close()
		return fmt.Errorf("read banner: %w", err)
	}

	if err := writeFrame(conn, map[string]string{
		"Action":   "Login",
		"Username": c.username,
		"Secret":   c.secret,
	}); err != nil {
		conn.Close()
		return fmt.Errorf("send login: %w", err)
	}

	frame, err := readFrame(br)
	if err != nil {
		conn.Close()
		return fmt.Errorf("read login response: %w", err)
	}
	if frame["Response"] != "Success" {
		conn.Close()
		return fmt.Errorf("login rejected: %s", frame["Message"])
	}
	_ = conn.SetReadDeadline(time.Time{})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.live.Store(true)
	c.logger.Info("manager connected", zap.String("addr", c.addr))

	if c.OnConnect != nil {
		go c.OnConnect(ctx)
	}
	return nil
}

// serve reads frames until the connection breaks or ctx is cancelled.
func (c *Client) serve(ctx context.Context) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	br := bufio.NewReader(conn)
	for {
		frame, err := readFrame(br)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("manager connection lost", zap.Error(err))
			}
			conn.Close()
			return
		}
		c.handleFrame(ctx, frame)
	}
}

func (c *Client) handleFrame(ctx context.Context, frame map[string]string) {
	if name := frame["Event"]; name != "" {
		c.mu.Lock()
		dump := c.dump
		c.mu.Unlock()

		if dump != nil && frame["ActionID"] == dump.actionID {
			if entry, member, ok := ParseDumpRecord(frame); ok {
				if entry != nil {
					dump.result.Entries = append(dump.result.Entries, *entry)
				}
				if member != nil {
					dump.result.Members = append(dump.result.Members, *member)
				}
				return
			}
			if name == "QueueStatusComplete" {
				c.mu.Lock()
				c.dump = nil
				c.mu.Unlock()
				close(dump.done)
				return
			}
		}

		ev, ok := ParseEvent(frame)
		if !ok {
			return
		}
		select {
		case c.events <- ev:
		case <-ctx.Done():
		}
		return
	}

	if id := frame["ActionID"]; id != "" {
		c.mu.Lock()
		ch, ok := c.pending[id]
		if ok {
			delete(c.pending, id)
		}
		c.mu.Unlock()
		if ok {
			ch <- frame
		}
	}
}

// action sends a frame and waits for its ActionID-matched response.
func (c *Client) action(ctx context.Context, fields map[string]string) (map[string]string, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || !c.live.Load() {
		return nil, fmt.Errorf("manager not connected")
	}

	id := strconv.FormatInt(c.seq.Add(1), 10)
	fields["ActionID"] = id

	ch := make(chan map[string]string, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if err := writeFrame(conn, fields); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("send %s: %w", fields["Action"], err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// QueueStatus requests a full queue dump and collects QueueEntry/QueueMember
// frames until QueueStatusComplete arrives.
func (c *Client) QueueStatus(ctx context.Context) (*QueueStatusDump, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || !c.live.Load() {
		return nil, fmt.Errorf("manager not connected")
	}

	id := strconv.FormatInt(c.seq.Add(1), 10)
	dump := &dumpCollector{actionID: id, done: make(chan struct{})}
	c.mu.Lock()
	c.dump = dump
	c.mu.Unlock()

	if err := writeFrame(conn, map[string]string{
		"Action":   "QueueStatus",
		"ActionID": id,
	}); err != nil {
		c.mu.Lock()
		c.dump = nil
		c.mu.Unlock()
		return nil, fmt.Errorf("send queue status: %w", err)
	}

	select {
	case <-dump.done:
		return &dump.result, nil
	case <-ctx.Done():
		c.mu.Lock()
		c.dump = nil
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Originate places an outbound call leg. A Success response means the manager
// accepted the action; whether the far end answers is decided out of band.
func (c *Client) Originate(ctx context.Context, req OriginateRequest) error {
	fields := map[string]string{
		"Action":   "Originate",
		"Channel":  req.Channel,
		"Context":  req.Context,
		"Exten":    req.Exten,
		"Priority": strconv.Itoa(req.Priority),
		"CallerID": req.CallerID,
		"Timeout":  strconv.FormatInt(req.Timeout.Milliseconds(), 10),
		"Async":    "true",
	}
	i := 0
	for k, v := range req.Variables {
		// Repeated Variable headers are not expressible in a map; the
		// manager also accepts comma-joined pairs in a single header.
		if i == 0 {
			fields["Variable"] = k + "=" + v
		} else {
			fields["Variable"] += "," + k + "=" + v
		}
		i++
	}

	resp, err := c.action(ctx, fields)
	if err != nil {
		return err
	}
	if resp["Response"] != "Success" {
		return fmt.Errorf("originate rejected: %s", resp["Message"])
	}
	return nil
}

// readFrame reads "Key: Value" lines up to a blank line.
func readFrame(br *bufio.Reader) (map[string]string, error) {
	frame := make(map[string]string)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if len(frame) == 0 {
				continue
			}
			return frame, nil
		}
		if k, v, ok := strings.Cut(line, ": "); ok {
			frame[k] = v
		}
	}
}

func writeFrame(conn net.Conn, fields map[string]string) error {
	var b strings.Builder
	// Action first: some manager versions require it as the leading header.
	if action, ok := fields["Action"]; ok {
		b.WriteString("Action: " + action + "\r\n")
	}
	for k, v := range fields {
		if k == "Action" {
			continue
		}
		b.WriteString(k + ": " + v + "\r\n")
	}
	b.WriteString("\r\n")
	_, err := conn.Write([]byte(b.String()))
	return err
}

// compile-time check that Client implements Manager
var _ Manager = (*Client)(nil)
