package agi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Handler processes one scripted command against an in-call session.
type Handler func(ctx context.Context, sess Session) error

// Server is a FastAGI listener. The dialplan connects here with an
// agi://host:port/CommandName?arg=value URL; the server parses the AGI
// environment block, looks up the registered handler for the requested
// command, and runs it with a live Session.
type Server struct {
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewServer(logger *zap.Logger) *Server {
	return &Server{
		logger:   logger,
		handlers: make(map[string]Handler),
	}
}

// Register binds a command name to its handler. Later registrations for the
// same name replace earlier ones.
func (s *Server) Register(name string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = h
}

// Serve accepts connections until ctx is cancelled. Each session runs in its
// own goroutine; a handler failure terminates only that session.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.logger.Info("agi server listening", zap.String("addr", ln.Addr().String()))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("agi accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	sess, command, err := newConnSession(conn)
	if err != nil {
		s.logger.Warn("agi session setup failed", zap.Error(err))
		return
	}

	log := s.logger.With(
		zap.String("command", command),
		zap.String("uniqueid", sess.Env("uniqueid")),
	)

	s.mu.RLock()
	handler, ok := s.handlers[command]
	s.mu.RUnlock()
	if !ok {
		log.Warn("unknown agi command")
		_ = sess.Finish()
		return
	}

	if err := handler(ctx, sess); err != nil {
		log.Error("agi command failed", zap.Error(err))
	}
}

// connSession is the socket-backed Session implementation.
type connSession struct {
	r    *bufio.Reader
	w    *bufio.Writer
	env  map[string]string
	args url.Values
}

// newConnSession reads the AGI environment block and resolves the requested
// command from agi_network_script ("CommandName?arg=value&...").
func newConnSession(conn net.Conn) (*connSession, string, error) {
	sess := &connSession{
		r:   bufio.NewReader(conn),
		w:   bufio.NewWriter(conn),
		env: make(map[string]string),
	}

	for {
		line, err := sess.r.ReadString('\n')
		if err != nil {
			return nil, "", fmt.Errorf("read agi environment: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		k, v, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		sess.env[strings.TrimPrefix(k, "agi_")] = v
	}

	script := sess.env["network_script"]
	if script == "" {
		return nil, "", errors.New("no network script requested")
	}
	command, rawQuery, _ := strings.Cut(script, "?")
	args, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, "", fmt.Errorf("parse script arguments: %w", err)
	}
	sess.args = args
	return sess, command, nil
}

func (s *connSession) Env(key string) string { return s.env[key] }
func (s *connSession) Arg(key string) string { return s.args.Get(key) }

func (s *connSession) SetVariable(name, value string) error {
	return s.exec("SET VARIABLE " + name + " " + strconv.Quote(value))
}

func (s *connSession) StreamFile(name string) error {
	return s.exec("STREAM FILE " + name + ` ""`)
}

func (s *connSession) Wait(seconds int) error {
	return s.exec("WAIT FOR DIGIT " + strconv.Itoa(seconds*1000))
}

func (s *connSession) SetPriority(priority int) error {
	return s.exec("SET PRIORITY " + strconv.Itoa(priority))
}

func (s *connSession) Finish() error {
	// HANGUP is not sent: the dialplan continues after the AGI call returns.
	return s.w.Flush()
}

// exec writes one AGI command and consumes its "200 result=..." reply.
func (s *connSession) exec(command string) error {
	if _, err := s.w.WriteString(command + "\n"); err != nil {
		return err
	}
	if err := s.w.Flush(); err != nil {
		return err
	}
	reply, err := s.r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read agi reply: %w", err)
	}
	if !strings.HasPrefix(reply, "200") {
		return fmt.Errorf("agi command rejected: %s", strings.TrimSpace(reply))
	}
	return nil
}

var _ Session = (*connSession)(nil)
