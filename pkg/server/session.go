package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/antibyte/retrobasic/pkg/auth"
	"github.com/antibyte/retrobasic/pkg/basic"
	"github.com/antibyte/retrobasic/pkg/logger"

	"github.com/gorilla/websocket"
)

// Nachrichtentypen des Protokolls
const (
	MessageLine   = "line"
	MessageInput  = "input"
	MessageBreak  = "break"
	MessageOutput = "output"
	MessagePrompt = "prompt"
	MessageReady  = "ready"
	MessageError  = "error"
)

// lineQueueSize begrenzt eingereihte Zeilen während ein Programm läuft
const lineQueueSize = 64

// Message is one JSON frame in either direction.
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// Session is one connected client with its own interpreter.
type Session struct {
	id      string
	handler *Handler
	conn    *websocket.Conn
	runtime *basic.Runtime

	send      chan []byte
	lines     chan string
	input     chan string
	interrupt chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

func newSession(h *Handler, conn *websocket.Conn, claims *auth.SessionClaims, store basic.ProgramStore) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        claims.SessionID,
		handler:   h,
		conn:      conn,
		send:      make(chan []byte, getOutputBuffer()),
		lines:     make(chan string, lineQueueSize),
		input:     make(chan string, 1),
		interrupt: make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.runtime = basic.NewRuntime(basic.Options{
		Output: sessionWriter{s},
		Input:  s.readInput,
		Store:  store,
		Owner:  claims.Owner(),
	})
	return s
}

func (s *Session) start() {
	go s.writePump()
	go s.interpret()
	s.sendMessage(Message{Type: MessageReady})
	go s.readPump()
}

// close beendet alle Goroutinen der Session
func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.runtime.Break()
		s.conn.Close()
		s.handler.release(s.id, s)
		logger.SessionInfo("Session %s closed", s.id)
	})
}

// sendMessage reiht eine Nachricht ein; nach dem Schließen wird sie verworfen
func (s *Session) sendMessage(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case s.send <- data:
		return nil
	case <-s.ctx.Done():
		return basic.ErrSessionClosed
	}
}

// sessionWriter turns interpreter output into output messages.
type sessionWriter struct {
	s *Session
}

func (w sessionWriter) Write(p []byte) (int, error) {
	if err := w.s.sendMessage(Message{Type: MessageOutput, Content: string(p)}); err != nil {
		return 0, err
	}
	return len(p), nil
}

// readInput serves INPUT: it asks the client for a line and waits for it.
// A break while waiting halts at the INPUT; CONT asks again.
func (s *Session) readInput() (string, bool) {
	select {
	case <-s.interrupt:
	default:
	}
	if err := s.sendMessage(Message{Type: MessagePrompt}); err != nil {
		return "", false
	}
	select {
	case text := <-s.input:
		return text, true
	case <-s.interrupt:
		return "", false
	case <-s.ctx.Done():
		return "", false
	}
}

// interpret führt eingereihte Zeilen nacheinander aus
func (s *Session) interpret() {
	defer close(s.done)
	idle := time.NewTimer(getIdleTimeout())
	defer idle.Stop()

	for {
		select {
		case line := <-s.lines:
			s.execLine(line)
			if s.ctx.Err() != nil {
				return
			}
			s.sendMessage(Message{Type: MessageReady})
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(getIdleTimeout())
		case <-idle.C:
			logger.SessionInfo("Session %s idle, closing", s.id)
			s.sendMessage(Message{Type: MessageError, Content: "session idle timeout"})
			// writePump braucht einen Moment für die letzte Nachricht
			time.Sleep(100 * time.Millisecond)
			s.close()
			return
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) execLine(line string) {
	ctx := s.ctx
	if limit := getMaxRunTime(); limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, limit)
		defer cancel()
	}
	if err := s.runtime.Exec(ctx, line); err != nil {
		logger.SessionDebug("Session %s: %q failed: %v", s.id, line, err)
	}
}

// readPump liest Client-Nachrichten und verteilt sie
func (s *Session) readPump() {
	defer s.close()

	s.conn.SetReadLimit(getMaxMessageSize())
	s.conn.SetReadDeadline(time.Now().Add(getPongWait()))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(getPongWait()))
		return nil
	})

	limiter := newRateLimiter(getMaxMessagesPerSecond())
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.Warn(logger.AreaWebSocket, "Unexpected close for session %s: %v", s.id, err)
			} else {
				logger.Debug(logger.AreaWebSocket, "Session %s disconnected: %v", s.id, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if !limiter.allow(time.Now()) {
			logger.SecurityWarn("Rate limit exceeded for session %s", s.id)
			s.sendMessage(Message{Type: MessageError, Content: "rate limit exceeded"})
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn(logger.AreaWebSocket, "Invalid JSON from session %s: %v", s.id, err)
			s.sendMessage(Message{Type: MessageError, Content: "invalid message"})
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Session) dispatch(msg Message) {
	switch msg.Type {
	case MessageLine:
		select {
		case s.lines <- msg.Content:
		default:
			s.sendMessage(Message{Type: MessageError, Content: "too many pending lines"})
		}
	case MessageInput:
		select {
		case s.input <- msg.Content:
		default:
			s.sendMessage(Message{Type: MessageError, Content: "input not expected"})
		}
	case MessageBreak:
		logger.SessionDebug("Break requested for session %s", s.id)
		s.runtime.Break()
		select {
		case s.interrupt <- struct{}{}:
		default:
		}
	default:
		s.sendMessage(Message{Type: MessageError, Content: "unknown message type " + msg.Type})
	}
}

// rateLimiter zählt Nachrichten pro Sekunde, 0 heißt unbegrenzt
type rateLimiter struct {
	max    int
	count  int
	window time.Time
}

func newRateLimiter(max int) *rateLimiter {
	return &rateLimiter{max: max}
}

func (l *rateLimiter) allow(now time.Time) bool {
	if l.max <= 0 {
		return true
	}
	if now.Sub(l.window) >= time.Second {
		l.window = now
		l.count = 0
	}
	l.count++
	return l.count <= l.max
}

// writePump schreibt Nachrichten und sendet regelmäßig Pings
func (s *Session) writePump() {
	ticker := time.NewTicker(getPingPeriod())
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug(logger.AreaWebSocket, "Write to session %s failed: %v", s.id, err)
				s.close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Error(logger.AreaWebSocket, "Failed to send ping to session %s: %v", s.id, err)
				s.close()
				return
			}
		case <-s.ctx.Done():
			s.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
