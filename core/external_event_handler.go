package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"trustmed/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// ClientSession is the per-connection state built by a ClientHandler.
// HandleInput is called from the connection's read goroutine, one event at a
// time. Close is called exactly once when the connection ends.
type ClientSession interface {
	HandleInput(ev IExternalInputEvent)
	Close()
}

type ClientHandler interface {
	OnConnect(client *Client) (ClientSession, error)
}

// Client is one connected browser. Writes are serialised; gorilla/websocket
// allows a single concurrent writer per connection.
type Client struct {
	id         string
	remoteAddr string
	conn       *websocket.Conn
	logger     *Logger

	writeMu sync.Mutex
	closed  bool
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) RemoteAddr() string {
	return c.remoteAddr
}

// Send serialises ev as an Envelope and writes it to the client.
func (c *Client) Send(ev IExternalOutputEvent) error {
	data, err := protocol.Marshal(protocol.MessageType(ev.GetId()), ev)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, data)
}

func (c *Client) sendError(msgType protocol.MessageType, cause error) {
	data, err := protocol.Marshal(protocol.MsgError, protocol.ErrorPayload{Message: cause.Error(), Type: msgType})
	if err != nil {
		return
	}
	if err := c.write(websocket.TextMessage, data); err != nil {
		c.logger.Debugf("ExternalEventHandler: error reply to %s: %v", c.id, err)
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return fmt.Errorf("external event handler: client %s closed", c.id)
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) close() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.conn.Close()
}

// ExternalEventHandler is the WebSocket bridge between browsers and the
// conversation engine.
//
//   - Every connection gets its own ClientSession from the ClientHandler.
//   - Incoming Envelopes are decoded with a registered factory and handed to
//     that session as IExternalInputEvent.
//   - Sessions write IExternalOutputEvents back through Client.Send.
type ExternalEventHandler struct {
	logger  *Logger
	handler ClientHandler
	ctx     context.Context

	upgrader  websocket.Upgrader
	clients   map[*Client]struct{}
	clientsMu sync.RWMutex

	inputRegistry map[protocol.MessageType]func() IExternalInputEvent
	registryMu    sync.RWMutex
}

func NewExternalEventHandler(handler ClientHandler, logger *Logger) *ExternalEventHandler {
	if logger == nil {
		logger = GetLogger()
	}
	return &ExternalEventHandler{
		logger:        logger,
		handler:       handler,
		ctx:           context.Background(),
		clients:       make(map[*Client]struct{}),
		inputRegistry: make(map[protocol.MessageType]func() IExternalInputEvent),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Initialize binds the handler to ctx; when ctx ends every client is closed.
func (e *ExternalEventHandler) Initialize(ctx context.Context) {
	e.ctx = ctx
	go func() {
		<-ctx.Done()
		e.closeAll()
	}()
}

// RegisterInputEvent registers a factory for a given event ID. When a client
// sends {"type": id, "payload": {...}}, the factory creates a zero-value
// event and the payload is decoded into it.
func (e *ExternalEventHandler) RegisterInputEvent(id string, factory func() IExternalInputEvent) {
	e.registryMu.Lock()
	defer e.registryMu.Unlock()
	e.inputRegistry[protocol.MessageType(id)] = factory
}

// Decode turns a raw frame into a registered input event.
func (e *ExternalEventHandler) Decode(data []byte) (IExternalInputEvent, protocol.MessageType, error) {
	msgType, payload, err := protocol.Unmarshal(data)
	if err != nil {
		return nil, "", err
	}

	e.registryMu.RLock()
	factory, ok := e.inputRegistry[msgType]
	e.registryMu.RUnlock()
	if !ok {
		return nil, msgType, fmt.Errorf("external event handler: no factory registered for %q", msgType)
	}

	ev := factory()
	if err := protocol.DecodeInto(payload, ev); err != nil {
		return nil, msgType, err
	}
	return ev, msgType, nil
}

func (e *ExternalEventHandler) ClientCount() int {
	e.clientsMu.RLock()
	defer e.clientsMu.RUnlock()
	return len(e.clients)
}

func (e *ExternalEventHandler) snapshotClients() []*Client {
	e.clientsMu.RLock()
	defer e.clientsMu.RUnlock()
	out := make([]*Client, 0, len(e.clients))
	for c := range e.clients {
		out = append(out, c)
	}
	return out
}

func (e *ExternalEventHandler) closeAll() {
	for _, c := range e.snapshotClients() {
		c.close()
	}
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (e *ExternalEventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.logger.Errorf("ExternalEventHandler: upgrade: %v", err)
		return
	}

	client := &Client{
		id:         uuid.New().String(),
		remoteAddr: r.RemoteAddr,
		conn:       conn,
		logger:     e.logger,
	}

	e.clientsMu.Lock()
	e.clients[client] = struct{}{}
	e.clientsMu.Unlock()

	defer func() {
		e.clientsMu.Lock()
		delete(e.clients, client)
		e.clientsMu.Unlock()
		client.close()
	}()

	e.logger.Info("client connected", "client_id", client.id, "remote_addr", client.remoteAddr)

	session, err := e.handler.OnConnect(client)
	if err != nil {
		e.logger.Errorf("ExternalEventHandler: session for %s: %v", client.id, err)
		client.sendError("", err)
		return
	}
	defer session.Close()

	stopPing := make(chan struct{})
	defer close(stopPing)
	go e.keepAlive(client, stopPing)

	e.readLoop(client, session)
	e.logger.Info("client disconnected", "client_id", client.id)
}

func (e *ExternalEventHandler) readLoop(client *Client, session ClientSession) {
	conn := client.conn
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) && e.ctx.Err() == nil {
				e.logger.Debugf("ExternalEventHandler: read from %s: %v", client.id, err)
			}
			return
		}

		ev, msgType, err := e.Decode(data)
		if err != nil {
			e.logger.Warnf("ExternalEventHandler: %v", err)
			client.sendError(msgType, err)
			continue
		}
		session.HandleInput(ev)
	}
}

func (e *ExternalEventHandler) keepAlive(client *Client, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			if err := client.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
