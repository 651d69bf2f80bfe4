package cartesia

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"trustmed/core"
	"trustmed/utils/audio"
)

const (
	defaultCartesiaURL        = "wss://api.cartesia.ai/tts/websocket"
	defaultCartesiaModelID    = "sonic"
	defaultCartesiaVoiceID    = "a0e99841-438c-4a64-b679-ae501e7d6091" // Helpful Woman
	defaultCartesiaAPIVersion = "2024-11-13"
	defaultCartesiaLanguage   = "en"

	sampleRate   = 8000
	writeTimeout = 10 * time.Second
	readTimeout  = 60 * time.Second
	pingInterval = 25 * time.Second
)

// CartesiaTTSConfig holds configuration for the Cartesia TTS service.
type CartesiaTTSConfig struct {
	APIKey     string `json:"api_key"`
	BaseURL    string `json:"base_url"`
	ModelID    string `json:"model_id"`
	VoiceID    string `json:"voice_id"`
	Language   string `json:"language"`
	APIVersion string `json:"api_version"`
}

// CartesiaTTS synthesizes one complete clip per call over Cartesia's
// WebSocket streaming API.
//
// One connection is shared by every request and dialled lazily. Each
// Synthesize call gets its own context_id; frames for a context nobody is
// waiting on (a cancelled or timed out request) are dropped. Cancelling the
// caller's ctx sends Cartesia a cancel frame for that context.
type CartesiaTTS struct {
	config CartesiaTTSConfig
	logger *core.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	pending map[string]*pendingSynthesis
	closed  bool
	stop    chan struct{}
}

type pendingSynthesis struct {
	chunks [][]byte
	done   chan error
}

// ── WebSocket protocol messages ───────────────────────────────────────────────

type cartesiaTTSRequest struct {
	ModelID    string            `json:"model_id"`
	Transcript string            `json:"transcript"`
	Voice      cartesiaVoice     `json:"voice"`
	OutputFmt  cartesiaOutputFmt `json:"output_format"`
	ContextID  string            `json:"context_id"`
	Continue   bool              `json:"continue"`
	Language   string            `json:"language,omitempty"`
}

type cartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFmt struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

type cartesiaCancelRequest struct {
	ContextID string `json:"context_id"`
	Cancel    bool   `json:"cancel"`
}

// cartesiaResponse is a text frame from Cartesia. Audio arrives base64
// encoded in "chunk" frames.
type cartesiaResponse struct {
	Type       string `json:"type"`
	ContextID  string `json:"context_id"`
	StatusCode int    `json:"status_code"`
	Done       bool   `json:"done"`
	Error      string `json:"error,omitempty"`
	Data       string `json:"data,omitempty"`
}

// NewCartesiaTTS creates a new Cartesia TTS service with sensible defaults.
func NewCartesiaTTS(config CartesiaTTSConfig, logger *core.Logger) (*CartesiaTTS, error) {
	if config.APIKey == "" {
		return nil, errors.New("cartesia: API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultCartesiaURL
	}
	if config.ModelID == "" {
		config.ModelID = defaultCartesiaModelID
	}
	if config.VoiceID == "" {
		config.VoiceID = defaultCartesiaVoiceID
	}
	if config.APIVersion == "" {
		config.APIVersion = defaultCartesiaAPIVersion
	}
	if config.Language == "" {
		config.Language = defaultCartesiaLanguage
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &CartesiaTTS{
		config:  config,
		logger:  logger.With(map[string]interface{}{"component": "cartesia_tts"}),
		pending: make(map[string]*pendingSynthesis),
		stop:    make(chan struct{}),
	}, nil
}

// Synthesize sends text as a single, non-continued context and waits for its
// "done" frame. The µ-law stream is returned wrapped as WAV.
func (c *CartesiaTTS) Synthesize(ctx context.Context, text string) (*core.AudioClip, error) {
	conn, err := c.connection()
	if err != nil {
		return nil, &core.ServiceError{Service: "cartesia", Err: err}
	}

	contextID := newContextID()
	p := &pendingSynthesis{done: make(chan error, 1)}
	c.mu.Lock()
	c.pending[contextID] = p
	c.mu.Unlock()
	defer c.forget(contextID)

	req := c.buildRequest(text, contextID)
	if err := c.sendJSON(conn, req); err != nil {
		c.dropConnection(conn, err)
		return nil, &core.ServiceError{Service: "cartesia", Err: err}
	}

	select {
	case err := <-p.done:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		if err := c.sendJSON(conn, cartesiaCancelRequest{ContextID: contextID, Cancel: true}); err != nil {
			c.logger.Debug("cancel frame failed", "context_id", contextID, "error", err)
		}
		return nil, ctx.Err()
	}

	c.mu.Lock()
	var ulaw []byte
	for _, chunk := range p.chunks {
		ulaw = append(ulaw, chunk...)
	}
	c.mu.Unlock()
	if len(ulaw) == 0 {
		return nil, nil
	}
	return audio.ToWAV(&core.AudioClip{Data: ulaw, Format: core.ULAW, SampleRate: sampleRate, Channels: 1})
}

// Close drops the connection and fails every request still waiting.
func (c *CartesiaTTS) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.stop)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		conn.Close()
	}
	c.failAll(errors.New("cartesia: service closed"))
	return nil
}

// IsConnected returns whether there is an open WebSocket connection.
func (c *CartesiaTTS) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// ── Internal helpers ──────────────────────────────────────────────────────────

func (c *CartesiaTTS) buildRequest(transcript, contextID string) cartesiaTTSRequest {
	return cartesiaTTSRequest{
		ModelID:    c.config.ModelID,
		Transcript: transcript,
		Voice:      cartesiaVoice{Mode: "id", ID: c.config.VoiceID},
		OutputFmt:  cartesiaOutputFmt{Container: "raw", Encoding: "pcm_mulaw", SampleRate: sampleRate},
		ContextID:  contextID,
		Continue:   false,
		Language:   c.config.Language,
	}
}

func newContextID() string {
	return uuid.New().String()
}

func (c *CartesiaTTS) forget(contextID string) {
	c.mu.Lock()
	delete(c.pending, contextID)
	c.mu.Unlock()
}

func (c *CartesiaTTS) failAll(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, p := range c.pending {
		select {
		case p.done <- err:
		default:
		}
		delete(c.pending, id)
	}
}

// ── WebSocket connection management ──────────────────────────────────────────

func (c *CartesiaTTS) connection() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.New("service closed")
	}
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := c.dialConnection()
	if err != nil {
		return nil, err
	}
	c.conn = conn
	go c.readLoop(conn)
	go c.heartbeat(conn)
	return conn, nil
}

func (c *CartesiaTTS) dialConnection() (*websocket.Conn, error) {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.config.APIKey)
	q.Set("cartesia_version", c.config.APIVersion)
	u.RawQuery = q.Encode()

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	return conn, nil
}

// dropConnection forgets conn so the next request dials again, and fails
// every waiting request.
func (c *CartesiaTTS) dropConnection(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
	c.failAll(&core.ServiceError{Service: "cartesia", Err: cause})
}

// ── Incoming message loop ─────────────────────────────────────────────────────

func (c *CartesiaTTS) readLoop(conn *websocket.Conn) {
	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stop:
				return
			default:
			}
			c.logger.Info("connection lost", "error", err)
			c.dropConnection(conn, err)
			return
		}
		if msgType != websocket.TextMessage {
			c.logger.Debug("ignoring binary frame", "bytes", len(msg))
			continue
		}
		c.handleTextMessage(msg)
	}
}

func (c *CartesiaTTS) handleTextMessage(msg []byte) {
	var resp cartesiaResponse
	if err := sonic.Unmarshal(msg, &resp); err != nil {
		c.logger.Debug("unparseable frame", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[resp.ContextID]
	if !ok {
		c.logger.Trace("frame for inactive context", "context_id", resp.ContextID, "type", resp.Type)
		return
	}

	switch resp.Type {
	case "chunk":
		if resp.Data != "" {
			data, err := base64.StdEncoding.DecodeString(resp.Data)
			if err != nil {
				c.logger.Debug("bad base64 in chunk", "error", err)
				return
			}
			p.chunks = append(p.chunks, data)
		}
		if resp.Done {
			c.finishLocked(resp.ContextID, p, nil)
		}
	case "done":
		c.finishLocked(resp.ContextID, p, nil)
	case "error":
		c.finishLocked(resp.ContextID, p, &core.ServiceError{
			Service:    "cartesia",
			StatusCode: resp.StatusCode,
			Err:        errors.New(resp.Error),
		})
	}
	// "timestamps", "phoneme_timestamps", etc. are informational.
}

func (c *CartesiaTTS) finishLocked(contextID string, p *pendingSynthesis, err error) {
	select {
	case p.done <- err:
	default:
	}
	if err != nil {
		delete(c.pending, contextID)
	}
}

// ── Heartbeat ─────────────────────────────────────────────────────────────────

func (c *CartesiaTTS) heartbeat(conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			current := c.conn == conn
			c.mu.Unlock()
			if !current {
				return
			}
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Info("heartbeat ping failed", "error", err)
				c.dropConnection(conn, err)
				return
			}
		}
	}
}

// ── Utilities ─────────────────────────────────────────────────────────────────

func (c *CartesiaTTS) sendJSON(conn *websocket.Conn, msg interface{}) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return fmt.Errorf("cartesia: failed to marshal message: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
