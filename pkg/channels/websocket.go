// myclaw - personal AI assistant runtime
// License: MIT

package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/myclaw/myclaw/pkg/bus"
	"github.com/myclaw/myclaw/pkg/config"
	"github.com/myclaw/myclaw/pkg/logger"
	"github.com/myclaw/myclaw/pkg/session"
)

// WebSocketChannel serves a local gateway: each connection is one chat, JSON
// frames in both directions.
type WebSocketChannel struct {
	cfg      config.WebSocketConfig
	bus      *bus.MessageBus
	server   *http.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*websocket.Conn // chatID -> connection
}

type wsInboundFrame struct {
	Content string `json:"content"`
}

type wsOutboundFrame struct {
	Content string `json:"content"`
}

func NewWebSocketChannel(cfg config.WebSocketConfig, msgBus *bus.MessageBus) *WebSocketChannel {
	return &WebSocketChannel{
		cfg:   cfg,
		bus:   msgBus,
		conns: map[string]*websocket.Conn{},
		upgrader: websocket.Upgrader{
			// local gateway, same-origin rules don't apply
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (c *WebSocketChannel) Name() string { return "websocket" }

func (c *WebSocketChannel) Start(ctx context.Context) error {
	host := c.cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := c.cfg.Port
	if port == 0 {
		port = 8790
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", c.handleWS)
	c.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = c.server.Close()
	}()

	logger.InfoCF("channels", "websocket gateway listening", map[string]interface{}{
		"addr": c.server.Addr,
	})
	err := c.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (c *WebSocketChannel) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	chatID := uuid.NewString()

	c.mu.Lock()
	c.conns[chatID] = conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.conns, chatID)
		c.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame wsInboundFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Content == "" {
			continue
		}
		c.bus.PublishInbound(bus.InboundMessage{
			Channel:  c.Name(),
			SenderID: chatID,
			ChatID:   chatID,
			Content:  frame.Content,
			SessionKey: session.BuildKey(session.KeyParams{
				Agent:   "main",
				Channel: c.Name(),
				Account: "default",
				Peer:    session.PeerDirect,
				PeerID:  chatID,
			}),
		})
	}
}

func (c *WebSocketChannel) Send(chatID, content string) error {
	c.mu.Lock()
	conn, ok := c.conns[chatID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("no websocket connection for chat %s", chatID)
	}
	data, err := json.Marshal(wsOutboundFrame{Content: content})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WebSocketChannel) Stop() {
	if c.server != nil {
		_ = c.server.Close()
	}
}
