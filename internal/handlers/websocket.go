package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"wager-settlement-backend/internal/logging"
	"wager-settlement-backend/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type   string      `json:"type"`
	Wallet string      `json:"wallet,omitempty"`
	GameID uint64      `json:"game_id,omitempty"`
	Data   interface{} `json:"data"`
}

type Client struct {
	Wallet string
	Conn   *websocket.Conn
	send   chan *Message
	pong   chan struct{}
}

// WebSocketHub fans settlement events out to every connected client. All
// client bookkeeping happens on the run goroutine.
type WebSocketHub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
}

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
		done:       make(chan struct{}),
	}
}

func (hub *WebSocketHub) Run(ctx context.Context) {
	defer close(hub.done)
	for {
		select {
		case <-ctx.Done():
			for client := range hub.clients {
				close(client.send)
				delete(hub.clients, client)
			}
			return

		case client := <-hub.register:
			hub.clients[client] = struct{}{}
			logging.Debug(ctx).Str("wallet", client.Wallet).Int("clients", len(hub.clients)).Msg("ws client registered")

		case client := <-hub.unregister:
			if _, ok := hub.clients[client]; ok {
				delete(hub.clients, client)
				close(client.send)
				logging.Debug(ctx).Str("wallet", client.Wallet).Int("clients", len(hub.clients)).Msg("ws client unregistered")
			}

		case message := <-hub.broadcast:
			for client := range hub.clients {
				select {
				case client.send <- message:
				default:
					// slow consumer; drop it rather than block the feed
					delete(hub.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// BroadcastSettlement implements services.Broadcaster. It never blocks the
// settlement path; events are dropped when the feed is saturated.
func (hub *WebSocketHub) BroadcastSettlement(event services.SettlementEvent) {
	msg := &Message{
		Type:   event.Type,
		Wallet: event.Wallet,
		GameID: event.ID,
		Data:   event.Data,
	}
	select {
	case hub.broadcast <- msg:
	default:
		logging.Global().Warn().Str("type", event.Type).Uint64("id", event.ID).Msg("ws feed full, event dropped")
	}
}

type WebSocketHandler struct {
	hub *WebSocketHub
}

func NewWebSocketHandler(hub *WebSocketHub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	ctx := c.Request.Context()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(ctx).Err(err).Msg("failed to upgrade to websocket")
		return
	}

	client := &Client{
		Wallet: walletFrom(c),
		Conn:   conn,
		send:   make(chan *Message, clientSendSize),
		pong:   make(chan struct{}, 1),
	}
	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump(ctx, h.hub)
}

func (client *Client) readPump(ctx context.Context, hub *WebSocketHub) {
	defer func() {
		select {
		case hub.unregister <- client:
		case <-hub.done:
		}
		client.Conn.Close()
	}()

	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn(ctx).Err(err).Str("wallet", client.Wallet).Msg("websocket error")
			}
			return
		}

		if msg.Type == "PING" {
			select {
			case client.pong <- struct{}{}:
			default:
			}
		}
	}
}

func (client *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(msg); err != nil {
				return
			}

		case <-client.pong:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			pong := &Message{
				Type: "PONG",
				Data: gin.H{"timestamp": time.Now().UnixMilli()},
			}
			if err := client.Conn.WriteJSON(pong); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
