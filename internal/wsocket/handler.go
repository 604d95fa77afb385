package wsocket

import (
	"encoding/json"
	"net/http"
	"time"

	"chronic_go_backend/internal/models"
	"chronic_go_backend/internal/realtime"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const maxMessageSize = 4096

type Options struct {
	// WriteTimeout bounds a single frame write, including acknowledgements.
	WriteTimeout time.Duration
	// PingInterval is how often the server pings; zero disables keepalive.
	PingInterval time.Duration
}

type Handler struct {
	registry *realtime.Registry
	upgrader websocket.Upgrader
	opts     Options
}

// ClientMessage is an inbound frame. Exactly one of the fields is expected;
// frames with neither are ignored.
type ClientMessage struct {
	Subscribe   *string `json:"subscribe,omitempty"`
	Unsubscribe *string `json:"unsubscribe,omitempty"`
}

// Ack confirms a subscribe or unsubscribe request.
type Ack struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

func NewHandler(registry *realtime.Registry, upgrader websocket.Upgrader, opts Options) *Handler {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = realtime.DefaultSendTimeout
	}
	return &Handler{
		registry: registry,
		upgrader: upgrader,
		opts:     opts,
	}
}

// HandleWebSocket upgrades the request and serves subscribe/unsubscribe
// requests until the client goes away, at which point every subscription held
// by the connection is dropped.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request, user *models.User) {
	log := zerolog.Ctx(r.Context()).With().Str("user_id", user.ID).Logger()

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := newConn(ws, h.opts.WriteTimeout)
	log.Debug().Msg("WebSocket connection opened")

	done := make(chan struct{})
	defer func() {
		close(done)
		channels := h.registry.DisconnectAll(conn)
		_ = conn.Close()
		log.Debug().Strs("channels", channels).Msg("WebSocket connection closed")
	}()

	ws.SetReadLimit(maxMessageSize)
	if h.opts.PingInterval > 0 {
		pongWait := 2 * h.opts.PingInterval
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		go h.keepalive(conn, done, log)
	}

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Debug().Err(err).Msg("Ignoring malformed WebSocket frame")
			continue
		}

		switch {
		case msg.Subscribe != nil && *msg.Subscribe != "":
			channel := *msg.Subscribe
			h.registry.Subscribe(channel, conn)
			if _, err := realtime.ParseChannel(channel); err != nil {
				log.Warn().Err(err).Msg("Subscribed to a channel no event is published on")
			} else {
				log.Debug().Str("channel", channel).Msg("Subscribed")
			}
			if err := conn.WriteJSON(Ack{Type: "subscribed", Channel: channel}); err != nil {
				log.Debug().Err(err).Msg("Error sending subscribe ack")
				return
			}
		case msg.Unsubscribe != nil && *msg.Unsubscribe != "":
			channel := *msg.Unsubscribe
			h.registry.Unsubscribe(channel, conn)
			log.Debug().Str("channel", channel).Msg("Unsubscribed")
			if err := conn.WriteJSON(Ack{Type: "unsubscribed", Channel: channel}); err != nil {
				log.Debug().Err(err).Msg("Error sending unsubscribe ack")
				return
			}
		default:
			log.Debug().Msg("Ignoring unknown WebSocket frame")
		}
	}
}

func (h *Handler) keepalive(conn *Conn, done <-chan struct{}, log zerolog.Logger) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				log.Debug().Err(err).Msg("Ping failed")
				// unblocks the read loop, which runs the disconnect cleanup
				_ = conn.Close()
				return
			}
		}
	}
}
