package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/cumulus/internal/adapters/nats"
	"github.com/samirrijal/cumulus/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "images" | "cycles" | "highres"
	Border  int    `json:"border"`  // highres only, 0 = all borders
}

// wsEvent is relayed to clients.
type wsEvent struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// channelSubject maps a client channel to a NATS subject.
func channelSubject(m wsMessage) (string, bool) {
	switch m.Channel {
	case "", "images":
		return natsadapter.SubjectImagesUpdated, true
	case "cycles":
		return natsadapter.SubjectCycleAll, true
	case "highres":
		if m.Border > 0 {
			return natsadapter.SubjectHighResPrefix + strconv.Itoa(m.Border), true
		}
		return natsadapter.SubjectHighResAll, true
	}
	return "", false
}

// WebSocketHandler returns a handler that sends the current image list on
// connect and then relays NATS events to the client.
// Clients send JSON: {"action":"subscribe","channel":"highres","border":12}
// The images channel is subscribed by default.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription)

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		relay := func(channel string) nats.MsgHandler {
			return func(msg *nats.Msg) {
				_ = writeJSON(wsEvent{Type: "event", Channel: channel, Data: json.RawMessage(msg.Data)})
			}
		}

		listCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		images, err := deps.Query.HighResImages(listCtx)
		cancel()
		if err == nil {
			data, _ := json.Marshal(images)
			_ = writeJSON(wsEvent{Type: "initial-images", Channel: "images", Data: data})
		}

		if deps.NATS != nil {
			sub, err := deps.NATS.Subscribe(natsadapter.SubjectImagesUpdated, relay("images"))
			if err != nil {
				slog.Warn("ws default subscribe", "error", err)
				return
			}
			subs[natsadapter.SubjectImagesUpdated] = sub
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			subject, ok := channelSubject(m)
			if !ok {
				_ = writeJSON(map[string]string{"error": "unknown channel: " + m.Channel})
				continue
			}
			if deps.NATS == nil {
				_ = writeJSON(map[string]string{"error": "live updates not available"})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				channel := m.Channel
				if channel == "" {
					channel = "images"
				}
				s, err := deps.NATS.Subscribe(subject, relay(channel))
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
