package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/civiclab/deliberation-engine/internal/events"
	"github.com/gorilla/websocket"
)

const (
	// Number of recent events to send on connection
	recentEventsCount = 50

	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Operator dashboards connect cross-origin from the lab network
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsEventsHandler streams the live event feed: recent history first,
// then every event as it is emitted.
func wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	streamEvents(conn, nil)
}

// wsVisibilityHandler streams visibility changes for one seat. The seat
// comes from the ?seat= query parameter. Only element.shown and
// element.hidden events addressed to that seat (or to all seats) pass
// the filter.
func wsVisibilityHandler(w http.ResponseWriter, r *http.Request) {
	seatParam := r.URL.Query().Get("seat")
	seat, err := strconv.Atoi(seatParam)
	if err != nil || seat < 0 {
		http.Error(w, "seat query parameter must be a non-negative integer", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	streamEvents(conn, visibilityFilter(seat))
}

func visibilityFilter(seat int) func(events.Event) bool {
	return func(e events.Event) bool {
		if e.Name != "element.shown" && e.Name != "element.hidden" {
			return false
		}
		v, ok := e.Fields["seat"]
		if !ok {
			return true
		}
		switch n := v.(type) {
		case int:
			return n == seat
		case int64:
			return n == int64(seat)
		case float64:
			return int(n) == seat
		default:
			return false
		}
	}
}

// streamEvents runs the reader/writer pump for one connection. A nil
// filter passes every event.
func streamEvents(conn *websocket.Conn, filter func(events.Event) bool) {
	sub := events.Subscribe()

	// Send matching recent events immediately
	recent := events.RecentEvents(recentEventsCount)
	for _, e := range recent {
		if filter != nil && !filter(e) {
			continue
		}
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("ws write recent event failed: %v", err)
			events.Unsubscribe(sub)
			conn.Close()
			return
		}
	}

	done := make(chan struct{})

	// Reader goroutine - handles pongs and close messages
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}()

	// Writer loop - sends events and pings
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			// Reader detected close
			events.Unsubscribe(sub)
			conn.Close()
			return

		case e, ok := <-sub:
			if !ok {
				// Subscriber channel closed
				conn.Close()
				return
			}
			if filter != nil && !filter(e) {
				continue
			}
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("ws write event failed: %v", err)
				events.Unsubscribe(sub)
				conn.Close()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				events.Unsubscribe(sub)
				conn.Close()
				return
			}
		}
	}
}
