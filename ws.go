package main

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "threebros_id"

// getOrSetPlayerID identifies a browser by cookie. The same ID is the
// reconnect identity, so a page reload resumes the player's slot.
func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// Client is one websocket connection. Outbound traffic goes through the
// buffered send channel so room mutations never block on network writes.
// The done channel, not channel closure, signals the write pump to exit:
// send stays open for its whole life, so concurrent enqueues never panic.
type Client struct {
	conn     *websocket.Conn
	send     chan any
	done     chan struct{}
	clientID string
	room     *Room

	closeOnce sync.Once
}

// close tells the write pump to stop. Safe from any goroutine, any number
// of times.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// enqueue hands a message to the write pump, giving up if the client has
// already been closed.
func (c *Client) enqueue(msg any) {
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

func serveWS(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			done:     make(chan struct{}),
			clientID: playerID,
		}

		go client.writePump()
		client.readPump(cfg, reg)
	}
}

func (c *Client) sendError(err error) {
	select {
	case c.send <- ErrorMessage{Type: "error", Message: err.Error()}:
	default:
	}
}

func (c *Client) readPump(cfg *Config, reg *Registry) {
	defer func() {
		if c.room != nil {
			c.room.disconnect(c.clientID, c)
		}
		c.close()
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "createRoom":
			rm, role, err := reg.createRoom(c.clientID, c, msg.Name)
			if err != nil {
				c.sendError(err)
				continue
			}
			c.room = rm
			snapshot := rm.Snapshot()
			c.enqueue(RoomEventMessage{Type: "roomCreated", RoomID: rm.id, Role: role, GameState: &snapshot})

		case "joinRoom":
			rm, err := reg.getRoom(strings.ToUpper(strings.TrimSpace(msg.RoomID)))
			if err != nil {
				c.sendError(err)
				continue
			}
			role, err := rm.join(c.clientID, c, msg.Name)
			if err != nil {
				c.sendError(err)
				continue
			}
			c.room = rm
			snapshot := rm.Snapshot()
			c.enqueue(RoomEventMessage{Type: "joinedRoom", RoomID: rm.id, Role: role, GameState: &snapshot})

		case "reconnect":
			rm, err := reg.getRoom(strings.ToUpper(strings.TrimSpace(msg.RoomID)))
			if err != nil {
				c.sendError(err)
				continue
			}
			role, err := rm.reconnect(c.clientID, c)
			if err != nil {
				c.sendError(err)
				continue
			}
			c.room = rm
			snapshot := rm.Snapshot()
			c.enqueue(RoomEventMessage{Type: "joinedRoom", RoomID: rm.id, Role: role, GameState: &snapshot})

		case "startGame":
			if c.room == nil {
				c.sendError(errNotInRoom)
				continue
			}
			if err := c.room.start(); err != nil {
				c.sendError(err)
			}

		case "sendKeyword":
			if c.room == nil {
				c.sendError(errNotInRoom)
				continue
			}
			if err := c.room.submitKeyword(c.clientID, msg.Keyword); err != nil {
				c.sendError(err)
			}

		case "tryEscape":
			if c.room == nil {
				c.sendError(errNotInRoom)
				continue
			}
			if err := c.room.tryEscape(c.clientID, msg.Password); err != nil {
				c.sendError(err)
			}

		case "sendMessage":
			if c.room == nil {
				c.sendError(errNotInRoom)
				continue
			}
			if err := c.room.sendChat(c.clientID, msg.Text); err != nil {
				c.sendError(err)
			}

		case "leaveRoom":
			if c.room == nil {
				continue
			}
			rm := c.room
			c.room = nil
			rm.leave(c.clientID)

		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// QR handler: generates a PNG QR code linking to the client with the room
// pre-filled, using go-qrcode.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + "/play?room=" + roomID

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// registerEscapeGame sets up routes so that:
//   - $prefix/play           → HTML client ("?room=ID" pre-fills the join form)
//   - $prefix/ws             → WebSocket carrying all game actions
//   - $prefix/room/:roomid/qr → PNG QR code linking to the room
func registerEscapeGame(cfg *Config, reg *Registry, mux *httprouter.Router) {
	mux.GET(cfg.prefix+"/play", getIndexHandler(cfg))

	mux.GET(cfg.prefix+"/assets/escape/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/escape/app.js", getJsHandler(cfg))

	mux.GET(cfg.prefix+"/ws", serveWS(cfg, reg))

	mux.GET(cfg.prefix+"/room/:roomid/qr", qrHandler(cfg))
}
