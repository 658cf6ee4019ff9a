package main

import (
	"crypto/rand"
	"sync"
	"time"
)

// Registry owns the live rooms. It is constructed on startup and shut down
// explicitly, so tests can run several independent registries in-process.
type Registry struct {
	cfg *Config

	mu    sync.Mutex
	rooms map[string]*Room

	done      chan struct{}
	closeOnce sync.Once
}

func newRegistry(cfg *Config) *Registry {
	reg := &Registry{
		cfg:   cfg,
		rooms: make(map[string]*Room),
		done:  make(chan struct{}),
	}
	if cfg.roomTimeout > 0 {
		go reg.sweepLoop()
	}
	return reg
}

// newRoomIDLocked generates a 6-character uppercase alphanumeric room ID,
// retrying on the (unlikely) collision with a live room. The caller holds
// reg.mu, so the uniqueness check and the eventual map insert are one
// critical section.
func (reg *Registry) newRoomIDLocked() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	for {
		buf := make([]byte, 6)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 6)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		if _, exists := reg.rooms[id]; !exists {
			return id
		}
	}
}

// createRoom makes a fresh room and seats the creator in it. The ID is
// reserved in the same critical section that checked it, so concurrent
// creates can never collide.
func (reg *Registry) createRoom(clientID string, c *Client, name string) (*Room, string, error) {
	reg.mu.Lock()
	id := reg.newRoomIDLocked()
	rm := newRoom(id, reg.cfg, reg)
	reg.rooms[id] = rm
	reg.mu.Unlock()

	role, err := rm.join(clientID, c, name)
	if err != nil {
		reg.remove(id)
		return nil, "", err
	}

	logf(reg.cfg, "ROOMS: Created room %s", id)

	return rm, role, nil
}

func (reg *Registry) getRoom(id string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rm, ok := reg.rooms[id]
	if !ok {
		return nil, errRoomNotFound
	}
	return rm, nil
}

// remove forgets a room that has already torn itself down.
func (reg *Registry) remove(id string) {
	reg.mu.Lock()
	_, existed := reg.rooms[id]
	delete(reg.rooms, id)
	reg.mu.Unlock()

	if existed {
		logf(reg.cfg, "ROOMS: Removed room %s", id)
	}
}

func (reg *Registry) roomCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// cleanupExpired removes rooms idle beyond the configured timeout.
func (reg *Registry) cleanupExpired() {
	cutoff := time.Now().Add(-reg.cfg.roomTimeout)

	reg.mu.Lock()
	expired := make([]*Room, 0)
	for id, rm := range reg.rooms {
		if rm.LastActive().Before(cutoff) {
			delete(reg.rooms, id)
			expired = append(expired, rm)
		}
	}
	reg.mu.Unlock()

	for _, rm := range expired {
		logf(reg.cfg, "ROOMS: Expired idle room %s", rm.id)
		go rm.closeAll()
	}
}

func (reg *Registry) sweepLoop() {
	ticker := time.NewTicker(reg.cfg.roomTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			reg.cleanupExpired()
		case <-reg.done:
			return
		}
	}
}

// Close stops the sweep and tears down every live room.
func (reg *Registry) Close() {
	reg.closeOnce.Do(func() {
		close(reg.done)

		reg.mu.Lock()
		rooms := make([]*Room, 0, len(reg.rooms))
		for _, rm := range reg.rooms {
			rooms = append(rooms, rm)
		}
		reg.rooms = make(map[string]*Room)
		reg.mu.Unlock()

		for _, rm := range rooms {
			rm.closeAll()
		}
	})
}
