package main

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	internalLogCap     = 200
	snapshotMessageCap = 50
)

const (
	welcomeText = "三兄弟在陌生的密室中醒来，房间里只有水潭、行李箱和衣柜。" +
		"输入两个关键词的组合进行探索，例如：水潭+乌龟。"
	lettersCompleteText = "你们集齐了四个字母！仔细想想它们能拼出什么单词，输入四位密码尝试逃脱吧！"
)

// Player is one occupied role slot. The animal identity stays server-side;
// snapshots expose only the PlayerView fields.
type Player struct {
	role      string
	name      string
	animal    string
	hp        float64
	clientID  string
	conn      *Client
	connected bool
	grace     *time.Timer
}

// Room is one isolated game session. Every mutating operation takes rm.mu,
// so turn advancement, effect application, and log appends never interleave
// across connections. Broadcasts happen after the mutation completes, via
// buffered per-client channels.
type Room struct {
	id  string
	cfg *Config
	reg *Registry

	mu sync.Mutex

	phase        string
	slots        []*Player // join order; turn order is the same
	currentTurn  int       // index into slots
	items        []string
	letters      []string
	broken       []string
	unlocked     map[string]bool // role -> may act
	doorUnlocked bool
	lettersDone  bool // completion announcement already fired
	destroyed    bool

	log []LogEntry

	createdAt  time.Time
	lastActive time.Time
}

func newRoom(id string, cfg *Config, reg *Registry) *Room {
	now := time.Now()
	return &Room{
		id:         id,
		cfg:        cfg,
		reg:        reg,
		phase:      phaseLobby,
		items:      slices.Clone(initialItems),
		unlocked:   make(map[string]bool),
		createdAt:  now,
		lastActive: now,
	}
}

func (rm *Room) playerByClientLocked(clientID string) *Player {
	for _, p := range rm.slots {
		if p.clientID == clientID {
			return p
		}
	}
	return nil
}

func (rm *Room) playerByRoleLocked(role string) *Player {
	for _, p := range rm.slots {
		if p.role == role {
			return p
		}
	}
	return nil
}

func (rm *Room) appendLogLocked(kind string, p *Player, text string) {
	entry := LogEntry{
		ID:   uuid.NewString(),
		Type: kind,
		Text: text,
	}
	if p != nil {
		entry.Role = p.role
		entry.Name = p.name
	}

	rm.log = append(rm.log, entry)
	if len(rm.log) > internalLogCap {
		rm.log = rm.log[len(rm.log)-internalLogCap:]
	}
}

func (rm *Room) snapshotLocked() RoomSnapshot {
	players := make(map[string]PlayerView, len(rm.slots))
	for _, p := range rm.slots {
		players[p.role] = PlayerView{
			Name:      p.name,
			HP:        p.hp,
			CanAct:    rm.unlocked[p.role],
			Connected: p.connected,
		}
	}

	msgs := rm.log
	if len(msgs) > snapshotMessageCap {
		msgs = msgs[len(msgs)-snapshotMessageCap:]
	}

	currentTurn := ""
	if rm.phase != phaseLobby && len(rm.slots) > 0 {
		currentTurn = rm.slots[rm.currentTurn].role
	}

	return RoomSnapshot{
		Phase:        rm.phase,
		CurrentTurn:  currentTurn,
		Items:        slices.Clone(rm.items),
		Letters:      slices.Clone(rm.letters),
		BrokenItems:  slices.Clone(rm.broken),
		DoorUnlocked: rm.doorUnlocked,
		Players:      players,
		Messages:     slices.Clone(msgs),
	}
}

func (rm *Room) snapshotPtrLocked() *RoomSnapshot {
	s := rm.snapshotLocked()
	return &s
}

// Snapshot returns the client-visible state view.
func (rm *Room) Snapshot() RoomSnapshot {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.snapshotLocked()
}

func (rm *Room) broadcastLocked(msg any) {
	for _, p := range rm.slots {
		if !p.connected || p.conn == nil {
			continue
		}
		select {
		case p.conn.send <- msg:
		default:
			// Writer stalled; drop the connection. Its read pump will
			// report the disconnect through the usual path.
			p.conn.close()
			p.conn = nil
		}
	}
}

func (rm *Room) broadcastUpdateLocked() {
	rm.broadcastLocked(RoomEventMessage{Type: "gameStateUpdate", GameState: rm.snapshotPtrLocked()})
}

func (rm *Room) announceTurnLocked() {
	p := rm.slots[rm.currentTurn]
	rm.appendLogLocked(entrySystem, nil, fmt.Sprintf("轮到 %s（%s）行动了。", p.name, roles[p.role].displayName))
}

// advanceTurnLocked moves the turn to the next unlocked role in join order,
// wrapping around. If the current holder is the only unlocked role the
// pointer stays put.
func (rm *Room) advanceTurnLocked() {
	for i := 1; i <= len(rm.slots); i++ {
		next := (rm.currentTurn + i) % len(rm.slots)
		if rm.unlocked[rm.slots[next].role] {
			rm.currentTurn = next
			return
		}
	}
}

// join seats a player in the next free role slot. The first joiner's role
// starts unlocked. A client already seated in the lobby rebinds instead of
// taking a second slot.
func (rm *Room) join(clientID string, c *Client, name string) (string, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if strings.TrimSpace(name) == "" {
		return "", errInvalidName
	}
	if rm.phase != phaseLobby {
		return "", errGameAlreadyActive
	}

	if p := rm.playerByClientLocked(clientID); p != nil {
		if p.conn != nil && p.conn != c {
			p.conn.close()
		}
		p.name = strings.TrimSpace(name)
		p.conn = c
		p.connected = true
		rm.lastActive = time.Now()
		rm.broadcastLocked(RoomEventMessage{Type: "playerJoined", GameState: rm.snapshotPtrLocked()})
		return p.role, nil
	}

	if len(rm.slots) == len(roleOrder) {
		return "", errRoomFull
	}

	role := roleOrder[len(rm.slots)]
	info := roles[role]
	p := &Player{
		role:      role,
		name:      strings.TrimSpace(name),
		animal:    info.animal,
		hp:        info.initialHP,
		clientID:  clientID,
		conn:      c,
		connected: true,
	}
	rm.slots = append(rm.slots, p)
	if len(rm.slots) == 1 {
		rm.unlocked[role] = true
	}

	rm.lastActive = time.Now()
	logf(rm.cfg, "ROOMS: Player %q joined %s as %s", p.name, rm.id, role)

	rm.broadcastLocked(RoomEventMessage{Type: "playerJoined", GameState: rm.snapshotPtrLocked()})

	return role, nil
}

// start moves the room from lobby to active. A single occupied slot is
// enough; solo play is supported for testing the puzzle.
func (rm *Room) start() error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.phase != phaseLobby {
		return errGameAlreadyActive
	}
	if len(rm.slots) == 0 {
		return errNotInRoom
	}

	rm.phase = phaseActive
	rm.currentTurn = 0
	rm.lastActive = time.Now()

	rm.appendLogLocked(entrySystem, nil, welcomeText)
	rm.announceTurnLocked()

	logf(rm.cfg, "ROOMS: Game started in %s with %d player(s)", rm.id, len(rm.slots))

	rm.broadcastLocked(RoomEventMessage{Type: "gameStarted", GameState: rm.snapshotPtrLocked()})

	return nil
}

// submitKeyword resolves and applies one keyword combination for the
// current turn holder. Resolution failures mutate nothing and are reported
// only to the caller; the turn is not consumed.
func (rm *Room) submitKeyword(clientID, raw string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.phase != phaseActive {
		return errGameNotActive
	}
	p := rm.playerByClientLocked(clientID)
	if p == nil {
		return errNotInRoom
	}
	if rm.slots[rm.currentTurn] != p {
		return errNotYourTurn
	}
	// The turn pointer should never land on a locked role, but the gate is
	// cheap and independent.
	if !rm.unlocked[p.role] {
		return errPlayerLocked
	}

	entry, err := resolveKeyword(raw, p.animal, rm.unlocked[cagedRole])
	if err != nil {
		return err
	}

	rm.lastActive = time.Now()

	rm.appendLogLocked(entryPlayer, p, strings.TrimSpace(raw))
	rm.appendLogLocked(entrySystem, nil, entry.Text)
	rm.applyEffectLocked(p, entry.Effect)

	if !rm.lettersDone && len(rm.letters) == 4 {
		rm.lettersDone = true
		rm.appendLogLocked(entrySystem, nil, lettersCompleteText)
	}

	before := rm.currentTurn
	rm.advanceTurnLocked()
	if rm.currentTurn != before {
		rm.announceTurnLocked()
	}

	rm.broadcastUpdateLocked()

	return nil
}

// applyEffectLocked applies one catalog effect. Every field is idempotent:
// set-union adds, no-op removes of absent items, at-most-once unlock
// messages.
func (rm *Room) applyEffectLocked(actor *Player, eff Effect) {
	for _, item := range eff.AddItems {
		if !slices.Contains(rm.items, item) {
			rm.items = append(rm.items, item)
		}
	}
	if eff.AddItem != "" && !slices.Contains(rm.items, eff.AddItem) {
		rm.items = append(rm.items, eff.AddItem)
	}
	for _, item := range eff.RemoveItems {
		if i := slices.Index(rm.items, item); i >= 0 {
			rm.items = slices.Delete(rm.items, i, i+1)
		}
	}
	if eff.MarkBroken != "" && !slices.Contains(rm.broken, eff.MarkBroken) {
		rm.broken = append(rm.broken, eff.MarkBroken)
	}
	if eff.AddLetter != "" && !slices.Contains(rm.letters, eff.AddLetter) {
		rm.letters = append(rm.letters, eff.AddLetter)
	}

	if eff.UnlockPlayer != "" && !rm.unlocked[eff.UnlockPlayer] {
		rm.unlocked[eff.UnlockPlayer] = true
		if p := rm.playerByRoleLocked(eff.UnlockPlayer); p != nil {
			rm.appendLogLocked(entrySystem, nil, fmt.Sprintf("%s（%s）恢复了行动能力！", p.name, roles[p.role].displayName))
		}
	}

	if eff.UnlockArea != "" {
		rm.appendLogLocked(entrySystem, nil, fmt.Sprintf("新区域已解锁：%s", eff.UnlockArea))
	}

	if eff.CurrentHP != 0 {
		rm.adjustHPLocked(actor, eff.CurrentHP)
	}
	if eff.AllHP != 0 {
		for _, p := range rm.slots {
			rm.adjustHPLocked(p, eff.AllHP)
		}
	}
	for role, delta := range eff.RoleHP {
		if p := rm.playerByRoleLocked(role); p != nil {
			rm.adjustHPLocked(p, delta)
		}
	}
}

func (rm *Room) adjustHPLocked(p *Player, delta float64) {
	p.hp += delta
	if p.hp < 0 {
		p.hp = 0
	}
}

// tryEscape checks a password attempt against the fixed escape password,
// case-insensitively. Attempts may be retried indefinitely.
func (rm *Room) tryEscape(clientID, password string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.phase != phaseActive {
		return errGameNotActive
	}
	p := rm.playerByClientLocked(clientID)
	if p == nil {
		return errNotInRoom
	}

	rm.lastActive = time.Now()

	if !strings.EqualFold(strings.TrimSpace(password), escapePassword) {
		rm.appendLogLocked(entrySystem, nil, fmt.Sprintf("%s尝试输入密码，但大门纹丝不动。", p.name))
		rm.broadcastUpdateLocked()
		return errWrongPassword
	}

	rm.doorUnlocked = true
	rm.phase = phaseFinished
	rm.appendLogLocked(entrySystem, nil, fmt.Sprintf("%s输入了正确的密码，大门缓缓打开——恭喜你们逃出了密室！", p.name))

	logf(rm.cfg, "ROOMS: Room %s escaped", rm.id)

	rm.broadcastLocked(RoomEventMessage{Type: "escapeSuccess"})
	rm.broadcastUpdateLocked()

	return nil
}

// sendChat appends a chat line to the log and broadcasts it.
func (rm *Room) sendChat(clientID, text string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	p := rm.playerByClientLocked(clientID)
	if p == nil {
		return errNotInRoom
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	rm.lastActive = time.Now()
	rm.appendLogLocked(entryChat, p, text)
	rm.broadcastUpdateLocked()

	return nil
}

// disconnect marks the player's slot as disconnected and arms the
// reconnect grace timer. A stale read pump (whose connection was already
// replaced by a reconnect) is ignored.
func (rm *Room) disconnect(clientID string, c *Client) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.destroyed {
		return
	}
	p := rm.playerByClientLocked(clientID)
	if p == nil || !p.connected {
		return
	}
	// A slot whose connection was already dropped by a stalled broadcast
	// has conn == nil; its read pump must still drive the disconnect here,
	// so only a mismatch against a live replacement connection is stale.
	if c != nil && p.conn != nil && p.conn != c {
		return
	}

	p.connected = false
	if p.conn != nil {
		p.conn.close()
		p.conn = nil
	}

	rm.lastActive = time.Now()
	rm.appendLogLocked(entrySystem, nil, fmt.Sprintf("%s断开了连接，等待重连…", p.name))
	rm.broadcastLocked(RoomEventMessage{Type: "playerDisconnected", Role: p.role})
	rm.broadcastUpdateLocked()

	if p.grace != nil {
		p.grace.Stop()
	}
	role := p.role
	p.grace = time.AfterFunc(rm.cfg.reconnectGrace, func() {
		rm.graceExpired(role)
	})
}

// graceExpired runs when a disconnected player's grace period elapses
// without a reconnect. If the whole room is gone it is destroyed; if the
// absent player held the turn it is skipped with no effect applied.
func (rm *Room) graceExpired(role string) {
	rm.mu.Lock()

	if rm.destroyed {
		rm.mu.Unlock()
		return
	}
	p := rm.playerByRoleLocked(role)
	if p == nil || p.connected {
		rm.mu.Unlock()
		return
	}
	p.grace = nil

	allGone := true
	for _, s := range rm.slots {
		if s.connected {
			allGone = false
			break
		}
	}
	if allGone {
		rm.destroyed = true
		rm.stopTimersLocked()
		rm.mu.Unlock()
		rm.reg.remove(rm.id)
		return
	}

	if rm.phase == phaseActive && rm.slots[rm.currentTurn] == p {
		before := rm.currentTurn
		rm.advanceTurnLocked()
		rm.appendLogLocked(entrySystem, nil, fmt.Sprintf("%s长时间未重连，本回合被跳过。", p.name))
		if rm.currentTurn != before {
			rm.announceTurnLocked()
		}
		rm.broadcastUpdateLocked()
	}

	rm.mu.Unlock()
}

// reconnect rebinds a returning client to its existing slot, cancelling
// the grace timer.
func (rm *Room) reconnect(clientID string, c *Client) (string, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.destroyed {
		return "", errRoomNotFound
	}
	p := rm.playerByClientLocked(clientID)
	if p == nil {
		return "", errReconnectTarget
	}

	if p.grace != nil {
		p.grace.Stop()
		p.grace = nil
	}
	if p.conn != nil && p.conn != c {
		p.conn.close()
	}
	p.conn = c
	p.connected = true

	rm.lastActive = time.Now()
	rm.appendLogLocked(entrySystem, nil, fmt.Sprintf("%s重新连接了。", p.name))
	rm.broadcastLocked(RoomEventMessage{Type: "playerReconnected", Role: p.role})
	rm.broadcastUpdateLocked()

	return p.role, nil
}

// leave removes a player outright. In the lobby remaining players are
// re-seated in join order; mid-game it degrades to a disconnect. A room
// that empties is destroyed immediately.
func (rm *Room) leave(clientID string) {
	rm.mu.Lock()

	if rm.destroyed {
		rm.mu.Unlock()
		return
	}
	p := rm.playerByClientLocked(clientID)
	if p == nil {
		rm.mu.Unlock()
		return
	}

	if rm.phase != phaseLobby {
		rm.mu.Unlock()
		rm.disconnect(clientID, nil)
		return
	}

	if p.grace != nil {
		p.grace.Stop()
		p.grace = nil
	}
	if p.conn != nil {
		p.conn.close()
		p.conn = nil
	}

	idx := slices.Index(rm.slots, p)
	rm.slots = slices.Delete(rm.slots, idx, idx+1)

	if len(rm.slots) == 0 {
		rm.destroyed = true
		rm.mu.Unlock()
		rm.reg.remove(rm.id)
		return
	}

	clear(rm.unlocked)
	for i, s := range rm.slots {
		s.role = roleOrder[i]
		s.animal = roles[s.role].animal
	}
	rm.unlocked[rm.slots[0].role] = true

	rm.lastActive = time.Now()
	rm.broadcastLocked(RoomEventMessage{Type: "playerLeft", GameState: rm.snapshotPtrLocked()})

	rm.mu.Unlock()
}

func (rm *Room) stopTimersLocked() {
	for _, p := range rm.slots {
		if p.grace != nil {
			p.grace.Stop()
			p.grace = nil
		}
	}
}

// closeAll tears the room down: timers stopped, every client dropped.
// Used by the registry on expiry and shutdown.
func (rm *Room) closeAll() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.destroyed = true
	rm.stopTimersLocked()
	for _, p := range rm.slots {
		if p.conn != nil {
			p.conn.close()
			if p.conn.conn != nil {
				_ = p.conn.conn.Close()
			}
			p.conn = nil
		}
		p.connected = false
	}
}

// LastActive reports the room's last activity timestamp for expiry sweeps.
func (rm *Room) LastActive() time.Time {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.lastActive
}
