package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		reconnectGrace: 30 * time.Millisecond,
		roomTimeout:    time.Hour,
	}
}

func newTestClient(id string) *Client {
	return &Client{
		send:     make(chan any, 64),
		done:     make(chan struct{}),
		clientID: id,
	}
}

func isClosed(c *Client) bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func countMessages(s RoomSnapshot, substr string) int {
	count := 0
	for _, m := range s.Messages {
		if strings.Contains(m.Text, substr) {
			count++
		}
	}
	return count
}

func newTestRoom(t *testing.T, reg *Registry, names ...string) (*Room, []*Client) {
	t.Helper()

	clients := make([]*Client, 0, len(names))
	for i, name := range names {
		clients = append(clients, newTestClient("client-"+name+"-"+string(rune('a'+i))))
	}

	rm, role, err := reg.createRoom(clients[0].clientID, clients[0], names[0])
	require.NoError(t, err)
	require.Equal(t, "player1", role)

	for i := 1; i < len(clients); i++ {
		_, err := rm.join(clients[i].clientID, clients[i], names[i])
		require.NoError(t, err)
	}

	return rm, clients
}

func TestJoinAssignsRolesInOrder(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	c1 := newTestClient("c1")
	rm, role, err := reg.createRoom(c1.clientID, c1, "老大")
	require.NoError(t, err)
	assert.Equal(t, "player1", role)

	c2 := newTestClient("c2")
	role, err = rm.join(c2.clientID, c2, "老二")
	require.NoError(t, err)
	assert.Equal(t, "player2", role)

	c3 := newTestClient("c3")
	role, err = rm.join(c3.clientID, c3, "老三")
	require.NoError(t, err)
	assert.Equal(t, "player3", role)

	c4 := newTestClient("c4")
	_, err = rm.join(c4.clientID, c4, "多余")
	assert.ErrorIs(t, err, errRoomFull)

	snapshot := rm.Snapshot()
	assert.True(t, snapshot.Players["player1"].CanAct)
	assert.False(t, snapshot.Players["player2"].CanAct)
	assert.False(t, snapshot.Players["player3"].CanAct)
}

func TestJoinRejectsEmptyName(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	c := newTestClient("c1")
	_, _, err := reg.createRoom(c.clientID, c, "   ")
	assert.ErrorIs(t, err, errInvalidName)
}

func TestStartSoloGame(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, _ := newTestRoom(t, reg, "独行侠")
	require.NoError(t, rm.start())

	snapshot := rm.Snapshot()
	assert.Equal(t, phaseActive, snapshot.Phase)
	assert.Equal(t, "player1", snapshot.CurrentTurn)
	require.Len(t, snapshot.Messages, 2)
	assert.Contains(t, snapshot.Messages[0].Text, "密室")
	assert.Contains(t, snapshot.Messages[1].Text, "轮到")

	// Solo player can act immediately.
	assert.True(t, snapshot.Players["player1"].CanAct)
}

func TestStartOnlyFromLobby(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, _ := newTestRoom(t, reg, "甲")
	require.NoError(t, rm.start())
	assert.ErrorIs(t, rm.start(), errGameAlreadyActive)
}

func TestSubmitKeywordPoolTurtle(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, clients := newTestRoom(t, reg, "甲")
	require.NoError(t, rm.start())

	require.NoError(t, rm.submitKeyword(clients[0].clientID, "水潭+乌龟"))

	snapshot := rm.Snapshot()
	assert.Contains(t, snapshot.Items, "木盒")
	assert.Equal(t, 1, countMessages(snapshot, "木盒"))
	// No one else is unlocked, so the turn stays with player1.
	assert.Equal(t, "player1", snapshot.CurrentTurn)
}

func TestSubmitKeywordUnlocksCatOnce(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, clients := newTestRoom(t, reg, "甲", "乙")
	require.NoError(t, rm.start())

	require.NoError(t, rm.submitKeyword(clients[0].clientID, "行李箱+乌龟"))

	snapshot := rm.Snapshot()
	assert.True(t, snapshot.Players["player2"].CanAct)
	assert.Equal(t, "player2", snapshot.CurrentTurn)
	assert.Equal(t, 1, countMessages(snapshot, "恢复了行动能力"))

	// Pass the turn back, then replay the same keyword: it still resolves
	// narratively, but the unlock and its message never repeat.
	require.NoError(t, rm.submitKeyword(clients[1].clientID, "猫+乌龟"))
	require.NoError(t, rm.submitKeyword(clients[0].clientID, "行李箱+乌龟"))

	snapshot = rm.Snapshot()
	assert.Equal(t, 1, countMessages(snapshot, "恢复了行动能力"))
}

func TestSubmitKeywordTurnViolation(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, clients := newTestRoom(t, reg, "甲", "乙")
	require.NoError(t, rm.start())

	err := rm.submitKeyword(clients[1].clientID, "水潭+猫")
	assert.ErrorIs(t, err, errNotYourTurn)
}

func TestSubmitKeywordLockedPlayerRejected(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, clients := newTestRoom(t, reg, "甲", "乙")
	require.NoError(t, rm.start())

	// The turn pointer should never land on a locked role; force it there
	// to confirm the independent gate holds anyway.
	rm.mu.Lock()
	rm.currentTurn = 1
	rm.mu.Unlock()

	err := rm.submitKeyword(clients[1].clientID, "水潭+猫")
	assert.ErrorIs(t, err, errPlayerLocked)
}

func TestFailedSubmitMutatesNothing(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, clients := newTestRoom(t, reg, "甲")
	require.NoError(t, rm.start())

	before := rm.Snapshot()

	err := rm.submitKeyword(clients[0].clientID, "abc+def")
	assert.ErrorIs(t, err, errNoSuchCombination)
	assert.Equal(t, before, rm.Snapshot())

	err = rm.submitKeyword(clients[0].clientID, "水潭")
	assert.ErrorIs(t, err, errInvalidKeyword)
	assert.Equal(t, before, rm.Snapshot())
}

func TestLetterCompletionAnnouncedOnce(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, clients := newTestRoom(t, reg, "甲")
	require.NoError(t, rm.start())

	rm.mu.Lock()
	rm.letters = []string{"E", "C", "H"}
	rm.mu.Unlock()

	// 花瓶+猫 grants the final O.
	require.NoError(t, rm.submitKeyword(clients[0].clientID, "花瓶+猫"))
	assert.Equal(t, 1, countMessages(rm.Snapshot(), "集齐了四个字母"))

	// Another letter-granting entry afterwards must not re-announce.
	require.NoError(t, rm.submitKeyword(clients[0].clientID, "衣柜+猫"))

	snapshot := rm.Snapshot()
	assert.Equal(t, 1, countMessages(snapshot, "集齐了四个字母"))
	assert.ElementsMatch(t, []string{"E", "C", "H", "O"}, snapshot.Letters)
}

func TestEffectApplicationIdempotent(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, _ := newTestRoom(t, reg, "甲")
	actor := rm.slots[0]

	eff := Effect{
		AddItems:   []string{"木盒"},
		MarkBroken: "显示器",
		AddLetter:  "E",
	}
	rm.applyEffectLocked(actor, eff)
	rm.applyEffectLocked(actor, eff)

	snapshot := rm.Snapshot()
	assert.Equal(t, 1, countStrings(snapshot.Items, "木盒"))
	assert.Equal(t, []string{"显示器"}, snapshot.BrokenItems)
	assert.Equal(t, []string{"E"}, snapshot.Letters)

	// Removing an absent item is a no-op.
	itemsBefore := len(rm.Snapshot().Items)
	rm.applyEffectLocked(actor, Effect{RemoveItems: []string{"不存在"}})
	assert.Len(t, rm.Snapshot().Items, itemsBefore)
}

func countStrings(list []string, want string) int {
	count := 0
	for _, s := range list {
		if s == want {
			count++
		}
	}
	return count
}

func TestHPDeltasFractionalAndClamped(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, _ := newTestRoom(t, reg, "甲", "乙")
	actor := rm.slots[0]

	rm.applyEffectLocked(actor, Effect{AllHP: -0.5})
	snapshot := rm.Snapshot()
	assert.Equal(t, 7.5, snapshot.Players["player1"].HP)
	assert.Equal(t, 7.5, snapshot.Players["player2"].HP)

	rm.applyEffectLocked(actor, Effect{CurrentHP: -100})
	assert.Equal(t, float64(0), rm.Snapshot().Players["player1"].HP)

	rm.applyEffectLocked(actor, Effect{RoleHP: map[string]float64{"player2": 1}})
	assert.Equal(t, 8.5, rm.Snapshot().Players["player2"].HP)
}

func TestTryEscapeCaseInsensitive(t *testing.T) {
	t.Parallel()

	for _, password := range []string{"echo", "ECHO", "EcHo"} {
		password := password
		t.Run(password, func(t *testing.T) {
			t.Parallel()

			reg := newRegistry(testConfig())
			defer reg.Close()

			rm, clients := newTestRoom(t, reg, "甲")
			require.NoError(t, rm.start())

			require.NoError(t, rm.tryEscape(clients[0].clientID, password))

			snapshot := rm.Snapshot()
			assert.Equal(t, phaseFinished, snapshot.Phase)
			assert.True(t, snapshot.DoorUnlocked)
		})
	}
}

func TestTryEscapeWrongPassword(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, clients := newTestRoom(t, reg, "甲")
	require.NoError(t, rm.start())

	err := rm.tryEscape(clients[0].clientID, "OHCE")
	assert.ErrorIs(t, err, errWrongPassword)

	snapshot := rm.Snapshot()
	assert.Equal(t, phaseActive, snapshot.Phase)
	assert.False(t, snapshot.DoorUnlocked)

	// Attempts may be retried indefinitely.
	require.NoError(t, rm.tryEscape(clients[0].clientID, "echo"))
}

func TestTryEscapeRequiresActivePhase(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, clients := newTestRoom(t, reg, "甲")
	err := rm.tryEscape(clients[0].clientID, "echo")
	assert.ErrorIs(t, err, errGameNotActive)
}

func TestDisconnectGraceSkipsTurn(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, clients := newTestRoom(t, reg, "甲", "乙")
	require.NoError(t, rm.start())
	require.NoError(t, rm.submitKeyword(clients[0].clientID, "行李箱+乌龟"))
	require.Equal(t, "player2", rm.Snapshot().CurrentTurn)

	rm.disconnect(clients[1].clientID, clients[1])
	assert.False(t, rm.Snapshot().Players["player2"].Connected)

	require.Eventually(t, func() bool {
		return rm.Snapshot().CurrentTurn == "player1"
	}, time.Second, 5*time.Millisecond)

	snapshot := rm.Snapshot()
	assert.Equal(t, 1, countMessages(snapshot, "本回合被跳过"))

	// The turn pointer still refers to an unlocked role.
	assert.True(t, snapshot.Players[snapshot.CurrentTurn].CanAct)
}

func TestReconnectCancelsGraceTimer(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, clients := newTestRoom(t, reg, "甲", "乙")
	require.NoError(t, rm.start())
	require.NoError(t, rm.submitKeyword(clients[0].clientID, "行李箱+乌龟"))

	rm.disconnect(clients[1].clientID, clients[1])

	fresh := newTestClient(clients[1].clientID)
	role, err := rm.reconnect(fresh.clientID, fresh)
	require.NoError(t, err)
	assert.Equal(t, "player2", role)

	// Wait well past the grace period: the turn must not have been skipped.
	time.Sleep(5 * testConfig().reconnectGrace)

	snapshot := rm.Snapshot()
	assert.Equal(t, "player2", snapshot.CurrentTurn)
	assert.True(t, snapshot.Players["player2"].Connected)
	assert.Equal(t, 0, countMessages(snapshot, "本回合被跳过"))
}

func TestDisconnectAfterSlowConsumerDrop(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	c1 := newTestClient("c1")
	rm, _, err := reg.createRoom(c1.clientID, c1, "甲")
	require.NoError(t, err)

	// No buffer and no reader: the first broadcast overflows and the room
	// drops the connection.
	laggard := &Client{send: make(chan any), done: make(chan struct{}), clientID: "c2"}
	_, err = rm.join(laggard.clientID, laggard, "乙")
	require.NoError(t, err)

	rm.mu.Lock()
	conn := rm.slots[1].conn
	rm.mu.Unlock()
	require.Nil(t, conn)
	assert.True(t, isClosed(laggard))

	// Sending to the dropped client afterwards must not panic.
	laggard.sendError(errRoomFull)
	laggard.enqueue(ErrorMessage{Type: "error"})

	// The dropped client's read pump still drives the normal disconnect
	// path, grace timer included.
	rm.disconnect(laggard.clientID, laggard)
	assert.False(t, rm.Snapshot().Players["player2"].Connected)

	rm.disconnect(c1.clientID, c1)
	require.Eventually(t, func() bool {
		_, err := reg.getRoom(rm.id)
		return err != nil
	}, time.Second, 5*time.Millisecond)
}

func TestJoinRebindDropsOldConnection(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	old := newTestClient("c1")
	rm, _, err := reg.createRoom(old.clientID, old, "甲")
	require.NoError(t, err)

	fresh := newTestClient(old.clientID)
	role, err := rm.join(fresh.clientID, fresh, "甲")
	require.NoError(t, err)
	assert.Equal(t, "player1", role)

	assert.True(t, isClosed(old), "superseded connection must be told to stop")
	assert.False(t, isClosed(fresh))

	rm.mu.Lock()
	conn := rm.slots[0].conn
	rm.mu.Unlock()
	assert.Same(t, fresh, conn)
}

func TestReconnectUnknownIdentity(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, _ := newTestRoom(t, reg, "甲")

	stranger := newTestClient("stranger")
	_, err := rm.reconnect(stranger.clientID, stranger)
	assert.ErrorIs(t, err, errReconnectTarget)
}

func TestRoomDestroyedWhenAllPlayersGone(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, clients := newTestRoom(t, reg, "甲")
	require.NoError(t, rm.start())

	rm.disconnect(clients[0].clientID, clients[0])

	require.Eventually(t, func() bool {
		_, err := reg.getRoom(rm.id)
		return err != nil
	}, time.Second, 5*time.Millisecond)
}

func TestSendChat(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, clients := newTestRoom(t, reg, "甲", "乙")
	require.NoError(t, rm.sendChat(clients[1].clientID, "你们好"))

	snapshot := rm.Snapshot()
	require.NotEmpty(t, snapshot.Messages)
	last := snapshot.Messages[len(snapshot.Messages)-1]
	assert.Equal(t, entryChat, last.Type)
	assert.Equal(t, "player2", last.Role)
	assert.Equal(t, "你们好", last.Text)
}

func TestLeaveReseatsLobby(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, clients := newTestRoom(t, reg, "甲", "乙")

	rm.leave(clients[0].clientID)

	snapshot := rm.Snapshot()
	require.Len(t, snapshot.Players, 1)
	assert.Equal(t, "乙", snapshot.Players["player1"].Name)
	assert.True(t, snapshot.Players["player1"].CanAct)

	rm.leave(clients[1].clientID)
	_, err := reg.getRoom(rm.id)
	assert.ErrorIs(t, err, errRoomNotFound)
}

func TestSnapshotNeverLeaksAnimals(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, _ := newTestRoom(t, reg, "AA", "BB", "CC")

	raw, err := json.Marshal(rm.Snapshot())
	require.NoError(t, err)

	for _, role := range roleOrder {
		assert.NotContains(t, string(raw), roles[role].animal)
	}
}

func TestSnapshotTrimsMessageLog(t *testing.T) {
	t.Parallel()

	reg := newRegistry(testConfig())
	defer reg.Close()

	rm, clients := newTestRoom(t, reg, "甲")
	for i := 0; i < snapshotMessageCap+20; i++ {
		require.NoError(t, rm.sendChat(clients[0].clientID, "唠嗑"))
	}

	snapshot := rm.Snapshot()
	assert.Len(t, snapshot.Messages, snapshotMessageCap)
}
