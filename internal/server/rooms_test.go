package server

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanivhq/yaniv-server/internal/bot"
	"github.com/yanivhq/yaniv-server/internal/game"
	"github.com/yanivhq/yaniv-server/internal/randutil"
	"github.com/yanivhq/yaniv-server/internal/roomid"
)

type startRecorder struct {
	mu      sync.Mutex
	started []*Room
}

func (sr *startRecorder) onRoomFull(room *Room) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.started = append(sr.started, room)
}

func (sr *startRecorder) count() int {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return len(sr.started)
}

func (sr *startRecorder) first() *Room {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.started[0]
}

func human(id string) *game.Player {
	return &game.Player{ID: id, NickName: id}
}

func newTestManager(t *testing.T) (*RoomManager, *startRecorder, *quartz.Mock) {
	t.Helper()
	mockClock := quartz.NewMock(t)
	rm := NewRoomManager(log.New(io.Discard), mockClock, roomid.NewGenerator(randutil.New(5)), game.DefaultConfig())
	rec := &startRecorder{}
	rm.SetRoomFullCallback(rec.onRoomFull)
	return rm, rec, mockClock
}

func TestCreateRoomAndJoin(t *testing.T) {
	rm, _, _ := newTestManager(t)

	room, err := rm.CreateRoom(human("a"), game.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, roomid.Validate(room.ID))
	assert.False(t, room.Public)
	assert.Equal(t, RoomWaiting, room.State)

	joined, err := rm.JoinRoom(room.ID, human("b"))
	require.NoError(t, err)
	assert.Equal(t, room.ID, joined.ID)
	assert.Len(t, joined.Players, 2)

	_, err = rm.JoinRoom("ZZZZZZ", human("c"))
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinRoomFull(t *testing.T) {
	rm, _, _ := newTestManager(t)

	room, err := rm.CreateRoom(human("a"), game.DefaultConfig())
	require.NoError(t, err)
	for _, id := range []string{"b", "c", "d"} {
		_, err = rm.JoinRoom(room.ID, human(id))
		require.NoError(t, err)
	}

	_, err = rm.JoinRoom(room.ID, human("e"))
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestPlayerInOneRoomAtATime(t *testing.T) {
	rm, _, _ := newTestManager(t)

	first, err := rm.CreateRoom(human("a"), game.DefaultConfig())
	require.NoError(t, err)

	second, err := rm.CreateRoom(human("a"), game.DefaultConfig())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// The first room lost its only human and is gone.
	_, ok := rm.Room(first.ID)
	assert.False(t, ok)

	room, ok := rm.RoomOf("a")
	require.True(t, ok)
	assert.Equal(t, second.ID, room.ID)
}

func TestQuickGameStagedCountdown(t *testing.T) {
	rm, rec, mockClock := newTestManager(t)
	ctx := context.Background()

	_, err := rm.QuickGame(human("a"))
	require.NoError(t, err)

	// One player never starts.
	mockClock.Advance(time.Minute).MustWait(ctx)
	assert.Equal(t, 0, rec.count())

	room, err := rm.QuickGame(human("b"))
	require.NoError(t, err)
	assert.Len(t, room.Players, 2)

	// A third join before the two-player countdown lapses rearms it.
	_, err = rm.QuickGame(human("c"))
	require.NoError(t, err)

	mockClock.Advance(quickStartTwo).MustWait(ctx)
	assert.Equal(t, 0, rec.count(), "stale two-player countdown must not fire")

	mockClock.Advance(quickStartThree - quickStartTwo).MustWait(ctx)
	require.Equal(t, 1, rec.count())
	assert.Equal(t, room.ID, rec.first().ID)
	assert.Equal(t, RoomStarted, rec.first().State)
}

func TestQuickGameTwoPlayerStart(t *testing.T) {
	rm, rec, mockClock := newTestManager(t)
	ctx := context.Background()

	_, err := rm.QuickGame(human("a"))
	require.NoError(t, err)
	_, err = rm.QuickGame(human("b"))
	require.NoError(t, err)

	mockClock.Advance(quickStartTwo).MustWait(ctx)
	assert.Equal(t, 1, rec.count())
}

func TestQuickGameCountdownCancelledOnLeave(t *testing.T) {
	rm, rec, mockClock := newTestManager(t)
	ctx := context.Background()

	_, err := rm.QuickGame(human("a"))
	require.NoError(t, err)
	_, err = rm.QuickGame(human("b"))
	require.NoError(t, err)

	_, _, _, err = rm.LeaveRoom("b")
	require.NoError(t, err)

	mockClock.Advance(time.Minute).MustWait(ctx)
	assert.Equal(t, 0, rec.count())
}

func TestQuickGameFillsOldestRoom(t *testing.T) {
	rm, _, _ := newTestManager(t)

	first, err := rm.QuickGame(human("a"))
	require.NoError(t, err)
	second, err := rm.QuickGame(human("b"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateBotRoomStartsImmediately(t *testing.T) {
	rm, rec, _ := newTestManager(t)

	room, err := rm.CreateBotRoom(human("a"), game.DefaultConfig(), []bot.Difficulty{bot.Easy, bot.Hard})
	require.NoError(t, err)

	require.Equal(t, 1, rec.count())
	assert.Equal(t, RoomStarted, room.State)
	require.Len(t, room.Players, 3)
	assert.False(t, room.Players[0].IsBot)
	assert.True(t, room.Players[1].IsBot)
	assert.Equal(t, bot.Easy, room.Players[1].Difficulty)
	assert.Equal(t, bot.Hard, room.Players[2].Difficulty)
}

func TestCreateBotRoomDefaultsToOneMediumBot(t *testing.T) {
	rm, _, _ := newTestManager(t)

	room, err := rm.CreateBotRoom(human("a"), game.DefaultConfig(), nil)
	require.NoError(t, err)
	require.Len(t, room.Players, 2)
	assert.Equal(t, bot.Medium, room.Players[1].Difficulty)
}

func TestStartPrivateGame(t *testing.T) {
	rm, rec, _ := newTestManager(t)

	room, err := rm.CreateRoom(human("a"), game.DefaultConfig())
	require.NoError(t, err)

	_, err = rm.StartPrivateGame(room.ID)
	assert.ErrorIs(t, err, ErrNotEnoughSeats)

	_, err = rm.JoinRoom(room.ID, human("b"))
	require.NoError(t, err)

	_, err = rm.StartPrivateGame(room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.count())

	_, err = rm.StartPrivateGame(room.ID)
	assert.ErrorIs(t, err, ErrRoomStarted)

	_, err = rm.JoinRoom(room.ID, human("c"))
	assert.ErrorIs(t, err, ErrRoomStarted)
}

func TestLeaveRoomDestroysWhenEmpty(t *testing.T) {
	rm, _, _ := newTestManager(t)

	room, err := rm.CreateRoom(human("a"), game.DefaultConfig())
	require.NoError(t, err)

	left, destroyed, started, err := rm.LeaveRoom("a")
	require.NoError(t, err)
	assert.Equal(t, room.ID, left.ID)
	assert.True(t, destroyed)
	assert.False(t, started)
	assert.Equal(t, 0, rm.RoomCount())

	_, _, _, err = rm.LeaveRoom("a")
	assert.ErrorIs(t, err, ErrNotInRoom)
}

func TestLeaveStartedBotRoomDestroys(t *testing.T) {
	rm, _, _ := newTestManager(t)

	_, err := rm.CreateBotRoom(human("a"), game.DefaultConfig(), nil)
	require.NoError(t, err)

	// Bots alone cannot keep a room alive.
	_, destroyed, started, err := rm.LeaveRoom("a")
	require.NoError(t, err)
	assert.True(t, destroyed)
	assert.True(t, started)
	assert.Equal(t, 0, rm.RoomCount())
}

func TestLeaveRoomLeavesStartedSeatListIntact(t *testing.T) {
	rm, rec, _ := newTestManager(t)

	room, err := rm.CreateBotRoom(human("a"), game.DefaultConfig(), []bot.Difficulty{bot.Easy, bot.Hard})
	require.NoError(t, err)

	// The engine was handed this seat list when the room started.
	seats := rec.first().Players
	require.Len(t, seats, 3)

	_, destroyed, _, err := rm.LeaveRoom("a")
	require.NoError(t, err)
	assert.True(t, destroyed)

	// Removal rebuilds room.Players; the started list keeps its seats.
	require.Len(t, seats, 3)
	assert.Equal(t, "a", seats[0].ID)
	assert.NotEqual(t, seats[1].ID, seats[2].ID)
	assert.Len(t, room.Players, 2)
}

func TestSeatsReturnsACopy(t *testing.T) {
	rm, _, _ := newTestManager(t)

	room, err := rm.CreateRoom(human("a"), game.DefaultConfig())
	require.NoError(t, err)

	seats := rm.Seats(room.ID)
	require.Len(t, seats, 1)

	_, err = rm.JoinRoom(room.ID, human("b"))
	require.NoError(t, err)

	assert.Len(t, seats, 1)
	assert.Len(t, rm.Seats(room.ID), 2)
	assert.Nil(t, rm.Seats("ZZZZZZ"))
}

func TestMajorityConfig(t *testing.T) {
	defaults := game.DefaultConfig()

	votes := map[string]game.Config{
		"a": {SlapDown: false, TimePerPlayer: 30, CanCallYaniv: 5, MaxMatchPoints: 200},
		"b": {SlapDown: false, TimePerPlayer: 20, CanCallYaniv: 5, MaxMatchPoints: 100},
		"c": {SlapDown: true, TimePerPlayer: 10, CanCallYaniv: 7, MaxMatchPoints: 100},
	}

	cfg := majorityConfig(votes, defaults)

	// Two of three agree.
	assert.False(t, cfg.SlapDown)
	assert.Equal(t, 5, cfg.CanCallYaniv)
	assert.Equal(t, 100, cfg.MaxMatchPoints)
	// Three-way split falls back to the default.
	assert.Equal(t, defaults.TimePerPlayer, cfg.TimePerPlayer)
}

func TestMajorityConfigNoVotes(t *testing.T) {
	defaults := game.DefaultConfig()
	assert.Equal(t, defaults, majorityConfig(nil, defaults))
}

func TestMajorityConfigEvenSplit(t *testing.T) {
	defaults := game.DefaultConfig()
	votes := map[string]game.Config{
		"a": {SlapDown: false, TimePerPlayer: 30, CanCallYaniv: 5, MaxMatchPoints: 200},
		"b": {SlapDown: true, TimePerPlayer: 20, CanCallYaniv: 7, MaxMatchPoints: 100},
	}

	// A strict majority needs more than half; one vote each is a tie.
	cfg := majorityConfig(votes, defaults)
	assert.Equal(t, defaults, cfg)
}
