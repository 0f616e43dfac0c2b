package state

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	tele "gopkg.in/telebot.v4"
)

const stateTest State = "test_await"

func newContext(t *testing.T, userID int64, text string) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("offline bot: %v", err)
	}
	return bot.NewContext(tele.Update{
		ID: 1,
		Message: &tele.Message{
			Text:   text,
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID},
		},
	})
}

func exerciseManager(t *testing.T, mgr Manager) {
	t.Helper()
	const uid = 42

	if mgr.InProgress(uid) || mgr.GetState(uid) != StateIdle {
		t.Fatal("fresh user should be idle")
	}
	mgr.SetState(uid, stateTest)
	mgr.SetTemp(uid, "question_id", int64(17))
	if !mgr.InProgress(uid) {
		t.Fatal("user should be in progress")
	}
	if got, ok := mgr.GetTempInt64(uid, "question_id"); !ok || got != 17 {
		t.Fatalf("GetTempInt64 = %d, %v", got, ok)
	}
	if _, ok := mgr.GetTemp(uid, "missing"); ok {
		t.Fatal("missing key reported present")
	}
	if sess := mgr.Get(uid); sess.State != stateTest {
		t.Fatalf("session state = %s", sess.State)
	}

	var seen string
	RegisterHandler(stateTest, func(c tele.Context) error {
		seen = c.Text()
		return nil
	})
	if err := mgr.ManagerHandler(newContext(t, uid, "hello")); err != nil {
		t.Fatalf("ManagerHandler: %v", err)
	}
	if seen != "hello" {
		t.Fatalf("handler saw %q", seen)
	}

	mgr.Clear(uid)
	if mgr.InProgress(uid) {
		t.Fatal("cleared user still in progress")
	}
	if _, ok := mgr.GetTempInt64(uid, "question_id"); ok {
		t.Fatal("temp data survived Clear")
	}
}

func TestMemoryManager(t *testing.T) {
	exerciseManager(t, NewMemoryManager())
}

func TestUnknownStateIsDropped(t *testing.T) {
	mgr := NewMemoryManager()
	mgr.SetState(9, State("orphan"))
	if err := mgr.ManagerHandler(newContext(t, 9, "x")); err != nil {
		t.Fatalf("ManagerHandler: %v", err)
	}
	if mgr.InProgress(9) {
		t.Fatal("orphan state should be cleared")
	}
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	mgr := NewMemoryManager()
	mgr.SetTemp(1, "k", "v")
	sess := mgr.Get(1)
	sess.TempData["k"] = "changed"
	if v, _ := mgr.GetTemp(1, "k"); v != "v" {
		t.Fatalf("stored value mutated through Get: %v", v)
	}
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		in   any
		want int64
		ok   bool
	}{
		{int64(5), 5, true},
		{7, 7, true},
		{float64(12), 12, true},
		{1.5, 0, false},
		{json.Number("99"), 99, true},
		{"31", 31, true},
		{"x", 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := toInt64(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("toInt64(%#v) = %d, %v", tt.in, got, ok)
		}
	}
}

func TestRedisManager(t *testing.T) {
	if testing.Short() {
		t.Skip("redis container tests skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	addr, err := ctr.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	mgr := NewRedisManager(client, RedisOptions{Prefix: "test:fsm", TTL: time.Minute})
	exerciseManager(t, mgr)

	mgr.SetState(5, stateTest)
	ttl, err := client.TTL(ctx, "test:fsm:5").Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %v, %v", ttl, err)
	}
}
