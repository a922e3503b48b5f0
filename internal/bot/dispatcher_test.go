package bot

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tsoracle/internal/domain"
	"tsoracle/internal/services"
	"tsoracle/internal/ts"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:dispatcher_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.UserRegistration{}, &domain.RecordedEvent{}, &domain.MetaEvent{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// fakeMessenger records channel messages instead of sending them.
type fakeMessenger struct {
	mu   sync.Mutex
	sent []string
}

func (m *fakeMessenger) SendChannelMessage(msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMessenger) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func newTestDispatcher(t *testing.T, db *gorm.DB, msgr *fakeMessenger) *Dispatcher {
	t.Helper()
	return NewDispatcher(
		services.NewEventStore(db),
		services.NewSessionResolver(db),
		msgr,
		NewLocalizer("de"),
		0, // no command throttle in tests unless set explicitly
		1,
		zerolog.Nop(),
	)
}

func countEvents(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&domain.RecordedEvent{}).Count(&n).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return n
}

func TestHandleTextMessage_RegisterFlow(t *testing.T) {
	db := newTestDB(t)
	msgr := &fakeMessenger{}
	d := newTestDispatcher(t, db, msgr)
	ctx := context.Background()

	d.HandleTextMessage(ctx, ts.TextMessage{
		InvokerUID: "U1",
		SessionID:  11,
		TargetMode: textModeChannel,
		Message:    "!register",
	})

	var u domain.User
	if err := db.First(&u, "unique_id = ?", "U1").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !u.HasAgreed {
		t.Fatal("register command did not flip consent")
	}
	if got := msgr.messages(); len(got) != 1 || got[0] != "Erfolgreich registriert!" {
		t.Fatalf("unexpected confirmations: %v", got)
	}

	// Second register: no-op, no second confirmation.
	d.HandleTextMessage(ctx, ts.TextMessage{
		InvokerUID: "U1",
		SessionID:  11,
		TargetMode: textModeChannel,
		Message:    "!register",
	})
	if got := msgr.messages(); len(got) != 1 {
		t.Fatalf("no-op register must stay quiet, got %v", got)
	}

	// Unregister flips back and confirms.
	d.HandleTextMessage(ctx, ts.TextMessage{
		InvokerUID: "U1",
		SessionID:  11,
		TargetMode: textModeChannel,
		Message:    "!unregister",
	})
	if err := db.First(&u, "unique_id = ?", "U1").Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if u.HasAgreed {
		t.Fatal("unregister command did not clear consent")
	}
	if got := msgr.messages(); len(got) != 2 || got[1] != "Erfolgreich abgemeldet!" {
		t.Fatalf("unexpected confirmations: %v", got)
	}
}

func TestHandleTextMessage_CommandsAreExactAndCaseSensitive(t *testing.T) {
	db := newTestDB(t)
	msgr := &fakeMessenger{}
	d := newTestDispatcher(t, db, msgr)
	ctx := context.Background()

	for _, msg := range []string{"!Register", "!REGISTER", "!register ", "register", "hello"} {
		d.HandleTextMessage(ctx, ts.TextMessage{
			InvokerUID: "U1",
			SessionID:  11,
			TargetMode: textModeChannel,
			Message:    msg,
		})
	}

	var n int64
	if err := db.Model(&domain.User{}).Count(&n).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if n != 0 || len(msgr.messages()) != 0 {
		t.Fatalf("non-commands must be ignored: users=%d msgs=%v", n, msgr.messages())
	}
}

func TestHandleTextMessage_IgnoresNonChannelAndMalformed(t *testing.T) {
	db := newTestDB(t)
	msgr := &fakeMessenger{}
	d := newTestDispatcher(t, db, msgr)
	ctx := context.Background()

	// Private message: not the bot's surface.
	d.HandleTextMessage(ctx, ts.TextMessage{InvokerUID: "U1", TargetMode: 1, Message: "!register"})
	// Missing invoker identity: logged and dropped.
	d.HandleTextMessage(ctx, ts.TextMessage{TargetMode: textModeChannel, Message: "!register"})

	var n int64
	if err := db.Model(&domain.User{}).Count(&n).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if n != 0 || len(msgr.messages()) != 0 {
		t.Fatalf("expected no side effects: users=%d msgs=%v", n, msgr.messages())
	}
}

func TestHandleTextMessage_RateLimited(t *testing.T) {
	db := newTestDB(t)
	msgr := &fakeMessenger{}
	d := NewDispatcher(
		services.NewEventStore(db),
		services.NewSessionResolver(db),
		msgr,
		NewLocalizer("de"),
		1, 1, // one command, then throttled
		zerolog.Nop(),
	)
	ctx := context.Background()

	d.HandleTextMessage(ctx, ts.TextMessage{InvokerUID: "U1", SessionID: 1, TargetMode: textModeChannel, Message: "!register"})
	d.HandleTextMessage(ctx, ts.TextMessage{InvokerUID: "U1", SessionID: 1, TargetMode: textModeChannel, Message: "!unregister"})

	var u domain.User
	if err := db.First(&u, "unique_id = ?", "U1").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !u.HasAgreed {
		t.Fatal("throttled unregister must not have run")
	}
	if got := msgr.messages(); len(got) != 1 {
		t.Fatalf("expected one confirmation, got %v", got)
	}
}

func TestJoinLeaveScenario_AgreedUser(t *testing.T) {
	db := newTestDB(t)
	msgr := &fakeMessenger{}
	d := newTestDispatcher(t, db, msgr)
	ctx := context.Background()
	store := services.NewEventStore(db)

	// U2 agreed earlier.
	if _, err := store.RegisterUser(ctx, "U2", 40, time.Now().UTC().Add(-time.Hour)); err != nil {
		t.Fatalf("seed register: %v", err)
	}
	before := countEvents(t, db)

	channel := 5
	d.HandleClientJoined(ctx, ts.ClientJoined{UniqueID: "U2", SessionID: 42, ChannelID: channel})
	if got := countEvents(t, db); got != before+1 {
		t.Fatalf("join of agreed user must write one row, have %d want %d", got, before+1)
	}

	d.HandleClientLeft(ctx, ts.ClientLeft{SessionID: 42})
	if got := countEvents(t, db); got != before+2 {
		t.Fatalf("leave must resolve via the join trail and write one row, have %d", got)
	}

	var ev domain.RecordedEvent
	if err := db.Where("event_type = ?", domain.EventClientLeft).First(&ev).Error; err != nil {
		t.Fatalf("load leave event: %v", err)
	}
	var u domain.User
	if err := db.First(&u, "unique_id = ?", "U2").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if ev.TargetID == nil || *ev.TargetID != u.ID {
		t.Fatalf("leave not attributed to U2: %+v", ev)
	}
}

func TestJoinLeaveScenario_NeverRegisteredUser(t *testing.T) {
	db := newTestDB(t)
	msgr := &fakeMessenger{}
	d := newTestDispatcher(t, db, msgr)
	ctx := context.Background()

	d.HandleClientJoined(ctx, ts.ClientJoined{UniqueID: "stranger", SessionID: 99, ChannelID: 1})
	if got := countEvents(t, db); got != 0 {
		t.Fatalf("consent gate must drop the join, got %d rows", got)
	}

	// The user row itself exists (insert-if-absent), with consent off.
	var u domain.User
	if err := db.First(&u, "unique_id = ?", "stranger").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if u.HasAgreed {
		t.Fatal("join must not grant consent")
	}

	// No join row exists, so the later leave is unattributable.
	d.HandleClientLeft(ctx, ts.ClientLeft{SessionID: 99})
	if got := countEvents(t, db); got != 0 {
		t.Fatalf("leave for unattributable session must write nothing, got %d rows", got)
	}
}

func TestHandleClientMoved(t *testing.T) {
	db := newTestDB(t)
	msgr := &fakeMessenger{}
	d := newTestDispatcher(t, db, msgr)
	ctx := context.Background()
	store := services.NewEventStore(db)

	if _, err := store.RegisterUser(ctx, "mover", 7, time.Now().UTC()); err != nil {
		t.Fatalf("seed register: %v", err)
	}
	before := countEvents(t, db)

	// The moved session never joined attributably; the agreed mover carries
	// the row through the consent gate.
	d.HandleClientMoved(ctx, ts.ClientMoved{InvokerUID: "mover", SessionID: 55, ChannelID: 9})
	if got := countEvents(t, db); got != before+1 {
		t.Fatalf("expected one move row, have %d want %d", got, before+1)
	}

	var ev domain.RecordedEvent
	if err := db.Where("event_type = ?", domain.EventClientMoved).First(&ev).Error; err != nil {
		t.Fatalf("load move event: %v", err)
	}
	if ev.InvokerID == nil || ev.TargetID != nil {
		t.Fatalf("expected invoker-only attribution: %+v", ev)
	}
	if ev.ChannelID == nil || *ev.ChannelID != 9 {
		t.Fatalf("channel not stored: %+v", ev)
	}
}

func TestHandleClientMoved_NobodyAttributable(t *testing.T) {
	db := newTestDB(t)
	msgr := &fakeMessenger{}
	d := newTestDispatcher(t, db, msgr)

	d.HandleClientMoved(context.Background(), ts.ClientMoved{SessionID: 55, ChannelID: 9})
	if got := countEvents(t, db); got != 0 {
		t.Fatalf("expected no rows, got %d", got)
	}
}
