package services

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ad/go-telegram-reminder/internal/db"
	"github.com/ad/go-telegram-reminder/internal/models"
	_ "modernc.org/sqlite"
	"pgregory.net/rapid"
)

var testUserSeq int64

func nextUserID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, atomic.AddInt64(&testUserSeq, 1))
}

func setupTestDB(t *testing.T) (*db.UserRepository, *db.ReminderRepository, func()) {
	sqlDB, err := sql.Open("sqlite", "file::memory:?cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.InitSchema(sqlDB); err != nil {
		t.Fatal(err)
	}

	queue := db.NewDBQueueForTest(sqlDB)
	users := db.NewUserRepository(queue)
	reminders := db.NewReminderRepository(queue)
	return users, reminders, func() {
		queue.Close()
		sqlDB.Close()
	}
}

func newTestEngine(t *testing.T, now time.Time) (*Engine, *db.UserRepository, *db.ReminderRepository, *Serializer, func()) {
	users, reminders, cleanup := setupTestDB(t)
	serializer := NewSerializer()
	engine := NewEngineWithClock(users, reminders, serializer, func() time.Time { return now })
	return engine, users, reminders, serializer, cleanup
}

func createUserAt(t *testing.T, users *db.UserRepository, userID string, phase, day int) {
	if err := users.Create(userID); err != nil {
		t.Fatal(err)
	}
	user, err := users.GetByID(userID)
	if err != nil {
		t.Fatal(err)
	}
	user.CurrentPhase = phase
	user.CurrentDay = day
	if err := users.Save(user); err != nil {
		t.Fatal(err)
	}
}

func TestEndToEndScenario(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine, users, reminders, _, cleanup := newTestEngine(t, now)
	defer cleanup()

	userID := nextUserID("e2e")
	createUserAt(t, users, userID, 1, 3)

	_, err := reminders.Create(&models.Reminder{Phase: 1, Day: 3, Focus: "Loops", Resource: "Book ch. 4", Practice: "Write a for loop"})
	if err != nil {
		t.Fatal(err)
	}

	reply := engine.Handle(userID, CmdRemindNow, nil)
	if !strings.Contains(reply, "Loops") {
		t.Fatalf("remind_now reply = %q, expected focus Loops", reply)
	}

	reply = engine.Handle(userID, CmdSkip, nil)
	if !strings.Contains(reply, "day 4") {
		t.Fatalf("skip reply = %q, expected day 4", reply)
	}
	user, err := users.GetByID(userID)
	if err != nil {
		t.Fatal(err)
	}
	if user.CurrentDay != 4 {
		t.Fatalf("expected current day 4, got %d", user.CurrentDay)
	}

	// No entry for (1, 4).
	reply = engine.Handle(userID, CmdRemindNow, nil)
	if reply != MsgNoReminder {
		t.Fatalf("remind_now reply = %q, want %q", reply, MsgNoReminder)
	}

	reply = engine.Handle(userID, CmdPauseFor, []string{"2"})
	if !strings.Contains(reply, "2 days") {
		t.Fatalf("pause_for reply = %q", reply)
	}
	user, err = users.GetByID(userID)
	if err != nil {
		t.Fatal(err)
	}
	if user.PausedUntil == nil {
		t.Fatal("expected paused_until to be set")
	}
	want := now.Add(2 * 24 * time.Hour)
	if diff := user.PausedUntil.Sub(want); diff < -time.Second || diff > time.Second {
		t.Fatalf("paused_until = %v, want within 1s of %v", user.PausedUntil, want)
	}

	reply = engine.Handle(userID, CmdStatus, nil)
	if !strings.Contains(reply, "Paused until") {
		t.Fatalf("status reply = %q, expected paused", reply)
	}

	reply = engine.Handle(userID, CmdResume, nil)
	if reply != MsgResumed {
		t.Fatalf("resume reply = %q, want %q", reply, MsgResumed)
	}
	reply = engine.Handle(userID, CmdStatus, nil)
	if !strings.Contains(reply, "Active") {
		t.Fatalf("status reply = %q, expected active", reply)
	}
}

func TestSkipMonotonicity(t *testing.T) {
	engine, users, _, _, cleanup := newTestEngine(t, time.Now())
	defer cleanup()

	rapid.Check(t, func(rt *rapid.T) {
		phase := rapid.IntRange(0, 50).Draw(rt, "phase")
		day := rapid.IntRange(0, 1000).Draw(rt, "day")

		userID := nextUserID("skip")
		createUserAt(t, users, userID, phase, day)

		reply := engine.Handle(userID, CmdSkip, nil)
		if reply == MsgStoreError || reply == MsgUserNotFound {
			rt.Fatalf("skip failed: %q", reply)
		}

		user, err := users.GetByID(userID)
		if err != nil {
			rt.Fatal(err)
		}
		if user.CurrentDay != day+1 {
			rt.Fatalf("skip from day %d gave day %d, want %d", day, user.CurrentDay, day+1)
		}
		if user.CurrentPhase != phase {
			rt.Fatalf("skip changed phase from %d to %d", phase, user.CurrentPhase)
		}
	})
}

func TestResumeIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine, users, _, _, cleanup := newTestEngine(t, now)
	defer cleanup()

	userID := nextUserID("resume")
	createUserAt(t, users, userID, 1, 1)

	engine.Handle(userID, CmdPauseFor, []string{"3"})

	for i := 0; i < 2; i++ {
		reply := engine.Handle(userID, CmdResume, nil)
		if reply != MsgResumed {
			t.Fatalf("resume #%d reply = %q, want %q", i+1, reply, MsgResumed)
		}
		user, err := users.GetByID(userID)
		if err != nil {
			t.Fatal(err)
		}
		if user.PausedUntil != nil {
			t.Fatalf("resume #%d left paused_until = %v", i+1, user.PausedUntil)
		}
	}
}

func TestPauseForValidation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine, users, _, _, cleanup := newTestEngine(t, now)
	defer cleanup()

	userID := nextUserID("pause")
	createUserAt(t, users, userID, 1, 1)

	for _, arg := range [][]string{{"0"}, {"-3"}, {"abc"}, {"2.5"}, nil} {
		reply := engine.Handle(userID, CmdPauseFor, arg)
		if !strings.Contains(reply, "positive number of days") {
			t.Fatalf("pause_for(%v) reply = %q, expected validation message", arg, reply)
		}
		user, err := users.GetByID(userID)
		if err != nil {
			t.Fatal(err)
		}
		if user.PausedUntil != nil {
			t.Fatalf("pause_for(%v) mutated paused_until", arg)
		}
	}

	engine.Handle(userID, CmdPauseFor, []string{"5"})
	user, err := users.GetByID(userID)
	if err != nil {
		t.Fatal(err)
	}
	if user.PausedUntil == nil {
		t.Fatal("expected paused_until to be set")
	}
	want := now.Add(5 * 24 * time.Hour)
	if diff := user.PausedUntil.Sub(want); diff < -time.Second || diff > time.Second {
		t.Fatalf("paused_until = %v, want within 1s of %v", user.PausedUntil, want)
	}
}

func listedDays(t *testing.T, reply string) []int {
	t.Helper()
	var days []int
	for _, line := range strings.Split(reply, "\n") {
		var day int
		var rest string
		if n, _ := fmt.Sscanf(line, "Day %d: %s", &day, &rest); n >= 1 {
			days = append(days, day)
		}
	}
	return days
}

func TestRangeSymmetry(t *testing.T) {
	engine, users, reminders, _, cleanup := newTestEngine(t, time.Now())
	defer cleanup()

	const phase = 91 // unique to this test
	userID := nextUserID("range")
	createUserAt(t, users, userID, phase, 10)

	for day := 1; day <= 20; day++ {
		_, err := reminders.Create(&models.Reminder{Phase: phase, Day: day, Focus: fmt.Sprintf("Topic %d", day)})
		if err != nil {
			t.Fatal(err)
		}
	}

	prev := listedDays(t, engine.Handle(userID, CmdPrev7, nil))
	wantPrev := []int{3, 4, 5, 6, 7, 8, 9}
	if fmt.Sprint(prev) != fmt.Sprint(wantPrev) {
		t.Fatalf("prev7 days = %v, want %v", prev, wantPrev)
	}

	next := listedDays(t, engine.Handle(userID, CmdNext7, nil))
	wantNext := []int{11, 12, 13, 14, 15, 16, 17}
	if fmt.Sprint(next) != fmt.Sprint(wantNext) {
		t.Fatalf("next7 days = %v, want %v", next, wantNext)
	}
}

func TestRangeEmpty(t *testing.T) {
	engine, users, _, _, cleanup := newTestEngine(t, time.Now())
	defer cleanup()

	const phase = 92
	userID := nextUserID("range-empty")
	createUserAt(t, users, userID, phase, 10)

	reply := engine.Handle(userID, CmdNext7, nil)
	if !strings.Contains(reply, "No reminders found") {
		t.Fatalf("next7 with empty catalog reply = %q", reply)
	}
}

func TestFullPhase(t *testing.T) {
	engine, users, reminders, _, cleanup := newTestEngine(t, time.Now())
	defer cleanup()

	// Distinct phrasing for a missing user on full_phase.
	reply := engine.Handle(nextUserID("nobody"), CmdFullPhase, []string{"1"})
	if reply != MsgNoUserFound {
		t.Fatalf("full_phase for missing user = %q, want %q", reply, MsgNoUserFound)
	}

	const phase = 93
	userID := nextUserID("phase")
	createUserAt(t, users, userID, phase, 1)

	for _, day := range []int{3, 1, 2} {
		_, err := reminders.Create(&models.Reminder{Phase: phase, Day: day, Focus: fmt.Sprintf("Topic %d", day)})
		if err != nil {
			t.Fatal(err)
		}
	}

	days := listedDays(t, engine.Handle(userID, CmdFullPhase, []string{fmt.Sprint(phase)}))
	if fmt.Sprint(days) != fmt.Sprint([]int{1, 2, 3}) {
		t.Fatalf("full_phase days = %v, want ascending 1 2 3", days)
	}

	reply = engine.Handle(userID, CmdFullPhase, []string{"notanumber"})
	if !strings.Contains(reply, "phase number") {
		t.Fatalf("full_phase with bad arg reply = %q", reply)
	}
	reply = engine.Handle(userID, CmdFullPhase, []string{"-1"})
	if !strings.Contains(reply, "phase number") {
		t.Fatalf("full_phase with negative arg reply = %q", reply)
	}

	reply = engine.Handle(userID, CmdFullPhase, []string{"77"})
	if !strings.Contains(reply, "No reminders found for phase 77") {
		t.Fatalf("full_phase for empty phase reply = %q", reply)
	}
}

func TestSetAndGetTime(t *testing.T) {
	engine, users, _, _, cleanup := newTestEngine(t, time.Now())
	defer cleanup()

	userID := nextUserID("time")
	createUserAt(t, users, userID, 1, 1)

	// Default before any set.
	reply := engine.Handle(userID, CmdRemindTime, nil)
	if !strings.Contains(reply, "10:00 AM") {
		t.Fatalf("remind_time default reply = %q, want 10:00 AM", reply)
	}

	reply = engine.Handle(userID, CmdSetTime, []string{"20:30"})
	if !strings.Contains(reply, "8:30 PM") {
		t.Fatalf("set_time reply = %q, want 8:30 PM", reply)
	}
	user, err := users.GetByID(userID)
	if err != nil {
		t.Fatal(err)
	}
	if user.ReminderTime != "20:30" {
		t.Fatalf("stored reminder time = %q, want 20:30", user.ReminderTime)
	}

	// Single-digit hour canonicalizes with a leading zero.
	engine.Handle(userID, CmdSetTime, []string{"8:05"})
	user, err = users.GetByID(userID)
	if err != nil {
		t.Fatal(err)
	}
	if user.ReminderTime != "08:05" {
		t.Fatalf("stored reminder time = %q, want 08:05", user.ReminderTime)
	}

	for _, bad := range []string{"24:00", "12:60", "junk"} {
		reply = engine.Handle(userID, CmdSetTime, []string{bad})
		if !strings.Contains(reply, "Invalid time format") {
			t.Fatalf("set_time(%q) reply = %q, expected validation message", bad, reply)
		}
	}
	user, err = users.GetByID(userID)
	if err != nil {
		t.Fatal(err)
	}
	if user.ReminderTime != "08:05" {
		t.Fatalf("invalid set_time mutated stored time to %q", user.ReminderTime)
	}
}

func TestUserNotFound(t *testing.T) {
	engine, _, _, _, cleanup := newTestEngine(t, time.Now())
	defer cleanup()

	userID := nextUserID("missing")
	for _, cmd := range []Command{CmdRemindNow, CmdSkip, CmdResume, CmdStatus, CmdPrev7, CmdNext7, CmdRemindTime} {
		reply := engine.Handle(userID, cmd, nil)
		if reply != MsgUserNotFound {
			t.Fatalf("%s for missing user = %q, want %q", cmd, reply, MsgUserNotFound)
		}
	}
}

func TestStartRegistersUser(t *testing.T) {
	engine, users, _, _, cleanup := newTestEngine(t, time.Now())
	defer cleanup()

	userID := nextUserID("start")
	reply := engine.Handle(userID, CmdStart, nil)
	if reply != MsgWelcome {
		t.Fatalf("start reply = %q, want welcome", reply)
	}

	user, err := users.GetByID(userID)
	if err != nil {
		t.Fatal(err)
	}
	if user == nil {
		t.Fatal("start did not create the user")
	}
	if user.CurrentPhase != 1 || user.CurrentDay != 1 || user.ReminderTime != "10:00" {
		t.Fatalf("unexpected defaults: phase %d day %d time %q", user.CurrentPhase, user.CurrentDay, user.ReminderTime)
	}

	// Re-running start must not reset progress.
	u := *user
	u.CurrentDay = 9
	if err := users.Save(&u); err != nil {
		t.Fatal(err)
	}
	engine.Handle(userID, CmdStart, nil)
	user, err = users.GetByID(userID)
	if err != nil {
		t.Fatal(err)
	}
	if user.CurrentDay != 9 {
		t.Fatalf("start reset current day to %d", user.CurrentDay)
	}
}

func TestBusyWhileInFlight(t *testing.T) {
	engine, users, _, serializer, cleanup := newTestEngine(t, time.Now())
	defer cleanup()

	userID := nextUserID("busy")
	createUserAt(t, users, userID, 1, 1)

	if !serializer.Acquire(userID) {
		t.Fatal("could not take marker")
	}
	reply := engine.Handle(userID, CmdSkip, nil)
	if reply != MsgBusy {
		t.Fatalf("expected busy reply, got %q", reply)
	}
	user, err := users.GetByID(userID)
	if err != nil {
		t.Fatal(err)
	}
	if user.CurrentDay != 1 {
		t.Fatalf("busy command mutated state: day %d", user.CurrentDay)
	}

	serializer.Release(userID)
	reply = engine.Handle(userID, CmdSkip, nil)
	if reply == MsgBusy {
		t.Fatal("command should run after marker release")
	}
}

func TestConcurrentSkipsSerialized(t *testing.T) {
	engine, users, _, _, cleanup := newTestEngine(t, time.Now())
	defer cleanup()

	userID := nextUserID("race")
	createUserAt(t, users, userID, 1, 5)

	const attempts = 10
	var applied int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if reply := engine.Handle(userID, CmdSkip, nil); reply != MsgBusy {
				atomic.AddInt64(&applied, 1)
			}
		}()
	}
	wg.Wait()

	if applied < 1 {
		t.Fatal("at least one skip should have been applied")
	}
	user, err := users.GetByID(userID)
	if err != nil {
		t.Fatal(err)
	}
	// Every applied skip advanced the day exactly once; no lost updates.
	if user.CurrentDay != 5+int(applied) {
		t.Fatalf("day = %d after %d applied skips from day 5", user.CurrentDay, applied)
	}
}
