package services

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/ad/go-telegram-reminder/internal/db"
	"github.com/ad/go-telegram-reminder/internal/models"
)

// Command names as the dispatcher hands them to the engine.
type Command string

const (
	CmdStart      Command = "start"
	CmdHelp       Command = "help"
	CmdRemindNow  Command = "remind_now"
	CmdSkip       Command = "skip"
	CmdPauseFor   Command = "pause_for"
	CmdResume     Command = "resume"
	CmdStatus     Command = "status"
	CmdPrev7      Command = "prev7"
	CmdNext7      Command = "next7"
	CmdFullPhase  Command = "full_phase"
	CmdSetTime    Command = "set_time"
	CmdRemindTime Command = "remind_time"
)

const rangeSpan = 7

const (
	MsgBusy         = "⏳ Previous command is still processing, please wait."
	MsgStoreError   = "Something went wrong. Please try again later."
	MsgUserNotFound = "User not found."
	MsgNoUserFound  = "No user found."
	MsgNoReminder   = "No reminder found for today."
	MsgResumed      = "Reminders resumed."
	MsgUnknown      = "Unknown command. Send /help for the list of commands."

	MsgHelp = `🆘 Available Commands:

/remindnow - Get today's reminder
/skip - Skip today's reminder
/pausefor [days] - Pause reminders
/resume - Resume reminders
/status - View your status
/prev7 - Get past 7 days
/next7 - Get next 7 days
/fullphase [phase] - Get phase reminders
/timeset [HH:MM] - Set reminder time
/remindtime - Check reminder time`

	MsgWelcome = "👋 Welcome! You're set up on phase 1, day 1. Send /remindnow to get today's reminder or /help for all commands."

	msgPauseUsage = "Please provide a positive number of days, e.g. /pausefor 3"
	msgPhaseUsage = "Please provide a phase number, e.g. /fullphase 2"
	msgTimeUsage  = "Invalid time format. Use /timeset HH:MM (24-hour), e.g. /timeset 09:30"
)

// Engine interprets one command against the user's stored progress and
// answers with the reply text. All decisions are read-then-decide-then-write
// under the per-user serializer marker; storage round-trips are suspension
// points, so running without the marker could lose updates.
type Engine struct {
	users      *db.UserRepository
	reminders  *db.ReminderRepository
	serializer *Serializer
	now        func() time.Time
}

func NewEngine(users *db.UserRepository, reminders *db.ReminderRepository, serializer *Serializer) *Engine {
	return &Engine{
		users:      users,
		reminders:  reminders,
		serializer: serializer,
		now:        time.Now,
	}
}

// NewEngineWithClock injects the time source for deterministic tests.
func NewEngineWithClock(users *db.UserRepository, reminders *db.ReminderRepository, serializer *Serializer, now func() time.Time) *Engine {
	e := NewEngine(users, reminders, serializer)
	e.now = now
	return e
}

// Handle runs one command for one user. It acquires the per-user marker,
// answers busy if another command is in flight, and guarantees the marker
// is released on every exit path. Store failures never escape: they are
// logged and turned into a generic reply.
func (e *Engine) Handle(userID string, cmd Command, args []string) string {
	if !e.serializer.Acquire(userID) {
		return MsgBusy
	}
	defer e.serializer.Release(userID)

	reply, err := e.dispatch(userID, cmd, args)
	if err != nil {
		log.Printf("command %s failed for user %s: %v", cmd, userID, err)
		return MsgStoreError
	}
	return reply
}

func (e *Engine) dispatch(userID string, cmd Command, args []string) (string, error) {
	switch cmd {
	case CmdStart:
		return e.start(userID)
	case CmdHelp:
		return MsgHelp, nil
	case CmdRemindNow:
		return e.remindNow(userID)
	case CmdSkip:
		return e.skip(userID)
	case CmdPauseFor:
		return e.pauseFor(userID, args)
	case CmdResume:
		return e.resume(userID)
	case CmdStatus:
		return e.status(userID)
	case CmdPrev7:
		return e.listRange(userID, -1)
	case CmdNext7:
		return e.listRange(userID, 1)
	case CmdFullPhase:
		return e.fullPhase(userID, args)
	case CmdSetTime:
		return e.setTime(userID, args)
	case CmdRemindTime:
		return e.remindTime(userID)
	default:
		return MsgUnknown, nil
	}
}

func (e *Engine) start(userID string) (string, error) {
	if err := e.users.Create(userID); err != nil {
		return "", err
	}
	return MsgWelcome, nil
}

func (e *Engine) remindNow(userID string) (string, error) {
	user, err := e.users.GetByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return MsgUserNotFound, nil
	}

	reminder, err := e.reminders.GetByPhaseDay(user.CurrentPhase, user.CurrentDay)
	if err != nil {
		return "", err
	}
	if reminder == nil {
		return MsgNoReminder, nil
	}
	return fmt.Sprintf("🔔 Today's Reminder:\n✅ Focus: %s\n📘 Resource: %s\n📝 Practice: %s",
		reminder.Focus, reminder.Resource, reminder.Practice), nil
}

func (e *Engine) skip(userID string) (string, error) {
	user, err := e.users.GetByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return MsgUserNotFound, nil
	}

	user.CurrentDay++
	if err := e.users.Save(user); err != nil {
		return "", err
	}
	return fmt.Sprintf("Today's reminder skipped. Now on day %d.", user.CurrentDay), nil
}

func (e *Engine) pauseFor(userID string, args []string) (string, error) {
	user, err := e.users.GetByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return MsgUserNotFound, nil
	}

	if len(args) == 0 {
		return msgPauseUsage, nil
	}
	days, err := strconv.Atoi(args[0])
	if err != nil || days <= 0 {
		return msgPauseUsage, nil
	}

	until := e.now().Add(time.Duration(days) * 24 * time.Hour)
	if err := e.users.SetPausedUntil(userID, &until); err != nil {
		return "", err
	}
	return fmt.Sprintf("Reminders paused for %d days.", days), nil
}

func (e *Engine) resume(userID string) (string, error) {
	user, err := e.users.GetByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return MsgUserNotFound, nil
	}

	// Unconditional clear, idempotent even when not paused.
	if err := e.users.SetPausedUntil(userID, nil); err != nil {
		return "", err
	}
	return MsgResumed, nil
}

func (e *Engine) status(userID string) (string, error) {
	user, err := e.users.GetByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return MsgUserNotFound, nil
	}

	state := "Active"
	if user.IsPaused(e.now()) {
		state = fmt.Sprintf("Paused until %s", user.PausedUntil.Format("2006-01-02"))
	}
	return fmt.Sprintf("📊 Status:\nPhase: %d\nDay: %d\nReminders: %s",
		user.CurrentPhase, user.CurrentDay, state), nil
}

// listRange answers /prev7 and /next7. Today is excluded from both
// windows: previous is [cur-7, cur), next is (cur, cur+7].
func (e *Engine) listRange(userID string, direction int) (string, error) {
	user, err := e.users.GetByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return MsgUserNotFound, nil
	}

	var fromDay, toDay int
	var header string
	if direction < 0 {
		fromDay, toDay = user.CurrentDay-rangeSpan, user.CurrentDay-1
		header = fmt.Sprintf("📅 Past %d days:", rangeSpan)
	} else {
		fromDay, toDay = user.CurrentDay+1, user.CurrentDay+rangeSpan
		header = fmt.Sprintf("📅 Next %d days:", rangeSpan)
	}

	reminders, err := e.reminders.GetRange(user.CurrentPhase, fromDay, toDay)
	if err != nil {
		return "", err
	}
	if len(reminders) == 0 {
		return "No reminders found in that range.", nil
	}
	return formatReminderList(header, reminders), nil
}

func (e *Engine) fullPhase(userID string, args []string) (string, error) {
	user, err := e.users.GetByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return MsgNoUserFound, nil
	}

	if len(args) == 0 {
		return msgPhaseUsage, nil
	}
	phase, err := strconv.Atoi(args[0])
	if err != nil || phase < 0 {
		return msgPhaseUsage, nil
	}

	reminders, err := e.reminders.GetByPhase(phase)
	if err != nil {
		return "", err
	}
	if len(reminders) == 0 {
		return fmt.Sprintf("No reminders found for phase %d.", phase), nil
	}
	return formatReminderList(fmt.Sprintf("📚 Phase %d reminders:", phase), reminders), nil
}

func (e *Engine) setTime(userID string, args []string) (string, error) {
	user, err := e.users.GetByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return MsgUserNotFound, nil
	}

	if len(args) == 0 {
		return msgTimeUsage, nil
	}
	hour, minute, ok := ValidateTime(args[0])
	if !ok {
		return msgTimeUsage, nil
	}

	user.ReminderTime = CanonicalTime(hour, minute)
	if err := e.users.Save(user); err != nil {
		return "", err
	}
	return fmt.Sprintf("Reminder time set to %s.", To12Hour(hour, minute)), nil
}

func (e *Engine) remindTime(userID string) (string, error) {
	user, err := e.users.GetByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return MsgUserNotFound, nil
	}

	hour, minute, ok := ValidateTime(user.ReminderTime)
	if !ok {
		hour, minute, _ = ValidateTime(models.DefaultReminderTime)
	}
	return fmt.Sprintf("🕙 Your reminder time is %s.", To12Hour(hour, minute)), nil
}

func formatReminderList(header string, reminders []*models.Reminder) string {
	var b strings.Builder
	b.WriteString(header)
	for _, reminder := range reminders {
		b.WriteString(fmt.Sprintf("\nDay %d: %s", reminder.Day, reminder.Focus))
	}
	return b.String()
}
