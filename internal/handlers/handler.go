package handlers

import (
	"context"
	"log"
	"strconv"
	"strings"

	"github.com/ad/go-telegram-reminder/internal/metrics"
	"github.com/ad/go-telegram-reminder/internal/services"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// commandMap translates Telegram slash commands into engine commands.
var commandMap = map[string]services.Command{
	"/start":      services.CmdStart,
	"/help":       services.CmdHelp,
	"/remindnow":  services.CmdRemindNow,
	"/skip":       services.CmdSkip,
	"/pausefor":   services.CmdPauseFor,
	"/resume":     services.CmdResume,
	"/status":     services.CmdStatus,
	"/prev7":      services.CmdPrev7,
	"/next7":      services.CmdNext7,
	"/fullphase":  services.CmdFullPhase,
	"/timeset":    services.CmdSetTime,
	"/remindtime": services.CmdRemindTime,
}

type BotHandler struct {
	bot       *bot.Bot
	engine    *services.Engine
	collector *metrics.Collector
	maxRetry  int
}

func NewBotHandler(b *bot.Bot, engine *services.Engine, collector *metrics.Collector) *BotHandler {
	return &BotHandler{
		bot:       b,
		engine:    engine,
		collector: collector,
		maxRetry:  2,
	}
}

func (h *BotHandler) HandleUpdate(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	defer h.recoverPanic(update)

	h.collector.RecordUpdate()

	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message

	reply := h.dispatchMessage(msg)
	if reply == "" {
		return
	}
	h.sendWithRetry(ctx, msg.Chat.ID, reply)
}

func (h *BotHandler) recoverPanic(update *tgmodels.Update) {
	if r := recover(); r != nil {
		log.Printf("panic while handling update %d: %v", update.ID, r)
	}
}

// dispatchMessage resolves a message into reply text. The empty string
// means no reply is owed (plain text, unknown update shapes).
func (h *BotHandler) dispatchMessage(msg *tgmodels.Message) string {
	cmd, args, ok := parseCommand(msg.Text)
	if !ok {
		if strings.HasPrefix(msg.Text, "/") {
			return services.MsgUnknown
		}
		return ""
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	reply := h.engine.Handle(userID, cmd, args)

	outcome := "ok"
	switch reply {
	case services.MsgBusy:
		outcome = "busy"
		h.collector.RecordBusy()
	case services.MsgStoreError:
		outcome = "error"
	}
	h.collector.RecordCommand(string(cmd), outcome)

	return reply
}

// parseCommand splits "/pausefor 3" into the engine command and its
// arguments. Bot mention suffixes ("/skip@SomeBot") are stripped.
func parseCommand(text string) (services.Command, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil, false
	}

	name := fields[0]
	if i := strings.Index(name, "@"); i > 0 {
		name = name[:i]
	}

	cmd, ok := commandMap[strings.ToLower(name)]
	if !ok {
		return "", nil, false
	}
	return cmd, fields[1:], true
}

func (h *BotHandler) sendWithRetry(ctx context.Context, chatID int64, text string) {
	var lastErr error
	for attempt := 0; attempt < h.maxRetry; attempt++ {
		_, err := h.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   text,
		})
		if err == nil {
			return
		}
		lastErr = err
	}
	log.Printf("failed to send message to chat %d: %v", chatID, lastErr)
}
