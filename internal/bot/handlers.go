package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Luisotee/maplelegends-bot/internal/cash"
	"github.com/Luisotee/maplelegends-bot/internal/config"
	"github.com/Luisotee/maplelegends-bot/internal/maplelegends"
	"github.com/Luisotee/maplelegends-bot/internal/schedule"
	"github.com/Luisotee/maplelegends-bot/internal/status"
	"github.com/Luisotee/maplelegends-bot/internal/store"
)

const helpText = "Available commands:\n\n" +
	"/start - Start the bot and receive a welcome message\n" +
	"/serverStatus - Show the current server status\n" +
	"/watchServerStatus - Toggle server status notifications on/off\n" +
	"/getStats <CharacterName> - Get stats and avatar for a specific character\n" +
	"/getCash <id> - Get the amount of vote cash for a given user ID. You can learn about how to get the id in https://github.com/Luisotee/maplelegends_bot\n" +
	"/watchCash <HH:MM> <your_maplelegends_id> - Receive daily cash updates at the given UTC time\n" +
	"/removeCashWatcher <username> - Stop watching the account with that username\n" +
	"/updateCash - Get an immediate update of cash amounts for all your registered accounts\n" +
	"/help - Show this help message\n"

// Handler maps inbound Telegram commands onto the engines.
type Handler struct {
	sender  *Sender
	cfg     config.Config
	store   *store.Store
	engine  *cash.Engine
	rec     *schedule.Reconciler
	monitor *status.Monitor
	client  *maplelegends.Client
	logger  *zap.Logger
}

// NewHandler wires the command surface.
func NewHandler(sender *Sender, cfg config.Config, st *store.Store, engine *cash.Engine,
	rec *schedule.Reconciler, monitor *status.Monitor, client *maplelegends.Client, logger *zap.Logger,
) *Handler {
	return &Handler{
		sender:  sender,
		cfg:     cfg,
		store:   st,
		engine:  engine,
		rec:     rec,
		monitor: monitor,
		client:  client,
		logger:  logger,
	}
}

// HandleUpdate dispatches one inbound update.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil || upd.Message.Text == "" {
		return
	}

	msg := upd.Message
	userID := msg.From.ID

	if !msg.IsCommand() {
		h.reply(userID, "Sorry, I don't understand that command or message. Use /help to see available commands.")
		return
	}

	args := strings.Fields(msg.CommandArguments())

	switch strings.ToLower(msg.Command()) {
	case "start":
		h.reply(userID, fmt.Sprintf("Hi %s!", msg.From.FirstName))

	case "help":
		h.reply(userID, helpText)

	case "serverstatus":
		h.handleServerStatus(userID)

	case "watchserverstatus":
		h.handleWatchServerStatus(userID)

	case "getstats":
		h.handleGetStats(ctx, userID, args)

	case "getcash":
		h.handleGetCash(ctx, userID, args)

	case "watchcash":
		h.handleWatchCash(ctx, userID, args)

	case "removecashwatcher":
		h.handleRemoveCashWatcher(userID, args)

	case "updatecash":
		// Detached: the command returns immediately and the report arrives
		// as an edit of the placeholder message.
		h.detach(func() { h.engine.BulkRefresh(ctx, userID) })

	default:
		h.reply(userID, "Sorry, I don't understand that command or message. Use /help to see available commands.")
	}
}

func (h *Handler) handleServerStatus(userID int64) {
	count, offline := h.monitor.Snapshot()
	label := "Online"
	if offline {
		label = "Offline"
	}
	h.reply(userID, fmt.Sprintf("Server Status: %s\nCurrent online users: %d", label, count))
}

func (h *Handler) handleWatchServerStatus(userID int64) {
	watching, err := h.store.ToggleStatusWatch(userID)
	if err != nil {
		h.logger.Error("persist failed after status watch toggle",
			zap.Int64("user_id", userID), zap.Error(err))
	}
	if watching {
		h.reply(userID, "You will now receive server status notifications.")
	} else {
		h.reply(userID, "You will no longer receive server status notifications.")
	}
}

func (h *Handler) handleGetStats(ctx context.Context, userID int64, args []string) {
	if len(args) < 1 {
		h.reply(userID, "Please provide a character name. Usage: /getStats <CharacterName>")
		return
	}
	name := args[0]

	character, err := h.client.CharacterStats(ctx, name)
	if err != nil {
		h.reply(userID, "Error fetching character data: "+err.Error())
		return
	}
	avatar, err := h.client.Avatar(ctx, name)
	if err != nil {
		h.reply(userID, "Error fetching character data: "+err.Error())
		return
	}

	guild := character.Guild
	if guild == "" {
		guild = "None"
	}
	donor := "No"
	if character.Donor {
		donor = "Yes"
	}
	caption := fmt.Sprintf("**Stats for %s:**\n"+
		"• Level: %d\n"+
		"• Gender: %s\n"+
		"• Job: %s\n"+
		"• EXP: %s\n"+
		"• Guild: %s\n"+
		"• Quests Completed: %d\n"+
		"• Monster Cards: %d\n"+
		"• Donor: %s\n"+
		"• Fame: %d",
		character.Name, character.Level, character.Gender, character.Job, character.EXP,
		guild, character.Quests, character.Cards, donor, character.Fame)

	if err := h.sender.SendPhoto(userID, name+".png", avatar, caption); err != nil {
		h.logger.Error("sending character stats failed",
			zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (h *Handler) handleGetCash(ctx context.Context, userID int64, args []string) {
	if len(args) < 1 {
		h.reply(userID, "Please provide a user ID. Usage: /getCash <id>")
		return
	}
	h.reply(userID, h.engine.Lookup(ctx, args[0]))
}

func (h *Handler) handleWatchCash(ctx context.Context, userID int64, args []string) {
	if len(args) < 2 {
		h.reply(userID, "Usage: /watchCash <HH:MM> <your_maplelegends_id>")
		return
	}
	reply, changed := h.engine.Watch(ctx, userID, args[0], args[1])
	if changed {
		h.rec.Rebuild()
	}
	h.reply(userID, reply)
}

func (h *Handler) handleRemoveCashWatcher(userID int64, args []string) {
	if len(args) < 1 {
		h.reply(userID, "Usage: /removeCashWatcher <username>")
		return
	}
	reply, changed := h.engine.Remove(userID, args[0])
	if changed {
		h.rec.Rebuild()
	}
	h.reply(userID, reply)
}

// CheckServerStatus is the recurring status check task: on a threshold
// crossing it notifies every status watcher, otherwise it stays silent.
func (h *Handler) CheckServerStatus(_ context.Context) {
	switch h.monitor.Check() {
	case status.TransitionOffline:
		h.broadcast(fmt.Sprintf("Warning: Server is offline (player count < %d)!", h.cfg.StatusThreshold))
	case status.TransitionOnline:
		h.broadcast("Server is back online!")
	case status.TransitionNone:
	}
}

// broadcast sends to every status watcher; a failed send is logged and the
// rest of the batch continues.
func (h *Handler) broadcast(text string) {
	for _, userID := range h.store.StatusWatchers() {
		if err := h.sender.SendText(userID, text); err != nil {
			h.logger.Error("sending status notification failed",
				zap.Int64("user_id", userID), zap.Error(err))
		}
	}
}

// detach runs fn on its own goroutine with a panic boundary, so a heavy
// operation cannot block or crash update handling.
func (h *Handler) detach(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("detached task panicked", zap.Any("panic", r))
			}
		}()
		fn()
	}()
}

func (h *Handler) reply(chatID int64, text string) {
	if err := h.sender.SendText(chatID, text); err != nil {
		h.logger.Error("sending reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
