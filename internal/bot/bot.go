// Package bot is the Discord front end. It turns "start <place>" and
// "stop" messages into tracker calls and replies with the outcome.
package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"

	errUtils "github.com/worklab/sessiond/errors"
	log "github.com/worklab/sessiond/pkg/logger"
	"github.com/worklab/sessiond/pkg/session"
)

// Tracker is the session surface the bot needs.
type Tracker interface {
	Start(ctx context.Context, user session.User, location, guildID string) (string, error)
	Stop(ctx context.Context, userID, guildID string) (string, error)
}

// Bot wraps a Discord gateway session.
type Bot struct {
	discord *discordgo.Session
	tracker Tracker
	places  map[string]bool
	sorted  []string
}

// New builds a Bot for the given bot token. Call Open to connect.
func New(token string, tracker Tracker, places []string) (*Bot, error) {
	discord, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	b := &Bot{
		discord: discord,
		tracker: tracker,
		places:  map[string]bool{},
	}
	for _, p := range places {
		b.places[strings.ToLower(p)] = true
	}
	b.sorted = make([]string, 0, len(b.places))
	for p := range b.places {
		b.sorted = append(b.sorted, p)
	}
	sort.Strings(b.sorted)

	discord.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent
	discord.AddHandler(b.onReady)
	discord.AddHandler(b.onMessage)
	return b, nil
}

// Open connects to the Discord gateway.
func (b *Bot) Open() error {
	if err := b.discord.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

// Close disconnects from the Discord gateway.
func (b *Bot) Close() error {
	return b.discord.Close()
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	log.Info("discord gateway ready", "user", r.User.Username)
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}

	msg := incoming{
		authorID:    m.Author.ID,
		username:    m.Author.Username,
		displayName: displayName(m),
		guildID:     m.GuildID,
		content:     m.Content,
	}
	reply := b.handle(context.Background(), msg)
	if reply == "" {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, m.Author.Mention()+" "+reply); err != nil {
		log.Error("failed to send reply", "channel", m.ChannelID, "error", err)
	}
}

func displayName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

// incoming is a gateway-agnostic view of a message, which keeps the command
// handling testable without a Discord connection.
type incoming struct {
	authorID    string
	username    string
	displayName string
	guildID     string
	content     string
}

// handle interprets a message and returns the reply text, or "" when the
// message is not a command.
func (b *Bot) handle(ctx context.Context, msg incoming) string {
	content := strings.ToLower(strings.TrimSpace(msg.content))

	switch {
	case strings.HasPrefix(content, "start"):
		return b.handleStart(ctx, msg, content)
	case strings.HasPrefix(content, "stop"):
		return b.handleStop(ctx, msg)
	default:
		return ""
	}
}

func (b *Bot) handleStart(ctx context.Context, msg incoming, content string) string {
	if len(strings.Fields(content)) == 1 {
		return fmt.Sprintf("Mention the location (choose one: %s).", strings.Join(b.sorted, ", "))
	}

	location := b.extractPlace(content)
	if location == "" {
		return "Invalid location! Options: " + strings.Join(b.sorted, ", ")
	}

	user := session.User{ID: msg.authorID, Username: msg.username, DisplayName: msg.displayName}
	id, err := b.tracker.Start(ctx, user, location, msg.guildID)
	if err != nil {
		if errors.Is(err, errUtils.ErrSessionExists) {
			return "You already have an active session. Send 'stop' first."
		}
		log.Error("failed to start session", "user", msg.username, "error", err)
		return "Couldn't create the calendar event. Try again."
	}
	return fmt.Sprintf("Starting session at **%s**. Calendar created and will keep extending. Session ID: `%s`", location, id)
}

func (b *Bot) handleStop(ctx context.Context, msg incoming) string {
	id, err := b.tracker.Stop(ctx, msg.authorID, msg.guildID)
	if err != nil {
		if errors.Is(err, errUtils.ErrNoActiveSession) {
			return "You have no active session to stop."
		}
		log.Error("failed to stop session", "user", msg.username, "error", err)
		return "Sorry, something went wrong stopping your session."
	}

	scope := "your latest active session"
	if msg.guildID != "" {
		scope = "this server"
	}
	return fmt.Sprintf("Stopped %s (`%s`). Final end time recorded on the calendar.", scope, id)
}

// extractPlace finds the first configured place mentioned in the message.
func (b *Bot) extractPlace(content string) string {
	for _, field := range strings.Fields(content) {
		if b.places[field] {
			return field
		}
	}
	return ""
}
