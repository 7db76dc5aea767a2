package papagaio

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentMessage struct {
	ChannelID string
	Content   string
}

type sentReply struct {
	ChannelID string
	Content   string
	Reference *discordgo.MessageReference
}

type sentInteractionResponse struct {
	Interaction *discordgo.Interaction
	Response    *discordgo.InteractionResponse
}

// fakeSessionHandler is a DiscordSessionHandler which records outbound
// traffic instead of talking to Discord.
type fakeSessionHandler struct {
	DiscordSessionHandler

	mu                   sync.Mutex
	typingChannels       []string
	messagesSent         []sentMessage
	repliesSent          []sentReply
	interactionResponses []sentInteractionResponse

	typingErr error
	// sendErrAfter fails every content send once this many have succeeded
	// (-1 disables)
	sendErrAfter int
	sendErr      error

	nextMessageID int
}

func newFakeSessionHandler() *fakeSessionHandler {
	return &fakeSessionHandler{sendErrAfter: -1}
}

func (f *fakeSessionHandler) contentSendsSoFar() int {
	return len(f.messagesSent) + len(f.repliesSent)
}

func (f *fakeSessionHandler) nextMessage(channelID string) *discordgo.Message {
	f.nextMessageID++
	return &discordgo.Message{
		ID:        fmt.Sprintf("sent-%d", f.nextMessageID),
		ChannelID: channelID,
	}
}

func (f *fakeSessionHandler) ChannelTyping(
	channelID string,
	_ ...discordgo.RequestOption,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typingChannels = append(f.typingChannels, channelID)
	return f.typingErr
}

func (f *fakeSessionHandler) ChannelMessageSend(
	channelID string,
	message string,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErrAfter >= 0 && f.contentSendsSoFar() >= f.sendErrAfter {
		return nil, f.sendErr
	}
	f.messagesSent = append(f.messagesSent, sentMessage{
		ChannelID: channelID,
		Content:   message,
	})
	return f.nextMessage(channelID), nil
}

func (f *fakeSessionHandler) ChannelMessageSendReply(
	channelID string,
	content string,
	reference *discordgo.MessageReference,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErrAfter >= 0 && f.contentSendsSoFar() >= f.sendErrAfter {
		return nil, f.sendErr
	}
	f.repliesSent = append(f.repliesSent, sentReply{
		ChannelID: channelID,
		Content:   content,
		Reference: reference,
	})
	return f.nextMessage(channelID), nil
}

func (f *fakeSessionHandler) InteractionRespond(
	interaction *discordgo.Interaction,
	resp *discordgo.InteractionResponse,
	_ ...discordgo.RequestOption,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interactionResponses = append(
		f.interactionResponses,
		sentInteractionResponse{Interaction: interaction, Response: resp},
	)
	return nil
}

func (f *fakeSessionHandler) Open() error  { return nil }
func (f *fakeSessionHandler) Close() error { return nil }

func (f *fakeSessionHandler) UpdateCustomStatus(string) error { return nil }

func (f *fakeSessionHandler) ApplicationCommandBulkOverwrite(
	_ string,
	_ string,
	commands []*discordgo.ApplicationCommand,
	_ ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	return commands, nil
}

// fakeGenerator returns a canned reply or error.
type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testDB(t testing.TB) *gorm.DB {
	t.Helper()
	handler := slog.Default().Handler()
	db, err := getDB(
		dbTypeSQLite,
		filepath.Join(t.TempDir(), "papagaio_test.sqlite3"),
		newGORMLogger(handler, 200*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&GuildPolicy{}, &BotSettings{}))
	return db
}

func testPolicyStore(t testing.TB, db *gorm.DB) *PolicyStore {
	t.Helper()
	store, err := NewPolicyStore(
		context.Background(),
		db,
		DefaultDiscordCustomStatus,
		slog.Default(),
	)
	require.NoError(t, err)
	return store
}

// newTestBot wires a Bot with a fake session handler and fake generator,
// backed by a temp sqlite database.
func newTestBot(t testing.TB) (*Bot, *fakeSessionHandler, *fakeGenerator) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Discord.Token = t.Name()
	cfg.Discord.ApplicationID = t.Name()
	cfg.LLM.GeminiAPIKey = t.Name()

	bot, err := New(cfg)
	require.NoError(t, err)

	db := testDB(t)
	bot.db = db
	bot.policies = testPolicyStore(t, db)

	session := newFakeSessionHandler()
	bot.discord.session = session
	bot.discord.botUser.Store(&discordgo.User{
		ID:       testBotID,
		Username: "papagaio",
	})

	gen := &fakeGenerator{reply: "hi there"}
	bot.llm = gen

	return bot, session, gen
}
