package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ooocheckitout/llm-knowledge-base/internal/history"
	"github.com/ooocheckitout/llm-knowledge-base/internal/ingest"
	"github.com/ooocheckitout/llm-knowledge-base/internal/knowledge"
	"github.com/ooocheckitout/llm-knowledge-base/internal/loader"
	"github.com/ooocheckitout/llm-knowledge-base/internal/rag"
	"github.com/ooocheckitout/llm-knowledge-base/internal/store"
	"github.com/ooocheckitout/llm-knowledge-base/internal/vectorstore"
)

// Bot modes. An ingest bot stores what it is sent; an ask bot answers
// questions over what the paired ingest bot stored.
const (
	ModeAsk    = "ask"
	ModeIngest = "ingest"
)

// Config for the Telegram front-end.
type Config struct {
	Token        string
	Mode         string
	PollTimeout  time.Duration
	DownloadsDir string
}

// Bot is the Telegram front-end over the shared pipelines.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      Config
	ingest   *ingest.Pipeline
	rag      *rag.Pipeline
	history  history.Store
	feedback *store.Store // nil disables feedback persistence
	web      *loader.WebLoader
	logger   *log.Logger
}

func New(cfg Config, ingestPipeline *ingest.Pipeline, ragPipeline *rag.Pipeline, hist history.Store, feedback *store.Store, web *loader.WebLoader, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeAsk
	}
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	return &Bot{
		api:      api,
		cfg:      cfg,
		ingest:   ingestPipeline,
		rag:      ragPipeline,
		history:  hist,
		feedback: feedback,
		web:      web,
		logger:   logger,
	}, nil
}

// Run long-polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Printf("authorized as @%s in %s mode", b.api.Self.UserName, b.cfg.Mode)

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = int(b.cfg.PollTimeout.Seconds())
	updates := b.api.GetUpdatesChan(updateCfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.EditedMessage != nil:
		b.handleMessage(ctx, update.EditedMessage)
	}
}

func messageSession(msg *tgbotapi.Message) string {
	return knowledge.SessionID(
		strconv.FormatInt(msg.From.ID, 10),
		strconv.FormatInt(msg.Chat.ID, 10),
	)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	sessionID := messageSession(msg)

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg, sessionID)
	case msg.Document != nil:
		b.handleDocument(ctx, msg, sessionID)
	case loader.IsURLOnly(msg.Text):
		b.handleURL(ctx, msg, sessionID)
	case msg.Text != "":
		if b.cfg.Mode == ModeIngest {
			b.handleIngestText(ctx, msg, sessionID)
		} else {
			b.handleQuestion(ctx, msg, sessionID)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, sessionID string) {
	switch msg.Command() {
	case "start":
		text := "Send me text, links or PDF files and I will remember them.\nAsk me anything about what I know."
		if b.cfg.Mode == ModeIngest {
			text = "Send me text, links or PDF files and I will remember them.\nUse /clear to forget everything."
		}
		b.reply(msg, text, nil)
	case "clear":
		if err := b.ingest.ForgetAll(ctx, sessionID); err != nil {
			b.replyError(msg, err)
			return
		}
		if err := b.history.Clear(ctx, sessionID); err != nil {
			b.replyError(msg, err)
			return
		}
		b.reply(msg, "Everything is forgotten.", nil)
	default:
		b.reply(msg, fmt.Sprintf("Command /%s is not supported.", msg.Command()), nil)
	}
}

func (b *Bot) handleQuestion(ctx context.Context, msg *tgbotapi.Message, sessionID string) {
	b.logger.Printf("answering in %s for message %d", sessionID, msg.MessageID)

	answer, err := b.rag.Complete(ctx, sessionID, msg.Text)
	if err != nil {
		b.replyError(msg, err)
		return
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Good response", fmt.Sprintf("good:%d", msg.MessageID)),
			tgbotapi.NewInlineKeyboardButtonData("Bad response", fmt.Sprintf("bad:%d", msg.MessageID)),
		),
	)
	b.reply(msg, answer, &markup)
}

func (b *Bot) handleIngestText(ctx context.Context, msg *tgbotapi.Message, sessionID string) {
	docs := loader.Text(msg.Text, strconv.Itoa(msg.MessageID))
	b.ingestAndConfirm(ctx, msg, sessionID, docs)
}

func (b *Bot) handleURL(ctx context.Context, msg *tgbotapi.Message, sessionID string) {
	b.logger.Printf("loading urls in %s for message %d", sessionID, msg.MessageID)

	docs, err := b.web.Load(ctx, msg.Text)
	if err != nil {
		b.replyError(msg, err)
		return
	}
	b.ingestAndConfirm(ctx, msg, sessionID, docs)
}

func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message, sessionID string) {
	b.logger.Printf("downloading %s in %s for message %d", msg.Document.FileName, sessionID, msg.MessageID)

	localPath, err := b.downloadDocument(ctx, msg)
	if err != nil {
		b.replyError(msg, err)
		return
	}

	docs, err := loader.PDF(localPath, msg.Document.FileName)
	if err != nil {
		b.replyError(msg, err)
		return
	}
	b.ingestAndConfirm(ctx, msg, sessionID, docs)
}

func (b *Bot) ingestAndConfirm(ctx context.Context, msg *tgbotapi.Message, sessionID string, docs []knowledge.Document) {
	// Chunks from the same Telegram message share its id, so the Delete
	// button can remove all of them.
	for i := range docs {
		docs[i].Metadata[knowledge.MetaMessageID] = strconv.Itoa(msg.MessageID)
		docs[i].Metadata[knowledge.MetaMessageDT] = time.Unix(int64(msg.Date), 0).UTC().Format(time.RFC3339)
	}

	ids, err := b.ingest.Ingest(ctx, sessionID, docs)
	if err != nil {
		b.replyError(msg, err)
		return
	}
	b.logger.Printf("ingested %d chunks in %s for message %d", len(ids), sessionID, msg.MessageID)

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Delete", fmt.Sprintf("delete:%d", msg.MessageID)),
		),
	)
	b.reply(msg, fmt.Sprintf("Message (%d) was successfully ingested to the user collection (%s)", msg.MessageID, sessionID), &markup)
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	b.logger.Printf("processing callback %s", query.Data)

	command, arg, found := cutCallback(query.Data)
	if !found {
		b.answerCallback(query, "Not supported!")
		return
	}

	switch command {
	case "delete":
		msg := query.Message
		if msg == nil {
			b.answerCallback(query, "Original message is gone.")
			return
		}
		sessionID := knowledge.SessionID(
			strconv.FormatInt(query.From.ID, 10),
			strconv.FormatInt(msg.Chat.ID, 10),
		)
		filter := vectorstore.Filter{SessionID: sessionID, Extra: map[string]string{knowledge.MetaMessageID: arg}}
		if err := b.ingest.Delete(ctx, filter); err != nil {
			b.answerCallback(query, "Failed to delete.")
			b.logger.Printf("failed to delete message %s: %v", arg, err)
			return
		}
		b.answerCallback(query, fmt.Sprintf("Message %s was deleted.", arg))
		b.clearMarkup(query)
	case store.FeedbackGood, store.FeedbackBad:
		if b.feedback == nil {
			b.answerCallback(query, "Feedback is not enabled.")
			return
		}
		messageID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			b.answerCallback(query, "Not supported!")
			return
		}
		review := store.Review{
			UserID:       query.From.ID,
			UserName:     query.From.UserName,
			MessageID:    messageID,
			FeedbackType: command,
		}
		if err := b.feedback.SaveReview(ctx, review); err != nil {
			b.answerCallback(query, "Failed to save review.")
			b.logger.Printf("failed to save review: %v", err)
			return
		}
		b.answerCallback(query, fmt.Sprintf("User review '%s' was saved!", command))
		b.clearMarkup(query)
	default:
		b.logger.Printf("callback command %q is not supported", command)
		b.answerCallback(query, "Not supported!")
	}
}

func cutCallback(data string) (command, arg string, found bool) {
	for i := 0; i < len(data); i++ {
		if data[i] == ':' {
			return data[:i], data[i+1:], true
		}
	}
	return data, "", false
}

func (b *Bot) downloadDocument(ctx context.Context, msg *tgbotapi.Message) (string, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: msg.Document.FileID})
	if err != nil {
		return "", fmt.Errorf("failed to resolve file: %w", err)
	}

	dir := filepath.Join(b.cfg.DownloadsDir, strconv.FormatInt(msg.From.ID, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create downloads dir: %w", err)
	}
	localPath := filepath.Join(dir, msg.Document.FileName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("file download status %s", resp.Status)
	}

	out, err := os.Create(localPath)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return localPath, nil
}

func (b *Bot) reply(msg *tgbotapi.Message, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	if markup != nil {
		out.ReplyMarkup = *markup
	}
	if _, err := b.api.Send(out); err != nil {
		b.logger.Printf("failed to send reply: %v", err)
	}
}

func (b *Bot) replyError(msg *tgbotapi.Message, err error) {
	b.logger.Printf("error handling message %d: %v", msg.MessageID, err)
	b.reply(msg, "Something went wrong, try again later.", nil)
}

func (b *Bot) answerCallback(query *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, text)); err != nil {
		b.logger.Printf("failed to answer callback: %v", err)
	}
}

func (b *Bot) clearMarkup(query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(
		query.Message.Chat.ID,
		query.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
	)
	if _, err := b.api.Request(edit); err != nil {
		b.logger.Printf("failed to clear reply markup: %v", err)
	}
}
