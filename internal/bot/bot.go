package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/r0man1337/sesc-video-bot/internal/config"
	"github.com/r0man1337/sesc-video-bot/internal/media"
	"github.com/r0man1337/sesc-video-bot/internal/observability/logging"
	"github.com/r0man1337/sesc-video-bot/internal/observability/metrics"
	"github.com/r0man1337/sesc-video-bot/internal/pipeline"
)

// Bot runs the Telegram long-polling loop and routes updates to the
// processing pipeline.
type Bot struct {
	api       *tgbotapi.BotAPI
	messenger *Messenger
	orch      *pipeline.Orchestrator
	sessions  *sessionStore
	metrics   *metrics.Metrics
	cfg       *config.Config
	log       zerolog.Logger
}

func New(api *tgbotapi.BotAPI, messenger *Messenger, orch *pipeline.Orchestrator, cfg *config.Config) *Bot {
	return &Bot{
		api:       api,
		messenger: messenger,
		orch:      orch,
		sessions:  newSessionStore(),
		metrics:   metrics.DefaultMetrics,
		cfg:       cfg,
		log:       logging.WithComponent("bot"),
	}
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.Telegram.PollTimeoutSec
	updates := b.api.GetUpdatesChan(u)

	b.log.Info().Str("username", b.api.Self.UserName).Msg("bot started, polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info().Msg("bot stopping")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate dispatches a single update. Panics are contained per
// update so one bad message cannot take the loop down.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Int("updateId", update.UpdateID).Msg("update handler panicked")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message == nil:
		// Edited messages, channel posts and the like are ignored.
	case update.Message.IsCommand():
		b.handleCommand(update.Message)
	case update.Message.Video != nil:
		b.handleVideo(update.Message)
	case update.Message.Text != "":
		b.handleText(update.Message)
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"Привет %s!\n\nЯ простой Telegram бот. Отправь мне сообщение, и я отвечу!",
			msg.From.FirstName))
	case "help":
		b.reply(msg.Chat.ID, helpText(b.cfg.Pipeline.MaxVideoSizeMB))
	default:
		b.reply(msg.Chat.ID, "❌ Неизвестная команда.")
	}
}

func helpText(maxSizeMB int) string {
	return fmt.Sprintf(`Доступные команды:
/start - Начать работу с ботом
/help - Показать это сообщение

Возможности:
• Отправьте мне видео, и выберите вариант обработки:
  - 🎵 Только аудио - извлечь MP3
  - 📝 Только транскрипция - текст с временными метками
  - 🎵📝 Аудио + транскрипция - и аудио, и текст

Формат транскрипции:
1. [00:00:00 - 00:00:15]
Текст первой фразы

2. [00:00:15 - 00:00:30]
Текст второй фразы

• Максимальный размер видео: %d MB
• Длинные аудио автоматически разбиваются на части по 5 минут`, maxSizeMB)
}

func (b *Bot) handleText(msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID, "Вы написали: "+msg.Text)
}

// handleVideo validates the submission and offers the processing modes.
// The video itself is not downloaded until the user picks a mode.
func (b *Bot) handleVideo(msg *tgbotapi.Message) {
	video := msg.Video
	size := int64(video.FileSize)
	log := b.log.With().Int64("userId", msg.From.ID).Int64("sizeBytes", size).Logger()

	if size > b.cfg.MaxVideoSizeBytes() {
		b.metrics.RecordVideoRejected("oversize")
		log.Warn().Msg("video rejected, too large")
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"❌ Видео слишком большое! Максимальный размер: %d MB.\nРазмер вашего видео: %.1f MB",
			b.cfg.Pipeline.MaxVideoSizeMB, float64(size)/1024/1024))
		return
	}

	if err := media.CheckInstalled(); err != nil {
		b.metrics.RecordVideoRejected("transcoder_missing")
		log.Error().Err(err).Msg("transcoder preflight failed")
		b.reply(msg.Chat.ID,
			"❌ Ошибка: FFmpeg не установлен на сервере.\nОбратитесь к администратору для установки FFmpeg.")
		return
	}

	if overwrote := b.sessions.Put(msg.From.ID, pendingVideo{FileID: video.FileID, Size: size}); overwrote {
		b.metrics.RecordPendingOverwrite()
		log.Info().Msg("pending video replaced by newer submission")
	}
	b.metrics.RecordVideoReceived()
	log.Info().Msg("video received")

	options := tgbotapi.NewMessage(msg.Chat.ID, "Выберите вариант обработки:")
	options.ReplyMarkup = modeKeyboard()
	if _, err := b.api.Send(options); err != nil {
		log.Error().Err(err).Msg("failed to send mode keyboard")
	}
}

func modeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎵 Только аудио", string(pipeline.ModeAudioOnly)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Только транскрипция", string(pipeline.ModeTranscriptOnly)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎵📝 Аудио + транскрипция", string(pipeline.ModeAudioAndTranscript)),
		),
	)
}

// handleCallback turns a mode selection into a pipeline run. The run
// executes in its own goroutine so polling continues meanwhile.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.log.Debug().Err(err).Msg("callback ack failed")
	}
	if cq.Message == nil {
		return
	}
	status := pipeline.Status{ChatID: cq.Message.Chat.ID, MessageID: cq.Message.MessageID}

	mode, ok := pipeline.ParseMode(cq.Data)
	if !ok {
		b.editStatus(status, "❌ Неизвестная команда.")
		return
	}

	pending, ok := b.sessions.Get(cq.From.ID)
	if !ok {
		b.editStatus(status, "❌ Ошибка: видео не найдено. Пожалуйста, отправьте видео заново.")
		return
	}

	// One run per user at a time. A repeated button press, or a press
	// on an old keyboard while a run is in flight, is turned away so the
	// active run's status message is left alone.
	if !b.sessions.StartRun(cq.From.ID) {
		b.log.Info().Int64("userId", cq.From.ID).Msg("run already in flight, selection ignored")
		b.reply(cq.Message.Chat.ID, "⏳ Подождите, видео ещё обрабатывается.")
		return
	}

	b.editStatus(status, "Обрабатываю видео.")

	sub := pipeline.Submission{
		FileID: pending.FileID,
		Size:   pending.Size,
		UserID: cq.From.ID,
		ChatID: cq.Message.Chat.ID,
	}
	go func() {
		defer b.sessions.FinishRun(sub.UserID)
		if err := b.orch.Process(ctx, sub, mode, status); err != nil {
			b.log.Error().Err(err).Int64("userId", sub.UserID).Str("mode", string(mode)).Msg("run failed")
		}
	}()
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Error().Err(err).Int64("chatId", chatID).Msg("reply failed")
	}
}

func (b *Bot) editStatus(status pipeline.Status, text string) {
	if err := b.messenger.EditMessageText(status.ChatID, status.MessageID, text); err != nil {
		b.log.Debug().Err(err).Msg("status edit failed")
	}
}
