package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/r0man1337/sesc-video-bot/internal/observability/logging"
)

// Messenger performs chat operations against the Telegram Bot API.
// It is the concrete implementation behind the pipeline's chat seam.
type Messenger struct {
	api    *tgbotapi.BotAPI
	client *http.Client
	log    zerolog.Logger
}

func NewMessenger(api *tgbotapi.BotAPI) *Messenger {
	return &Messenger{
		api:    api,
		client: &http.Client{Timeout: 5 * time.Minute},
		log:    logging.WithComponent("messenger"),
	}
}

// SendDocument uploads a local file as a document with an explicit
// filename, independent of the on-disk name.
func (m *Messenger) SendDocument(chatID int64, path, filename, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{Name: filename, Reader: f})
	doc.Caption = caption
	if _, err := m.api.Send(doc); err != nil {
		return fmt.Errorf("send document %s: %w", filename, err)
	}
	return nil
}

func (m *Messenger) EditMessageText(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := m.api.Request(edit); err != nil {
		return fmt.Errorf("edit message %d: %w", messageID, err)
	}
	return nil
}

func (m *Messenger) DeleteMessage(chatID int64, messageID int) error {
	if _, err := m.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}
	return nil
}

// Download resolves a file ID to its download URL and streams the
// content to destPath.
func (m *Messenger) Download(ctx context.Context, fileID, destPath string) error {
	file, err := m.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return fmt.Errorf("resolve file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(m.api.Token), nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download file %s: http %d", fileID, resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create download target: %w", err)
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("write download: %w", err)
	}
	m.log.Debug().Str("fileId", fileID).Int64("bytes", n).Msg("file downloaded")
	return nil
}
