package transcribe

import (
	"context"
	"os"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"

	"github.com/r0man1337/sesc-video-bot/internal/observability/logging"
)

// GoogleClient transcribes audio via Google Cloud Speech-to-Text.
// Requires GOOGLE_APPLICATION_CREDENTIALS to be set.
type GoogleClient struct {
	client       *speech.Client
	languageCode string
	log          zerolog.Logger
}

// NewGoogle creates a Google Speech transcription client.
func NewGoogle(ctx context.Context, languageCode string) (*GoogleClient, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleClient{
		client:       c,
		languageCode: languageCode,
		log:          logging.WithComponent("transcriber-google"),
	}, nil
}

// Provider returns the provider name used in metrics and logs.
func (g *GoogleClient) Provider() string { return "google" }

// Transcribe runs synchronous recognition with word time offsets and
// maps each result to one timed segment spanning its words.
func (g *GoogleClient) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:              speechpb.RecognitionConfig_MP3,
			SampleRateHertz:       44100,
			AudioChannelCount:     2,
			LanguageCode:          g.languageCode,
			EnableWordTimeOffsets: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	})
	if err != nil {
		return nil, err
	}

	var segments []Segment
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		alt := result.Alternatives[0]

		seg := Segment{Text: alt.Transcript}
		if n := len(alt.Words); n > 0 {
			seg.Start = alt.Words[0].StartTime.AsDuration().Seconds()
			seg.End = alt.Words[n-1].EndTime.AsDuration().Seconds()
		} else if result.ResultEndTime != nil {
			seg.End = result.ResultEndTime.AsDuration().Seconds()
		}
		segments = append(segments, seg)
	}
	g.log.Debug().Int("segments", len(segments)).Msg("transcription received")
	return segments, nil
}

// Close releases the underlying gRPC connection.
func (g *GoogleClient) Close() error {
	return g.client.Close()
}
