// ABOUTME: Speech-recognition collaborator backed by Google Cloud Speech
// ABOUTME: One synchronous Recognize call per voice message; relies on Application Default Credentials
package stt

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
)

// Transcriber turns recorded audio into text. An empty transcript means no
// speech was recognized.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}

// Config holds recognition settings
type Config struct {
	Encoding        string
	SampleRateHertz int
	Timeout         time.Duration
}

// encodings maps config names onto the API enum
var encodings = map[string]speechpb.RecognitionConfig_AudioEncoding{
	"LINEAR16":  speechpb.RecognitionConfig_LINEAR16,
	"FLAC":      speechpb.RecognitionConfig_FLAC,
	"MULAW":     speechpb.RecognitionConfig_MULAW,
	"OGG_OPUS":  speechpb.RecognitionConfig_OGG_OPUS,
	"WEBM_OPUS": speechpb.RecognitionConfig_WEBM_OPUS,
	"MP3":       speechpb.RecognitionConfig_MP3,
}

// ParseEncoding resolves an encoding name, case-insensitively
func ParseEncoding(name string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	enc, ok := encodings[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported audio encoding %q", name)
	}
	return enc, nil
}

// recognizer is the slice of the speech client the transcriber uses
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
}

// GoogleTranscriber calls the Cloud Speech Recognize API
type GoogleTranscriber struct {
	client   recognizer
	closer   func() error
	encoding speechpb.RecognitionConfig_AudioEncoding
	rate     int32
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewGoogleTranscriber creates a Cloud Speech client
func NewGoogleTranscriber(ctx context.Context, cfg Config, logger zerolog.Logger) (*GoogleTranscriber, error) {
	enc, err := ParseEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	t := newTranscriber(cloudRecognizer{client}, cfg, enc, logger)
	t.closer = client.Close
	return t, nil
}

// cloudRecognizer drops the call options from the client signature
type cloudRecognizer struct {
	client *speech.Client
}

func (r cloudRecognizer) Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	return r.client.Recognize(ctx, req)
}

func newTranscriber(client recognizer, cfg Config, enc speechpb.RecognitionConfig_AudioEncoding, logger zerolog.Logger) *GoogleTranscriber {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GoogleTranscriber{
		client:   client,
		encoding: enc,
		rate:     int32(cfg.SampleRateHertz),
		timeout:  timeout,
		logger:   logger,
	}
}

// Close releases the client connection
func (t *GoogleTranscriber) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer()
}

// Transcribe recognizes the audio and joins the top alternative of every result
func (t *GoogleTranscriber) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.client.Recognize(ctx, t.request(audio, language))
	if err != nil {
		return "", fmt.Errorf("recognize failed: %w", err)
	}

	text := joinTranscripts(resp)
	t.logger.Debug().Int("bytes", len(audio)).Int("results", len(resp.GetResults())).Str("language", language).Msg("transcribed audio")
	return text, nil
}

func (t *GoogleTranscriber) request(audio []byte, language string) *speechpb.RecognizeRequest {
	config := &speechpb.RecognitionConfig{
		Encoding:                   t.encoding,
		LanguageCode:               language,
		EnableAutomaticPunctuation: true,
	}
	// FLAC and WAV headers carry the rate; elsewhere it must be stated.
	if t.rate > 0 && t.encoding != speechpb.RecognitionConfig_FLAC {
		config.SampleRateHertz = t.rate
	}
	return &speechpb.RecognizeRequest{
		Config: config,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}
}

func joinTranscripts(resp *speechpb.RecognizeResponse) string {
	var parts []string
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if s := strings.TrimSpace(alts[0].GetTranscript()); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
