// ABOUTME: Tests for the Cloud Speech transcriber
// ABOUTME: A stub recognizer stands in for the gRPC client
package stt

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecognizer struct {
	resp *speechpb.RecognizeResponse
	err  error
	got  *speechpb.RecognizeRequest
}

func (s *stubRecognizer) Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	s.got = req
	return s.resp, s.err
}

func result(alts ...string) *speechpb.SpeechRecognitionResult {
	r := &speechpb.SpeechRecognitionResult{}
	for _, a := range alts {
		r.Alternatives = append(r.Alternatives, &speechpb.SpeechRecognitionAlternative{Transcript: a})
	}
	return r
}

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		name    string
		want    speechpb.RecognitionConfig_AudioEncoding
		wantErr bool
	}{
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS, false},
		{"linear16", speechpb.RecognitionConfig_LINEAR16, false},
		{" ogg_opus ", speechpb.RecognitionConfig_OGG_OPUS, false},
		{"AAC", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEncoding(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranscribe_JoinsResults(t *testing.T) {
	stub := &stubRecognizer{resp: &speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			result("How are you", "Who are you"),
			result(),
			result(" today "),
		},
	}}
	tr := newTranscriber(stub, Config{SampleRateHertz: 48000}, speechpb.RecognitionConfig_WEBM_OPUS, zerolog.Nop())

	text, err := tr.Transcribe(context.Background(), []byte{1, 2, 3}, "en-GH")
	require.NoError(t, err)
	assert.Equal(t, "How are you today", text)

	require.NotNil(t, stub.got)
	assert.Equal(t, "en-GH", stub.got.GetConfig().GetLanguageCode())
	assert.Equal(t, int32(48000), stub.got.GetConfig().GetSampleRateHertz())
	assert.Equal(t, []byte{1, 2, 3}, stub.got.GetAudio().GetContent())
}

func TestTranscribe_FlacOmitsRate(t *testing.T) {
	stub := &stubRecognizer{resp: &speechpb.RecognizeResponse{}}
	tr := newTranscriber(stub, Config{SampleRateHertz: 16000}, speechpb.RecognitionConfig_FLAC, zerolog.Nop())

	text, err := tr.Transcribe(context.Background(), []byte{1}, "en-US")
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Zero(t, stub.got.GetConfig().GetSampleRateHertz())
}

func TestTranscribe_EmptyAudioSkipsCall(t *testing.T) {
	stub := &stubRecognizer{}
	tr := newTranscriber(stub, Config{}, speechpb.RecognitionConfig_LINEAR16, zerolog.Nop())

	text, err := tr.Transcribe(context.Background(), nil, "en-US")
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Nil(t, stub.got)
}

func TestTranscribe_Error(t *testing.T) {
	stub := &stubRecognizer{err: errors.New("permission denied")}
	tr := newTranscriber(stub, Config{}, speechpb.RecognitionConfig_LINEAR16, zerolog.Nop())

	_, err := tr.Transcribe(context.Background(), []byte{1}, "en-US")
	assert.Error(t, err)
}
