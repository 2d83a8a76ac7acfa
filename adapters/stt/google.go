package stt

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
)

// GoogleTranscriber recognizes finished voice clips with Google Cloud
// Speech-to-Text. It is the alternative to the backend's own transcription
// endpoint, selected with ASR_PROVIDER=google.
type GoogleTranscriber struct {
	language string
	logger   *zap.Logger
}

// NewGoogleTranscriber creates a transcriber for the given BCP-47 language
// code. Empty defaults to en-US.
func NewGoogleTranscriber(language string, logger *zap.Logger) *GoogleTranscriber {
	if language == "" {
		language = "en-US"
	}
	return &GoogleTranscriber{language: language, logger: logger}
}

// Transcribe sends one WAV clip through a single-utterance streaming
// session and returns the final transcript.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, clip []byte) (string, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create speech client: %w", err)
	}
	defer client.Close()

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	pcm, sampleRate := splitWAV(clip)
	if len(pcm) == 0 {
		return "", fmt.Errorf("no audio data in clip")
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz: int32(sampleRate),
					LanguageCode:    g.language,
				},
				InterimResults:  false,
				SingleUtterance: true,
			},
		},
	}); err != nil {
		stream.CloseSend()
		return "", fmt.Errorf("failed to send streaming config: %w", err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: pcm,
		},
	}); err != nil {
		stream.CloseSend()
		return "", fmt.Errorf("failed to send audio data: %w", err)
	}

	if err := stream.CloseSend(); err != nil {
		return "", fmt.Errorf("failed to close send stream: %w", err)
	}

	var final string
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to receive response: %w", err)
		}
		for _, result := range resp.Results {
			if result.IsFinal && len(result.Alternatives) > 0 {
				final = result.Alternatives[0].Transcript
			}
		}
	}

	final = strings.TrimSpace(final)
	g.logger.Debug("Google transcription finished", zap.Int("clip_bytes", len(clip)))
	return final, nil
}

// splitWAV strips a canonical RIFF header when present, returning the PCM
// payload and sample rate. Headerless input is assumed to be 16 kHz PCM.
func splitWAV(clip []byte) ([]byte, int) {
	if len(clip) > 44 && string(clip[0:4]) == "RIFF" && string(clip[8:12]) == "WAVE" {
		rate := int(binary.LittleEndian.Uint32(clip[24:28]))
		return clip[44:], rate
	}
	return clip, 16000
}
