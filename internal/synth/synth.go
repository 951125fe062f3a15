// Package synth invokes a neural text-to-speech model per segment. Model
// choice is out of scope (spec.md §1); this defines the Synthesizer
// contract and an HTTP-client default implementation shaped like
// content-service/tts_processing.go's OpenAI TTS call (POST JSON payload,
// decode audio bytes, handle non-200), generalized behind an interface so
// the vendor is swappable without touching callers.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result is one segment's synthesized waveform.
type Result struct {
	PCM        []byte
	SampleRate int
}

// Synthesizer turns text (with best-effort SSML markup) into a raw PCM
// waveform at the model's native sample rate.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, ssml string) (Result, error)
}

// HTTPSynthesizer posts {text, ssml} to a configured TTS endpoint and
// reads back the raw PCM response body, taking the sample rate from the
// X-Sample-Rate response header (22050 Hz when the header is absent).
type HTTPSynthesizer struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPSynthesizer(endpoint string) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type synthRequest struct {
	Text string `json:"text"`
	SSML string `json:"ssml,omitempty"`
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, ssml string) (Result, error) {
	body, err := json.Marshal(synthRequest{Text: text, SSML: ssml})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Markup is best-effort: if the model rejects SSML, retry with
		// plain text only, matching §4.5's "markup is best-effort" clause.
		if ssml != "" {
			return s.Synthesize(ctx, text, "")
		}
		return Result{}, fmt.Errorf("tts service returned status %d", resp.StatusCode)
	}

	sampleRate := 22050
	if sr := resp.Header.Get("X-Sample-Rate"); sr != "" {
		fmt.Sscanf(sr, "%d", &sampleRate)
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	return Result{PCM: pcm, SampleRate: sampleRate}, nil
}
