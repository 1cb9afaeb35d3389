// ABOUTME: Speech-synthesis collaborator backed by a Gradio app's HTTP API
// ABOUTME: Submits a prediction, reads the SSE result and downloads file outputs locally
package speech

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Request is one synthesis call
type Request struct {
	Text     string
	Language string
	Speaker  string
}

// Synthesizer is the speech-synthesis collaborator. The returned payload is
// deliberately untyped; ParseOutput resolves its shape.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (json.RawMessage, error)
	Ping(ctx context.Context) error
}

// ErrPredictionFailed is returned when the app reports an error event
var ErrPredictionFailed = errors.New("prediction failed")

// GradioConfig configures the Gradio client
type GradioConfig struct {
	// BaseURL of the app, e.g. https://ghana-nlp-southern-ghana-tts-public.hf.space.
	// Gradio 5 apps need the /gradio_api suffix.
	BaseURL     string
	APIName     string
	Token       string
	Timeout     time.Duration
	DownloadDir string
}

// GradioClient calls a Gradio prediction endpoint
type GradioClient struct {
	baseURL     string
	host        string
	apiName     string
	token       string
	timeout     time.Duration
	downloadDir string
	http        *http.Client
	logger      zerolog.Logger
}

// NewGradioClient creates a client; it does not contact the app
func NewGradioClient(cfg GradioConfig, logger zerolog.Logger) (*GradioClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("TTS base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS base URL: %w", err)
	}
	if cfg.APIName == "" {
		cfg.APIName = "predict"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = filepath.Join(os.TempDir(), "obala-audio")
	}
	if err := os.MkdirAll(cfg.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory %s: %w", cfg.DownloadDir, err)
	}

	return &GradioClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		host:        base.Host,
		apiName:     strings.TrimPrefix(cfg.APIName, "/"),
		token:       cfg.Token,
		timeout:     cfg.Timeout,
		downloadDir: cfg.DownloadDir,
		http:        &http.Client{},
		logger:      logger,
	}, nil
}

// Ping checks that the app is reachable by fetching its config
func (c *GradioClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/config", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach TTS app: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("TTS app returned %s", resp.Status)
	}
	return nil
}

// Synthesize runs one prediction and returns the first output value. File
// outputs that carry a URL are downloaded and returned as a bare local path.
func (c *GradioClient) Synthesize(ctx context.Context, r Request) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	eventID, err := c.submit(ctx, r)
	if err != nil {
		return nil, err
	}

	data, err := c.await(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var outputs []json.RawMessage
	if err := sonic.Unmarshal(data, &outputs); err != nil {
		// Not a list: hand the payload over as-is and let ParseOutput judge it.
		return json.RawMessage(data), nil
	}
	if len(outputs) == 0 {
		return json.RawMessage(`null`), nil
	}

	return c.localize(ctx, outputs[0])
}

func (c *GradioClient) submit(ctx context.Context, r Request) (string, error) {
	body, err := sonic.Marshal(map[string]interface{}{
		"data": []interface{}{r.Text, r.Language, r.Speaker},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal prediction: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.callURL(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to submit prediction: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read prediction response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("prediction submit returned %s: %s", resp.Status, truncate(string(payload), 200))
	}

	var submitted struct {
		EventID string `json:"event_id"`
	}
	if err := sonic.Unmarshal(payload, &submitted); err != nil {
		return "", fmt.Errorf("failed to decode prediction response: %w", err)
	}
	if submitted.EventID == "" {
		return "", fmt.Errorf("prediction response carried no event_id")
	}
	return submitted.EventID, nil
}

// await reads the server-sent event stream until the complete or error event
func (c *GradioClient) await(ctx context.Context, eventID string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.callURL()+"/"+url.PathEscape(eventID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open result stream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("result stream returned %s", resp.Status)
	}

	return readEvent(resp.Body)
}

// readEvent returns the data of the first "complete" event
func readEvent(r io.Reader) ([]byte, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var event string
	var data []string
	flush := func() ([]byte, bool, error) {
		defer func() { event, data = "", nil }()
		switch event {
		case "complete":
			return []byte(strings.Join(data, "\n")), true, nil
		case "error":
			return nil, true, fmt.Errorf("%w: %s", ErrPredictionFailed, strings.Join(data, "\n"))
		}
		return nil, false, nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if out, done, err := flush(); done {
				return out, err
			}
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read result stream: %w", err)
	}
	if out, done, err := flush(); done {
		return out, err
	}
	return nil, fmt.Errorf("result stream ended without a complete event")
}

// localize downloads a file output and replaces it with its local path.
// Outputs without a URL are returned untouched.
func (c *GradioClient) localize(ctx context.Context, output json.RawMessage) (json.RawMessage, error) {
	var file struct {
		Path     string `json:"path"`
		URL      string `json:"url"`
		OrigName string `json:"orig_name"`
	}
	if err := sonic.Unmarshal(output, &file); err != nil || file.URL == "" {
		return output, nil
	}

	name := file.OrigName
	if name == "" {
		name = path.Base(file.Path)
	}
	if name == "" || name == "." || name == "/" {
		name = "speech.wav"
	}
	dest := filepath.Join(c.downloadDir, uuid.New().String()[:8]+"-"+filepath.Base(name))

	if err := c.download(ctx, file.URL, dest); err != nil {
		return nil, err
	}

	c.logger.Debug().Str("url", file.URL).Str("path", dest).Msg("downloaded synthesized audio")
	return sonic.Marshal(dest)
}

func (c *GradioClient) download(ctx context.Context, fileURL, dest string) error {
	req, err := c.newRequest(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download audio: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("audio download returned %s", resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	return f.Close()
}

func (c *GradioClient) callURL() string {
	return c.baseURL + "/call/" + c.apiName
}

func (c *GradioClient) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// Output files may be hosted elsewhere; the token only goes to the app itself.
	if c.token != "" && req.URL.Host == c.host {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
