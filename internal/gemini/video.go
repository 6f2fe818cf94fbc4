package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/saker-ai/akbar-server/internal/engine"
)

// ErrNoVideoKey is returned when no key is available for video jobs.
var ErrNoVideoKey = errors.New("Kunci API untuk video belum dipilih.")

func (c *Client) videoKey() (string, error) {
	if c.videoKeys != nil {
		if key := c.videoKeys.Key(); key != "" {
			return key, nil
		}
	}
	if c.cfg.VideoAPIKey != "" {
		return c.cfg.VideoAPIKey, nil
	}
	if c.cfg.APIKey != "" {
		return c.cfg.APIKey, nil
	}
	return "", ErrNoVideoKey
}

// videoClient returns the client bound to the currently selected key,
// creating it on first use. The base client serves its own key.
func (c *Client) videoClient(ctx context.Context) (*genai.Client, error) {
	key, err := c.videoKey()
	if err != nil {
		return nil, err
	}
	if key == c.cfg.APIKey && c.genai != nil {
		return c.genai, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gc, ok := c.videoClients[key]; ok {
		return gc, nil
	}
	dial := c.dial
	if dial == nil {
		dial = newGenaiClient
	}
	gc, err := dial(ctx, key)
	if err != nil {
		return nil, err
	}
	if c.videoClients == nil {
		c.videoClients = make(map[string]*genai.Client)
	}
	c.videoClients[key] = gc
	return gc, nil
}

func (c *Client) videoModel(quality string) string {
	if strings.EqualFold(quality, "fast") && c.cfg.VideoFastModel != "" {
		return c.cfg.VideoFastModel
	}
	return c.cfg.VideoModel
}

// SubmitVideoJob starts a Veo job and returns its operation name.
func (c *Client) SubmitVideoJob(ctx context.Context, req engine.VideoRequest) (string, error) {
	gc, err := c.videoClient(ctx)
	if err != nil {
		return "", err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	model := c.videoModel(req.Quality)
	op, err := gc.Models.GenerateVideos(ctx, model, req.Prompt, nil, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		AspectRatio:    req.AspectRatio,
		Resolution:     req.Resolution,
	})
	if err != nil {
		return "", err
	}
	if op == nil || op.Name == "" {
		return "", errors.New("server did not return an operation")
	}
	c.logger.Info("video job submitted", zap.String("operation", op.Name), zap.String("model", model))
	return op.Name, nil
}

// PollVideoJob fetches the current state of operation.
func (c *Client) PollVideoJob(ctx context.Context, operation string) (engine.VideoStatus, error) {
	gc, err := c.videoClient(ctx)
	if err != nil {
		return engine.VideoStatus{}, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	op, err := gc.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: operation}, nil)
	if err != nil {
		return engine.VideoStatus{}, err
	}
	return videoStatus(op), nil
}

func videoStatus(op *genai.GenerateVideosOperation) engine.VideoStatus {
	st := engine.VideoStatus{Done: op.Done}
	if op.Metadata != nil {
		if v, ok := op.Metadata["progressPercentage"].(float64); ok {
			st.Progress = v
		}
		if v, ok := op.Metadata["state"].(string); ok {
			st.Phase = v
		}
		st.PreviewURI = previewURI(op.Metadata["generatedVideoPreviews"])
	}
	if op.Error != nil {
		if msg, ok := op.Error["message"].(string); ok {
			st.Error = msg
		} else {
			st.Error = fmt.Sprint(op.Error)
		}
	}
	if op.Response != nil && len(op.Response.GeneratedVideos) > 0 {
		if v := op.Response.GeneratedVideos[0]; v != nil && v.Video != nil {
			st.VideoURI = v.Video.URI
		}
	}
	return st
}

func previewURI(raw any) string {
	previews, ok := raw.([]any)
	if !ok || len(previews) == 0 {
		return ""
	}
	first, ok := previews[0].(map[string]any)
	if !ok {
		return ""
	}
	uri, _ := first["uri"].(string)
	return uri
}

// FetchVideo downloads a finished video, authenticating with the video key.
func (c *Client) FetchVideo(ctx context.Context, uri string) ([]byte, error) {
	key, err := c.videoKey()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, withKey(uri, key), nil)
	if err != nil {
		return nil, fmt.Errorf("Gagal bikin video. Gagal mengunduh video setelah selesai dibuat: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Gagal bikin video. Gagal mengunduh video setelah selesai dibuat: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("Gagal bikin video. Server menolak unduhan video (status: %d).", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("Gagal bikin video. Gagal mengunduh video setelah selesai dibuat: %w", err)
	}
	return data, nil
}

func withKey(uri, key string) string {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + "key=" + url.QueryEscape(key)
}
