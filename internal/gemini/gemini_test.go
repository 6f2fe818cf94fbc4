package gemini

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/saker-ai/akbar-server/internal/config"
	"github.com/saker-ai/akbar-server/internal/errclass"
)

type staticKey string

func (k staticKey) Key() string { return string(k) }

type switchKey struct{ key string }

func (k *switchKey) Key() string { return k.key }

func testClient(cfg config.GeminiConfig, keys KeySource) *Client {
	return &Client{cfg: cfg, videoKeys: keys, httpClient: http.DefaultClient, logger: zap.NewNop()}
}

func TestVideoStatusFromOperation(t *testing.T) {
	st := videoStatus(&genai.GenerateVideosOperation{
		Name: "models/veo/operations/1",
		Metadata: map[string]any{
			"progressPercentage": 42.0,
			"state":              "GENERATING_PREVIEW",
			"generatedVideoPreviews": []any{
				map[string]any{"uri": "https://example.com/preview"},
			},
		},
	})
	assert.False(t, st.Done)
	assert.Equal(t, 42.0, st.Progress)
	assert.Equal(t, "GENERATING_PREVIEW", st.Phase)
	assert.Equal(t, "https://example.com/preview", st.PreviewURI)

	done := videoStatus(&genai.GenerateVideosOperation{
		Done: true,
		Response: &genai.GenerateVideosResponse{GeneratedVideos: []*genai.GeneratedVideo{
			{Video: &genai.Video{URI: "https://example.com/v?alt=media"}},
		}},
	})
	assert.True(t, done.Done)
	assert.Equal(t, "https://example.com/v?alt=media", done.VideoURI)

	failed := videoStatus(&genai.GenerateVideosOperation{Done: true, Error: map[string]any{"message": "quota"}})
	assert.Equal(t, "quota", failed.Error)
}

func TestPCMRate(t *testing.T) {
	assert.Equal(t, 16000, pcmRate("audio/L16;codec=pcm;rate=16000"))
	assert.Equal(t, 24000, pcmRate("audio/L16"))
	assert.Equal(t, 24000, pcmRate(""))
}

func TestWithKey(t *testing.T) {
	assert.Equal(t, "https://x/v?alt=media&key=k", withKey("https://x/v?alt=media", "k"))
	assert.Equal(t, "https://x/v?key=a%2Bb", withKey("https://x/v", "a+b"))
}

func TestVideoKeyPrecedence(t *testing.T) {
	c := testClient(config.GeminiConfig{APIKey: "base", VideoAPIKey: "video"}, staticKey("picked"))
	key, err := c.videoKey()
	require.NoError(t, err)
	assert.Equal(t, "picked", key)

	c = testClient(config.GeminiConfig{APIKey: "base", VideoAPIKey: "video"}, staticKey(""))
	key, _ = c.videoKey()
	assert.Equal(t, "video", key)

	c = testClient(config.GeminiConfig{}, nil)
	_, err = c.videoKey()
	assert.ErrorIs(t, err, ErrNoVideoKey)
}

func TestVideoClientIsReusedPerKey(t *testing.T) {
	keys := &switchKey{key: "k1"}
	c := testClient(config.GeminiConfig{APIKey: "base"}, keys)
	base := &genai.Client{}
	c.genai = base
	var dials []string
	c.dial = func(_ context.Context, key string) (*genai.Client, error) {
		dials = append(dials, key)
		return &genai.Client{}, nil
	}
	ctx := context.Background()

	first, err := c.videoClient(ctx)
	require.NoError(t, err)
	again, err := c.videoClient(ctx)
	require.NoError(t, err)
	assert.Same(t, first, again)

	keys.key = "k2"
	other, err := c.videoClient(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, other)

	keys.key = ""
	fallback, err := c.videoClient(ctx)
	require.NoError(t, err)
	assert.Same(t, base, fallback)
	assert.Equal(t, []string{"k1", "k2"}, dials)
}

func TestVideoModel(t *testing.T) {
	c := testClient(config.GeminiConfig{VideoModel: "veo", VideoFastModel: "veo-fast"}, nil)
	assert.Equal(t, "veo-fast", c.videoModel("FAST"))
	assert.Equal(t, "veo", c.videoModel("high"))
}

func TestFetchVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("mp4-bytes"))
	}))
	defer srv.Close()

	c := testClient(config.GeminiConfig{APIKey: "k"}, nil)
	data, err := c.FetchVideo(context.Background(), srv.URL+"/v?alt=media")
	require.NoError(t, err)
	assert.Equal(t, "mp4-bytes", string(data))

	c = testClient(config.GeminiConfig{APIKey: "wrong"}, nil)
	_, err = c.FetchVideo(context.Background(), srv.URL+"/v?alt=media")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status: 403")
	assert.Equal(t, errclass.CategoryTransient, errclass.Classify(err).Category)
}
