package gemini

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/saker-ai/akbar-server/internal/command"
	"github.com/saker-ai/akbar-server/internal/engine"
	"github.com/saker-ai/akbar-server/internal/media"
	"github.com/saker-ai/akbar-server/pkg/audio"
)

var (
	errNoImage = errors.New("Tidak ada data gambar yang diterima dari korteks visual.")
	errNoAudio = errors.New("Gagal menghasilkan audio dari sirkuit auditori.")
)

const (
	imageMimeType   = "image/jpeg"
	speechRate      = 24000
	describePrompt  = "Describe this image for me in a cynical but descriptive way, as if you were AKBAR AI."
	modalityImage   = "IMAGE"
	modalityAudio   = "AUDIO"
	defaultTTSVoice = "Kore"
)

// GenerateImage renders req.Prompt with Imagen, or edits req.Source with
// the image edit model when a source is attached.
func (c *Client) GenerateImage(ctx context.Context, req engine.ImageRequest) (media.Artifact, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	if req.Source != nil {
		art, err := c.editImage(ctx, req)
		c.logger.Debug("image edit finished", elapsed(start), zap.Error(err))
		return art, err
	}

	res, err := c.genai.Models.GenerateImages(ctx, c.cfg.ImageModel, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: imageMimeType,
		AspectRatio:    req.AspectRatio,
	})
	if err != nil {
		return media.Artifact{}, fmt.Errorf("generate image: %w", err)
	}
	c.logger.Debug("image generated", elapsed(start), zap.String("aspect", req.AspectRatio))
	if len(res.GeneratedImages) == 0 || res.GeneratedImages[0].Image == nil || len(res.GeneratedImages[0].Image.ImageBytes) == 0 {
		return media.Artifact{}, errNoImage
	}
	img := res.GeneratedImages[0].Image
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = imageMimeType
	}
	return media.Artifact{MimeType: mimeType, Data: img.ImageBytes}, nil
}

func (c *Client) editImage(ctx context.Context, req engine.ImageRequest) (media.Artifact, error) {
	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(req.Source.Data, req.Source.MimeType),
		genai.NewPartFromText(req.Prompt),
	}, genai.RoleUser)}
	res, err := c.genai.Models.GenerateContent(ctx, c.cfg.ImageEditModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{modalityImage},
		SystemInstruction:  systemInstruction(req.SystemInstruction),
	})
	if err != nil {
		return media.Artifact{}, fmt.Errorf("edit image: %w", err)
	}
	blob := firstInline(res)
	if blob == nil {
		return media.Artifact{}, errNoImage
	}
	return media.Artifact{MimeType: blob.MIMEType, Data: blob.Data}, nil
}

// GenerateAudioDescription narrates image with the speech model.
func (c *Client) GenerateAudioDescription(ctx context.Context, image *command.Attachment) (media.Artifact, error) {
	if image == nil {
		return media.Artifact{}, command.ErrMissingImageAttachment
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	voice := c.cfg.TTSVoice
	if voice == "" {
		voice = defaultTTSVoice
	}
	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(image.Data, image.MimeType),
		genai.NewPartFromText(describePrompt),
	}, genai.RoleUser)}
	res, err := c.genai.Models.GenerateContent(ctx, c.cfg.TTSModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{modalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	})
	if err != nil {
		return media.Artifact{}, fmt.Errorf("generate speech: %w", err)
	}
	blob := firstInline(res)
	if blob == nil || len(blob.Data) == 0 {
		return media.Artifact{}, errNoAudio
	}
	wav, err := audio.SpeechToWAV(blob.Data, pcmRate(blob.MIMEType), c.outputRate)
	if err != nil {
		return media.Artifact{}, fmt.Errorf("%w: %v", errNoAudio, err)
	}
	return media.Artifact{MimeType: audio.WAVMimeType, Data: wav}, nil
}

func firstInline(res *genai.GenerateContentResponse) *genai.Blob {
	if res == nil {
		return nil
	}
	for _, cand := range res.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil {
				return part.InlineData
			}
		}
	}
	return nil
}

// pcmRate reads the rate parameter of an "audio/L16;rate=24000" type.
func pcmRate(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(key, "rate") {
			continue
		}
		if rate, err := strconv.Atoi(value); err == nil && rate > 0 {
			return rate
		}
	}
	return speechRate
}
