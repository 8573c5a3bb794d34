package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"
)

// ImageGenerator turns a text description into image bytes: one square
// image from the generation API, fetched from the returned URL. No retries
// anywhere in the pipeline.
type ImageGenerator struct {
	client     openai.Client
	httpClient *http.Client
	model      string
	log        zerolog.Logger
}

func NewImageGenerator(apiKey, baseURL, model string, log zerolog.Logger) *ImageGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &ImageGenerator{
		client:     openai.NewClient(opts...),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		model:      model,
		log:        log.With().Str("component", "imagegen").Logger(),
	}
}

func (g *ImageGenerator) Generate(ctx context.Context, description string) ([]byte, error) {
	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:  description,
		Model:   g.model,
		N:       openai.Int(1),
		Size:    openai.ImageGenerateParamsSize1024x1024,
		Quality: openai.ImageGenerateParamsQualityStandard,
	})
	if err != nil {
		return nil, fmt.Errorf("image generation: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, fmt.Errorf("image generation: no image url in response")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resp.Data[0].URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build image download request: %w", err)
	}
	dlResp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer dlResp.Body.Close()

	if dlResp.StatusCode < 200 || dlResp.StatusCode >= 300 {
		return nil, fmt.Errorf("download image: status %d", dlResp.StatusCode)
	}
	data, err := io.ReadAll(dlResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image bytes: %w", err)
	}
	g.log.Info().Int("bytes", len(data)).Msg("image generated and downloaded")
	return data, nil
}
