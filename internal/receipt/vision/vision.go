// Package vision implements receipt.Recognizer on top of Google Cloud Vision.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	goption "google.golang.org/api/option"
	gvision "google.golang.org/api/vision/v1"

	applog "dompet/internal/log"
	"dompet/internal/receipt"
)

const featureText = "TEXT_DETECTION"

// Client calls the Vision images:annotate endpoint.
type Client struct {
	svc           *gvision.Service
	languageHints []string
}

var _ receipt.Recognizer = (*Client)(nil)

// New creates a Vision client from service account credentials.
func New(ctx context.Context, credentialsJSON []byte, logger *applog.Logger, opts ...goption.ClientOption) (*Client, error) {
	if len(credentialsJSON) == 0 && len(opts) == 0 {
		return nil, errors.New("missing service account credentials for vision")
	}
	if len(credentialsJSON) > 0 {
		opts = append(opts,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gvision.CloudVisionScope))
	}
	svc, err := gvision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger.WithComponent(applog.ComponentReceipt).InfoContext(ctx, "Google Cloud Vision client created",
		"feature", featureText)
	return &Client{
		svc:           svc,
		languageHints: []string{"id", "en"},
	}, nil
}

// Recognize returns the full text Vision detects in image.
func (c *Client) Recognize(ctx context.Context, image []byte) (string, error) {
	if c.svc == nil {
		return "", errors.New("vision service not initialized")
	}
	req := &gvision.BatchAnnotateImagesRequest{
		Requests: []*gvision.AnnotateImageRequest{{
			Image:        &gvision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features:     []*gvision.Feature{{Type: featureText}},
			ImageContext: &gvision.ImageContext{LanguageHints: c.languageHints},
		}},
	}
	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("annotate image: %w", err)
	}
	return textFromResponse(resp)
}

func textFromResponse(resp *gvision.BatchAnnotateImagesResponse) (string, error) {
	if resp == nil || len(resp.Responses) == 0 {
		return "", nil
	}
	r := resp.Responses[0]
	if r.Error != nil && r.Error.Message != "" {
		return "", fmt.Errorf("vision error %d: %s", r.Error.Code, r.Error.Message)
	}
	if r.FullTextAnnotation != nil {
		return r.FullTextAnnotation.Text, nil
	}
	// Older responses only carry TextAnnotations; the first one is the whole block.
	if len(r.TextAnnotations) > 0 {
		return strings.TrimSpace(r.TextAnnotations[0].Description), nil
	}
	return "", nil
}
