package translator

import (
	"context"
	"fmt"

	"cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"

	"github.com/layerloom/psdtranslate/internal/config"
)

// GoogleClient implements Translator using the Cloud Translation API.
type GoogleClient struct {
	client *translate.Client
}

func NewGoogleClient(ctx context.Context, cfg config.GoogleTranslateConfig) (*GoogleClient, error) {
	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	} else if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create translate client: %w", err)
	}
	return &GoogleClient{client: client}, nil
}

func (c *GoogleClient) Name() string { return "google" }

func (c *GoogleClient) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if text == "" {
		return "", nil
	}

	tag, err := language.Parse(targetLang)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTargetLang, targetLang)
	}

	translations, err := c.client.Translate(ctx, []string{text}, tag, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}
	if len(translations) == 0 {
		return "", fmt.Errorf("%w: no translation returned", ErrTranslationFailed)
	}
	return translations[0].Text, nil
}

// Close releases the underlying gRPC connection.
func (c *GoogleClient) Close() error {
	return c.client.Close()
}

var _ Translator = (*GoogleClient)(nil)
