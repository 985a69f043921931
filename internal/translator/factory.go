package translator

import (
	"context"
	"fmt"

	"github.com/layerloom/psdtranslate/internal/config"
)

// NewTranslator constructs the configured translation provider.
// Called once at server startup.
func NewTranslator(ctx context.Context, cfg config.TranslatorConfig) (Translator, error) {
	switch cfg.Provider {
	case "deepl":
		return NewDeepLClient(cfg.DeepL), nil
	case "google":
		return NewGoogleClient(ctx, cfg.Google)
	default:
		return nil, fmt.Errorf("unknown translator provider %q: must be one of deepl, google", cfg.Provider)
	}
}
