package translator

import "context"

// MockTranslator satisfies Translator for testing.
type MockTranslator struct {
	Name_         string
	TranslateFunc func(ctx context.Context, text, targetLang string) (string, error)
	Calls         []string
}

func (m *MockTranslator) Name() string {
	if m.Name_ == "" {
		return "mock"
	}
	return m.Name_
}

func (m *MockTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	m.Calls = append(m.Calls, text)
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, text, targetLang)
	}
	return text, nil
}

// NewMappingTranslator returns a MockTranslator that looks translations up in
// a fixed table and passes unknown input through unchanged.
func NewMappingTranslator(mapping map[string]string) *MockTranslator {
	return &MockTranslator{
		Name_: "mock",
		TranslateFunc: func(_ context.Context, text, _ string) (string, error) {
			if out, ok := mapping[text]; ok {
				return out, nil
			}
			return text, nil
		},
	}
}

// NewFailingTranslator returns a MockTranslator that always returns the given error.
func NewFailingTranslator(err error) *MockTranslator {
	return &MockTranslator{
		Name_: "mock-failing",
		TranslateFunc: func(_ context.Context, _, _ string) (string, error) {
			return "", err
		},
	}
}

var _ Translator = (*MockTranslator)(nil)
