package llm

import "context"

// UnavailableProvider is the provider used when no backend credential is
// configured. Every call fails with ErrUnavailable so callers can surface a
// service-unavailable response instead of crashing at startup.
type UnavailableProvider struct {
	// Reason is included in error messages for diagnostics.
	Reason string
}

func (p *UnavailableProvider) Embed(context.Context, []string, EmbedKind) ([][]float32, error) {
	return nil, p.err()
}

func (p *UnavailableProvider) Generate(context.Context, string, []Message) (string, error) {
	return "", p.err()
}

func (p *UnavailableProvider) NormalizeText(text string) string { return text }

func (p *UnavailableProvider) SystemRole() string { return "system" }

func (p *UnavailableProvider) Available() bool { return false }

func (p *UnavailableProvider) err() error {
	if p.Reason == "" {
		return ErrUnavailable
	}
	return &unavailableError{reason: p.Reason}
}

type unavailableError struct {
	reason string
}

func (e *unavailableError) Error() string {
	return "llm provider unavailable: " + e.reason
}

func (e *unavailableError) Unwrap() error { return ErrUnavailable }
