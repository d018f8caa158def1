package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/platform"
)

const DefaultTone = "professional"

// TextGenerator turns a prompt into text.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type ContentTransformer interface {
	Transform(ctx context.Context, rawContent, platformID, tone string) (string, error)
}

type contentTransformer struct {
	registry *platform.Registry
	gen      TextGenerator
}

func NewContentTransformer(registry *platform.Registry, gen TextGenerator) ContentTransformer {
	return &contentTransformer{registry: registry, gen: gen}
}

// Transform rewrites rawContent for the platform with a single generator
// call. The result is not length-checked here.
func (t *contentTransformer) Transform(ctx context.Context, rawContent, platformID, tone string) (string, error) {
	content := strings.TrimSpace(rawContent)
	if content == "" {
		return "", apperrors.ErrEmptyInput
	}

	p, err := t.registry.Lookup(platformID)
	if err != nil {
		return "", err
	}

	if tone = strings.TrimSpace(tone); tone == "" {
		tone = DefaultTone
	}

	out, err := t.gen.GenerateText(ctx, buildPrompt(p, content, tone))
	if err != nil {
		slog.Info(err.Error())
		return "", apperrors.ErrGenerationFailed.Wrap(err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", apperrors.ErrGenerationFailed.WithDetails("empty response")
	}
	return out, nil
}

func buildPrompt(p platform.Platform, content, tone string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transform this content for %s:\n%q\n\n", p.DisplayName, content)
	if p.StyleDirective != "" {
		fmt.Fprintf(&b, "%s\n\n", p.StyleDirective)
	}
	b.WriteString("Requirements:\n")
	b.WriteString("1. Keep the core message\n")
	fmt.Fprintf(&b, "2. Make it engaging for %s\n", p.DisplayName)
	fmt.Fprintf(&b, "3. Use a %s tone\n", tone)
	b.WriteString("4. Format appropriately\n")
	if max, ok := p.Limit(); ok {
		fmt.Fprintf(&b, "5. Keep it under %d characters\n", max)
	}
	b.WriteString("\nReturn only the transformed content, no explanations.")
	return b.String()
}
