// Package aireport talks to the generative service that writes the clinical
// interaction report. The service is optional: callers treat every error as
// "no report" and keep scoring.
package aireport

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured is returned when no API key or endpoint is set.
	ErrNotConfigured = errors.New("generative service not configured")
	// ErrEmptyResponse is returned when the service answers without text.
	ErrEmptyResponse = errors.New("generative service returned no text")
)

// Generator turns a prompt into free text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Unconfigured always fails with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Generate(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
