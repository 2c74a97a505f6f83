// Package insight turns ledger snapshots into prompts for a generative model and
// parses the answers back into domain values. Every operation has a safe fallback:
// failures are logged and never returned to the caller.
package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/logging"
	"github.com/finansage/finansage/internal/money"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 60 * time.Second

// ErrDisabled is reported internally when no generator is configured.
var ErrDisabled = errors.New("no insight provider configured")

// Generator is a text or structured-output model backend.
type Generator interface {
	// Generate returns the model's answer. When req.Schema is set the answer is a JSON
	// document conforming to it.
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is one model call.
type Request struct {
	System string
	Prompt string
	Images []Image
	Schema *Schema
}

// Image is an inline image attachment.
type Image struct {
	MIMEType string
	Data     []byte
}

// Kind is a JSON schema type.
type Kind string

const (
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
)

// Schema describes the JSON shape a structured answer must take. Backends translate it
// into their own schema types.
type Schema struct {
	Kind        Kind
	Description string
	Properties  map[string]*Schema
	// Order lists property names in the order they should be generated.
	Order    []string
	Required []string
	Items    *Schema
	Enum     []string
	Nullable bool
}

// Page is what a product page fetch yields.
type Page struct {
	URL         string
	Title       string
	Description string
	ImageURL    string
	Price       string
	Text        string
}

// PageFetcher loads and summarizes a web page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Options configures a Service.
type Options struct {
	Logger   zerolog.Logger
	Timeout  time.Duration
	Now      func() time.Time
	Fetcher  PageFetcher
	Currency string
}

// Service runs the insight operations against one Generator.
type Service struct {
	gen      Generator
	fetch    PageFetcher
	log      zerolog.Logger
	timeout  time.Duration
	now      func() time.Time
	currency string
}

// NewService creates a Service. A nil gen yields a Service that always falls back.
func NewService(gen Generator, opts Options) *Service {
	s := &Service{
		gen:      gen,
		fetch:    opts.Fetcher,
		log:      logging.Component(opts.Logger, logging.ComponentInsight),
		timeout:  opts.Timeout,
		now:      opts.Now,
		currency: opts.Currency,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.currency == "" {
		s.currency = money.DefaultCurrency
	}
	return s
}

// Enabled reports whether a generator is configured.
func (s *Service) Enabled() bool { return s.gen != nil }

func (s *Service) today() date.Date { return date.Of(s.now()) }

// call runs one request under the service timeout.
func (s *Service) call(ctx context.Context, op string, req Request) (string, error) {
	if s.gen == nil {
		return "", ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	out, err := s.gen.Generate(ctx, req)
	s.log.Debug().Str("op", op).Dur("duration", time.Since(start)).Bool("ok", err == nil).Msg("model call")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// fallback logs why op produced its fallback value.
func (s *Service) fallback(op string, err error) {
	if errors.Is(err, ErrDisabled) {
		s.log.Debug().Str("op", op).Msg("insight provider disabled")
		return
	}
	s.log.Warn().Err(err).Str("op", op).Msg("insight request failed, using fallback")
}

// decode parses a structured answer. Models sometimes wrap JSON in a markdown fence.
func decode[T any](raw string) (T, error) {
	var v T
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return v, fmt.Errorf("decoding model answer: %w", err)
	}
	return v, nil
}
