package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kayz/kakaomap-mcp/internal/logger"
	"github.com/kayz/kakaomap-mcp/internal/metrics"
	"github.com/kayz/kakaomap-mcp/internal/search"
	"go.uber.org/zap"
)

// Terminal messages returned to the caller.
const (
	MissingAPIKeyMessage = "Tool Execution Failed: KAKAO_API_KEY is not configured."
	EmptyQueryMessage    = "Query is empty"
	CompletedMessage     = "Search complete. All results have been streamed."
)

var (
	ErrMissingAPIKey = errors.New("kakao api key is not configured")
	ErrEmptyQuery    = errors.New("query is empty")
)

// Result is the terminal value of one invocation.
type Result struct {
	Text    string
	IsError bool
	// Err is ErrMissingAPIKey or ErrEmptyQuery for rejected invocations.
	Err error
	// Places is the number of per-place events streamed.
	Places int
}

type Pipeline struct {
	apiKey   string
	searcher Searcher
	enricher *Enricher
	log      *zap.Logger
	recorder metrics.Recorder
}

type Option func(*Pipeline)

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// NewPipeline wires a pipeline around searcher. apiKey is only checked for
// presence; the searcher is expected to carry it already.
func NewPipeline(apiKey string, searcher Searcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		apiKey:   apiKey,
		searcher: searcher,
		enricher: NewEnricher(searcher),
		log:      logger.Named("places"),
		recorder: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run searches for query and streams one event per place through emit, in
// upstream order, after the instructional event. A place that fails to
// enrich is reported as an error payload and the run continues. Run only
// returns a non-nil error when the caller can no longer be reached: emit
// failed or ctx was cancelled.
func (p *Pipeline) Run(ctx context.Context, query string, emit Emitter) (Result, error) {
	start := time.Now()

	if strings.TrimSpace(p.apiKey) == "" {
		p.log.Error("rejecting invocation", zap.Error(ErrMissingAPIKey))
		p.recorder.Invocation(metrics.OutcomeConfigError)
		return Result{Text: MissingAPIKeyMessage, IsError: true, Err: ErrMissingAPIKey}, nil
	}
	if strings.TrimSpace(query) == "" {
		p.log.Warn("rejecting invocation", zap.Error(ErrEmptyQuery))
		p.recorder.Invocation(metrics.OutcomeInvalidInput)
		return Result{Text: EmptyQueryMessage, IsError: true, Err: ErrEmptyQuery}, nil
	}

	if err := emit.Emit(ctx, Event{Message: Instructions}); err != nil {
		return p.abort(fmt.Errorf("emit instructions: %w", err))
	}

	found := p.searcher.Places(ctx, query)
	total := len(found)
	p.log.Info("places found", zap.String("query", query), zap.Int("count", total))

	for i, place := range found {
		if err := ctx.Err(); err != nil {
			return p.abort(fmt.Errorf("before place %d/%d: %w", i+1, total, err))
		}

		payload, err := p.process(ctx, place)
		if err != nil {
			if ctx.Err() != nil {
				return p.abort(fmt.Errorf("place %d/%d: %w", i+1, total, err))
			}
			p.log.Warn("failed to process place",
				zap.String("place", placeName(place)),
				zap.Int("index", i+1),
				zap.Error(err))
			payload = errorPayload(placeName(place))
			p.recorder.Place(metrics.OutcomeError)
		} else {
			p.recorder.Place(metrics.OutcomeOK)
		}

		ev := Event{Message: payload, Progress: i + 1, Total: total}
		if err := emit.Emit(ctx, ev); err != nil {
			return p.abort(fmt.Errorf("emit place %d/%d: %w", i+1, total, err))
		}
	}

	p.log.Info("search complete",
		zap.Int("places", total),
		zap.Duration("elapsed", time.Since(start)))
	p.recorder.Invocation(metrics.OutcomeOK)
	return Result{Text: CompletedMessage, Places: total}, nil
}

func (p *Pipeline) process(ctx context.Context, place search.Place) (payload string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	enriched, err := p.enricher.Enrich(ctx, place)
	if err != nil {
		return "", err
	}
	return marshalPayload(enriched, true)
}

func (p *Pipeline) abort(err error) (Result, error) {
	p.log.Warn("invocation aborted", zap.Error(err))
	p.recorder.Invocation(metrics.OutcomeAborted)
	return Result{}, err
}

type errorMessage struct {
	Error string `json:"error"`
}

func errorPayload(name string) string {
	s, _ := marshalPayload(errorMessage{Error: "Failed to process " + name}, false)
	return s
}

// marshalPayload encodes v without escaping '<', '>' and '&' so URLs and
// Korean text reach the client as-is.
func marshalPayload(v any, indent bool) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
