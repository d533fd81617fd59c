package tools

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kayz/kakaomap-mcp/internal/config"
	"github.com/kayz/kakaomap-mcp/internal/logger"
	"github.com/kayz/kakaomap-mcp/internal/metrics"
	"github.com/kayz/kakaomap-mcp/internal/places"
	"github.com/kayz/kakaomap-mcp/internal/search"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

const PlaceRecommenderName = "kakao_map_place_recommender"

// EmitterFactory returns the progress sink for one tool call.
type EmitterFactory func(ctx context.Context, req mcp.CallToolRequest) places.Emitter

// PlaceRecommender binds the place pipeline to an MCP tool. It holds only
// configuration; each call builds its own HTTP client and pipeline.
type PlaceRecommender struct {
	cfg        config.KakaoConfig
	recorder   metrics.Recorder
	newEmitter EmitterFactory
	httpClient *http.Client
}

type Option func(*PlaceRecommender)

func WithRecorder(r metrics.Recorder) Option {
	return func(t *PlaceRecommender) { t.recorder = r }
}

func WithEmitterFactory(f EmitterFactory) Option {
	return func(t *PlaceRecommender) { t.newEmitter = f }
}

// WithHTTPClient makes every call share hc instead of opening its own pool.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *PlaceRecommender) { t.httpClient = hc }
}

func NewPlaceRecommender(cfg config.KakaoConfig, opts ...Option) *PlaceRecommender {
	t := &PlaceRecommender{
		cfg:        cfg,
		recorder:   metrics.Nop{},
		newEmitter: SessionEmitter,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *PlaceRecommender) Tool() mcp.Tool {
	return mcp.NewTool(PlaceRecommenderName,
		mcp.WithDescription("Recommends relevant places in South Korea based on user queries."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Korean keywords for searching places in South Korea. Typically combines "+
				"place type and location (e.g., '이태원 맛집', '서울 병원', '강남역 영화관')."),
		),
	)
}

func (t *PlaceRecommender) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, _ := req.Params.Arguments["query"].(string)

	log := logger.Named("tools").With(
		zap.String("tool", PlaceRecommenderName),
		zap.String("request_id", uuid.NewString()),
	)

	opts := []search.Option{
		search.WithLogger(log.Named("kakao")),
		search.WithRecorder(t.recorder),
	}
	if t.httpClient != nil {
		opts = append(opts, search.WithHTTPClient(t.httpClient))
	}
	client := search.NewClient(search.Config{
		APIKey:        t.cfg.APIKey,
		LocalBaseURL:  t.cfg.LocalBaseURL,
		SearchBaseURL: t.cfg.SearchBaseURL,
		Timeout:       t.cfg.Timeout,
		PlaceSize:     t.cfg.PlaceSize,
	}, opts...)
	defer client.Close()

	pipeline := places.NewPipeline(t.cfg.APIKey, client,
		places.WithLogger(log),
		places.WithRecorder(t.recorder),
	)

	res, err := pipeline.Run(ctx, query, t.newEmitter(ctx, req))
	if err != nil {
		return nil, err
	}
	if res.IsError {
		log.Info("tool call rejected", zap.Error(res.Err))
		return mcp.NewToolResultError(res.Text), nil
	}
	log.Debug("tool call complete", zap.Int("places", res.Places))
	return mcp.NewToolResultText(res.Text), nil
}
