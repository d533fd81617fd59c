package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kayz/kakaomap-mcp/internal/config"
	"github.com/kayz/kakaomap-mcp/internal/logger"
	"github.com/kayz/kakaomap-mcp/internal/places"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type collector struct {
	mu     sync.Mutex
	events []places.Event
}

func (c *collector) factory(context.Context, mcp.CallToolRequest) places.Emitter {
	return places.EmitterFunc(func(_ context.Context, ev places.Event) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.events = append(c.events, ev)
		return nil
	})
}

func kakaoServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "KakaoAK test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		q := r.URL.Query().Get("query")
		switch r.URL.Path {
		case "/local/keyword.json":
			fmt.Fprint(w, `{"documents":[
				{"place_name":"A식당","address_name":"서울 용산구","category_name":"한식","place_url":"http://place.map.kakao.com/1","phone":"02-1"},
				{"place_name":"B카페","address_name":"서울 용산구","category_name":"카페","place_url":"http://place.map.kakao.com/2","phone":""}
			]}`)
		case "/search/web":
			if q == "A식당" {
				fmt.Fprint(w, `{"documents":[{"title":"1","contents":"a"},{"title":"2","contents":"b"},{"title":"3","contents":"c"}]}`)
				return
			}
			fmt.Fprint(w, `{"documents":[]}`)
		case "/search/image":
			if q == "A식당" {
				fmt.Fprint(w, `{"documents":[{"image_url":"http://img.test/a.jpg"}]}`)
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func kakaoConfig(url, key string) config.KakaoConfig {
	return config.KakaoConfig{
		APIKey:        key,
		LocalBaseURL:  url + "/local",
		SearchBaseURL: url + "/search",
		Timeout:       2 * time.Second,
	}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = PlaceRecommenderName
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestHandleStreamsItaewonScenario(t *testing.T) {
	var hits atomic.Int32
	srv := kakaoServer(t, &hits)
	col := &collector{}
	tool := NewPlaceRecommender(kakaoConfig(srv.URL, "test-key"), WithEmitterFactory(col.factory))

	res, err := tool.Handle(context.Background(), callRequest(map[string]any{"query": "이태원 맛집"}))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.IsError)
	assert.Equal(t, places.CompletedMessage, resultText(t, res))

	require.Len(t, col.events, 3)
	assert.Equal(t, places.Instructions, col.events[0].Message)

	var first, second places.EnrichedPlace
	require.NoError(t, json.Unmarshal([]byte(col.events[1].Message), &first))
	require.NoError(t, json.Unmarshal([]byte(col.events[2].Message), &second))

	assert.Equal(t, places.Event{Message: col.events[1].Message, Progress: 1, Total: 2}, col.events[1])
	assert.Equal(t, "http://img.test/a.jpg", first.ImageURL)
	assert.Len(t, first.Comments, 3)

	assert.Equal(t, 2, col.events[2].Progress)
	assert.Equal(t, "B카페", second.PlaceName)
	assert.Equal(t, "", second.ImageURL)

	// 1 keyword search + 2 calls per place
	assert.Equal(t, int32(5), hits.Load())
}

func TestHandleMissingKey(t *testing.T) {
	var hits atomic.Int32
	srv := kakaoServer(t, &hits)
	col := &collector{}
	tool := NewPlaceRecommender(kakaoConfig(srv.URL, ""), WithEmitterFactory(col.factory))

	res, err := tool.Handle(context.Background(), callRequest(map[string]any{"query": "이태원 맛집"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, places.MissingAPIKeyMessage, resultText(t, res))
	assert.Empty(t, col.events)
	assert.Zero(t, hits.Load())
}

func TestHandleEmptyOrMissingQuery(t *testing.T) {
	var hits atomic.Int32
	srv := kakaoServer(t, &hits)

	for _, args := range []map[string]any{
		{"query": ""},
		{},
		{"query": 42},
	} {
		col := &collector{}
		tool := NewPlaceRecommender(kakaoConfig(srv.URL, "test-key"), WithEmitterFactory(col.factory))

		res, err := tool.Handle(context.Background(), callRequest(args))
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Equal(t, places.EmptyQueryMessage, resultText(t, res))
		assert.Empty(t, col.events)
	}
	assert.Zero(t, hits.Load())
}

func TestHandleLogsOutcome(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	restore := logger.Replace(zap.New(core))
	defer restore()

	var hits atomic.Int32
	srv := kakaoServer(t, &hits)
	col := &collector{}

	rejected := NewPlaceRecommender(kakaoConfig(srv.URL, ""), WithEmitterFactory(col.factory))
	_, err := rejected.Handle(context.Background(), callRequest(map[string]any{"query": "이태원 맛집"}))
	require.NoError(t, err)

	entries := logs.FilterMessage("tool call rejected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, places.ErrMissingAPIKey.Error(), entries[0].ContextMap()["error"])

	tool := NewPlaceRecommender(kakaoConfig(srv.URL, "test-key"), WithEmitterFactory(col.factory))
	_, err = tool.Handle(context.Background(), callRequest(map[string]any{"query": "이태원 맛집"}))
	require.NoError(t, err)

	entries = logs.FilterMessage("tool call complete").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 2, entries[0].ContextMap()["places"])
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
}

func TestHandleWithoutSessionFails(t *testing.T) {
	var hits atomic.Int32
	srv := kakaoServer(t, &hits)
	tool := NewPlaceRecommender(kakaoConfig(srv.URL, "test-key"), WithHTTPClient(srv.Client()))

	res, err := tool.Handle(context.Background(), callRequest(map[string]any{"query": "이태원 맛집"}))
	assert.ErrorIs(t, err, errNoServer)
	assert.Nil(t, res)
	assert.Zero(t, hits.Load(), "nothing is fetched when the instructions cannot be delivered")
}

func TestToolDefinition(t *testing.T) {
	tool := NewPlaceRecommender(config.KakaoConfig{}).Tool()
	assert.Equal(t, PlaceRecommenderName, tool.Name)
	assert.Contains(t, tool.Description, "South Korea")
	assert.Contains(t, tool.InputSchema.Required, "query")
	assert.Contains(t, tool.InputSchema.Properties, "query")
}

func TestProgressParams(t *testing.T) {
	instr := progressParams(nil, places.Event{Message: "hello"})
	assert.Equal(t, map[string]any{"message": "hello"}, instr)

	ev := progressParams(mcp.ProgressToken("tok-1"), places.Event{Message: "{}", Progress: 2, Total: 5})
	assert.Equal(t, map[string]any{
		"message":       "{}",
		"progressToken": mcp.ProgressToken("tok-1"),
		"progress":      2,
		"total":         5,
	}, ev)
}
