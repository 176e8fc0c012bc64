package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/nasagw/internal/nasa"
	"github.com/kalambet/nasagw/internal/upstream"
)

func newTestTools(t *testing.T, h http.HandlerFunc) (map[string]server.ServerTool, *url.URL) {
	t.Helper()
	last := &url.URL{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*last = *r.URL
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	feeds := nasa.NewFeeds(upstream.NewClient(srv.URL, "mcp-key", 2*time.Second), nil).
		WithEONET(upstream.NewClient(srv.URL, "", 2*time.Second))
	tools := make(map[string]server.ServerTool)
	for _, tool := range feedTools(feeds) {
		tools[tool.Tool.Name] = tool
	}
	return tools, last
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCP_RegistersAllFeeds(t *testing.T) {
	tools, _ := newTestTools(t, func(w http.ResponseWriter, r *http.Request) {})

	for _, name := range []string{"apod", "mars_rover_photos", "earth_imagery", "neo_feed", "epic_images", "space_weather", "eonet_events"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
	if len(tools) != 7 {
		t.Errorf("got %d tools, want 7", len(tools))
	}
}

func TestMCP_APODReturnsUpstreamJSON(t *testing.T) {
	tools, last := newTestTools(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title":"M31"}`)
	})

	res, err := tools["apod"].Handler(context.Background(), makeCallToolRequest("apod", map[string]any{
		"count":  float64(2),
		"thumbs": true,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, res))
	}
	if got := toolText(t, res); got != `{"title":"M31"}` {
		t.Errorf("text = %q", got)
	}
	if last.RawQuery != "api_key=mcp-key&count=2&thumbs=true" {
		t.Errorf("upstream query = %q", last.RawQuery)
	}
}

func TestMCP_RoverNumericArgs(t *testing.T) {
	tools, last := newTestTools(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"photos":[]}`)
	})

	res, err := tools["mars_rover_photos"].Handler(context.Background(), makeCallToolRequest("mars_rover_photos", map[string]any{
		"rover": "opportunity",
		"sol":   float64(1000),
	}))
	if err != nil || res.IsError {
		t.Fatalf("call failed: %v %+v", err, res)
	}
	if last.Path != "/mars-photos/api/v1/rovers/opportunity/photos" {
		t.Errorf("path = %q", last.Path)
	}
	if last.RawQuery != "api_key=mcp-key&sol=1000" {
		t.Errorf("query = %q", last.RawQuery)
	}
}

func TestMCP_UpstreamFailureIsToolError(t *testing.T) {
	tools, _ := newTestTools(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "internal detail")
	})

	res, err := tools["neo_feed"].Handler(context.Background(), makeCallToolRequest("neo_feed", nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("expected tool error")
	}
	if got := toolText(t, res); got != "Failed to fetch NEO data" {
		t.Errorf("text = %q", got)
	}
}

func TestMCP_SpaceWeatherRejectsUnknownType(t *testing.T) {
	var calls int
	tools, _ := newTestTools(t, func(w http.ResponseWriter, r *http.Request) { calls++ })

	res, err := tools["space_weather"].Handler(context.Background(), makeCallToolRequest("space_weather", map[string]any{
		"type": "BOGUS",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected tool error")
	}
	if calls != 0 {
		t.Errorf("upstream calls = %d, want 0", calls)
	}
}

func TestMCP_EONETEvents(t *testing.T) {
	tools, last := newTestTools(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"events":[{"id":"EONET_1"}]}`)
	})

	res, err := tools["eonet_events"].Handler(context.Background(), makeCallToolRequest("eonet_events", map[string]any{
		"limit": float64(3),
	}))
	if err != nil || res.IsError {
		t.Fatalf("call failed: %v %+v", err, res)
	}
	if got := toolText(t, res); got != `{"events":[{"id":"EONET_1"}]}` {
		t.Errorf("text = %q", got)
	}
	if last.Path != "/events" || last.RawQuery != "status=open&limit=3" {
		t.Errorf("upstream = %s?%s", last.Path, last.RawQuery)
	}
}

func TestMCP_RoverTraversalIsToolError(t *testing.T) {
	var calls atomic.Int32
	tools, _ := newTestTools(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	res, err := tools["mars_rover_photos"].Handler(context.Background(), makeCallToolRequest("mars_rover_photos", map[string]any{
		"rover": "..",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || toolText(t, res) != "Invalid Mars Rover query" {
		t.Errorf("result = %+v, want tool error", res)
	}
	if calls.Load() != 0 {
		t.Errorf("upstream calls = %d, want 0", calls.Load())
	}
}

func TestMCP_ImageResponse(t *testing.T) {
	tools, _ := newTestTools(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	})

	res, err := tools["earth_imagery"].Handler(context.Background(), makeCallToolRequest("earth_imagery", map[string]any{
		"lat": 29.78,
		"lon": -95.33,
	}))
	if err != nil || res.IsError {
		t.Fatalf("call failed: %v %+v", err, res)
	}
	var img *mcp.ImageContent
	for _, c := range res.Content {
		if ic, ok := c.(mcp.ImageContent); ok {
			img = &ic
		}
	}
	if img == nil {
		t.Fatalf("no image content in %+v", res.Content)
	}
	if img.MIMEType != "image/png" || img.Data != "iVBORw==" {
		t.Errorf("image = %s %q", img.MIMEType, img.Data)
	}
}
