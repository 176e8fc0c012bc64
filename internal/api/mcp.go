package api

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/nasagw/internal/nasa"
	"github.com/kalambet/nasagw/internal/upstream"
)

// NewMCPServer creates an MCP server exposing each NASA feed as a tool.
func NewMCPServer(feeds *nasa.Feeds, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"nasagw",
		version,
		server.WithToolCapabilities(false),
		server.WithInstructions("nasagw: NASA open data feeds (APOD, Mars rover photos, Earth imagery, near-earth objects, EPIC, DONKI space weather, EONET natural events)."),
		server.WithRecovery(),
	)

	s.AddTools(feedTools(feeds)...)
	return s
}

func feedTools(feeds *nasa.Feeds) []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("apod",
				mcp.WithDescription("Astronomy Picture of the Day. Returns the raw APOD JSON."),
				mcp.WithString("date", mcp.Description("Date as YYYY-MM-DD (default today)")),
				mcp.WithNumber("count", mcp.Description("Return this many random pictures instead of one date")),
				mcp.WithBoolean("thumbs", mcp.Description("Include video thumbnails")),
			),
			Handler: mcpFeed(nasa.FeatureAPOD, func(ctx context.Context, req mcp.CallToolRequest) (*upstream.Response, error) {
				return feeds.APOD(ctx, nasa.APODQuery{
					Date:   req.GetString("date", ""),
					Count:  intArg(req, "count"),
					Thumbs: boolArg(req, "thumbs"),
				})
			}),
		},
		{
			Tool: mcp.NewTool("mars_rover_photos",
				mcp.WithDescription("Photos taken by a Mars rover on a given sol or Earth date."),
				mcp.WithString("rover", mcp.Description("Rover name (default curiosity)")),
				mcp.WithNumber("sol", mcp.Description("Martian sol")),
				mcp.WithString("earth_date", mcp.Description("Earth date as YYYY-MM-DD")),
				mcp.WithString("camera", mcp.Description("Camera abbreviation, e.g. NAVCAM")),
				mcp.WithNumber("page", mcp.Description("Result page, 25 photos per page")),
			),
			Handler: mcpFeed(nasa.FeatureMarsRover, func(ctx context.Context, req mcp.CallToolRequest) (*upstream.Response, error) {
				return feeds.MarsRover(ctx, nasa.RoverQuery{
					Rover:     req.GetString("rover", ""),
					Sol:       intArg(req, "sol"),
					EarthDate: req.GetString("earth_date", ""),
					Camera:    req.GetString("camera", ""),
					Page:      intArg(req, "page"),
				})
			}),
		},
		{
			Tool: mcp.NewTool("earth_imagery",
				mcp.WithDescription("Landsat imagery for a coordinate."),
				mcp.WithNumber("lat", mcp.Description("Latitude"), mcp.Required()),
				mcp.WithNumber("lon", mcp.Description("Longitude"), mcp.Required()),
				mcp.WithString("date", mcp.Description("Date as YYYY-MM-DD")),
				mcp.WithNumber("dim", mcp.Description("Width and height of the image in degrees")),
			),
			Handler: mcpFeed(nasa.FeatureEarthImagery, func(ctx context.Context, req mcp.CallToolRequest) (*upstream.Response, error) {
				return feeds.EarthImagery(ctx, nasa.EarthQuery{
					Lat:  floatArg(req, "lat"),
					Lon:  floatArg(req, "lon"),
					Date: req.GetString("date", ""),
					Dim:  floatArg(req, "dim"),
				})
			}),
		},
		{
			Tool: mcp.NewTool("neo_feed",
				mcp.WithDescription("Near-earth objects by closest approach date (default today)."),
				mcp.WithString("start_date", mcp.Description("Start date as YYYY-MM-DD")),
				mcp.WithString("end_date", mcp.Description("End date as YYYY-MM-DD")),
			),
			Handler: mcpFeed(nasa.FeatureNEO, func(ctx context.Context, req mcp.CallToolRequest) (*upstream.Response, error) {
				return feeds.NEO(ctx, nasa.NEOQuery{
					StartDate: req.GetString("start_date", ""),
					EndDate:   req.GetString("end_date", ""),
				})
			}),
		},
		{
			Tool: mcp.NewTool("epic_images",
				mcp.WithDescription("EPIC natural-color Earth image metadata, latest or for a date."),
				mcp.WithString("date", mcp.Description("Date as YYYY-MM-DD")),
			),
			Handler: mcpFeed(nasa.FeatureEPIC, func(ctx context.Context, req mcp.CallToolRequest) (*upstream.Response, error) {
				return feeds.EPIC(ctx, nasa.EPICQuery{Date: req.GetString("date", "")})
			}),
		},
		{
			Tool: mcp.NewTool("space_weather",
				mcp.WithDescription("DONKI space weather notifications (default CMEs over the last 30 days)."),
				mcp.WithString("type", mcp.Description("Notification type"), mcp.Enum(nasa.DONKITypes...)),
				mcp.WithString("start_date", mcp.Description("Start date as YYYY-MM-DD")),
				mcp.WithString("end_date", mcp.Description("End date as YYYY-MM-DD")),
			),
			Handler: mcpFeed(nasa.FeatureDONKI, func(ctx context.Context, req mcp.CallToolRequest) (*upstream.Response, error) {
				return feeds.SpaceWeather(ctx, nasa.DONKIQuery{
					Type:      req.GetString("type", ""),
					StartDate: req.GetString("start_date", ""),
					EndDate:   req.GetString("end_date", ""),
				})
			}),
		},
		{
			Tool: mcp.NewTool("eonet_events",
				mcp.WithDescription("EONET natural events such as wildfires, storms and volcanoes (default open events)."),
				mcp.WithString("status", mcp.Description("Event status"), mcp.Enum("open", "closed", "all")),
				mcp.WithNumber("limit", mcp.Description("Maximum number of events")),
				mcp.WithNumber("days", mcp.Description("Only events from the last this many days")),
			),
			Handler: mcpFeed(nasa.FeatureEONET, func(ctx context.Context, req mcp.CallToolRequest) (*upstream.Response, error) {
				return feeds.EONET(ctx, nasa.EONETQuery{
					Status: req.GetString("status", ""),
					Limit:  intArg(req, "limit"),
					Days:   intArg(req, "days"),
				})
			}),
		},
	}
}

type mcpFetch func(ctx context.Context, req mcp.CallToolRequest) (*upstream.Response, error)

func mcpFeed(feature nasa.Feature, fetch mcpFetch) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := fetch(ctx, req)
		if err != nil {
			if errors.Is(err, nasa.ErrInvalidQuery) {
				return mcpError("Invalid " + string(feature) + " query"), nil
			}
			slog.ErrorContext(ctx, "mcp tool fetch failed", "feature", string(feature), "error", err)
			return mcpError(feature.FailureMessage()), nil
		}
		if strings.HasPrefix(resp.ContentType, "image/") {
			mime, _, _ := strings.Cut(resp.ContentType, ";")
			return mcp.NewToolResultImage(string(feature)+" image", base64.StdEncoding.EncodeToString(resp.Body), mime), nil
		}
		return mcpText(string(resp.Body)), nil
	}
}

// intArg formats a numeric argument without a decimal point, or "" if absent.
func intArg(req mcp.CallToolRequest, key string) string {
	if _, ok := req.GetArguments()[key]; !ok {
		return ""
	}
	return strconv.Itoa(req.GetInt(key, 0))
}

func floatArg(req mcp.CallToolRequest, key string) string {
	if _, ok := req.GetArguments()[key]; !ok {
		return ""
	}
	return strconv.FormatFloat(req.GetFloat(key, 0), 'f', -1, 64)
}

func boolArg(req mcp.CallToolRequest, key string) string {
	if _, ok := req.GetArguments()[key]; !ok {
		return ""
	}
	return strconv.FormatBool(req.GetBool(key, false))
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
