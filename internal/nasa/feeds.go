// Package nasa maps each NASA data source onto a single upstream call. Queries carry only the parameters a caller supplied; defaults are
// applied here and nothing else is forwarded.
package nasa

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/kalambet/nasagw/internal/upstream"
)

const (
	DefaultRover       = "curiosity"
	DefaultDONKIType   = "CME"
	DefaultEONETStatus = "open"
	DONKIWindow        = 30 * 24 * time.Hour
	dateLayout         = "2006-01-02"
)

// ErrInvalidQuery marks a query rejected before any upstream call.
var ErrInvalidQuery = errors.New("invalid query")

// Feature identifies a data source in logs, metrics and error payloads.
type Feature string

const (
	FeatureAPOD         Feature = "APOD"
	FeatureMarsRover    Feature = "Mars Rover"
	FeatureEarthImagery Feature = "Earth Imagery"
	FeatureNEO          Feature = "NEO"
	FeatureEPIC         Feature = "EPIC"
	FeatureDONKI        Feature = "DONKI"
	FeatureEONET        Feature = "EONET"
)

// FailureMessage is the generic error text returned to callers.
func (f Feature) FailureMessage() string {
	return fmt.Sprintf("Failed to fetch %s data", f)
}

// DONKITypes lists the notification families the DONKI service exposes.
var DONKITypes = []string{
	"CME", "CMEAnalysis", "GST", "IPS", "FLR", "SEP", "MPC", "RBE", "HSS",
	"WSAEnlilSimulations", "notifications",
}

type APODQuery struct {
	Date   string
	Count  string
	Thumbs string
}

type RoverQuery struct {
	Rover     string
	Sol       string
	EarthDate string
	Camera    string
	Page      string
}

type EarthQuery struct {
	Lat  string
	Lon  string
	Date string
	Dim  string
}

type NEOQuery struct {
	StartDate string
	EndDate   string
}

type EPICQuery struct {
	Date string
}

type DONKIQuery struct {
	Type      string
	StartDate string
	EndDate   string
}

type EONETQuery struct {
	Status string
	Limit  string
	Days   string
}

// Getter is the upstream call the feeds depend on.
type Getter interface {
	Get(ctx context.Context, path string, params *upstream.Params) (*upstream.Response, error)
}

// Observer is notified once per upstream call.
type Observer func(feature Feature, outcome string, elapsed time.Duration)

// Feeds issues the upstream call for each data source.
type Feeds struct {
	client   Getter
	eonet    Getter
	now      func() time.Time
	observer Observer
}

// NewFeeds creates Feeds backed by client. The observer may be nil.
func NewFeeds(client Getter, observer Observer) *Feeds {
	return &Feeds{
		client:   client,
		now:      time.Now,
		observer: observer,
	}
}

// WithEONET sets the client for the EONET natural-event service, which lives
// on its own host and takes no API key.
func (f *Feeds) WithEONET(client Getter) *Feeds {
	f.eonet = client
	return f
}

// APOD fetches the astronomy picture of the day.
func (f *Feeds) APOD(ctx context.Context, q APODQuery) (*upstream.Response, error) {
	p := &upstream.Params{}
	p.AddIfPresent("date", q.Date).
		AddIfPresent("count", q.Count).
		AddIfPresent("thumbs", q.Thumbs)
	return f.get(ctx, FeatureAPOD, "/planetary/apod", p)
}

// MarsRover fetches rover photos; the rover defaults to curiosity.
func (f *Feeds) MarsRover(ctx context.Context, q RoverQuery) (*upstream.Response, error) {
	rover, err := pathSegment(orDefault(q.Rover, DefaultRover))
	if err != nil {
		return nil, err
	}
	p := &upstream.Params{}
	p.AddIfPresent("sol", q.Sol).
		AddIfPresent("earth_date", q.EarthDate).
		AddIfPresent("camera", q.Camera).
		AddIfPresent("page", q.Page)
	path := "/mars-photos/api/v1/rovers/" + rover + "/photos"
	return f.get(ctx, FeatureMarsRover, path, p)
}

// EarthImagery fetches Landsat imagery. lat and lon are always forwarded so
// the upstream decides whether they are valid.
func (f *Feeds) EarthImagery(ctx context.Context, q EarthQuery) (*upstream.Response, error) {
	p := &upstream.Params{}
	p.Add("lat", q.Lat).
		Add("lon", q.Lon).
		AddIfPresent("date", q.Date).
		AddIfPresent("dim", q.Dim)
	return f.get(ctx, FeatureEarthImagery, "/planetary/earth/imagery", p)
}

// NEO fetches the near-earth-object feed. Missing dates default to today in UTC.
func (f *Feeds) NEO(ctx context.Context, q NEOQuery) (*upstream.Response, error) {
	today := f.today()
	p := &upstream.Params{}
	p.Add("start_date", orDefault(q.StartDate, today)).
		Add("end_date", orDefault(q.EndDate, today))
	return f.get(ctx, FeatureNEO, "/neo/rest/v1/feed", p)
}

// EPIC fetches natural-color EPIC metadata. A date selects the per-day
// listing through the path rather than the query string.
func (f *Feeds) EPIC(ctx context.Context, q EPICQuery) (*upstream.Response, error) {
	path := "/EPIC/api/natural"
	if q.Date != "" {
		date, err := pathSegment(q.Date)
		if err != nil {
			return nil, err
		}
		path += "/date/" + date
	}
	return f.get(ctx, FeatureEPIC, path, nil)
}

// SpaceWeather fetches DONKI notifications of one type over a date window.
// The window defaults to the last 30 days ending today (UTC).
func (f *Feeds) SpaceWeather(ctx context.Context, q DONKIQuery) (*upstream.Response, error) {
	kind := q.Type
	if kind == "" {
		kind = DefaultDONKIType
	}
	if !slices.Contains(DONKITypes, kind) {
		return nil, fmt.Errorf("%w: unknown DONKI type %q", ErrInvalidQuery, kind)
	}

	now := f.now().UTC()
	p := &upstream.Params{}
	p.Add("startDate", orDefault(q.StartDate, now.Add(-DONKIWindow).Format(dateLayout))).
		Add("endDate", orDefault(q.EndDate, now.Format(dateLayout)))
	return f.get(ctx, FeatureDONKI, "/DONKI/"+kind, p)
}

// EONET fetches natural events; status defaults to open events only.
func (f *Feeds) EONET(ctx context.Context, q EONETQuery) (*upstream.Response, error) {
	if f.eonet == nil {
		return nil, fmt.Errorf("%s: no upstream configured", FeatureEONET)
	}
	p := &upstream.Params{}
	p.Add("status", orDefault(q.Status, DefaultEONETStatus)).
		AddIfPresent("limit", q.Limit).
		AddIfPresent("days", q.Days)
	return f.call(ctx, f.eonet, FeatureEONET, "/events", p)
}

func (f *Feeds) get(ctx context.Context, feature Feature, path string, p *upstream.Params) (*upstream.Response, error) {
	return f.call(ctx, f.client, feature, path, p)
}

func (f *Feeds) call(ctx context.Context, client Getter, feature Feature, path string, p *upstream.Params) (*upstream.Response, error) {
	start := time.Now()
	resp, err := client.Get(ctx, path, p)
	if f.observer != nil {
		f.observer(feature, upstream.Outcome(err), time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", feature, err)
	}
	return resp, nil
}

func (f *Feeds) today() string {
	return f.now().UTC().Format(dateLayout)
}

// pathSegment escapes v for use as one path segment. Values that could walk
// to another upstream endpoint are rejected.
func pathSegment(v string) (string, error) {
	if v == "." || v == ".." || strings.ContainsAny(v, `/\`) {
		return "", fmt.Errorf("%w: %q is not a path segment", ErrInvalidQuery, v)
	}
	return url.PathEscape(v), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
