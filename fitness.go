package googfit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	// BaseURL of the fitness API data sources
	BaseURL = "https://www.googleapis.com/fitness/v1/users/me/dataSources/"
	// DefaultVendor writes rowing segments and distances from the Concept2 ErgData app
	DefaultVendor = "com.concept2.ergdata"

	StreamEstimatedSteps = "derived:com.google.step_count.delta:com.google.android.gms:estimated_steps"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=googfit_test

// Getter performs authorized GET requests
type Getter interface {
	AuthorizedGet(ctx context.Context, url string) ([]byte, error)
}

// Option configures a Client
type Option func(*Client) error

// WithTimezone sets the zone used to compute day boundaries, the empty string is UTC
func WithTimezone(timezone string) Option {
	return func(c *Client) error {
		loc, err := LoadLocation(timezone)
		if err != nil {
			return err
		}
		c.loc = loc
		return nil
	}
}

// WithLocation sets the zone used to compute day boundaries
func WithLocation(loc *time.Location) Option {
	return func(c *Client) error {
		if loc == nil {
			loc = time.UTC
		}
		c.loc = loc
		return nil
	}
}

// WithBaseURL overrides the data sources endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if _, err := url.Parse(baseURL); err != nil {
			return err
		}
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		c.baseURL = baseURL
		return nil
	}
}

// WithVendor sets the application package writing the rowing streams
func WithVendor(vendor string) Option {
	return func(c *Client) error {
		if vendor == "" {
			return fmt.Errorf("vendor must not be empty")
		}
		c.vendor = vendor
		return nil
	}
}

// Client queries daily datasets
type Client struct {
	getter  Getter
	baseURL string
	vendor  string
	loc     *time.Location
}

// NewClient returns a client issuing requests through `getter`
func NewClient(getter Getter, opts ...Option) (*Client, error) {
	c := &Client{
		getter:  getter,
		baseURL: BaseURL,
		vendor:  DefaultVendor,
		loc:     time.UTC,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Location used for day boundaries
func (c *Client) Location() *time.Location {
	return c.loc
}

// Window returns the query window for the calendar day of `d`
func (c *Client) Window(d time.Time) TimeWindow {
	return NewTimeWindow(d, c.loc)
}

// StreamSegments is the activity segment stream written by the vendor
func (c *Client) StreamSegments() string {
	return "raw:com.google.activity.segment:" + c.vendor + ":"
}

// StreamDistance is the distance delta stream written by the vendor
func (c *Client) StreamDistance() string {
	return "raw:com.google.distance.delta:" + c.vendor + ":"
}

// DatasetURL builds the dataset query for a stream restricted to the window
func (c *Client) DatasetURL(stream string, w TimeWindow) string {
	return c.baseURL + stream + "/datasets/" + w.String()
}

func (c *Client) dataset(ctx context.Context, stream string, w TimeWindow) (*Dataset, error) {
	u := c.DatasetURL(stream, w)
	log.Debug().Str("stream", stream).Str("window", w.String()).Msg("dataset")
	body, err := c.getter.AuthorizedGet(ctx, u)
	if err != nil {
		return nil, err
	}
	var ds Dataset
	if err := json.Unmarshal(body, &ds); err != nil {
		return nil, malformed("dataset", err)
	}
	if ds.Point == nil {
		return nil, malformed("point", nil)
	}
	for i, p := range ds.Point {
		if p == nil {
			return nil, malformed(fmt.Sprintf("point[%d]", i), nil)
		}
	}
	return &ds, nil
}

// DailySteps returns the estimated step count for the calendar day of `d`
func (c *Client) DailySteps(ctx context.Context, d time.Time) (_ int64, err error) {
	ctx, span := tracer.Start(ctx, "googfit.client.dailySteps")
	defer func() {
		endSpan(span, err)
	}()

	w := c.Window(d)
	span.SetAttributes(attribute.String("window", w.String()))
	ds, err := c.dataset(ctx, StreamEstimatedSteps, w)
	if err != nil {
		return 0, err
	}
	var steps int64
	for _, p := range ds.Point {
		n, err := p.intVal()
		if err != nil {
			return 0, err
		}
		steps += n
	}
	log.Info().Time("day", w.Day()).Int64("steps", steps).Msg("daily steps")
	return steps, nil
}

// DailyConcept2 returns the rowing workouts for the calendar day of `d` in
// the order the segments were reported. Every distance sample must start
// exactly when a workout starts.
func (c *Client) DailyConcept2(ctx context.Context, d time.Time) (_ []*Workout, err error) {
	ctx, span := tracer.Start(ctx, "googfit.client.dailyConcept2")
	defer func() {
		endSpan(span, err)
	}()

	w := c.Window(d)
	span.SetAttributes(attribute.String("window", w.String()))

	var segments, distances *Dataset
	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		var err error
		segments, err = c.dataset(ctx, c.StreamSegments(), w)
		return err
	})
	grp.Go(func() error {
		var err error
		distances, err = c.dataset(ctx, c.StreamDistance(), w)
		return err
	})
	if err = grp.Wait(); err != nil {
		return nil, err
	}

	workouts, err := newWorkouts(segments)
	if err != nil {
		return nil, err
	}
	if err = accumulate(workouts, distances); err != nil {
		return nil, err
	}
	log.Info().Time("day", w.Day()).Int("workouts", len(workouts)).Msg("daily concept2")
	return workouts, nil
}

func newWorkouts(segments *Dataset) ([]*Workout, error) {
	res := make([]*Workout, 0, len(segments.Point))
	for _, p := range segments.Point {
		start, err := p.start()
		if err != nil {
			return nil, err
		}
		end, err := p.end()
		if err != nil {
			return nil, err
		}
		res = append(res, &Workout{
			StartNanos: start,
			EndNanos:   end,
			Type:       WorkoutTypeRowingMachine,
		})
	}
	return res, nil
}

// accumulate adds each distance sample to the workout starting at the same nanosecond
func accumulate(workouts []*Workout, distances *Dataset) error {
	starts := make(map[int64]*Workout, len(workouts))
	for _, wk := range workouts {
		if _, ok := starts[wk.StartNanos]; !ok {
			starts[wk.StartNanos] = wk
		}
	}
	for _, p := range distances.Point {
		start, err := p.start()
		if err != nil {
			return err
		}
		meters, err := p.fpVal()
		if err != nil {
			return err
		}
		wk, ok := starts[start]
		if !ok {
			return malformed("distance", fmt.Errorf("no workout starts at %d", start))
		}
		wk.Distance += meters
	}
	return nil
}
