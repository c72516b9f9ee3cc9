package googfit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// TokenCallback receives the token produced by the authorization code exchange
type TokenCallback func(w http.ResponseWriter, r *http.Request, t *oauth2.Token)

func tokenCallback(w http.ResponseWriter, r *http.Request, t *oauth2.Token) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// AuthHandler redirects to the oauth provider's credential acceptance page
func AuthHandler(c *oauth2.Config, state string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := c.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		http.Redirect(w, r, u, http.StatusFound)
	}
}

// AuthCallbackHandler receives the callback from the oauth provider with the credentials
func AuthCallbackHandler(c *oauth2.Config, state string) http.HandlerFunc {
	return AuthCallbackHandlerF(c, state, nil, tokenCallback)
}

// AuthCallbackHandlerF exchanges the code from the callback and hands the token to `f`
func AuthCallbackHandlerF(c *oauth2.Config, state string, client *http.Client, f TokenCallback) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		s := r.Form.Get("state")
		if s != state {
			http.Error(w, "State invalid", http.StatusBadRequest)
			return
		}

		code := r.Form.Get("code")
		if code == "" {
			http.Error(w, "Code not found", http.StatusBadRequest)
			return
		}

		token, err := Exchange(r.Context(), c, code, client)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		f(w, r, token)
	}
}

// Dailies are the daily queries served over http
type Dailies interface {
	DailySteps(ctx context.Context, d time.Time) (int64, error)
	DailyConcept2(ctx context.Context, d time.Time) ([]*Workout, error)
	Location() *time.Location
}

// DailySteps is the response of the steps endpoint
type DailySteps struct {
	Day   string `json:"day"`
	Steps int64  `json:"steps"`
}

// WorkoutSummary is a workout with its derived metrics
type WorkoutSummary struct {
	*Workout
	DurationSeconds float64  `json:"duration_s"`
	Watts           *float64 `json:"watts,omitempty"`
	WattHours       *float64 `json:"watt_hours,omitempty"`
}

// Summarize computes the derived metrics, power is omitted for invalid workouts
func Summarize(wk *Workout) *WorkoutSummary {
	s := &WorkoutSummary{Workout: wk, DurationSeconds: wk.DurationSeconds()}
	if watts, err := wk.Watts(); err == nil {
		wh, _ := wk.WattHours()
		s.Watts, s.WattHours = &watts, &wh
	}
	return s
}

// ParseDay parses YYYY-MM-DD in `loc`, "today" is the current day in `loc`
func ParseDay(day string, loc *time.Location) (time.Time, error) {
	if day == "today" {
		return time.Now().In(loc), nil
	}
	return time.ParseInLocation("2006-01-02", day, loc)
}

func httpError(err error) error {
	var ae *AuthError
	var re *RequestError
	var me *MalformedResponseError
	switch {
	case errors.As(err, &ae):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.As(err, &re), errors.As(err, &me):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// StepsHandler serves the step count for the `day` path parameter
func StepsHandler(d Dailies) echo.HandlerFunc {
	return func(c echo.Context) error {
		day, err := ParseDay(c.Param("day"), d.Location())
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		steps, err := d.DailySteps(c.Request().Context(), day)
		if err != nil {
			log.Error().Err(err).Str("day", c.Param("day")).Msg("steps")
			return httpError(err)
		}
		return c.JSON(http.StatusOK, &DailySteps{Day: day.Format("2006-01-02"), Steps: steps})
	}
}

// Concept2Handler serves the rowing workouts for the `day` path parameter
func Concept2Handler(d Dailies) echo.HandlerFunc {
	return func(c echo.Context) error {
		day, err := ParseDay(c.Param("day"), d.Location())
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		workouts, err := d.DailyConcept2(c.Request().Context(), day)
		if err != nil {
			log.Error().Err(err).Str("day", c.Param("day")).Msg("concept2")
			return httpError(err)
		}
		res := make([]*WorkoutSummary, len(workouts))
		for i, wk := range workouts {
			res[i] = Summarize(wk)
		}
		return c.JSON(http.StatusOK, res)
	}
}

// NewEngine routes the daily queries
func NewEngine(d Dailies) *echo.Echo {
	engine := echo.New()
	engine.HideBanner = true
	engine.HidePort = true
	engine.GET("/steps/:day", StepsHandler(d))
	engine.GET("/concept2/:day", Concept2Handler(d))
	return engine
}

// Instrument adds request metrics and the /metrics endpoint
func Instrument(engine *echo.Echo) {
	p := prometheus.NewPrometheus("googfit", nil)
	p.Use(engine)
}
