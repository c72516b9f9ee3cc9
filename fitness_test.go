package googfit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/bzimmer/googfit"
)

var march1 = time.Date(2021, time.March, 1, 12, 0, 0, 0, time.UTC)

const (
	laWindow  = "1614585600000000000-1614672000000000000"
	utcWindow = "1614556800000000000-1614643200000000000"
)

func newClient(t *testing.T, opts ...googfit.Option) (*googfit.Client, *MockGetter) {
	ctrl := gomock.NewController(t)
	getter := NewMockGetter(ctrl)
	client, err := googfit.NewClient(getter, opts...)
	require.NoError(t, err)
	return client, getter
}

func TestNewClient(t *testing.T) {
	a := assert.New(t)

	client, _ := newClient(t)
	a.Equal(time.UTC, client.Location())
	a.Equal("raw:com.google.activity.segment:com.concept2.ergdata:", client.StreamSegments())
	a.Equal("raw:com.google.distance.delta:com.concept2.ergdata:", client.StreamDistance())

	client, _ = newClient(t, googfit.WithTimezone("America/Los_Angeles"), googfit.WithVendor("com.example.rower"))
	a.Equal("America/Los_Angeles", client.Location().String())
	a.Equal("raw:com.google.activity.segment:com.example.rower:", client.StreamSegments())

	client, _ = newClient(t, googfit.WithLocation(nil))
	a.Equal(time.UTC, client.Location())

	client, err := googfit.NewClient(nil, googfit.WithTimezone("Not/AZone"))
	a.Error(err)
	a.Nil(client)

	client, err = googfit.NewClient(nil, googfit.WithVendor(""))
	a.Error(err)
	a.Nil(client)
}

func TestDatasetURL(t *testing.T) {
	a := assert.New(t)

	client, _ := newClient(t, googfit.WithTimezone("America/Los_Angeles"))
	a.Equal(
		"https://www.googleapis.com/fitness/v1/users/me/dataSources/"+
			"derived:com.google.step_count.delta:com.google.android.gms:estimated_steps/datasets/"+laWindow,
		client.DatasetURL(googfit.StreamEstimatedSteps, client.Window(march1)))

	client, _ = newClient(t, googfit.WithBaseURL("http://localhost:8080/sources"))
	a.Equal("http://localhost:8080/sources/x/datasets/"+utcWindow, client.DatasetURL("x", client.Window(march1)))
}

func TestDailySteps(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		steps int64
		err   string
	}{
		{name: "no points", body: `{"point":[]}`, steps: 0},
		{name: "absent points", body: `{}`, err: "point"},
		{name: "null points", body: `{"point":null}`, err: "point"},
		{name: "null body", body: `null`, err: "point"},
		{name: "error body", body: `{"error":{"code":500,"message":"backend"}}`, err: "point"},
		{
			name: "sum",
			body: `{"point":[
				{"startTimeNanos":"1","endTimeNanos":"2","value":[{"intVal":100}]},
				{"startTimeNanos":"3","endTimeNanos":"4","value":[{"intVal":250}]}]}`,
			steps: 350,
		},
		{name: "not json", body: `<html>`, err: "dataset"},
		{name: "no value", body: `{"point":[{"startTimeNanos":"1","endTimeNanos":"2","value":[]}]}`, err: "point.value"},
		{name: "no intVal", body: `{"point":[{"startTimeNanos":"1","endTimeNanos":"2","value":[{"fpVal":1.5}]}]}`, err: "point.value[0].intVal"},
		{name: "null point", body: `{"point":[null]}`, err: "point[0]"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			a := assert.New(t)
			client, getter := newClient(t, googfit.WithTimezone("America/Los_Angeles"))
			getter.EXPECT().
				AuthorizedGet(gomock.Any(), client.DatasetURL(googfit.StreamEstimatedSteps, client.Window(march1))).
				Return([]byte(tt.body), nil).
				Times(1)

			steps, err := client.DailySteps(context.Background(), march1)
			if tt.err != "" {
				var malformed *googfit.MalformedResponseError
				if a.True(errors.As(err, &malformed)) {
					a.Equal(tt.err, malformed.Field)
				}
				return
			}
			a.NoError(err)
			a.Equal(tt.steps, steps)
		})
	}
}

func TestDailyStepsError(t *testing.T) {
	a := assert.New(t)
	client, getter := newClient(t)
	getter.EXPECT().
		AuthorizedGet(gomock.Any(), gomock.Any()).
		Return(nil, &googfit.RequestError{StatusCode: 503, Body: "unavailable"})

	steps, err := client.DailySteps(context.Background(), march1)
	a.Zero(steps)
	var reqErr *googfit.RequestError
	if a.True(errors.As(err, &reqErr)) {
		a.Equal(503, reqErr.StatusCode)
	}
}

func TestDailyConcept2(t *testing.T) {
	tests := []struct {
		name      string
		segments  string
		distances string
		workouts  []*googfit.Workout
		err       string
	}{
		{
			name:      "no workouts",
			segments:  `{"point":[]}`,
			distances: `{"point":[]}`,
			workouts:  []*googfit.Workout{},
		},
		{
			name:      "absent segments",
			segments:  `{}`,
			distances: `{"point":[]}`,
			err:       "point",
		},
		{
			name:      "absent distances",
			segments:  `{"point":[{"startTimeNanos":"1000","endTimeNanos":"5000","value":[{"intVal":103}]}]}`,
			distances: `{"minStartTimeNs":"1000"}`,
			err:       "point",
		},
		{
			name:      "single workout",
			segments:  `{"point":[{"startTimeNanos":"1000","endTimeNanos":"5000","value":[{"intVal":103}]}]}`,
			distances: `{"point":[{"startTimeNanos":"1000","endTimeNanos":"2000","value":[{"fpVal":50}]},{"startTimeNanos":"1000","endTimeNanos":"5000","value":[{"fpVal":75}]}]}`,
			workouts: []*googfit.Workout{
				{StartNanos: 1000, EndNanos: 5000, Distance: 125, Type: googfit.WorkoutTypeRowingMachine},
			},
		},
		{
			name: "order of segments",
			segments: `{"point":[
				{"startTimeNanos":"9000","endTimeNanos":"9500","value":[{"intVal":103}]},
				{"startTimeNanos":"1000","endTimeNanos":"5000","value":[{"intVal":103}]}]}`,
			distances: `{"point":[
				{"startTimeNanos":"1000","endTimeNanos":"5000","value":[{"fpVal":2000}]},
				{"startTimeNanos":"9000","endTimeNanos":"9500","value":[{"fpVal":500}]}]}`,
			workouts: []*googfit.Workout{
				{StartNanos: 9000, EndNanos: 9500, Distance: 500, Type: googfit.WorkoutTypeRowingMachine},
				{StartNanos: 1000, EndNanos: 5000, Distance: 2000, Type: googfit.WorkoutTypeRowingMachine},
			},
		},
		{
			name:      "workout without distance",
			segments:  `{"point":[{"startTimeNanos":"1000","endTimeNanos":"5000","value":[{"intVal":103}]}]}`,
			distances: `{"point":[]}`,
			workouts: []*googfit.Workout{
				{StartNanos: 1000, EndNanos: 5000, Type: googfit.WorkoutTypeRowingMachine},
			},
		},
		{
			name:      "unmatched distance",
			segments:  `{"point":[{"startTimeNanos":"1000","endTimeNanos":"5000","value":[{"intVal":103}]}]}`,
			distances: `{"point":[{"startTimeNanos":"1001","endTimeNanos":"5000","value":[{"fpVal":75}]}]}`,
			err:       "distance",
		},
		{
			name:      "bad start",
			segments:  `{"point":[{"startTimeNanos":"soon","endTimeNanos":"5000","value":[{"intVal":103}]}]}`,
			distances: `{"point":[]}`,
			err:       "point.startTimeNanos",
		},
		{
			name:      "bad end",
			segments:  `{"point":[{"startTimeNanos":"1000","value":[{"intVal":103}]}]}`,
			distances: `{"point":[]}`,
			err:       "point.endTimeNanos",
		},
		{
			name:      "no fpVal",
			segments:  `{"point":[{"startTimeNanos":"1000","endTimeNanos":"5000","value":[{"intVal":103}]}]}`,
			distances: `{"point":[{"startTimeNanos":"1000","endTimeNanos":"5000","value":[{"intVal":75}]}]}`,
			err:       "point.value[0].fpVal",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			a := assert.New(t)
			client, getter := newClient(t, googfit.WithTimezone("America/Los_Angeles"))
			w := client.Window(march1)
			getter.EXPECT().
				AuthorizedGet(gomock.Any(), client.DatasetURL(client.StreamSegments(), w)).
				Return([]byte(tt.segments), nil)
			getter.EXPECT().
				AuthorizedGet(gomock.Any(), client.DatasetURL(client.StreamDistance(), w)).
				Return([]byte(tt.distances), nil)

			workouts, err := client.DailyConcept2(context.Background(), march1)
			if tt.err != "" {
				a.Nil(workouts)
				var malformed *googfit.MalformedResponseError
				if a.True(errors.As(err, &malformed)) {
					a.Equal(tt.err, malformed.Field)
				}
				return
			}
			a.NoError(err)
			a.Equal(tt.workouts, workouts)
		})
	}
}

func TestDailyConcept2Duration(t *testing.T) {
	a := assert.New(t)
	client, getter := newClient(t)
	w := client.Window(march1)
	getter.EXPECT().
		AuthorizedGet(gomock.Any(), client.DatasetURL(client.StreamSegments(), w)).
		Return([]byte(`{"point":[{"startTimeNanos":"1000","endTimeNanos":"5000","value":[{"intVal":103}]}]}`), nil)
	getter.EXPECT().
		AuthorizedGet(gomock.Any(), client.DatasetURL(client.StreamDistance(), w)).
		Return([]byte(`{"point":[{"startTimeNanos":"1000","endTimeNanos":"5000","value":[{"fpVal":125}]}]}`), nil)

	workouts, err := client.DailyConcept2(context.Background(), march1)
	a.NoError(err)
	a.Len(workouts, 1)
	a.InDelta(0.000004, workouts[0].DurationSeconds(), 1e-15)
	a.Equal(125.0, workouts[0].Distance)
}

func TestDailyConcept2Error(t *testing.T) {
	a := assert.New(t)
	client, getter := newClient(t)
	w := client.Window(march1)
	getter.EXPECT().
		AuthorizedGet(gomock.Any(), client.DatasetURL(client.StreamSegments(), w)).
		Return(nil, &googfit.AuthError{Op: "get", Err: googfit.ErrUnauthorized})
	getter.EXPECT().
		AuthorizedGet(gomock.Any(), client.DatasetURL(client.StreamDistance(), w)).
		Return([]byte(`{"point":[]}`), nil).
		AnyTimes()

	workouts, err := client.DailyConcept2(context.Background(), march1)
	a.Nil(workouts)
	a.True(errors.Is(err, googfit.ErrUnauthorized))
	var authErr *googfit.AuthError
	a.True(errors.As(err, &authErr))
}
