package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bzimmer/googfit"
)

func config(c *cli.Context) (*googfit.Config, error) {
	var err error
	var cfg *googfit.Config
	switch c.IsSet("config") {
	case true:
		log.Debug().Str("file", c.String("config")).Msg("config")
		cfg, err = googfit.LoadConfig(c.String("config"))
	case false:
		log.Debug().Str("file", "etc/googfit.toml").Msg("config")
		cfg, err = googfit.DefaultConfig()
	}
	if err != nil {
		return nil, err
	}
	flags := &googfit.Config{
		Timezone:         c.String("timezone"),
		Vendor:           c.String("vendor"),
		ClientSecretFile: c.String("client-secret-file"),
		CredentialsFile:  c.String("credentials-file"),
		RefreshToken:     c.String("refresh-token"),
		LogLevel:         c.String("verbosity"),
		LogFile:          c.String("log-file"),
	}
	if c.IsSet("timeout") {
		flags.Timeout = googfit.Duration{Duration: c.Duration("timeout")}
	}
	return cfg.Merge(flags), nil
}

func newClient(c *cli.Context) (*googfit.Client, error) {
	cfg, err := config(c)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	oc, err := googfit.ReadOAuth2Config(cfg.ClientSecretFile)
	if err != nil {
		return nil, err
	}
	refreshToken, err := cfg.Token()
	if err != nil {
		return nil, err
	}
	httpClient := googfit.NewHTTPClient()
	httpClient.Timeout = cfg.Timeout.Duration
	tm, err := googfit.NewTokenManager(c.Context, oc, refreshToken,
		googfit.WithHTTPClient(httpClient),
		googfit.WithMetrics(googfit.NewMetrics(prometheus.DefaultRegisterer)))
	if err != nil {
		return nil, err
	}
	return googfit.NewClient(tm, cfg.ClientOptions()...)
}

// token produces a random token of length `n`
func token(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func encode(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func steps(c *cli.Context) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}
	day, err := googfit.ParseDay(c.String("day"), client.Location())
	if err != nil {
		return err
	}
	n, err := client.DailySteps(c.Context, day)
	if err != nil {
		return err
	}
	return encode(c.App.Writer, &googfit.DailySteps{Day: day.Format("2006-01-02"), Steps: n})
}

func concept2(c *cli.Context) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}
	day, err := googfit.ParseDay(c.String("day"), client.Location())
	if err != nil {
		return err
	}
	workouts, err := client.DailyConcept2(c.Context, day)
	if err != nil {
		return err
	}
	for _, wk := range workouts {
		if err = encode(c.App.Writer, googfit.Summarize(wk)); err != nil {
			return err
		}
	}
	return nil
}

func persist(c *cli.Context, t *oauth2.Token) error {
	if !c.IsSet("output") {
		return encode(c.App.Writer, t)
	}
	log.Info().Str("file", c.String("output")).Msg("writing credentials")
	return googfit.WriteCredentials(c.String("output"), t)
}

// deliver hands the first token to `tokens`, later callbacks are acknowledged and dropped
func deliver(tokens chan<- *oauth2.Token) googfit.TokenCallback {
	return func(w http.ResponseWriter, _ *http.Request, t *oauth2.Token) {
		fmt.Fprintln(w, "authorization complete, you may close this window")
		select {
		case tokens <- t:
		default:
			log.Warn().Msg("authorization already received")
		}
	}
}

func auth(c *cli.Context) error {
	cfg, err := config(c)
	if err != nil {
		return err
	}
	oc, err := googfit.ReadOAuth2Config(cfg.ClientSecretFile)
	if err != nil {
		return err
	}

	if c.IsSet("code") {
		t, err := googfit.Exchange(c.Context, oc, c.String("code"), nil)
		if err != nil {
			return err
		}
		return persist(c, t)
	}

	state, err := token(16)
	if err != nil {
		return err
	}
	address := c.String("listen")
	oc.RedirectURL = fmt.Sprintf("http://%s/auth/callback", address)

	tokens := make(chan *oauth2.Token, 1)
	mux := http.NewServeMux()
	mux.Handle("/auth/login", googfit.AuthHandler(oc, state))
	mux.Handle("/auth/callback", googfit.AuthCallbackHandlerF(oc, state, nil, deliver(tokens)))

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	svr := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := svr.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("auth listener")
		}
	}()
	defer svr.Close()

	log.Info().Str("url", fmt.Sprintf("http://%s/auth/login", address)).Msg("visit to authorize")
	select {
	case <-c.Context.Done():
		return c.Context.Err()
	case t := <-tokens:
		return persist(c, t)
	}
}

func serve(c *cli.Context) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}
	engine := googfit.NewEngine(client)
	googfit.Instrument(engine)
	if c.Bool("lambda") {
		log.Info().Msg("running function")
		lambda.Start(googfit.LambdaHandler(engine))
		return nil
	}
	address := c.String("address")
	log.Info().Str("address", address).Msg("serving")
	return http.ListenAndServe(address, engine)
}

func dayFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "day",
		Value: "today",
		Usage: "calendar day as YYYY-MM-DD",
	}
}

func main() {
	app := &cli.App{
		Name:     "googfit",
		HelpName: "googfit",
		Usage:    "Daily steps and rowing workouts from Google Fit",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "TOML file with googfit configuration parameters",
			},
			&cli.StringFlag{
				Name:    "client-secret-file",
				Usage:   "Google client secret json",
				EnvVars: []string{"GOOGFIT_CLIENT_SECRET_FILE"},
			},
			&cli.StringFlag{
				Name:    "credentials-file",
				Usage:   "json file holding the refresh token",
				EnvVars: []string{"GOOGFIT_CREDENTIALS_FILE"},
			},
			&cli.StringFlag{
				Name:    "refresh-token",
				Usage:   "refresh token, takes precedence over the credentials file",
				EnvVars: []string{"GOOGFIT_REFRESH_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "timezone",
				Usage:   "IANA timezone for day boundaries",
				EnvVars: []string{"GOOGFIT_TIMEZONE"},
			},
			&cli.StringFlag{
				Name:    "vendor",
				Usage:   "application package writing rowing data",
				EnvVars: []string{"GOOGFIT_VENDOR"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "timeout for outbound requests",
			},
			&cli.StringFlag{
				Name:    "verbosity",
				Aliases: []string{"v"},
				Usage:   "log level",
				EnvVars: []string{"GOOGFIT_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "rotating log file in addition to stderr",
			},
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}
			log.Error().Err(err).Msg(c.App.Name)
		},
		Before: func(c *cli.Context) error {
			cfg, err := config(c)
			if err != nil {
				return err
			}
			level := zerolog.InfoLevel
			if cfg.LogLevel != "" {
				if level, err = zerolog.ParseLevel(cfg.LogLevel); err != nil {
					return err
				}
			}
			zerolog.SetGlobalLevel(level)
			zerolog.DurationFieldUnit = time.Millisecond
			zerolog.DurationFieldInteger = false
			var w io.Writer = zerolog.ConsoleWriter{
				Out:        c.App.ErrWriter,
				NoColor:    false,
				TimeFormat: time.RFC3339,
			}
			if cfg.LogFile != "" {
				w = zerolog.MultiLevelWriter(w, &lumberjack.Logger{
					Filename: cfg.LogFile,
					MaxSize:  50, // megabytes
					Compress: true,
				})
			}
			log.Logger = log.Output(w)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "steps",
				Usage:  "Estimated step count for a day",
				Flags:  []cli.Flag{dayFlag()},
				Action: steps,
			},
			{
				Name:   "concept2",
				Usage:  "Rowing workouts for a day",
				Flags:  []cli.Flag{dayFlag()},
				Action: concept2,
			},
			{
				Name:  "auth",
				Usage: "Exchange an authorization code for a refresh token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "code",
						Usage: "authorization code, skips the local callback listener",
					},
					&cli.StringFlag{
						Name:  "listen",
						Value: "localhost:9001",
						Usage: "address of the local callback listener",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "write the refresh token to this credentials file",
					},
				},
				Action: auth,
			},
			{
				Name:  "serve",
				Usage: "Serve daily queries over http",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "address",
						Value:   "0.0.0.0:9001",
						Usage:   "listen address",
						EnvVars: []string{"GOOGFIT_ADDRESS"},
					},
					&cli.BoolFlag{
						Name:    "lambda",
						Value:   false,
						Usage:   "run as an AWS Lambda function",
						EnvVars: []string{"GOOGFIT_LAMBDA"},
					},
				},
				Action: serve,
			},
		},
	}
	if err := app.RunContext(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}
