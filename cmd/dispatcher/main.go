package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DavidGamba/go-getoptions"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/rabbitmq"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/notification-dispatcher/internal/api/handlers/dispatch"
	"github.com/aliskhannn/notification-dispatcher/internal/api/router"
	"github.com/aliskhannn/notification-dispatcher/internal/api/server"
	"github.com/aliskhannn/notification-dispatcher/internal/claim"
	"github.com/aliskhannn/notification-dispatcher/internal/config"
	"github.com/aliskhannn/notification-dispatcher/internal/model"
	"github.com/aliskhannn/notification-dispatcher/internal/rabbitmq/queue"
	notifrepo "github.com/aliskhannn/notification-dispatcher/internal/repository/notification"
	userrepo "github.com/aliskhannn/notification-dispatcher/internal/repository/user"
	dispatchsvc "github.com/aliskhannn/notification-dispatcher/internal/service/dispatch"
	"github.com/aliskhannn/notification-dispatcher/internal/worker"
	"github.com/aliskhannn/notification-dispatcher/pkg/email"
)

type mailer interface {
	Send(ctx context.Context, msg email.Message) (string, error)
}

type claimer interface {
	Claim(ctx context.Context, id int64, runID uuid.UUID) (bool, error)
	Release(ctx context.Context, id int64) error
}

type eventPublisher interface {
	Publish(event model.DispatchEvent, strategy retry.Strategy) error
}

type options struct {
	configDir string
	once      bool
}

func parseCommandLine() options {
	var o options
	opt := getoptions.New()

	opt.Bool("help", false, opt.Alias("h", "?"))
	opt.StringVar(&o.configDir, "config", "./config",
		opt.Alias("c"),
		opt.Description("directory containing config.yml"))
	opt.BoolVar(&o.once, "once", false,
		opt.Description("run a single dispatch cycle, print the report and exit"))

	_, err := opt.Parse(os.Args[1:])
	if opt.Called("help") {
		fmt.Fprint(os.Stderr, opt.Help())
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		fmt.Fprint(os.Stderr, opt.Help(getoptions.HelpSynopsis))
		os.Exit(2)
	}

	return o
}

// resources holds the connections that must be closed on shutdown.
type resources struct {
	db   *dbpg.DB
	rdb  *redis.Client
	conn io.Closer
	ch   io.Closer
}

func (r *resources) close() {
	if r.db != nil {
		if err := r.db.Master.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close master DB")
		}
		for i, s := range r.db.Slaves {
			if err := s.Close(); err != nil {
				zlog.Logger.Error().Err(err).Int("slave", i).Msg("failed to close slave DB")
			}
		}
	}

	if r.rdb != nil {
		if err := r.rdb.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close redis client")
		}
	}

	if r.ch != nil {
		if err := r.ch.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close RabbitMQ channel")
		}
	}

	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close RabbitMQ connection")
		}
	}
}

func newMailer(cfg config.Email) mailer {
	switch {
	case cfg.Resend.APIKey != "":
		zlog.Logger.Info().Str("provider", "resend").Msg("email provider selected")
		return email.NewResendClient(cfg.Resend.APIKey, cfg.Resend.BaseURL, cfg.Resend.Timeout)
	case cfg.SMTP.Host != "":
		zlog.Logger.Info().Str("provider", "smtp").Msg("email provider selected")
		return email.NewSMTPClient(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	default:
		zlog.Logger.Warn().Msg("no email provider configured, email notifications will fail")
		return email.Disabled{}
	}
}

func newClaimer(ctx context.Context, cfg *config.Config, res *resources) claimer {
	if cfg.Redis.Address == "" {
		return claim.Noop{}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		zlog.Logger.Warn().Err(err).Msg("redis unavailable, dispatching without claims")
		_ = rdb.Close()
		return claim.Noop{}
	}

	res.rdb = rdb

	return claim.NewRedisClaimer(rdb, cfg.Dispatch.ClaimTTL)
}

func newEventPublisher(cfg config.RabbitMQ, res *resources) eventPublisher {
	if !cfg.Enabled() {
		return nil
	}

	conn, err := rabbitmq.Connect(cfg.URL(), cfg.Retries, cfg.Pause)
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("rabbitmq unavailable, dispatch events disabled")
		return nil
	}
	res.conn = conn

	ch, err := conn.Channel()
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to open channel, dispatch events disabled")
		return nil
	}
	res.ch = ch

	p, err := queue.NewEventPublisher(ch, cfg)
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to set up events exchange, dispatch events disabled")
		return nil
	}

	return p
}

// newService connects to the backing stores and assembles the dispatcher.
// Optional stores that cannot be reached are logged and left out.
func newService(ctx context.Context, cfg *config.Config, val *validator.Validate, res *resources) (*dispatchsvc.Service, error) {
	dsn, err := cfg.Database.DSN(val)
	if err != nil {
		return nil, err
	}

	db, err := dbpg.New(dsn, nil, &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	res.db = db

	notifications := notifrepo.NewRepository(db, notifrepo.Options{
		InAppTable:        cfg.Dispatch.InAppTable,
		StructuredColumns: cfg.Dispatch.StructuredColumns,
	})
	users := userrepo.NewRepository(db, cfg.Dispatch.UserView)

	return dispatchsvc.NewService(
		notifications,
		users,
		newMailer(cfg.Email),
		newClaimer(ctx, cfg, res),
		newEventPublisher(cfg.RabbitMQ, res),
		dispatchsvc.Options{
			From:         cfg.Email.From,
			DefaultTitle: cfg.Dispatch.DefaultTitle,
			DueWindow:    cfg.Dispatch.DueWindow,
			StaleCheck:   cfg.Dispatch.StaleCheck,
			Retry:        cfg.Retry,
		},
	), nil
}

// runOnce performs a single cycle and prints the report to stdout.
func runOnce(ctx context.Context, svc *dispatchsvc.Service) int {
	report, err := svc.Run(ctx)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("dispatch run failed")
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report.Body()); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to write report")
		return 1
	}

	return 0
}

func main() {
	opts := parseCommandLine()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()

	cfg, err := config.Load(opts.configDir)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to load config")
	}

	val := validator.New()
	if err := cfg.Validate(val); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to validate config")
	}

	res := &resources{}
	defer res.close()

	svc, setupErr := newService(ctx, cfg, val, res)

	if opts.once {
		if setupErr != nil {
			zlog.Logger.Error().Err(setupErr).Msg("failed to set up dispatcher")
			res.close()
			os.Exit(1)
		}

		code := runOnce(ctx, svc)
		res.close()
		os.Exit(code)
	}

	var (
		handler    *dispatch.Handler
		pollerDone chan struct{}
	)
	if setupErr != nil {
		zlog.Logger.Error().Err(setupErr).Msg("dispatcher unavailable, every trigger will fail")
		handler = dispatch.NewUnavailableHandler(setupErr)
	} else {
		handler = dispatch.NewHandler(svc)

		if cfg.Poller.Enabled {
			pollerDone = make(chan struct{})
			go func() {
				defer close(pollerDone)
				worker.NewPoller(svc, cfg.Poller.Interval).Run(ctx)
			}()
		}
	}

	s := server.New(cfg.Server.HTTPPort, router.New(handler))

	go func() {
		zlog.Logger.Info().Str("addr", cfg.Server.HTTPPort).Msg("starting server")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}

	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	if pollerDone != nil {
		zlog.Logger.Info().Msg("waiting for the poller to finish its run")
		<-pollerDone
	}
}
