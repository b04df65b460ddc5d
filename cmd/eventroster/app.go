package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-redis/redis/v8"

	"eventroster/config"
	"eventroster/internal/adapters/auth"
	"eventroster/internal/adapters/email"
	"eventroster/internal/adapters/legacy"
	"eventroster/internal/adapters/notify"
	"eventroster/internal/domain"
	prommetrics "eventroster/internal/metrics/prometheus"
	"eventroster/internal/repository/memory"
	"eventroster/internal/repository/postgres"
	"eventroster/internal/services"
)

// app holds the wired services shared by every command.
type app struct {
	logger      *slog.Logger
	metrics     *prommetrics.Metrics
	repos       services.Repositories
	tokens      *auth.JWT
	dispatcher  *notify.Dispatcher
	sync        domain.SyncService
	memberships domain.MembershipService
	invitations domain.InvitationService

	closers []func() error
}

// settingsFromConfig maps the environment onto the service tunables.
func settingsFromConfig(c *config.Config) services.Settings {
	s := services.DefaultSettings()
	s.ImporterName = c.Roster.ImporterName
	s.ArrivalWindowDays = c.Roster.ArrivalWindowDays
	s.Deadline = services.DeadlinePolicy{OffsetDays: c.Roster.RSVPOffsetDays, MinDays: c.Roster.RSVPMinDays}
	s.InvitationTTL = c.Roster.InvitationTTL
	s.FetchTimeout = c.Legacy.FetchTimeout
	s.StaffEmail = c.Roster.StaffEmail
	s.SysadminEmail = c.Roster.SysadminEmail
	s.LegacyPersonURL = c.Legacy.PersonURL
	return s
}

// newApp wires storage, adapters and services. With inline set, notices are
// delivered before the calling command returns instead of through a queue.
func newApp(ctx context.Context, c *config.Config, logger *slog.Logger, inline bool) (*app, error) {
	a := &app{logger: logger, metrics: prommetrics.NewMetrics()}

	repos, err := a.openStorage(ctx, c)
	if err != nil {
		return nil, err
	}
	a.repos = repos
	a.tokens = auth.NewJWT(c.JWTSecret)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    c.Email.Provider,
		FromAddress: c.Email.FromAddress,
		FromName:    c.Email.FromName,
		SES: email.SESConfig{
			Region:             c.Email.AWSRegion,
			AccessKeyID:        c.Email.AWSAccessKeyID,
			SecretAccessKey:    c.Email.AWSSecretAccessKey,
			InsecureSkipVerify: c.Email.InsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("mailer: %w", err)
	}

	queue, err := a.openQueue(ctx, c, inline)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.dispatcher = notify.NewDispatcher(mailer, queue, notify.Options{
		Workers:     c.Notify.Workers,
		MaxAttempts: c.Notify.MaxAttempts,
		Metrics:     a.metrics,
	}, logger)

	// The legacy client backs three optional ports. They stay untyped nil when
	// no legacy system is configured so the services can tell.
	var (
		provider domain.RosterProvider
		pusher   domain.RemotePusher
		checker  domain.RSVPChecker
	)
	if c.Legacy.BaseURL != "" {
		client := legacy.NewClient(legacy.Config{
			BaseURL:    c.Legacy.BaseURL,
			APIKey:     c.Legacy.APIKey,
			Timeout:    c.Legacy.FetchTimeout,
			RetryCount: c.Legacy.RetryCount,
		}, logger)
		provider, pusher, checker = client, client, client
	} else {
		logger.Warn("LEGACY_BASE_URL is not set; sync, pushes and remote RSVP checks are disabled")
	}

	settings := settingsFromConfig(c)
	a.memberships = services.NewMembershipService(repos, pusher, a.dispatcher, settings, a.metrics, logger)
	a.invitations = services.NewInvitationService(repos, a.memberships, checker, a.dispatcher, settings, a.metrics, logger)
	a.sync = services.NewSyncService(repos, provider, a.memberships, a.dispatcher, settings, a.metrics, logger)
	return a, nil
}

func (a *app) openStorage(ctx context.Context, c *config.Config) (services.Repositories, error) {
	if c.Storage == "memory" {
		db, err := memory.New()
		if err != nil {
			return services.Repositories{}, err
		}
		a.logger.Warn("using in-memory storage; data is lost on exit")
		return services.Repositories{
			Events:      memory.NewEventRepository(db),
			People:      memory.NewPersonRepository(db),
			Memberships: memory.NewMembershipRepository(db),
			Invitations: memory.NewInvitationRepository(db),
		}, nil
	}

	db, err := postgres.Open(ctx, c.DBUrl)
	if err != nil {
		return services.Repositories{}, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		a.Close()
		return services.Repositories{}, err
	}
	return postgresRepositories(db), nil
}

func postgresRepositories(db *sql.DB) services.Repositories {
	return services.Repositories{
		Events:      postgres.NewEventRepository(db),
		People:      postgres.NewPersonRepository(db),
		Memberships: postgres.NewMembershipRepository(db),
		Invitations: postgres.NewInvitationRepository(db),
	}
}

// openQueue returns nil for inline delivery.
func (a *app) openQueue(ctx context.Context, c *config.Config, inline bool) (notify.Queue, error) {
	if inline {
		return nil, nil
	}
	if c.Notify.Queue != "redis" {
		return notify.NewChannelQueue(c.Notify.BufferSize), nil
	}
	client := redis.NewClient(&redis.Options{Addr: c.Notify.RedisAddr})
	a.closers = append(a.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", c.Notify.RedisAddr, err)
	}
	host, _ := os.Hostname()
	consumer := fmt.Sprintf("%s-%d", host, os.Getpid())
	q, err := notify.NewRedisQueue(ctx, client, c.Notify.RedisStream, c.Notify.RedisGroup, consumer, c.Notify.ClaimIdle)
	if err != nil {
		return nil, fmt.Errorf("redis queue: %w", err)
	}
	return q, nil
}

// Close releases storage and queue connections in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
