package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eventroster/internal/domain"
)

type syncService struct {
	repos       Repositories
	provider    domain.RosterProvider
	memberships domain.MembershipService
	resolver    *IdentityResolver
	merger      *FieldMerger
	rules       *rules
	dispatcher  domain.Dispatcher
	settings    Settings
	metrics     Metrics
	logger      *slog.Logger
}

var errNoProvider = errors.New("no legacy roster provider configured")

// NewSyncService returns the roster reconciliation engine.
func NewSyncService(
	repos Repositories,
	provider domain.RosterProvider,
	memberships domain.MembershipService,
	dispatcher domain.Dispatcher,
	settings Settings,
	metrics Metrics,
	logger *slog.Logger,
) domain.SyncService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &syncService{
		repos:       repos,
		provider:    provider,
		memberships: memberships,
		resolver:    NewIdentityResolver(repos.People),
		merger:      NewFieldMerger(settings.ImporterName),
		rules:       newRules(repos.Events, repos.People, repos.Memberships, settings),
		dispatcher:  dispatcher,
		settings:    settings,
		metrics:     metrics,
		logger:      logger,
	}
}

// Run pulls the event's roster once and reconciles it record by record.
// Record failures are collected and mailed as one digest; only an empty
// roster aborts the run, with *domain.NoResultsError.
func (s *syncService) Run(ctx context.Context, eventID string) (*domain.SyncOutcome, error) {
	started := s.settings.now()
	event, err := s.repos.Events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	report := NewErrorReport("SyncMembers", event, s.rules, s.dispatcher, s.settings, s.logger)

	records, fetchErr := s.fetch(ctx, event)
	if len(records) == 0 {
		report.Add(ctx, LegacyConnector, fmt.Sprintf("Unable to retrieve any remote members for %s", event.Code))
		s.sendReport(ctx, event, report)
		s.logger.Error("no remote members", "event", event.Code, "error", fetchErr)
		s.metrics.ObserveSyncRun(event.Code, "no_results", s.settings.now().Sub(started))
		return nil, &domain.NoResultsError{EventCode: event.Code, Cause: fetchErr}
	}

	outcome := &domain.SyncOutcome{EventID: event.ID, EventCode: event.Code}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			s.sendReport(context.WithoutCancel(ctx), event, report)
			s.metrics.ObserveSyncRun(event.Code, "cancelled", s.settings.now().Sub(started))
			return nil, fmt.Errorf("sync %s: %w", event.Code, err)
		}
		s.syncRecord(ctx, event, rec, report, outcome)
	}

	outcome.Errors = report.Summaries()
	s.sendReport(ctx, event, report)

	s.metrics.AddSyncRecords(event.Code, "ok", outcome.Processed-outcome.Failed)
	s.metrics.AddSyncRecords(event.Code, "failed", outcome.Failed)
	s.metrics.ObserveSyncRun(event.Code, "ok", s.settings.now().Sub(started))
	s.logger.Info("sync finished", "event", event.Code, "processed", outcome.Processed, "failed", outcome.Failed)
	return outcome, nil
}

func (s *syncService) sendReport(ctx context.Context, event *domain.Event, report *ErrorReport) {
	if err := report.Send(ctx); err != nil {
		s.logger.Error("send sync error report", "event", event.Code, "error", err)
	}
}

// fetch bounds the provider call by the fetch timeout. Errors and timeouts
// come back as an empty roster plus the cause.
func (s *syncService) fetch(ctx context.Context, event *domain.Event) ([]domain.RemoteMemberRecord, error) {
	if s.provider == nil {
		return nil, errNoProvider
	}
	fetchCtx := ctx
	if s.settings.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.settings.FetchTimeout)
		defer cancel()
	}
	res, err := s.provider.FetchMembers(fetchCtx, event)
	if err != nil {
		return nil, err
	}
	if res.Status != domain.RosterOK {
		return nil, nil
	}
	return res.Records, nil
}

// syncRecord reconciles one remote record. Its failures go to the report and never stop the run.
func (s *syncService) syncRecord(ctx context.Context, event *domain.Event, rec domain.RemoteMemberRecord, report *ErrorReport, outcome *domain.SyncOutcome) {
	outcome.Processed++
	now := s.settings.now()

	match, err := s.resolver.Resolve(ctx, rec)
	if err != nil {
		person := s.merger.MergePerson(nil, rec, now)
		s.logger.Error("error resolving person", "event", event.Code, "person", person.Name(), "error", err)
		report.Add(ctx, person, err.Error())
		outcome.Failed++
		return
	}

	person := s.merger.MergePerson(match.Person, rec, now)
	personSaved := s.savePerson(ctx, event, person, match.New(), report, outcome)

	base := &domain.Membership{EventID: event.ID, PersonID: person.ID}
	if !match.New() {
		local, err := s.repos.Memberships.GetByEventAndPerson(ctx, event.ID, person.ID)
		switch {
		case err == nil:
			base = local
		case !errors.Is(err, domain.ErrNotFound):
			s.logger.Error("error loading membership", "event", event.Code, "person", person.Name(), "error", err)
			report.Add(ctx, base, err.Error())
			outcome.Failed++
			return
		}
	}
	isNew := base.ID == ""

	m := s.merger.MergeMembership(base, rec, now)
	m.Person = person
	if err := s.memberships.Save(ctx, m, domain.SaveOptions{Actor: s.settings.ImporterName}); err != nil {
		s.logger.Error("error saving membership", "event", event.Code, "person", person.Name(), "error", err)
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			report.Add(ctx, m, verr.Messages...)
		} else {
			report.Add(ctx, m, err.Error())
		}
		if personSaved {
			outcome.Failed++
		}
		return
	}
	s.logger.Info("saved membership", "event", event.Code, "person", person.Name())
	if isNew {
		outcome.MembershipsCreated++
	} else {
		outcome.MembershipsUpdated++
	}
}

func (s *syncService) savePerson(ctx context.Context, event *domain.Event, p *domain.Person, isNew bool, report *ErrorReport, outcome *domain.SyncOutcome) bool {
	err := s.rules.validatePerson(ctx, p)
	if err == nil {
		if isNew {
			err = s.repos.People.Create(ctx, p)
		} else {
			err = s.repos.People.Update(ctx, p)
		}
	}
	if err != nil {
		s.logger.Error("error saving person", "event", event.Code, "person", p.Name(), "error", err)
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			report.Add(ctx, p, verr.Messages...)
		} else {
			report.Add(ctx, p, err.Error())
		}
		outcome.Failed++
		return false
	}

	s.logger.Info("saved person", "event", event.Code, "person", p.Name())
	if isNew {
		outcome.PeopleCreated++
	} else {
		outcome.PeopleUpdated++
	}
	return true
}
