// Package service provides the search export engine
package service

import (
	"context"
	"errors"
	"time"

	perr "discordsearch/internal/platform/errors"
	"discordsearch/internal/platform/logger"
	"discordsearch/internal/services/export/domain"
	"discordsearch/internal/services/export/query"

	"github.com/google/uuid"
)

// DefaultOffsetLimit is the number of pages the search API serves for one anchor
const DefaultOffsetLimit = 400

// Config holds configuration options for the export service
type Config struct {
	// BaseURL is the API scheme and host
	BaseURL string

	// OffsetLimit is the page count per anchor window; <=0 -> 400
	OffsetLimit int
}

// Service runs export sessions one at a time
type Service struct {
	Search domain.Searcher
	Sinks  domain.SinkOpener
	Cfg    Config

	now   func() time.Time
	newID func() string
}

// New constructs the export service
func New(search domain.Searcher, sinks domain.SinkOpener, cfg Config) *Service {
	if search == nil {
		panic("export.Service requires a non nil Searcher")
	}
	if sinks == nil {
		panic("export.Service requires a non nil SinkOpener")
	}
	if cfg.OffsetLimit <= 0 {
		cfg.OffsetLimit = DefaultOffsetLimit
	}
	return &Service{
		Search: search,
		Sinks:  sinks,
		Cfg:    cfg,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// session is the state one Run owns exclusively
type session struct {
	q     *query.SearchQuery
	sink  domain.Sink
	st    domain.PaginationState
	state domain.State
	rep   *domain.Report
	log   *logger.Logger
}

func (ss *session) transition(to domain.State) {
	if ss.state == to {
		return
	}
	ss.log.Debug().Str("from", string(ss.state)).Str("to", string(to)).Msg("export state")
	ss.state = to
	ss.rep.State = to
}

// Run exports every result of req. Pages are persisted before the next one is
// requested. An interrupted session returns a Canceled error with the report
// of what was persisted
func (s *Service) Run(ctx context.Context, req domain.Request) (rep domain.Report, err error) {
	rep = domain.Report{
		SessionID: s.newID(),
		GuildID:   req.GuildID,
		State:     domain.StateInit,
		StartedAt: s.now(),
	}
	ctx = logger.WithSession(ctx, rep.SessionID, req.GuildID)
	if r, ok := s.Search.(domain.SessionResetter); ok {
		r.ResetSession()
	}
	ss := &session{state: domain.StateInit, rep: &rep, log: logger.C(ctx)}

	defer func() {
		rep.TotalRequests = ss.st.TotalRequests
		if ec, ok := s.Search.(domain.ErrorCounter); ok {
			rep.Errors = ec.Errors()
		}
		ss.st.Errors = rep.Errors
		rep.FinishedAt = s.now()
		if err != nil {
			err = s.stop(ss, err)
		} else {
			ss.transition(domain.StateDone)
		}
		ss.log.Info().
			Str("state", string(rep.State)).
			Int("total_requests", rep.TotalRequests).
			Int("pages", rep.Pages).
			Int("messages", rep.Messages).
			Int("reanchors", rep.Reanchors).
			Dur("elapsed", rep.Elapsed()).
			Msg("export finished")
	}()

	// validation happens before anything touches disk or network
	q, err := query.Build(s.Cfg.BaseURL, req.Filters)
	if err != nil {
		return rep, err
	}
	ss.q = q

	sink, err := s.Sinks.Open(ctx, req, rep.StartedAt)
	if err != nil {
		return rep, err
	}
	ss.sink = sink
	rep.Target = sink.Target()

	if req.FromLast {
		if err := s.resume(ctx, ss); err != nil {
			return rep, err
		}
	}

	ss.log.Info().Str("target", rep.Target).Str("url", q.URL()).Msg("export started")
	return rep, s.paginate(ctx, ss)
}

// resume moves the lower bound past the last persisted record, overriding --after
func (s *Service) resume(ctx context.Context, ss *session) error {
	id, ok, err := ss.sink.LastID(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return perr.WithField(perr.Validationf("no records to resume from in %s", ss.sink.Target()), "--output")
	}
	overridden := ss.q.Has(query.ParamMinID)
	if err := ss.q.Reanchor(id); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "last record of %s has a bad id", ss.sink.Target())
	}
	ss.rep.ResumedAfter = id
	ss.log.Info().Str("after", id).Bool("after_given", overridden).Msg("overwriting --after with last message id")
	return nil
}

// paginate drives the fetch, persist, advance loop until an empty page
func (s *Service) paginate(ctx context.Context, ss *session) error {
	ss.transition(domain.StateFetching)

	ss.st.TotalRequests++
	page, err := s.Search.Search(ctx, ss.q.URL())
	if err != nil {
		return err
	}
	ss.st.Offset = 1
	ss.rep.TotalResults = page.TotalResults
	ss.rep.TotalPages = (page.TotalResults + domain.PageSize - 1) / domain.PageSize
	ss.log.Info().
		Int("total_results", ss.rep.TotalResults).
		Int("total_pages", ss.rep.TotalPages).
		Msg("search accepted")

	for {
		if page.Empty() {
			return nil
		}

		// an interrupt must not cut a page in half
		if err := ss.sink.Append(context.WithoutCancel(ctx), page); err != nil {
			return err
		}
		ss.rep.Pages++
		ss.rep.Messages += page.Count()
		ss.rep.LastID, _ = page.LastGroupFirstID()
		ss.log.Info().
			Int("request", ss.st.TotalRequests).
			Int("total", ss.rep.TotalPages).
			Int("offset", ss.st.Offset).
			Msg("page persisted")

		if ss.st.Offset >= s.Cfg.OffsetLimit {
			if err := s.reanchor(ss, page); err != nil {
				return err
			}
		}

		if err := ctx.Err(); err != nil {
			return perr.Canceled(err)
		}
		ss.st.TotalRequests++
		page, err = s.Search.Search(ctx, ss.q.WithOffset(ss.st.Offset))
		if err != nil {
			return err
		}
		ss.st.Offset++
	}
}

// reanchor escapes the offset ceiling by moving min_id to the last group of page
func (s *Service) reanchor(ss *session, page *domain.SearchResult) error {
	ss.transition(domain.StateReanchor)
	id, ok := page.LastGroupFirstID()
	if !ok {
		return perr.JSONErrf("cannot re-anchor: last message group of page %d is empty", ss.rep.Pages)
	}
	prev := ss.q.Get(query.ParamMinID)
	if err := ss.q.Reanchor(id); err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "cannot re-anchor on page id")
	}
	ss.st.Offset = 0
	ss.rep.Reanchors++
	ss.log.Info().
		Str("min_id", id).
		Str("previous_min_id", prev).
		Int("reanchors", ss.rep.Reanchors).
		Msg("pagination ceiling reached, re-anchoring")
	ss.transition(domain.StateFetching)
	return nil
}

// stop classifies a terminal error into interrupted or aborted
func (s *Service) stop(ss *session, err error) error {
	if perr.IsCode(err, perr.ErrorCodeCanceled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		ss.transition(domain.StateInterrupted)
		ss.log.Warn().Int("total_requests", ss.st.TotalRequests).Msg("export interrupted")
		if !perr.IsCode(err, perr.ErrorCodeCanceled) {
			return perr.Canceled(err)
		}
		return err
	}
	ss.transition(domain.StateAborted)
	ss.log.Error().Err(err).Str("code", perr.CodeOf(err).String()).Msg("export aborted")
	return err
}
