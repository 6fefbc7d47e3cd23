package service

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"testing"
	"time"

	"discordsearch/internal/adapters/discord"
	perr "discordsearch/internal/platform/errors"
	kit "discordsearch/internal/platform/testkit"
	"discordsearch/internal/services/export/domain"
)

const (
	guild  = "81384788765712384"
	baseID = uint64(175928847299117063)
)

// fakeSearcher serves pages in call order and records every URL
type fakeSearcher struct {
	pages  []*domain.SearchResult
	errAt  int // 1-based call that fails, 0 never
	err    error
	onCall func(n int)
	urls   []string
	errors int
	resets int
}

func (f *fakeSearcher) Search(ctx context.Context, rawURL string) (*domain.SearchResult, error) {
	f.urls = append(f.urls, rawURL)
	n := len(f.urls)
	if f.onCall != nil {
		f.onCall(n)
	}
	if err := ctx.Err(); err != nil {
		return nil, perr.Canceled(err)
	}
	if n == f.errAt {
		f.errors++
		return nil, f.err
	}
	if n > len(f.pages) {
		return &domain.SearchResult{TotalResults: 0}, nil
	}
	return f.pages[n-1], nil
}

func (f *fakeSearcher) Errors() int { return f.errors }

func (f *fakeSearcher) ResetSession() {
	f.errors = 0
	f.resets++
}

func (f *fakeSearcher) query(t *testing.T, i int) url.Values {
	t.Helper()
	u, err := url.Parse(f.urls[i])
	if err != nil {
		t.Fatalf("parse %q: %v", f.urls[i], err)
	}
	return u.Query()
}

type fakeSink struct {
	pages   []*domain.SearchResult
	appendE error
	lastID  string
	lastOK  bool
	lastErr error
	ctxErrs []error
}

func (s *fakeSink) Append(ctx context.Context, page *domain.SearchResult) error {
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	if s.appendE != nil {
		return s.appendE
	}
	s.pages = append(s.pages, page)
	return nil
}

func (s *fakeSink) LastID(context.Context) (string, bool, error) {
	return s.lastID, s.lastOK, s.lastErr
}

func (s *fakeSink) Target() string { return "fake.jsonl" }

type fakeOpener struct {
	sink   *fakeSink
	err    error
	opened int
}

func (o *fakeOpener) Open(context.Context, domain.Request, time.Time) (domain.Sink, error) {
	o.opened++
	if o.err != nil {
		return nil, o.err
	}
	return o.sink, nil
}

// page builds a page of n single message groups with ids starting at baseID+from
func page(t *testing.T, total, from, n int) *domain.SearchResult {
	t.Helper()
	res := &domain.SearchResult{TotalResults: total}
	for i := 0; i < n; i++ {
		id := strconv.FormatUint(baseID+uint64(from+i), 10)
		raw := `{"id":"` + id + `","channel_id":"1","author":{"id":"2","username":"u"},"content":"x","timestamp":"2023-01-01T00:00:00+00:00"}`
		var m discord.Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		res.Messages = append(res.Messages, domain.MessageGroup{m})
	}
	return res
}

func newSvc(s *fakeSearcher, o *fakeOpener, limit int) *Service {
	svc := New(s, o, Config{BaseURL: "https://discord.com", OffsetLimit: limit})
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return "sess-1" }
	return svc
}

func req() domain.Request {
	return domain.Request{Filters: domain.Filters{GuildID: guild}}
}

func TestRun_ThirtyResults_TwoWrites(t *testing.T) {
	s := &fakeSearcher{pages: []*domain.SearchResult{
		page(t, 30, 0, 25),
		page(t, 30, 25, 5),
	}}
	sink := &fakeSink{}
	svc := newSvc(s, &fakeOpener{sink: sink}, 0)

	rep, err := svc.Run(context.Background(), req())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.pages) != 2 {
		t.Fatalf("sink writes = %d, want 2", len(sink.pages))
	}
	if len(s.urls) != 3 {
		t.Fatalf("requests = %d, want 3", len(s.urls))
	}
	if s.query(t, 0).Has("offset") {
		t.Fatalf("first request must not carry an offset: %s", s.urls[0])
	}
	if got := s.query(t, 1).Get("offset"); got != "25" {
		t.Fatalf("second offset = %q, want 25", got)
	}
	if got := s.query(t, 2).Get("offset"); got != "50" {
		t.Fatalf("third offset = %q, want 50", got)
	}
	if rep.State != domain.StateDone {
		t.Fatalf("state = %s, want done", rep.State)
	}
	if rep.TotalPages != 2 || rep.TotalResults != 30 || rep.TotalRequests != 3 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Pages != 2 || rep.Messages != 30 {
		t.Fatalf("pages/messages = %d/%d", rep.Pages, rep.Messages)
	}
	if want := strconv.FormatUint(baseID+29, 10); rep.LastID != want {
		t.Fatalf("LastID = %q, want %q", rep.LastID, want)
	}
	if rep.SessionID != "sess-1" || rep.Target != "fake.jsonl" || rep.GuildID != guild {
		t.Fatalf("identity fields = %+v", rep)
	}
}

func TestRun_EmptyFirstPage(t *testing.T) {
	s := &fakeSearcher{}
	sink := &fakeSink{}
	rep, err := newSvc(s, &fakeOpener{sink: sink}, 0).Run(context.Background(), req())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.pages) != 0 {
		t.Fatalf("empty page must not be written")
	}
	if rep.TotalRequests != 1 || rep.TotalPages != 0 || rep.State != domain.StateDone {
		t.Fatalf("report = %+v", rep)
	}
}

func TestRun_Reanchor(t *testing.T) {
	pages := make([]*domain.SearchResult, 5)
	for i := range pages {
		pages[i] = page(t, 125, i*25, 25)
	}
	s := &fakeSearcher{pages: pages}
	sink := &fakeSink{}
	rep, err := newSvc(s, &fakeOpener{sink: sink}, 3).Run(context.Background(), req())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 3 in the first window, re-anchor, then offsets 0,25 then the empty page
	if len(s.urls) != 6 {
		t.Fatalf("requests = %d, want 6: %v", len(s.urls), s.urls)
	}
	for i, want := range []string{"", "25", "50", "0", "25", "50"} {
		if got := s.query(t, i).Get("offset"); got != want {
			t.Fatalf("request %d offset = %q, want %q", i, got, want)
		}
	}
	anchor := strconv.FormatUint(baseID+74, 10)
	for i := 0; i < 3; i++ {
		if s.query(t, i).Has("min_id") {
			t.Fatalf("request %d must not be anchored", i)
		}
	}
	for i := 3; i < 6; i++ {
		if got := s.query(t, i).Get("min_id"); got != anchor {
			t.Fatalf("request %d min_id = %q, want %q", i, got, anchor)
		}
	}
	if rep.Reanchors != 1 || rep.Pages != 5 || rep.TotalRequests != 6 {
		t.Fatalf("report = %+v", rep)
	}
	if q := s.query(t, 5); q.Get("sort_by") != "timestamp" || q.Get("sort_order") != "asc" || q.Get("include_nsfw") != "true" {
		t.Fatalf("fixed params lost after re-anchor: %v", q)
	}
}

func TestRun_ReanchorOnEmptyGroup(t *testing.T) {
	p := page(t, 50, 0, 24)
	p.Messages = append(p.Messages, domain.MessageGroup{})
	s := &fakeSearcher{pages: []*domain.SearchResult{p}}
	sink := &fakeSink{}
	rep, err := newSvc(s, &fakeOpener{sink: sink}, 1).Run(context.Background(), req())
	kit.MustCode(t, err, perr.ErrorCodeJSON)
	if rep.State != domain.StateAborted {
		t.Fatalf("state = %s, want aborted", rep.State)
	}
	if len(sink.pages) != 1 || len(s.urls) != 1 {
		t.Fatalf("writes/requests = %d/%d", len(sink.pages), len(s.urls))
	}
}

func TestRun_FatalAborts(t *testing.T) {
	s := &fakeSearcher{
		pages: []*domain.SearchResult{page(t, 100, 0, 25), page(t, 100, 25, 25)},
		errAt: 3,
		err:   perr.Fatalf("max errors reached (5)"),
	}
	sink := &fakeSink{}
	rep, err := newSvc(s, &fakeOpener{sink: sink}, 0).Run(context.Background(), req())
	kit.MustCode(t, err, perr.ErrorCodeFatal)
	if perr.ExitCode(err) == 0 {
		t.Fatalf("fatal must exit non-zero")
	}
	if rep.State != domain.StateAborted {
		t.Fatalf("state = %s, want aborted", rep.State)
	}
	if len(sink.pages) != 2 || rep.Pages != 2 || rep.TotalRequests != 3 || rep.Errors != 1 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestRun_Interrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &fakeSearcher{
		pages: []*domain.SearchResult{page(t, 100, 0, 25), page(t, 100, 25, 25)},
	}
	sink := &fakeSink{}
	// both pages land, the interrupt arrives with the third request
	s.onCall = func(n int) {
		if n == 3 {
			cancel()
		}
	}

	rep, err := newSvc(s, &fakeOpener{sink: sink}, 0).Run(ctx, req())
	kit.MustCode(t, err, perr.ErrorCodeCanceled)
	if perr.ExitCode(err) != 0 {
		t.Fatalf("interrupt must exit 0, got %d", perr.ExitCode(err))
	}
	if rep.State != domain.StateInterrupted {
		t.Fatalf("state = %s, want interrupted", rep.State)
	}
	if len(sink.pages) != 2 {
		t.Fatalf("persisted pages = %d, want 2", len(sink.pages))
	}
}

func TestRun_InterruptBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &fakeSearcher{pages: []*domain.SearchResult{page(t, 100, 0, 25)}}
	sink := &fakeSink{}
	// cancelled once the first response is decoded
	svc := newSvc(s, &fakeOpener{sink: sink}, 0)
	svc.Search = searchFunc(func(c context.Context, u string) (*domain.SearchResult, error) {
		res, err := s.Search(c, u)
		cancel()
		return res, err
	})

	rep, err := svc.Run(ctx, req())
	kit.MustCode(t, err, perr.ErrorCodeCanceled)
	if len(sink.pages) != 1 || sink.ctxErrs[0] != nil {
		t.Fatalf("in flight page must be written with a live context: %v", sink.ctxErrs)
	}
	if len(s.urls) != 1 || rep.TotalRequests != 1 {
		t.Fatalf("no request may start after the interrupt: %v", s.urls)
	}
}

type searchFunc func(context.Context, string) (*domain.SearchResult, error)

func (f searchFunc) Search(ctx context.Context, u string) (*domain.SearchResult, error) {
	return f(ctx, u)
}

func TestRun_ValidationBeforeIO(t *testing.T) {
	bad := "12ab"
	s := &fakeSearcher{}
	o := &fakeOpener{sink: &fakeSink{}}
	r := req()
	r.After = &bad
	rep, err := newSvc(s, o, 0).Run(context.Background(), r)
	kit.MustCode(t, err, perr.ErrorCodeValidation)
	if o.opened != 0 || len(s.urls) != 0 {
		t.Fatalf("validation must precede sink and network")
	}
	if rep.State != domain.StateAborted {
		t.Fatalf("state = %s", rep.State)
	}
}

func TestRun_ResumeFromLast(t *testing.T) {
	last := strconv.FormatUint(baseID+500, 10)
	after := "175928847299117063"
	s := &fakeSearcher{}
	sink := &fakeSink{lastID: last, lastOK: true}
	r := req()
	r.After = &after
	r.FromLast = true
	rep, err := newSvc(s, &fakeOpener{sink: sink}, 0).Run(context.Background(), r)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := s.query(t, 0).Get("min_id"); got != last {
		t.Fatalf("min_id = %q, want %q", got, last)
	}
	if rep.ResumedAfter != last {
		t.Fatalf("ResumedAfter = %q", rep.ResumedAfter)
	}
}

func TestRun_ResumeNothingToResume(t *testing.T) {
	s := &fakeSearcher{}
	r := req()
	r.FromLast = true
	_, err := newSvc(s, &fakeOpener{sink: &fakeSink{}}, 0).Run(context.Background(), r)
	kit.MustCode(t, err, perr.ErrorCodeValidation)
	if len(s.urls) != 0 {
		t.Fatalf("no request expected")
	}
}

func TestRun_SinkFailureAborts(t *testing.T) {
	s := &fakeSearcher{pages: []*domain.SearchResult{page(t, 30, 0, 25)}}
	sink := &fakeSink{appendE: perr.IOf("disk full")}
	rep, err := newSvc(s, &fakeOpener{sink: sink}, 0).Run(context.Background(), req())
	kit.MustCode(t, err, perr.ErrorCodeIO)
	if rep.State != domain.StateAborted || len(s.urls) != 1 {
		t.Fatalf("report = %+v urls=%v", rep, s.urls)
	}
}

func TestRun_OpenFailure(t *testing.T) {
	o := &fakeOpener{err: perr.IOf("permission denied")}
	_, err := newSvc(&fakeSearcher{}, o, 0).Run(context.Background(), req())
	kit.MustCode(t, err, perr.ErrorCodeIO)
}

func TestNew_Defaults(t *testing.T) {
	svc := New(&fakeSearcher{}, &fakeOpener{}, Config{})
	if svc.Cfg.OffsetLimit != DefaultOffsetLimit {
		t.Fatalf("OffsetLimit = %d", svc.Cfg.OffsetLimit)
	}
	kit.MustPanic(t, func() { New(nil, &fakeOpener{}, Config{}) })
	kit.MustPanic(t, func() { New(&fakeSearcher{}, nil, Config{}) })
}

func TestRun_ResetsErrorBudgetPerSession(t *testing.T) {
	s := &fakeSearcher{errAt: 1, err: perr.Fatalf("max errors reached (5)")}
	svc := newSvc(s, &fakeOpener{sink: &fakeSink{}}, 0)

	rep, err := svc.Run(context.Background(), req())
	kit.MustCode(t, err, perr.ErrorCodeFatal)
	if rep.Errors != 1 {
		t.Fatalf("first session errors = %d, want 1", rep.Errors)
	}

	rep, err = svc.Run(context.Background(), req())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if rep.Errors != 0 || rep.State != domain.StateDone {
		t.Fatalf("second session report = %+v", rep)
	}
	if s.resets != 2 {
		t.Fatalf("resets = %d, want one per session", s.resets)
	}
}
