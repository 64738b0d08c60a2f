package check

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"gamscheck/internal/diag"
	"gamscheck/internal/listing"
	"gamscheck/internal/runner"
	"gamscheck/internal/source"
	"gamscheck/internal/trace"
)

// Session is one check of one buffer.
type Session struct {
	ID     uint64
	Source string

	m      *Manager
	key    string
	buf    Buffer
	fn     ReportFunc
	ctx    context.Context
	cancel context.CancelFunc
	tracer trace.Tracer
	span   *trace.Span

	scratch  string
	exitCode int
	timings  runner.Timings

	mu      sync.Mutex
	state   State
	history []State

	once sync.Once
	done chan struct{}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns every state the session passed through, starting with Idle.
func (s *Session) History() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]State, 0, len(s.history)+1)
	out = append(out, StateIdle)
	return append(out, s.history...)
}

// Done is closed after the report has been delivered.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Cancel stops the compiler. The session still reports once.
func (s *Session) Cancel() {
	s.cancel()
}

func (s *Session) advance(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CanTransition(next) {
		err := &TransitionError{From: s.state, To: next}
		s.span.Point(trace.ScopeDriver, "session.transition", err.Error())
		s.m.logf("%v", err)
		return
	}
	s.state = next
	s.history = append(s.history, next)
	s.span.Point(trace.ScopeStage, "state", next.String())
}

func (s *Session) run(prev *Session) {
	defer s.m.wg.Done()
	defer close(s.done)
	defer s.m.release(s)
	defer s.cancel()

	s.span = trace.BeginSession(s.tracer, s.ID, s.Source)

	// предыдущая сессия освобождает листинг и scratch до нашего запуска
	if prev != nil {
		<-prev.Done()
	}
	if !s.m.isCurrent(s) {
		s.supersede()
		return
	}

	s.advance(StateSpawning)
	target, file, err := s.persist()
	if err != nil {
		s.advance(StateFailed)
		s.m.logf("%s: cannot write buffer: %v", s.Source, err)
		s.deliver(Report{Status: StatusFailed, Err: err})
		return
	}

	exits := make(chan runner.Exit, 1)
	err = s.m.spawner.Start(s.ctx, s.m.invocation(target), func(e runner.Exit) { exits <- e })
	if err != nil {
		s.m.opts.Metrics.SpawnFailed()
		s.span.Point(trace.ScopeDriver, "spawn.failed", err.Error())
		s.m.logf("%s: %v", s.Source, err)
		s.removeArtifacts("")
		s.advance(StateFailed)
		s.deliver(Report{Status: StatusFailed, File: file, Err: err})
		return
	}
	s.advance(StateRunning)

	exit := <-exits
	s.exitCode = exit.ExitCode
	s.timings.Set(runner.StageCompile, exit.Elapsed)
	s.m.opts.Metrics.ObserveStage(string(runner.StageCompile), exit.Elapsed)
	s.complete(exit, file)
}

// persist writes the buffer where the compiler will read it and builds the line table.
func (s *Session) persist() (target string, file *source.File, err error) {
	end := s.stage(runner.StagePersist)
	defer func() { end(err) }()

	raw := s.buf.Text
	var flags source.FileFlags
	switch {
	case raw == nil:
		// #nosec G304 -- path is the file being checked
		raw, err = os.ReadFile(s.Source)
		if err != nil {
			return "", nil, err
		}
		target = s.Source
	case s.m.opts.WriteMode == WriteInPlace:
		if err = writeFileAtomic(s.Source, raw); err != nil {
			return "", nil, err
		}
		target = s.Source
		flags = source.FileVirtual
	default:
		target = ScratchPath(s.Source)
		if err = os.WriteFile(target, raw, 0o600); err != nil {
			return "", nil, err
		}
		s.scratch = target
		flags = source.FileVirtual
	}
	return target, s.m.cache.File(s.Source, raw, flags), nil
}

func (s *Session) complete(exit runner.Exit, file *source.File) {
	if !s.m.isCurrent(s) {
		s.removeArtifacts(exit.Listing)
		s.supersede()
		return
	}
	if exit.Err != nil {
		s.span.Point(trace.ScopeDriver, "compile.failed", exit.Err.Error())
		s.m.logf("%s: compiler did not finish: %v", s.Source, exit.Err)
		s.removeArtifacts(exit.Listing)
		s.advance(StateFailed)
		s.deliver(Report{Status: StatusFailed, File: file, Err: exit.Err})
		return
	}
	if !exit.ListingFound {
		s.span.Point(trace.ScopeStage, "listing.absent", exit.Listing)
		s.removeArtifacts("")
		s.advance(StateReportedEmpty)
		s.deliver(Report{Status: StatusEmpty, File: file})
		return
	}

	s.advance(StateParsing)
	res := s.parse(exit.Listing)
	diags, unmapped, dropped := s.mapRecords(file, res.Records)
	s.removeArtifacts(exit.Listing)

	if !s.m.isCurrent(s) {
		s.supersede()
		return
	}
	s.advance(StateReported)
	s.deliver(Report{
		Status:      StatusReported,
		File:        file,
		Diagnostics: diags,
		Skipped:     res.Skipped,
		Unmapped:    unmapped,
		Dropped:     dropped,
	})
}

func (s *Session) parse(path string) (res listing.Result) {
	var err error
	end := s.stage(runner.StageParse)
	defer func() { end(err) }()

	var text string
	text, err = listing.ReadFile(path)
	if err != nil {
		// нечитаемый листинг = пустой отчёт
		s.m.logf("%s: %v", s.Source, err)
		return listing.Result{}
	}
	res = listing.Analyze(text)
	for _, sk := range res.Skipped {
		s.span.Point(trace.ScopeBlock, "listing.skip", sk.Reason,
			"listing_line", strconv.Itoa(sk.Line))
	}
	s.m.opts.Metrics.BlocksSkipped(len(res.Skipped))
	return res
}

func (s *Session) mapRecords(file *source.File, recs []listing.Record) (diags []diag.Diagnostic, unmapped, dropped int) {
	end := s.stage(runner.StageMap)
	defer func() { end(nil) }()

	bag := diag.NewBag(s.m.opts.MaxDiagnostics)
	var rep diag.Reporter = diag.BagReporter{Bag: bag}
	for _, rec := range recs {
		sp, err := file.PointSpan(rec.Line, rec.Column)
		if err != nil {
			unmapped++
			s.m.opts.Metrics.RecordUnmapped()
			s.span.Point(trace.ScopeBlock, "record.unmapped", err.Error(), "code", rec.Code)
			continue
		}
		code, ok := diag.ParseCode(rec.Code)
		msg := rec.Message
		if msg == "" {
			msg = "compilation error " + rec.Code
		}
		var notes []diag.Note
		if !ok {
			notes = []diag.Note{{Span: sp, Msg: "listing code " + rec.Code}}
		}
		rep.Report(code, diag.SevError, sp, msg, notes)
	}
	bag.Sort()
	return bag.Items(), unmapped, bag.Dropped()
}

// removeArtifacts deletes the listing and the scratch copy. Failures are only logged.
func (s *Session) removeArtifacts(listingPath string) {
	if s.m.opts.KeepArtifacts {
		return
	}
	var err error
	end := s.stage(runner.StageCleanup)
	defer func() { end(err) }()

	for _, p := range []string{listingPath, s.scratch} {
		if p == "" {
			continue
		}
		if rmErr := os.Remove(p); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = rmErr
			s.m.opts.Metrics.CleanupFailed()
			s.m.logf("cleanup: %v", rmErr)
		}
	}
}

func (s *Session) supersede() {
	s.advance(StateSuperseded)
	s.deliver(Report{Status: StatusSuperseded})
}

// deliver invokes the ReportFunc. Only the first call has an effect.
func (s *Session) deliver(r Report) {
	s.once.Do(func() {
		r.Source = s.Source
		r.Session = s.ID
		r.Version = s.buf.Version
		r.ExitCode = s.exitCode
		r.Timings = s.timings
		if r.Status == StatusSuperseded {
			r.File = nil
			r.Diagnostics = nil
		}
		s.span.WithExtra("diagnostics", strconv.Itoa(len(r.Diagnostics))).End(r.Status.String())
		s.m.opts.Metrics.SessionFinished(r.Status.String(), len(r.Diagnostics))
		if s.fn != nil {
			s.fn(r)
		}
	})
}

// stage brackets one stage with a trace span, progress events and timings.
func (s *Session) stage(st runner.Stage) func(error) {
	sink := s.m.opts.Progress
	if sink != nil {
		sink.OnEvent(runner.Event{File: s.Source, Stage: st, Status: runner.StatusWorking})
	}
	span := s.span.Child(trace.ScopeStage, string(st))
	return func(err error) {
		detail := ""
		if err != nil {
			detail = err.Error()
		}
		d := span.End(detail)
		s.timings.Set(st, d)
		s.m.opts.Metrics.ObserveStage(string(st), d)
		if sink != nil {
			status := runner.StatusDone
			if err != nil {
				status = runner.StatusError
			}
			sink.OnEvent(runner.Event{File: s.Source, Stage: st, Status: status, Err: err, Elapsed: d})
		}
	}
}
