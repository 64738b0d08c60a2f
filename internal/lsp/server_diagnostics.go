package lsp

import (
	"context"
	"errors"
	"time"

	"gamscheck/internal/check"
)

// scheduleCheck (re)arms the document timer. Each edit bumps doc.seq so a
// timer armed for an older text does nothing when it fires.
func (s *Server) scheduleCheck(uri string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok || s.shutdownRequested {
		return
	}
	doc.seq++
	seq := doc.seq
	if doc.timer != nil {
		doc.timer.Stop()
	}
	doc.timer = time.AfterFunc(delay, func() {
		s.runCheck(uri, seq)
	})
}

func (s *Server) runCheck(uri string, seq uint64) {
	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok || doc.seq != seq || s.checker == nil {
		s.mu.Unlock()
		return
	}
	buf := check.Buffer{
		Path:    uriToPath(uri),
		Text:    []byte(doc.text),
		Version: doc.version,
	}
	ctx := s.baseCtx
	trace := s.traceLSP
	s.mu.Unlock()

	if !s.checker.Enabled(buf.Path) {
		return
	}
	if trace {
		s.logf("check: uri=%s version=%d", uri, buf.Version)
	}
	_, err := s.checker.Check(ctx, buf, func(r check.Report) {
		s.handleReport(uri, r)
	})
	if err != nil && !errors.Is(err, check.ErrNotEnabled) {
		s.logf("check %s failed to start: %v", buf.Path, err)
	}
}

// handleReport publishes r unless it was superseded or the document moved on.
func (s *Server) handleReport(uri string, r check.Report) {
	if r.Stale() {
		return
	}
	if r.Status == check.StatusFailed {
		if errors.Is(r.Err, context.Canceled) {
			return
		}
		s.logf("check %s failed: %v", r.Source, r.Err)
	}

	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok || doc.version != r.Version || s.shutdownRequested {
		trace := s.traceLSP
		s.mu.Unlock()
		if trace {
			s.logf("discard: uri=%s report version=%d", uri, r.Version)
		}
		return
	}
	limit := s.maxDiagnostics
	s.published[uri] = struct{}{}
	s.mu.Unlock()

	list := toLSPDiagnostics(uri, r, limit)
	version := r.Version
	if err := s.sendPublish(uri, &version, list); err != nil {
		s.logf("failed to publish diagnostics: %v", err)
	}
}

func toLSPDiagnostics(uri string, r check.Report, limit int) []lspDiagnostic {
	items := r.Diagnostics
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	list := make([]lspDiagnostic, 0, len(items))
	for _, d := range items {
		ld := lspDiagnostic{
			Range:    rangeForSpan(r.File, d.Primary),
			Severity: d.Severity.LSP(),
			Code:     d.Code.ID(),
			Source:   "gams",
			Message:  d.Message,
		}
		for _, n := range d.Notes {
			ld.RelatedInformation = append(ld.RelatedInformation, relatedInformation{
				Location: location{URI: uri, Range: rangeForSpan(r.File, n.Span)},
				Message:  n.Msg,
			})
		}
		list = append(list, ld)
	}
	return list
}

func (s *Server) clearPublishedDiagnostics() {
	s.mu.Lock()
	if len(s.published) == 0 {
		s.mu.Unlock()
		return
	}
	prev := s.published
	s.published = make(map[string]struct{})
	s.mu.Unlock()
	for uri := range prev {
		if err := s.sendPublish(uri, nil, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
}

