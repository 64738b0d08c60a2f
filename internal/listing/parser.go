package listing

import (
	"sort"
	"strconv"
	"strings"
)

// Parse extracts error records from listing text, sorted by (Line, Column).
// Codes reported at the same position keep their listing order.
func Parse(text string) []Record {
	return Analyze(text).Records
}

// Analyze is Parse plus the list of blocks that had to be dropped.
func Analyze(text string) Result {
	p := parser{}
	for i, raw := range splitLines(text) {
		p.feed(i+1, raw)
	}
	p.flush()

	sort.SliceStable(p.res.Records, func(i, j int) bool {
		ri, rj := p.res.Records[i], p.res.Records[j]
		if ri.Line != rj.Line {
			return ri.Line < rj.Line
		}
		return ri.Column < rj.Column
	})
	return p.res
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

type codeMarker struct {
	code   string
	column int
}

// block accumulates one error block between its first marker line and its terminator.
type block struct {
	start    int // listing line of the first marker line
	markers  []codeMarker
	codes    []string // distinct codes, first-seen order
	messages map[string][]string
	current  string // code receiving text, "" until the first code switch
	line     int
	hasLine  bool
	hasText  bool
}

func newBlock(start int) *block {
	return &block{start: start, messages: make(map[string][]string)}
}

// acceptsMarkers reports whether another marker line still belongs to this block.
func (b *block) acceptsMarkers() bool {
	return !b.hasLine && !b.hasText
}

func (b *block) addMarkers(ms []codeMarker) {
	for _, m := range ms {
		b.markers = append(b.markers, m)
		if _, seen := b.messages[m.code]; !seen {
			b.messages[m.code] = nil
			b.codes = append(b.codes, m.code)
		}
	}
}

// appendText adds a message fragment to the current code, or to all codes
// while no code switch happened yet.
func (b *block) appendText(fragment string) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return
	}
	b.hasText = true
	if b.current != "" {
		b.messages[b.current] = append(b.messages[b.current], fragment)
		return
	}
	for _, code := range b.codes {
		b.messages[code] = append(b.messages[code], fragment)
	}
}

// switchCode handles "<digits><ws><text>": text goes to <digits>.
func (b *block) switchCode(text string) {
	loc := digitsRe.FindStringIndex(text)
	b.current = text[loc[0]:loc[1]]
	b.appendText(text[loc[1]:])
}

func (b *block) knownCode(text string) bool {
	loc := digitsRe.FindStringIndex(text)
	if loc == nil {
		return false
	}
	_, ok := b.messages[text[loc[0]:loc[1]]]
	return ok
}

// setLine reads the LINE directive. Only the first one counts.
func (b *block) setLine(text string) {
	if b.hasLine {
		return
	}
	loc := digitsRe.FindStringIndex(text)
	n, err := strconv.Atoi(text[loc[0]:loc[1]])
	if err != nil || n <= 0 {
		return
	}
	b.line = n
	b.hasLine = true
}

func (b *block) records() []Record {
	out := make([]Record, 0, len(b.markers))
	msgs := make(map[string]string, len(b.codes))
	for _, code := range b.codes {
		msg := strings.Join(b.messages[code], " ")
		msgs[code] = leadingCodeRe.ReplaceAllString(msg, "")
	}
	for _, m := range b.markers {
		out = append(out, Record{Code: m.code, Column: m.column, Line: b.line, Message: msgs[m.code]})
	}
	return out
}

type parser struct {
	open *block
	res  Result
}

func (p *parser) feed(n int, raw string) {
	if body, ok := strings.CutPrefix(raw, markerPrefix); ok {
		p.markerLine(n, raw, body)
		return
	}
	if p.open == nil {
		return
	}
	switch {
	case strings.TrimSpace(raw) == "":
		p.flush()
	case lineDirectiveRe.MatchString(raw):
		p.open.setLine(raw)
	case lineCodeTextRe.MatchString(raw) && p.open.knownCode(raw):
		p.open.switchCode(raw)
	case indentRe.MatchString(raw) && !sourceEchoRe.MatchString(raw):
		p.open.appendText(raw)
	default:
		// echo of the next source line, page header and the like
		p.flush()
	}
}

func (p *parser) markerLine(n int, raw, body string) {
	if ms := scanMarkers(raw); len(ms) > 0 {
		if p.open == nil || !p.open.acceptsMarkers() {
			p.flush()
			p.open = newBlock(n)
		}
		p.open.addMarkers(ms)
		return
	}
	if p.open == nil {
		// summary lines, stray notices
		return
	}
	switch {
	case lineDirectiveRe.MatchString(body):
		p.open.setLine(body)
	case markerCodeTextRe.MatchString(body):
		p.open.switchCode(body)
	default:
		p.open.appendText(body)
	}
}

func (p *parser) flush() {
	b := p.open
	p.open = nil
	if b == nil || len(b.markers) == 0 {
		return
	}
	if !b.hasLine {
		p.res.Skipped = append(p.res.Skipped, Malformed{
			Line:   b.start,
			Codes:  append([]string(nil), b.codes...),
			Reason: "missing LINE directive",
		})
		return
	}
	p.res.Records = append(p.res.Records, b.records()...)
}

// scanMarkers finds every "$<code>[,<code>...]" group in a raw marker line.
func scanMarkers(raw string) []codeMarker {
	locs := codeMarkerRe.FindAllStringIndex(raw, -1)
	if len(locs) == 0 {
		return nil
	}
	var out []codeMarker
	for _, loc := range locs {
		col := loc[0] - markerColumnShift
		for _, code := range strings.Split(raw[loc[0]+1:loc[1]], ",") {
			out = append(out, codeMarker{code: code, column: col})
		}
	}
	return out
}
