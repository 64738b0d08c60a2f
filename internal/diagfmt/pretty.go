package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"gamscheck/internal/diag"
	"gamscheck/internal/source"
)

type palette struct {
	sev    map[diag.Severity]*color.Color
	gutter *color.Color
	caret  *color.Color
	note   *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed, color.Bold),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevInfo:    color.New(color.FgCyan, color.Bold),
		},
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgRed, color.Bold),
		note:   color.New(color.FgGreen),
	}
	all := []*color.Color{p.gutter, p.caret, p.note}
	for _, c := range p.sev {
		all = append(all, c)
	}
	for _, c := range all {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, d, fs, opts, p)
	}
	if n := bag.Dropped(); n > 0 {
		fmt.Fprintf(w, "\n... %d more diagnostic(s) not shown\n", n)
	}
}

func prettyOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) {
	f := fs.Get(d.Primary.File)
	start, _ := fs.Resolve(d.Primary)
	sevColor := p.sev[d.Severity]
	if sevColor == nil {
		sevColor = p.sev[diag.SevInfo]
	}
	fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n",
		formatPath(f, fs, opts.PathMode), start.Line, start.Col,
		sevColor.Sprint(d.Severity.String()), d.Code.ID(), d.Message)

	writeSnippet(w, f, d.Primary, start.Line, opts, p)

	if !opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		nf := fs.Get(n.Span.File)
		ns, _ := fs.Resolve(n.Span)
		fmt.Fprintf(w, "  %s %s:%d:%d: %s\n", p.note.Sprint("note:"),
			formatPath(nf, fs, opts.PathMode), ns.Line, ns.Col, n.Msg)
	}
}

func writeSnippet(w io.Writer, f *source.File, sp source.Span, line uint32, opts PrettyOpts, p palette) {
	ctx := max(int(opts.Context), 0)
	first := max(int(line)-ctx, 1)
	last := min(int(line)+ctx, f.LineCount())
	gw := len(fmt.Sprint(last))

	for n := first; n <= last; n++ {
		text := displayLine(f.GetLine(uint32(n)), opts.Width)
		fmt.Fprintf(w, " %s %s %s\n", p.gutter.Sprintf("%*d", gw, n), p.gutter.Sprint("|"), text)
		if n != int(line) {
			continue
		}
		pad, width := caretGeometry(f, sp, n)
		marker := "^" + strings.Repeat("~", max(width-1, 0))
		fmt.Fprintf(w, " %s %s %s%s\n", strings.Repeat(" ", gw), p.gutter.Sprint("|"),
			strings.Repeat(" ", pad), p.caret.Sprint(marker))
	}
}

// caretGeometry returns the display offset and width of sp on line n.
func caretGeometry(f *source.File, sp source.Span, n int) (pad, width int) {
	ls, le, err := f.LineBounds(n)
	if err != nil {
		return 0, 1
	}
	s := min(max(int(sp.Start), ls), le)
	e := min(max(int(sp.End), s), le)
	pad = runewidth.StringWidth(expandTabs(string(f.Content[ls:s])))
	width = max(runewidth.StringWidth(expandTabs(string(f.Content[s:e]))), 1)
	return pad, width
}

func displayLine(line string, width uint8) string {
	line = expandTabs(line)
	if width == 0 || runewidth.StringWidth(line) <= int(width) {
		return line
	}
	return runewidth.Truncate(line, int(width), "...")
}

// табы как один пробел, иначе каретка уезжает
func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", " ")
}
