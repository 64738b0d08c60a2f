package fuzztests

import (
	"errors"
	"testing"

	"gamscheck/internal/source"
	"gamscheck/internal/testkit"
)

func FuzzPointSpan(f *testing.F) {
	for _, m := range modelSeeds {
		for _, pos := range [][2]int{{1, 0}, {2, 4}, {3, 100}, {0, 0}, {1, -3}} {
			f.Add([]byte(m), pos[0], pos[1])
		}
	}
	f.Fuzz(func(t *testing.T, input []byte, line, column int) {
		content, flags := source.Normalize(clampInput(input))
		file := source.NewFile("fuzz.gms", content, flags)

		sp, err := file.PointSpan(line, column)
		if err != nil {
			var lre *source.LineRangeError
			if !errors.As(err, &lre) {
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			if line >= 1 && line <= file.LineCount() {
				t.Fatalf("line %d of %d rejected: %v", line, file.LineCount(), err)
			}
			return
		}
		if err := testkit.CheckSpanInBounds(file, sp); err != nil {
			t.Fatalf("line %d col %d: %v", line, column, err)
		}
		start, end, _ := file.LineBounds(line)
		if int(sp.Start) < start || int(sp.Start) > end {
			t.Fatalf("span %v starts outside line %d [%d,%d]", sp, line, start, end)
		}
		if sp.Empty() && int(sp.End) != len(file.Content) {
			t.Fatalf("empty span %v before end of content", sp)
		}
	})
}
