package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const (
	maxSeedBytes = 64 << 10
	maxFuzzInput = 256 << 10
)

// listingSeeds are small listings covering the block shapes the reader knows.
var listingSeeds = []string{
	"",
	"**** x = y + z;\n****                $140\n****  LINE 3\n140  Unknown identifier y\n     possibly misspelled\n",
	"****      $140     $8\n****  LINE 7\n140  Unknown symbol\n8  ')' expected\n",
	"****                     $140,172\n****  LINE 2 INPUT /tmp/m.gms\n140  Unknown symbol\n172  Element is different\n",
	"****   $96\n96  Blank needed\n",
	"\xef\xbb\xbf****  $1\r\n****  LINE 1\r\n1  Real number expected\r\n",
	"**** $99999999999999999999\n**** LINE 4\n",
}

var modelSeeds = []string{
	"",
	"set i / 1*3 /;\nx = y + z;\nsolve m using lp;\n",
	"* комментарий\r\nparameter p(i) 'ünïcode' / a 1 /;\r\n",
	"no trailing newline",
	"\n\n\n",
}

func addListingSeeds(f *testing.F) {
	for _, s := range listingSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f, ".lst")
}

// addTestdataSeeds adds repository fixtures with the given extension, if any.
func addTestdataSeeds(f *testing.F, ext string) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ext {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}
