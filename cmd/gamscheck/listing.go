package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"gamscheck/internal/listing"
)

var listingCmd = &cobra.Command{
	Use:   "listing <file.lst>",
	Short: "Print the error records found in an existing listing file",
	Long: `Parse a listing file without running the compiler. Each record is printed
as line:column $code message; blocks that could not be read are reported
after the records.`,
	Args: cobra.ExactArgs(1),
	RunE: runListing,
}

func init() {
	listingCmd.Flags().String("format", "text", "output format (text|json)")
}

type listingRecordJSON struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type listingSkippedJSON struct {
	Line   int      `json:"line"`
	Codes  []string `json:"codes"`
	Reason string   `json:"reason"`
}

type listingOutput struct {
	Records []listingRecordJSON  `json:"records"`
	Skipped []listingSkippedJSON `json:"skipped,omitempty"`
}

func runListing(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be text or json)", format)
	}
	text, err := listing.ReadFile(args[0])
	if err != nil {
		return err
	}
	res := listing.Analyze(text)
	if format == "json" {
		return writeListingJSON(cmd.OutOrStdout(), res)
	}
	return writeListingText(cmd.OutOrStdout(), res)
}

func writeListingText(w io.Writer, res listing.Result) error {
	for _, r := range res.Records {
		line := fmt.Sprintf("%d:%d $%s", r.Line, r.Column, r.Code)
		if r.Message != "" {
			line += " " + r.Message
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	for _, sk := range res.Skipped {
		if _, err := fmt.Fprintf(w, "skipped block at listing line %d ($%s): %s\n",
			sk.Line, strings.Join(sk.Codes, ",$"), sk.Reason); err != nil {
			return err
		}
	}
	return nil
}

func writeListingJSON(w io.Writer, res listing.Result) error {
	out := listingOutput{Records: make([]listingRecordJSON, 0, len(res.Records))}
	for _, r := range res.Records {
		out.Records = append(out.Records, listingRecordJSON{
			Line: r.Line, Column: r.Column, Code: r.Code, Message: r.Message,
		})
	}
	for _, sk := range res.Skipped {
		out.Skipped = append(out.Skipped, listingSkippedJSON{Line: sk.Line, Codes: sk.Codes, Reason: sk.Reason})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
