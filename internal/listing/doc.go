// Package listing extracts compiler error records from a GAMS listing file.
//
// The compiler echoes the source into the listing and, under every line with
// errors, prints a block of marker lines starting with "****":
//
//	   3  x = y + z;
//	****      $140
//	****  LINE 3
//	140  Unknown identifier entered as set
//	     possibly misspelled
//
// A block starts at a marker line carrying one or more "$<code>" markers.
// Their position fixes the column, the LINE directive fixes the source line,
// and the lines after it carry the message text for each code. Blocks end at a
// blank line, at a line that does not fit the block grammar, or at the next
// block's markers once the current block has its line number.
//
// Parse never fails: anything it does not understand is skipped. Analyze
// also returns the blocks it had to drop so callers can log them.
package listing
