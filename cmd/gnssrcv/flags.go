package main

import "flag"

// cliFlags holds the parsed command-line flags for spec.md §6's
// illustrative CLI.
type cliFlags struct {
	cmd *flag.FlagSet

	file       *string
	sampleRate *float64
	satID      *int
	genCode    *bool
	format     *string
	logLevel   *string
}

func flagSet() *cliFlags {
	fs := flag.NewFlagSet("gnssrcv", flag.ContinueOnError)
	f := &cliFlags{cmd: fs}
	f.file = fs.String("file", "", "IQ recording file (spec.md --file)")
	f.sampleRate = fs.Float64("sample-rate", 0, "sample rate in Hz (spec.md --sample-rate; required, must be > 0: the supported file formats carry no rate, so 0 is rejected)")
	f.satID = fs.Int("sat-id", 0, "restrict acquisition to PRN n (0 = all 1..32) (spec.md --sat-id)")
	f.genCode = fs.Bool("g", false, "generate and print Gold codes for verification and exit (spec.md -g)")
	f.format = fs.String("format", "", "IQ encoding: 2xf32, 2xi16, 2xi8, i8 (default: guessed from --file's extension)")
	f.logLevel = fs.String("log-level", "info", "log level (debug, info, warn, error)")
	return f
}
