// Command gnssrcv is the illustrative CLI front-end for the L1 C/A
// receiver core (spec.md §6): it opens a recorded IQ file, drives the
// receiver's ProcessStep loop to EOF, and logs channel/ephemeris events
// as they happen. The core itself does not mandate a shell; this is one
// way to exercise it.
//
// Grounded on the teacher's cmd/ntrip-server and cmd/rtk2go-test: a flat
// flag.String/Int/Bool set collected up front, a logrus.New() logger
// configured once, then handed down into the library code.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/gnssrcv/l1ca-core/internal/code"
	"github.com/gnssrcv/l1ca-core/internal/iq"
	"github.com/gnssrcv/l1ca-core/internal/receiver"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flagSet()
	if err := fs.cmd.Parse(args); err != nil {
		return 2
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(*fs.logLevel)
	if err != nil {
		logger.Fatalf("gnssrcv: invalid log level: %v", err)
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *fs.genCode {
		return runGenCode(logger, *fs.satID)
	}

	if *fs.file == "" {
		logger.Error("gnssrcv: --file is required")
		return 1
	}
	if *fs.sampleRate <= 0 {
		logger.Error("gnssrcv: --sample-rate must be > 0 (0 means \"ask the loader\", which this core's file formats do not support)")
		return 1
	}

	format, err := iq.ParseFormat(pickFormat(*fs.format, *fs.file))
	if err != nil {
		logger.WithError(err).Error("gnssrcv: unsupported IQ file format")
		return 1
	}

	source, err := iq.OpenFile(*fs.file, format, *fs.sampleRate)
	if err != nil {
		logger.WithError(err).Error("gnssrcv: failed to open IQ file")
		return 1
	}
	defer source.Close()

	satIDs := satIDList(*fs.satID)
	rcv, err := receiver.New(receiver.Config{
		Fs:     *fs.sampleRate,
		Sig:    "L1CA",
		SatIDs: satIDs,
	}, source, logger)
	if err != nil {
		logger.WithError(err).Error("gnssrcv: failed to construct receiver")
		return 1
	}

	rcv.State().OnUpdate(func() {
		logger.WithField("run_id", rcv.RunID()).Debug("gnssrcv: published state updated")
	})
	rcv.OnFixReady(func(tsSec float64) {
		logger.WithField("ts_sec", tsSec).Info("gnssrcv: fix attempt window open (PVT solving is out of core scope)")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("gnssrcv: received interrupt, stopping")
		cancel()
	}()

	for {
		if err := rcv.ProcessStep(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("gnssrcv: reached end of IQ file")
				return 0
			}
			if errors.Is(err, context.Canceled) {
				return 0
			}
			logger.WithError(err).Error("gnssrcv: IO error, stopping")
			return 1
		}
	}
}

// runGenCode implements spec.md §6's -g flag: generate and print Gold
// codes for verification, then exit.
func runGenCode(logger logrus.FieldLogger, satID int) int {
	carrier, err := code.CarrierFreq("L1CA")
	if err != nil {
		logger.WithError(err).Error("gnssrcv: code generation failed")
		return 1
	}
	fmt.Printf("signal: L1CA, carrier: %.2f MHz\n", carrier/1e6)

	ids := satIDList(satID)
	for _, prn := range ids {
		chips, err := code.GenL1CA(prn)
		if err != nil {
			logger.WithField("prn", prn).WithError(err).Error("gnssrcv: code generation failed")
			return 1
		}
		var b strings.Builder
		for _, c := range chips {
			if c > 0 {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		fmt.Printf("PRN %02d: %s\n", prn, b.String())
	}
	return 0
}

// satIDList expands spec.md §6's --sat-id convention: 0 means "all
// 1..32", any other value restricts the search to that single PRN.
func satIDList(satID int) []int {
	if satID == 0 {
		ids := make([]int, 32)
		for i := range ids {
			ids[i] = i + 1
		}
		return ids
	}
	return []int{satID}
}

// pickFormat honors an explicit --format flag, else guesses from the
// file extension, falling back to the richest encoding (2xf32) when
// neither gives a hint.
func pickFormat(explicit, path string) string {
	if explicit != "" {
		return explicit
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".f32", ".cf32":
		return "2xf32"
	case ".i16", ".cs16":
		return "2xi16"
	case ".i8q8", ".cs8":
		return "2xi8"
	case ".i8":
		return "i8"
	default:
		return "2xf32"
	}
}
