//go:build !linux

package main

import (
	"errors"

	"github.com/dshills/keywarp/internal/device"
	"github.com/dshills/keywarp/internal/logging"
	"github.com/dshills/keywarp/internal/pipeline"
)

// openDevices supports only the dry-run device off Linux.
func openDevices(opts options, log *logging.Logger) (pipeline.KeySource, pipeline.KeySink, error) {
	if !opts.dryRun {
		return nil, nil, errors.New("device remapping is Linux-only; use -dry-run")
	}
	term, err := device.NewTerm(log)
	if err != nil {
		return nil, nil, err
	}
	return term, term, nil
}
