//go:build linux

package main

import (
	"github.com/dshills/keywarp/internal/device"
	"github.com/dshills/keywarp/internal/logging"
	"github.com/dshills/keywarp/internal/pipeline"
)

// openDevices acquires the key source and sink. Dry-run shares one tcell
// device for both sides; otherwise the evdev keyboard is grabbed and a
// uinput keyboard created.
func openDevices(opts options, log *logging.Logger) (pipeline.KeySource, pipeline.KeySink, error) {
	if opts.dryRun {
		term, err := device.NewTerm(log)
		if err != nil {
			return nil, nil, err
		}
		return term, term, nil
	}

	src, err := device.OpenEvdev(opts.devicePath, log)
	if err != nil {
		return nil, nil, err
	}
	sink, err := device.OpenUinput(opts.deviceName, log)
	if err != nil {
		src.Close()
		return nil, nil, err
	}
	return src, sink, nil
}
