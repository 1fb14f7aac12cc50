// Command ppe-analyze runs the compliance engines over a recorded list of detection payloads.
package main

import (
	"PPEGuard/internal/api/ppe"
	"PPEGuard/internal/entity"
	"PPEGuard/pkg/log"
	ppePkg "PPEGuard/pkg/ppe"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type output struct {
	Alerts   []entity.AlertInterval `json:"alerts"`
	Summary  entity.AlarmSummary    `json:"summary"`
	Duration float64                `json:"duration"`
	Frames   int                    `json:"frames"`
	Window   *entity.WindowSnapshot `json:"window,omitempty"`
}

func main() {
	var (
		file      = flag.String("file", "-", "JSON array of {timestamp, detection} frames, - for stdin")
		at        = flag.Float64("at", -1, "also print the reliability window containing this offset in seconds")
		threshold = flag.Float64("threshold", ppePkg.DefaultConfidenceThreshold, "minimum equipment confidence")
		delay     = flag.Float64("delay", ppePkg.DefaultAlertDelaySeconds, "seconds of continuous violation before an alert")
		interval  = flag.Float64("interval", ppePkg.DefaultFrameInterval, "sampling interval in seconds")
		locale    = flag.String("locale", string(ppePkg.LocaleES), "label language (es, en)")
	)
	flag.Parse()

	logger := log.NewLogger()

	frames, err := readFrames(*file)
	if err != nil {
		logger.Fatalf("Failed to read frames: %v", err)
	}

	cfg := ppePkg.DefaultConfig()
	cfg.ConfidenceThreshold = *threshold
	cfg.AlertDelaySeconds = *delay
	cfg.FrameInterval = *interval
	cfg.Locale = ppePkg.ParseLocale(*locale)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := ppePkg.Analyze(ctx, cfg, frames)
	if err != nil {
		logger.Fatalf("Analysis failed: %v", err)
	}

	out := output{
		Alerts:   result.Alerts,
		Summary:  result.Summary,
		Duration: result.Duration,
		Frames:   len(result.Frames),
	}
	if *at >= 0 {
		snapshot := ppePkg.NewAggregator(cfg).Snapshot(ppePkg.SortFrames(frames), *at)
		out.Window = &snapshot
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		logger.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(encoded))
}

func readFrames(path string) ([]entity.Frame, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var payloads []ppe.FramePayload
	if err := json.NewDecoder(r).Decode(&payloads); err != nil {
		return nil, err
	}

	frames := make([]entity.Frame, 0, len(payloads))
	for i, p := range payloads {
		if p.Timestamp == nil {
			return nil, fmt.Errorf("frame %d has no timestamp", i)
		}
		frames = append(frames, p.ToFrame())
	}
	return frames, nil
}
