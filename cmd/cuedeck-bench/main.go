// ABOUTME: Offline render benchmark for the cue engine
// ABOUTME: Pulls a cue through the null output, timing each block and optionally saving the mix
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/cuedeck/cuedeck/pkg/audio"
	"github.com/cuedeck/cuedeck/pkg/audio/dsp"
	"github.com/cuedeck/cuedeck/pkg/audio/encode"
	"github.com/cuedeck/cuedeck/pkg/audio/output"
	"github.com/cuedeck/cuedeck/pkg/engine"
)

var (
	blockFrames = flag.Int("block", 512, "Frames per render callback")
	seconds     = flag.Float64("seconds", 0, "Seconds to render (default: whole cue)")
	tempo       = flag.Float64("tempo", 0, "Tempo change in percent")
	pitch       = flag.Float64("pitch", 0, "Pitch change in percent")
	reverb      = flag.Float64("reverb", 0, "Reverb tail in seconds")
	outPath     = flag.String("out", "", "Write the rendered mix here (.wav, raw PCM otherwise, - for stdout)")
	bits        = flag.Int("bits", 16, "Output bit depth: 16 or 24")
	limiter     = flag.Bool("limiter", false, "Enable the master limiter")
	verbose     = flag.Bool("v", false, "Engine debug logging")
)

// console receives the report; stderr when the mix goes to stdout
var console io.Writer = os.Stdout

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	if *outPath == "-" {
		console = os.Stderr
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: cuedeck-bench [flags] FILE")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	fmt.Fprintln(console, "=== Cue Render Benchmark ===")
	fmt.Fprintf(console, "File:  %s\n", path)
	fmt.Fprintf(console, "Block: %d frames\n", *blockFrames)
	fmt.Fprintln(console)

	level := charmlog.WarnLevel
	if *verbose {
		level = charmlog.DebugLevel
	}
	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{Level: level, Prefix: "engine"})

	null := output.NewNull(logger, false)
	eng, err := engine.New(engine.Config{
		BlockFrames:   *blockFrames,
		MasterLimiter: *limiter,
		Logger:        logger,
		Outputs: func() ([]output.Output, error) {
			return []output.Output{null}, nil
		},
	})
	if err != nil {
		log.Fatalf("Engine error: %v", err)
	}
	defer func() { _ = eng.Close() }()
	if err := eng.Start(); err != nil {
		log.Fatalf("Output error: %v", err)
	}

	cfg := dsp.DefaultConfig()
	cfg.TempoPct = *tempo
	cfg.PitchPct = *pitch
	cfg.ReverbSec = *reverb

	loadStart := time.Now()
	voice, err := eng.Trigger(engine.TriggerRequest{Path: path, DSP: &cfg})
	if err != nil {
		log.Fatalf("Load error: %v", err)
	}
	log.Printf("Decoded %s in %v (%d ms of audio)", path, time.Since(loadStart).Round(time.Millisecond), voice.Duration())

	format := eng.Format()
	total := int(*seconds * float64(format.SampleRate))
	if total <= 0 {
		// tempo shortens or stretches the wall-clock length
		ratio := 1 + *tempo/100
		total = int(float64(voice.Duration()) / ratio * float64(format.SampleRate) / 1000)
	}

	var enc encode.Encoder
	closeOut := func() error { return nil }
	if *outPath != "" {
		enc, closeOut, err = openEncoder(*outPath, format, *bits)
		if err != nil {
			log.Fatalf("Output file error: %v", err)
		}
	}

	var timings []time.Duration
	budget := time.Duration(float64(*blockFrames) / float64(format.SampleRate) * float64(time.Second))

	for rendered := 0; rendered < total; rendered += *blockFrames {
		frames := min(*blockFrames, total-rendered)
		start := time.Now()
		block := null.Pull(frames)
		timings = append(timings, time.Since(start))
		if enc != nil {
			if err := enc.Write(block); err != nil {
				log.Fatalf("Write error: %v", err)
			}
		}
	}
	eng.Poll()

	report(timings, budget, eng.Stats(), voice)

	if enc != nil {
		if err := enc.Close(); err != nil {
			log.Fatalf("Write error: %v", err)
		}
		if err := closeOut(); err != nil {
			log.Fatalf("Write error: %v", err)
		}
		log.Printf("Wrote %s", *outPath)
	}
}

func report(timings []time.Duration, budget time.Duration, stats engine.Stats, voice *engine.Voice) {
	if len(timings) == 0 {
		log.Printf("Nothing rendered")
		return
	}
	sorted := append([]time.Duration(nil), timings...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	var over int
	for _, d := range timings {
		sum += d
		if d > budget {
			over++
		}
	}
	pct := func(p float64) time.Duration { return sorted[int(p*float64(len(sorted)-1))] }

	fmt.Fprintln(console)
	fmt.Fprintf(console, "Blocks:      %d (budget %v each)\n", len(timings), budget)
	fmt.Fprintf(console, "Mean:        %v\n", sum/time.Duration(len(timings)))
	fmt.Fprintf(console, "p50/p99/max: %v / %v / %v\n", pct(0.5), pct(0.99), sorted[len(sorted)-1])
	fmt.Fprintf(console, "Over budget: %d\n", over)
	fmt.Fprintf(console, "Renders:     %d (contended %d, panics %d, non-finite %d)\n",
		stats.Renders, stats.Contended, stats.Panics, stats.NonFinite)
	fmt.Fprintf(console, "Final state: %s at %d/%d ms\n", voice.State(), voice.Position(), voice.Duration())
}

// openEncoder picks WAV for .wav paths and raw PCM otherwise; "-" writes
// raw PCM to stdout
func openEncoder(path string, format audio.Format, bits int) (encode.Encoder, func() error, error) {
	if path == "-" {
		enc, err := encode.NewPCM(os.Stdout, bits)
		return enc, func() error { return nil }, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	var enc encode.Encoder
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		enc, err = encode.NewWAV(f, format, bits)
	} else {
		enc, err = encode.NewPCM(f, bits)
	}
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return enc, f.Close, nil
}
