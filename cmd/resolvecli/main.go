// Command resolvecli wires the Artist Resolution Core end to end: the
// Offline Store, Offline/Online Resolvers, Mapping Cache, Dispatcher, and
// Batch Orchestrator over a track stream read from the command line or a
// JSON-lines file, mirroring the teacher's single-purpose
// cmd/musicbrainz-cli pattern (flag-parsed input, indented JSON to
// stdout). It accepts already-parsed track records per spec.md §6's "CSV
// Input contract (consumed)" — CSV parsing itself stays out of scope.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerveband/amp-resolver/config"
	"github.com/nerveband/amp-resolver/dispatcher"
	"github.com/nerveband/amp-resolver/logging"
	"github.com/nerveband/amp-resolver/mappingcache"
	"github.com/nerveband/amp-resolver/offlineresolver"
	"github.com/nerveband/amp-resolver/offlinestore"
	"github.com/nerveband/amp-resolver/onlineresolver"
	"github.com/nerveband/amp-resolver/orchestrator"
	"github.com/nerveband/amp-resolver/sessionaligner"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: resolvecli <search|batch> [flags]")
	}

	switch os.Args[1] {
	case "search":
		runSearch(os.Args[2:])
	case "batch":
		runBatch(os.Args[2:])
	default:
		log.Fatalf("unknown subcommand %q, want search or batch", os.Args[1])
	}
}

// jsonTrack is the wire shape of one input/output record for this CLI,
// independent of spec.md §6's three CSV input schemas (which the external
// CSV ingestion pipeline is responsible for normalizing into this shape).
type jsonTrack struct {
	Title      string `json:"title"`
	ArtistHint string `json:"artist_hint,omitempty"`
	AlbumHint  string `json:"album_hint,omitempty"`
	DurationMs int    `json:"duration_ms,omitempty"`
}

type jsonResult struct {
	Title       string `json:"title"`
	ArtistName  string `json:"artist_name,omitempty"`
	ReleaseName string `json:"release_name,omitempty"`
	Confidence  string `json:"confidence"`
	Provider    string `json:"provider"`
	Reason      string `json:"reason,omitempty"`
}

func runSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	title := fs.String("title", "", "track title")
	artist := fs.String("artist", "", "artist hint")
	album := fs.String("album", "", "album hint")
	fs.Parse(args)

	if *title == "" {
		log.Fatal("search: -title is required")
	}

	paths := config.Load()
	wired := buildDispatcher(paths)
	defer wired.Close()

	res, err := wired.Dispatcher.Resolve(context.Background(), dispatcher.Track{Title: *title, ArtistHint: *artist, AlbumHint: *album})
	if err != nil {
		log.Fatalf("search: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(jsonResult{
		Title: *title, ArtistName: res.ArtistName, ReleaseName: res.ReleaseName,
		Confidence: string(res.Confidence), Provider: string(res.Provider), Reason: res.Reason,
	})
}

func runBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	inputPath := fs.String("input", "", "path to a JSON-lines file of track records (defaults to stdin)")
	checkpointPath := fs.String("checkpoint", "", "checkpoint file path")
	workers := fs.Int("workers", orchestrator.DefaultWorkers, "worker pool width")
	checkpointInterval := fs.Int("checkpoint-interval", orchestrator.DefaultCheckpointInterval, "tracks between progress/checkpoint events")
	fs.Parse(args)

	tracks, err := readTracks(*inputPath)
	if err != nil {
		log.Fatalf("batch: reading input: %v", err)
	}

	paths := config.Load()
	wired := buildDispatcher(paths)
	defer wired.Close()

	var opts []orchestrator.Option
	if wired.Store != nil && wired.Offline != nil {
		opts = append(opts, orchestrator.WithSessionAligner(wired.Store, wired.Offline))
	}
	if wired.Online != nil {
		opts = append(opts, orchestrator.WithPool(onlineresolver.NewPool(wired.Online, *workers, wired.Logger)))
	}

	orch := orchestrator.New(wired.Dispatcher, orchestrator.Config{
		Workers:            *workers,
		CheckpointInterval: *checkpointInterval,
		CheckpointPath:     *checkpointPath,
	}, opts...)

	// SIGINT/SIGTERM triggers the Orchestrator's bounded cancel() path
	// rather than an abrupt process kill, per spec.md §5 "Cancellation".
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("batch: received interrupt, cancelling run (checkpoint preserved)")
		orch.Cancel()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcherTracks := make([]dispatcher.Track, len(tracks))
	for i, t := range tracks {
		dispatcherTracks[i] = dispatcher.Track{Title: t.Title, ArtistHint: t.ArtistHint, AlbumHint: t.AlbumHint, DurationMs: t.DurationMs}
	}

	result, err := orch.Run(ctx, dispatcherTracks, func(e orchestrator.ProgressEvent) {
		log.Printf("batch: %d/%d resolved=%d cached=%d rate_limited=%d failed=%d eta=%s",
			e.ProcessedCount, e.TotalCount, e.Buckets.Resolved, e.Buckets.Cached, e.Buckets.RateLimited, e.Buckets.Failed, e.ETA.Round(time.Second))
	})
	if err != nil {
		log.Fatalf("batch: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for i, outcome := range result.Outcomes {
		enc.Encode(jsonResult{
			Title: dispatcherTracks[i].Title, ArtistName: outcome.Resolution.ArtistName,
			ReleaseName: outcome.Resolution.ReleaseName, Confidence: string(outcome.Resolution.Confidence),
			Provider: string(outcome.Resolution.Provider), Reason: outcome.Reason,
		})
	}

	log.Printf("batch: done run=%s state=%s resolved=%d cached=%d rate_limited=%d failed=%d",
		result.RunID, result.State, result.Buckets.Resolved, result.Buckets.Cached, result.Buckets.RateLimited, result.Buckets.Failed)
}

func readTracks(path string) ([]jsonTrack, error) {
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var tracks []jsonTrack
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var t jsonTrack
		if err := json.Unmarshal(line, &t); err != nil {
			return nil, fmt.Errorf("parsing line: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, scanner.Err()
}

// wiredCore holds every component buildDispatcher constructs, so batch mode
// can additionally wire the Online Resolver's pool and the Session Aligner
// around the same Dispatcher the one-shot search path uses.
type wiredCore struct {
	Dispatcher *dispatcher.Dispatcher
	Store      *offlinestore.Store
	Offline    *offlineresolver.Resolver
	Online     *onlineresolver.Client
	Cache      *mappingcache.Cache
	Logger     logging.Logger
}

func (w wiredCore) Close() {
	if w.Store != nil {
		w.Store.Close()
	}
	w.Cache.Close()
}

// buildDispatcher wires the Offline Store, Offline Resolver, Online
// Resolver, and Mapping Cache behind a Dispatcher, per spec.md §4.G. The
// Offline Store is optional: if it fails to open (e.g. not yet built),
// the Dispatcher falls back to online-only rather than failing the CLI.
// settings.json (spec.md §6) governs the provider policy, the resolver's
// starting mode, and the Online Resolver's configured rate limit.
func buildDispatcher(paths config.Paths) wiredCore {
	logger := logging.New("resolvecli")

	settings, err := config.LoadSettings(paths.SettingsPath())
	if err != nil {
		logger.Printf("loading settings, using defaults: %v", err)
		settings = config.DefaultSettings()
	}

	var offline *offlineresolver.Resolver
	var store *offlinestore.Store
	if s, err := offlinestore.Open(paths.OfflineStorePath(), logger); err != nil {
		logger.Printf("offline store unavailable, falling back to online-only: %v", err)
	} else {
		store = s
		offline = offlineresolver.New(store, logger)
		if settings.Mode == "high_accuracy" || settings.FuzzyEnabled {
			offline.SetMode(offlineresolver.ModeHighAccuracy)
		}
	}

	online := onlineresolver.NewClient(settings.RateLimitRPM, logger)
	cache := mappingcache.Open(paths.MappingStorePath(), logger)

	d := dispatcher.New(cache, offline, online, logger)
	dcfg := dispatcher.DefaultConfig()
	dcfg.Provider = dispatcher.Provider(settings.Provider)
	d.SetConfig(dcfg)

	return wiredCore{Dispatcher: d, Store: store, Offline: offline, Online: online, Cache: cache, Logger: logger}
}

// Session alignment's Resolver contract is satisfied directly by
// *offlineresolver.Resolver, so a batch run over same-album windows gets
// artist-credit alignment for free once the Offline Store is open.
var _ sessionaligner.Resolver = (*offlineresolver.Resolver)(nil)
