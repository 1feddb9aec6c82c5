package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"contentgrab/internal/artifact"
	"contentgrab/internal/orchestrator"
	"contentgrab/internal/platform/config"
	"contentgrab/internal/platform/logger"
	"contentgrab/internal/remote"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = config.Load()

	var (
		rawURL     = flag.String("url", "", "content URL to download (required)")
		format     = flag.String("format", string(orchestrator.DefaultFormat), "output format: mp4, mp3, webm, avi, mov")
		quality    = flag.String("quality", string(orchestrator.DefaultQuality), "output quality: 1080p, 720p, 480p, 360p, best")
		save       = flag.Bool("save", false, "save the finished file into ARTIFACT_DIR")
		out        = flag.String("out", "", "save the finished file into this directory")
		configFile = flag.String("config", config.GetEnv("CONFIG_FILE", ""), "YAML settings file")
	)
	flag.Parse()

	settings, err := config.LoadSettings(*configFile)
	log := logger.NewWithWriter(os.Stderr, "contentgrab", settings.LogLevel, "text")
	if err != nil {
		log.Error("load settings", "error", err)
		return 2
	}

	req := orchestrator.DownloadRequest{
		URL:     *rawURL,
		Format:  orchestrator.Format(*format),
		Quality: orchestrator.Quality(*quality),
	}.WithDefaults()
	if err := req.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "contentgrab:", err)
		flag.Usage()
		return 2
	}
	if w := orchestrator.PlatformWarning(req.URL); w != "" {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	client := remote.NewClient(remote.Config{
		BaseURL:  settings.API.BaseURL,
		Timeout:  settings.API.Timeout,
		RetryMax: settings.API.RetryMax,
	}, log)
	svc := orchestrator.NewService(client, orchestrator.NewInMemoryLedger(), orchestrator.Config{
		PollInterval:    settings.Poll.Interval,
		MaxPollAttempts: settings.Poll.MaxAttempts,
	}, log, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pending := svc.Submit(ctx, req)
	watch(ctx, svc)

	history := svc.ListHistory()
	if len(history) == 0 || history[0].ID != pending.ID {
		fmt.Fprintln(os.Stderr, "contentgrab: interrupted")
		return 130
	}

	rec := history[0]
	if rec.Status == orchestrator.StatusFailed {
		fmt.Fprintln(os.Stderr, "download failed:", rec.Error)
		return 1
	}
	fmt.Printf("%s\n%s\n", rec.Title, rec.DownloadURL)

	dir := *out
	if dir == "" && *save {
		dir = settings.ArtifactDir
	}
	if dir == "" {
		return 0
	}

	fetcher := artifact.NewFetcher(artifact.Config{Dir: dir}, log)
	res, err := fetcher.Fetch(ctx, artifact.Request{
		URL:  rec.DownloadURL,
		Name: artifact.FileName(rec.Title, string(rec.Format)),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "save failed:", err)
		return 1
	}
	fmt.Printf("saved %s (%d bytes)\n", res.Path, res.Size)
	return 0
}

// watch prints the current record's label whenever it changes, until the job
// is done or ctx is cancelled.
func watch(ctx context.Context, svc *orchestrator.Service) {
	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()

	last := ""
	for {
		select {
		case <-svc.Changes():
			cur, ok := svc.Current()
			if !ok {
				continue
			}
			if label := cur.StatusLabel(); label != last {
				fmt.Fprintln(os.Stderr, label)
				last = label
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}
