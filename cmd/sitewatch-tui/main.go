package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
	"github.com/MrSnakeDoc/sitewatch/internal/poller"
	"github.com/MrSnakeDoc/sitewatch/internal/probe"
	"github.com/MrSnakeDoc/sitewatch/internal/tui"
	"github.com/MrSnakeDoc/sitewatch/internal/version"
)

func main() {
	siteURL := flag.String("url", "", "WordPress base URL running the status plugin")
	token := flag.String("token", os.Getenv("SITEWATCH_TOKEN"), "status plugin token (default $SITEWATCH_TOKEN)")
	name := flag.String("name", "", "display name (default: URL host)")
	server := flag.String("server", "", "probe through a sitewatch server, e.g. http://localhost:8080")
	interval := flag.Duration("interval", time.Second, "probe interval")
	capacity := flag.Int("capacity", 60, "history bins")
	timeout := flag.Duration("timeout", probe.DefaultTimeout, "probe timeout")
	logLevel := flag.String("log-level", "info", "headless log level")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	u, err := url.Parse(*siteURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		log.Fatalf("❌ -url must be an http(s) URL, got %q", *siteURL)
	}
	if *capacity <= 0 || *interval <= 0 {
		log.Fatal("❌ -interval and -capacity must be positive")
	}
	if *name == "" {
		*name = u.Hostname()
	}

	headless := !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())

	// zap output would tear the alt screen
	loggerClient := logger.Nop()
	if headless {
		loggerClient = logger.New(*logLevel, false)
	}
	defer func() { _ = loggerClient.Sync() }()

	var prober probe.Prober = probe.NewHTTPProber(*timeout, loggerClient)
	if *server != "" {
		prober = probe.NewProxyProber(strings.TrimRight(*server, "/")+"/api/check-status", *timeout, loggerClient)
	}

	site := domain.MonitoredSite{
		Slug:       domain.Slugify(*name),
		ClientSlug: "local",
		Name:       *name,
		URL:        *siteURL,
		Token:      *token,
	}
	loop := poller.NewSiteLoop(site, prober, loggerClient, poller.SiteLoopConfig{
		Interval:      *interval,
		Capacity:      *capacity,
		TrackDowntime: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := loop.Start(ctx); err != nil {
		log.Fatalf("❌ failed to start poll loop: %v", err)
	}
	defer loop.Stop()

	if headless {
		loggerClient.Info("sitewatch-tui running headless",
			logger.String("url", *siteURL),
			logger.Duration("interval", *interval))
		tui.RunHeadless(ctx, loop, loggerClient)
		return
	}

	p := tea.NewProgram(tui.NewModel(loop), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		fmt.Printf("Error: %v\n", err)
	}
}
