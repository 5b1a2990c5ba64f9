package main

import (
	"context"
	"flag"
	"net/url"
	"os"
	"os/signal"

	"github.com/hnakamur/gjinverse"
	"github.com/hnakamur/gjinverse/worker"
	"k8s.io/klog/v2"
)

var defaults = gjinverse.DefaultConfig()

var (
	configPath = flag.String("config", "", "YAML config file; flags given on the command line override it")
	addr       = flag.String("addr", defaults.Addr, "coordinator address")
	rank       = flag.Int("rank", 1, "rank of this worker, in [1, np)")
	reconnect  = flag.Duration("reconnect-delay", defaults.Worker.DelayBeforeReconnecting, "delay before retrying to connect")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *rank < 1 {
		klog.ErrorS(gjinverse.ErrBadRank, "rank must be positive", "rank", *rank)
		klog.Flush()
		os.Exit(1)
	}

	cfg := gjinverse.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = gjinverse.LoadConfig(*configPath); err != nil {
			klog.ErrorS(err, "failed to load config")
			klog.Flush()
			os.Exit(1)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "reconnect-delay":
			cfg.Worker.DelayBeforeReconnecting = *reconnect
		}
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	u := url.URL{Scheme: "ws", Host: cfg.Addr, Path: "/ws"}
	w := worker.NewWorker(u, *rank, cfg.Worker)
	if err := w.Run(ctx); err != nil {
		klog.ErrorS(err, "error from Run", "rank", *rank)
		klog.Flush()
		os.Exit(1)
	}
	klog.InfoS("finished", "rank", *rank, "runID", w.RunID())
	klog.Flush()
}
