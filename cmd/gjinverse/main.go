package main

import (
	"context"
	"flag"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"

	"github.com/hnakamur/gjinverse"
	"github.com/hnakamur/gjinverse/matio"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/net/netutil"
	"k8s.io/klog/v2"
)

var defaults = gjinverse.DefaultConfig()

var (
	configPath = flag.String("config", "", "YAML config file; flags given on the command line override it")
	addr       = flag.String("addr", defaults.Addr, "http service address for remote workers")
	np         = flag.Int("np", defaults.Size, "number of ranks, including this coordinator")
	local      = flag.Bool("local", false, "run every rank in this process instead of waiting for remote workers")
	in         = flag.String("in", "", "input file (default stdin)")
	prec       = flag.Int("prec", defaults.Precision, "digits after the decimal point in the output")
	tolerance  = flag.Float64("tolerance", defaults.Tolerance, "fail when |pivot| <= tolerance; 0 disables the check")
	progress   = flag.Bool("progress", defaults.Progress, "show elimination progress on stderr")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if err := run(); err != nil {
		klog.ErrorS(err, "inversion failed")
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}

func loadConfig() (gjinverse.Config, error) {
	cfg := gjinverse.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = gjinverse.LoadConfig(*configPath); err != nil {
			return cfg, err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "np":
			cfg.Size = *np
		case "prec":
			cfg.Precision = *prec
		case "tolerance":
			cfg.Tolerance = *tolerance
		case "progress":
			cfg.Progress = *progress
		}
	})
	return cfg, cfg.Validate()
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var r io.Reader = os.Stdin
	if *in != "" {
		f, err := os.Open(*in)
		if err != nil {
			return errors.Wrap(err, "open input")
		}
		defer f.Close()
		r = f
	}
	a, err := matio.ReadMatrix(r)
	if err != nil {
		return err
	}
	m, err := gjinverse.NewAugmented(a)
	if err != nil {
		return err
	}

	opts := []gjinverse.Option{gjinverse.WithTolerance(cfg.Tolerance)}
	if cfg.Progress {
		bar := progressbar.NewOptions(m.N,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("eliminating"))
		opts = append(opts, gjinverse.WithRoundHook(func(rank, col, n int) {
			if rank == gjinverse.Coordinator {
				bar.Add(1)
			}
		}))
		defer bar.Finish()
	}

	if *local || cfg.Size == 1 {
		klog.V(1).InfoS("running local group", "n", m.N, "size", cfg.Size)
		m, err = gjinverse.RunLocal(ctx, m, cfg.Size, opts...)
	} else {
		m, err = runHub(ctx, cfg, m, opts)
	}
	if err != nil {
		return err
	}
	return matio.WriteMatrix(os.Stdout, m.Inverse(), cfg.Precision)
}

func runHub(ctx context.Context, cfg gjinverse.Config, m *gjinverse.Augmented, opts []gjinverse.Option) (*gjinverse.Augmented, error) {
	hub := gjinverse.NewHub(cfg.Size, cfg.Conn)
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go func() {
		if err := hub.Run(hubCtx); err != nil {
			klog.ErrorS(err, "error from hub.Run")
		}
	}()

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to listen")
	}
	// One slot per remote worker plus one for a rejected duplicate.
	ln = netutil.LimitListener(ln, cfg.Size)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			klog.ErrorS(err, "server stopped", "address", cfg.Addr)
		}
	}()
	defer srv.Close()

	klog.InfoS("server start listening", "address", ln.Addr().String(), "workers", cfg.Size-1, "runID", hub.RunID())
	if err := hub.WaitWorkers(ctx); err != nil {
		return nil, errors.Wrap(err, "wait for workers")
	}
	return gjinverse.Run(ctx, hub.Comm(), m, opts...)
}
