// coopdemo runs the classic coroutine ping-pong on one or more schedulers in
// parallel: a main context and a worker switch back and forth, sleep on host
// timers, wait for frames, and finally the worker is freed while parked.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"golang.org/x/sync/errgroup"

	"github.com/dispatchrun/coop"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	count := flag.Int("n", 1, "number of schedulers to run in parallel")
	verbosity := flag.Int("v", 0, "log verbosity")
	flag.Parse()

	cfg := coop.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = coop.LoadConfig(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *verbosity != 0 {
		cfg.Verbosity = *verbosity
	}
	commonlog.Configure(cfg.Verbosity, nil)

	var group errgroup.Group
	for i := 0; i < *count; i++ {
		id := i
		group.Go(func() error { return demo(id, cfg) })
	}
	if err := group.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func demo(id int, cfg coop.Config) error {
	s := coop.NewScheduler(coop.WithConfig(cfg))
	defer s.Close()

	return s.Run(func() {
		sub, err := s.New(worker(s, id), coop.WithName("worker"))
		if err != nil {
			say(id, "MAIN", "create worker: %v", err)
			return
		}

		say(id, "MAIN", "one")
		s.Switch(sub)
		say(id, "MAIN", "two")
		s.Switch(sub)
		say(id, "MAIN", "three, sleeping")
		s.Sleep(100 * time.Millisecond)
		say(id, "MAIN", "done sleeping")
		s.Switch(sub)
		say(id, "MAIN", "four")

		infos, err := coop.ParseSnapshot(s.Snapshot())
		if err != nil {
			say(id, "MAIN", "snapshot: %v", err)
			return
		}
		for _, info := range infos {
			say(id, "MAIN", "snapshot: coroutine %d %q %s", info.ID, info.Name, info.State)
		}

		// The worker is parked at its last switch and never resumed
		// again; freeing it unwinds it and releases its stack region.
		s.Free(sub)

		start := time.Now()
		say(id, "MAIN", "precise sleep 1ms")
		s.SleepPrecise(time.Millisecond)
		say(id, "MAIN", "done after %v", time.Since(start))
	})
}

func worker(s *coop.Scheduler, id int) func(any) {
	return func(any) {
		say(id, "CORO", "one")
		s.Switch(nil)
		say(id, "CORO", "two, sleeping")
		s.Sleep(100 * time.Millisecond)
		say(id, "CORO", "done sleeping, waiting for a frame")
		s.WaitFrame()
		s.Switch(nil)
		say(id, "CORO", "three")
		s.Switch(nil)
		say(id, "CORO", "never reached")
	}
}

func say(id int, who, format string, args ...any) {
	fmt.Printf("[%d %s] %s\n", id, who, fmt.Sprintf(format, args...))
}
