// Cross Cursors - LAN pointer sharing
// Mirrors pointer motion, clicks and scrolls onto follower machines, with a
// hot screen corner that summons cursor capture on the origin.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"crosscursors/internal/api"
	"crosscursors/internal/capture"
	"crosscursors/internal/config"
	"crosscursors/internal/corner"
	"crosscursors/internal/display"
	"crosscursors/internal/input"
	"crosscursors/internal/network"
	"crosscursors/internal/osutils"
	"crosscursors/internal/tray"
)

var (
	version     = "0.1.0"
	connectHost = flag.String("connect", "", "Run as follower: connect to this broadcaster host")
	port        = flag.Int("port", 0, "Port override for -connect (default from config)")
	serve       = flag.Bool("serve", false, "Start the event broadcaster even if disabled in config")
	listDisp    = flag.Bool("list", false, "List attached displays")
	showVer     = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("crosscursors version %s\n", version)
		return
	}

	if *listDisp {
		listDisplays()
		return
	}

	cfgMgr, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	if err := cfgMgr.Load(); err != nil {
		log.Printf("Warning: failed to load config: %v", err)
	}

	if *connectHost != "" {
		runFollower(cfgMgr, *connectHost, *port)
		return
	}

	runService(cfgMgr)
}

func listDisplays() {
	snap := display.Screens{}.Snapshot()
	if len(snap) == 0 {
		fmt.Println("No displays detected")
		return
	}
	fmt.Println("Attached Displays:")
	fmt.Println("------------------")
	for _, d := range snap {
		fmt.Printf("%s: %dx%d at (%d, %d)\n", d.Name, d.Width, d.Height, d.X, d.Y)
	}
}

// runFollower connects to a broadcaster and replays its events locally.
func runFollower(cfgMgr *config.Manager, host string, portFlag int) {
	cfg := cfgMgr.Get()
	p := cfg.ClientPort
	if portFlag > 0 {
		p = portFlag
	}

	log.Printf("Follower: connecting to %s:%d", host, p)

	done := make(chan struct{})
	readTimeout := time.Duration(cfg.PollIntervalMs) * time.Millisecond
	recv := network.NewReceiver(host, p, readTimeout, input.NewRobot(), display.Screens{})
	recv.OnStatus = func(status, message string) {
		log.Printf("Follower: %s: %s", status, message)
		if status != network.StatusConnected {
			// Connection loss is terminal for a session; exit and let the
			// operator or a supervisor restart.
			close(done)
		}
	}
	if err := recv.Start(); err != nil {
		log.Fatalf("Follower: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Println("Follower: shutting down...")
	case <-done:
	}
	recv.Stop()
}

// runService runs the origin side: broadcaster, cursor tracker, hot-corner
// watcher, status API and tray menu.
func runService(cfgMgr *config.Manager) {
	log.Println("Cross Cursors service starting...")
	cfg := cfgMgr.Get()
	screens := display.Screens{}

	apiServer := api.NewServer(cfgMgr, screens)
	if cfg.APIEnabled {
		go func() {
			if err := apiServer.Start(cfg.APIPort); err != nil {
				log.Printf("API server error: %v", err)
			}
		}()
	}

	broadcaster := network.NewBroadcaster(cfg.ServerBind, cfg.ServerPort)
	broadcaster.OnPeerChange = apiServer.PeerChanged

	interval := time.Duration(cfg.PollIntervalMs) * time.Millisecond
	tracker := capture.NewTracker(screens, input.CursorPos, interval)
	go func() {
		for ev := range tracker.Events() {
			broadcaster.Broadcast(ev)
		}
	}()

	t := tray.New("Cross Cursors", "Cross Cursors - LAN pointer sharing")

	startServer := func() {
		if runtime.GOOS == "windows" {
			go func() {
				if err := osutils.EnsureFirewallRule(cfg.ServerPort); err != nil {
					log.Printf("Firewall warning: %v", err)
				}
			}()
		}
		if err := broadcaster.Start(); err != nil {
			log.Printf("Broadcaster error: %v", err)
		}
	}

	startSharing := func() {
		tracker.Start()
		apiServer.SetSharing(true)
		t.SetChecked("Share Cursor", true)
	}
	stopSharing := func() {
		tracker.Stop()
		apiServer.SetSharing(false)
		t.SetChecked("Share Cursor", false)
	}

	watcher := corner.NewWatcher(screens, input.CursorPos)
	watcher.SetThreshold(cfg.CornerSize)
	watcher.SetPosition(display.Corner(cfg.CornerPosition))
	watcher.SetTargetDisplay(cfg.CornerScreen)
	watcher.SetEnabled(cfg.CornerEnabled)
	watcher.OnEnter = func() {
		apiServer.CornerTriggered()
		if !tracker.Running() {
			startSharing()
		}
	}
	watcher.Start()

	// Re-apply corner settings when the config changes via the API.
	cfgMgr.RegisterChangeCallback(func() {
		c := cfgMgr.Get()
		watcher.SetThreshold(c.CornerSize)
		watcher.SetPosition(display.Corner(c.CornerPosition))
		watcher.SetTargetDisplay(c.CornerScreen)
		watcher.SetEnabled(c.CornerEnabled)
		t.SetChecked("Hot Corner", c.CornerEnabled)
	})

	if cfg.ServerEnabled || *serve {
		startServer()
	}

	t.AddToggle("Serve Events", cfg.ServerEnabled || *serve, func(on bool) {
		if on {
			startServer()
		} else {
			stopSharing()
			broadcaster.Stop()
		}
	})
	t.AddToggle("Share Cursor", false, func(on bool) {
		if on {
			startSharing()
		} else {
			stopSharing()
		}
	})
	t.AddToggle("Hot Corner", cfg.CornerEnabled, func(on bool) {
		watcher.SetEnabled(on)
		c := cfgMgr.Get()
		c.CornerEnabled = on
		if err := cfgMgr.Save(); err != nil {
			log.Printf("Failed to save config: %v", err)
		}
	})
	t.AddSeparator()
	t.AddItem("Quit", func() {
		t.Stop()
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		t.Stop()
	}()

	log.Println("Cross Cursors service running. Press Ctrl+C to stop.")
	t.Run()

	watcher.Stop()
	tracker.Stop()
	broadcaster.Stop()
}
