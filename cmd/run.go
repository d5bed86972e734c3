package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/eglochon/hubchat/config"
	"github.com/eglochon/hubchat/pkg/chat"
	"github.com/eglochon/hubchat/pkg/discovery"
	"github.com/spf13/cobra"
)

var (
	nameFlag string
	hidden   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Join the LAN and open the chat console",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), os.Stdin, cmd.OutOrStdout())
	},
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&nameFlag, "name", "", "display name to register before joining")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "browse without advertising this node")
}

func run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if self, err := discovery.NewSelfAddress(); err != nil {
		log.Warnf("failed to resolve local address: %v", err)
	} else {
		log.Infof("host %s at %s", self.Hostname, self.IP)
	}

	network := &chat.LAN{Options: discovery.Options{
		Service:       config.SERVICE_TYPE,
		MulticastAddr: config.MULTICAST_ADDR,
		Port:          config.SERVICE_PORT,
		Interval:      config.ANNOUNCE_INTERVAL,
		Loopback:      true,
	}}
	cfg := chat.DefaultConfig()
	cfg.SettleDelay = config.SETTLE_DELAY
	cfg.HeartbeatInterval = config.HEARTBEAT_INTERVAL
	cfg.InviteTimeout = config.INVITE_TIMEOUT

	engine := chat.New(cfg, network, profileStore())
	defer engine.Stop()

	if hidden {
		if err := engine.SetDiscoverable(false); err != nil {
			return err
		}
	}
	if err := engine.Start(); err != nil {
		return err
	}
	if nameFlag != "" {
		if err := engine.SetDisplayName(nameFlag); err != nil {
			return err
		}
	}

	updates, cancel := engine.Subscribe()
	defer cancel()

	c := newConsole(engine, out)
	c.banner()
	go c.follow(updates)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || c.exec(line) {
				return nil
			}
		}
	}
}
