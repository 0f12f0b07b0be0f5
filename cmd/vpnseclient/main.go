package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vpnse/controller"
	"vpnse/logging"
	"vpnse/settings"
	"vpnse/tunadapter"

	"golang.zx2c4.com/wireguard/tun"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("interrupt received, shutting down")
		cancel()
	}()

	logger := logging.NewLogLogger()

	cfg, err := settings.NewManager(nil).Read()
	if err != nil {
		log.Fatalf("read configuration: %v", err)
	}

	c := controller.New(*cfg, nil, logger)

	if err := c.Connect(ctx); err != nil {
		log.Fatalf("connect: %v", err)
	}
	if err := c.Authenticate(ctx, "", ""); err != nil {
		log.Fatalf("authenticate: %v", err)
	}

	dev, err := tun.CreateTUN("vpnse0", 1500)
	if err != nil {
		log.Fatalf("create TUN device: %v", err)
	}
	tunDevice := tunadapter.NewWireGuardTUN(dev)

	if err := c.StartTunnel(tunDevice); err != nil {
		log.Fatalf("start tunnel: %v", err)
	}
	log.Printf("tunneling to %s", cfg.Server.Hostname)

	// The controller tears itself down to Disconnected on its own if the
	// data plane fails fatally; poll for that alongside the signal-driven
	// shutdown path so a dead tunnel doesn't leave the process hanging.
	statusTicker := time.NewTicker(time.Second)
	defer statusTicker.Stop()
waitLoop:
	for {
		select {
		case <-ctx.Done():
			break waitLoop
		case <-statusTicker.C:
			if c.Status() == controller.Disconnected {
				log.Println("tunnel disconnected unexpectedly")
				break waitLoop
			}
		}
	}

	if err := c.StopTunnel(); err != nil {
		log.Printf("stop tunnel: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		log.Printf("disconnect: %v", err)
	}
}
