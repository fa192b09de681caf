package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mathieudelehaye/network-chess-game/internal/logging"
	"github.com/mathieudelehaye/network-chess-game/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		ip         = flag.String("ip", "127.0.0.1", "TCP bind address")
		port       = flag.Int("port", 2000, "TCP bind port")
		local      = flag.Bool("local", false, "bind a Unix domain socket instead of TCP")
		socketPath = flag.String("socket", "/tmp/chess_server.sock", "Unix domain socket path, used with -local")
		parserKind = flag.String("parser", "simple", "move notation parser: simple or pgn")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.StringVar(ip, "i", *ip, "shorthand for -ip")
	flag.IntVar(port, "p", *port, "shorthand for -port")
	flag.BoolVar(verbose, "v", *verbose, "shorthand for -verbose")
	flag.Parse()

	log, err := logging.New(*verbose, "chess_server.log")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		return 2
	}
	defer log.Sync()

	log.Info("network-chess-game starting",
		zap.String("commit", commit),
		zap.String("build_date", buildDate),
		zap.String("parser", *parserKind),
	)

	srv := server.New(log, *parserKind)

	cfg := server.Config{
		IP:         *ip,
		Port:       *port,
		Local:      *local,
		SocketPath: *socketPath,
		ParserKind: *parserKind,
	}

	if err := srv.Start(cfg); err != nil {
		log.Error("failed to start server", zap.Error(err))
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	srv.Stop()

	return 0
}
