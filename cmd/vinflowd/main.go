// vinflowd is the long-running vinflow daemon process. It owns the
// ledger database and serves the CLI over a Unix domain socket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"vinflow/internal/config"
	"vinflow/internal/daemonrun"
)

func main() {
	socketFlag := flag.String("socket", "", "Path to the control socket")
	configFlag := flag.String("config", "", "Configuration file path")
	logLevel := flag.String("log-level", "", "Override configured log level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	opts := daemonrun.Options{
		LogLevel:   *logLevel,
		SocketPath: *socketFlag,
	}
	if err := daemonrun.Run(context.Background(), cfg, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
