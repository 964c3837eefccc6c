package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rphilander/sigil"
	"github.com/rphilander/sigil/ext/sqlite"
)

func main() {
	sockPath := os.Getenv("SIGIL_SOCK")
	if sockPath == "" {
		sockPath = "/tmp/sigil.sock"
	}

	dir := os.Getenv("SIGIL_DIR")
	if dir == "" {
		dir = "."
	}

	var store *sqlite.Store
	newRoot := func() *sigil.Scope {
		root := sigil.Builtins()
		if store != nil {
			store.Close()
		}
		store = sqlite.Register(root)
		return root
	}

	srv, err := sigil.NewServer(dir, sockPath, newRoot)
	if err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	// Handle shutdown signals
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Println("shutting down...")
		srv.Shutdown()
		if store != nil {
			store.Close()
		}
		os.Exit(0)
	}()

	log.Printf("sigild listening (socket: %s, data dir: %s)", sockPath, dir)
	srv.Run()
}
