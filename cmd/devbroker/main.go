// Package main runs a standalone in-process Redis server for local
// development, so producer and consumer binaries have something to talk to
// without installing real Redis.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alicebob/miniredis/v2"
)

func main() {
	s := miniredis.NewMiniRedis()
	if err := s.StartAddr("127.0.0.1:6379"); err != nil {
		log.Fatalf("failed to start miniredis: %v", err)
	}
	defer s.Close()

	log.Printf("dev broker listening on %s", s.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("shutting down dev broker")
}
