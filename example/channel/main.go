package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ghalamif/PressFlow"
)

func main() {
	flow, err := pressflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, batches, closeBatches := pressflow.NewChannelStore("fanout", 32)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fanoutWorker("ingest", batches)
	}()

	_, err = flow.Run(ctx, pressflow.StreamOutStore(pressflow.SharedOpener(store)))
	closeBatches()
	wg.Wait()
	if err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, batches <-chan pressflow.Batch) {
	for b := range batches {
		fmt.Printf("[%s] %d documents for %s at %s\n", name, len(b.Docs), b.Collection, time.Now().Format(time.RFC3339))
	}
}
