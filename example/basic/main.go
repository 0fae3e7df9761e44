package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/PressFlow"
)

func main() {
	flow, err := pressflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sum, err := flow.Run(ctx)
	if err != nil {
		log.Fatalf("runtime exited: %v", err)
	}
	log.Printf("run finished: %d files, %d shots, %d documents stored", sum.Files, sum.Shots, sum.Result.Inserted)
}
