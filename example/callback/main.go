package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/PressFlow/pkg/pressflow"
)

func main() {
	flow, err := pressflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Print shot metadata only; raw and cut-out documents are acknowledged
	// without being stored.
	callback := func(b pressflow.Batch) error {
		for _, doc := range b.Docs {
			if _, ok := doc["spm"]; !ok {
				continue
			}
			fmt.Printf("%s shot=%v start=%v samples=%v spm=%v\n",
				b.Collection, doc["shot_number"], doc["timestamp"], doc["num_of_samples_in_cut_out"], doc["spm"])
		}
		return nil
	}

	if _, err := flow.Run(ctx, pressflow.StreamOutCallback("stdout", callback)); err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}
