package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
)

var statsMetrics = []string{
	"pressflow_files_processed_total",
	"pressflow_pending_files",
	"pressflow_shots_detected_total",
	"pressflow_documents_inserted_total",
	"pressflow_documents_failed_total",
	"pressflow_spool_size_bytes",
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Poll the Prometheus metrics endpoint and print live counters",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:9100/metrics", Usage: "Prometheus metrics endpoint"},
			&cli.DurationFlag{Name: "interval", Value: 2 * time.Second, Usage: "Refresh interval"},
		},
		Action: func(c *cli.Context) error {
			url := c.String("url")
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(c.Duration("interval"))
			defer ticker.Stop()

			fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", url)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := printMetricsSnapshot(ctx, url); err != nil {
						fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
					}
				}
			}
		},
	}
}

func printMetricsSnapshot(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	v, err := scrapeMetrics(resp.Body, statsMetrics)
	if err != nil {
		return err
	}
	fmt.Printf("[%s] files=%s pending=%s shots=%s inserted=%s failed=%s spool=%s\n",
		time.Now().Format(time.RFC3339),
		humanize.Comma(int64(v["pressflow_files_processed_total"])),
		humanize.Comma(int64(v["pressflow_pending_files"])),
		humanize.Comma(int64(v["pressflow_shots_detected_total"])),
		humanize.Comma(int64(v["pressflow_documents_inserted_total"])),
		humanize.Comma(int64(v["pressflow_documents_failed_total"])),
		humanize.Bytes(uint64(v["pressflow_spool_size_bytes"])),
	)
	return nil
}

// scrapeMetrics reads unlabelled samples of the named metrics from a
// Prometheus text exposition.
func scrapeMetrics(r io.Reader, names []string) (map[string]float64, error) {
	out := make(map[string]float64, len(names))
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, key := range names {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					out[key] = value
				}
			}
		}
	}
	return out, scanner.Err()
}
