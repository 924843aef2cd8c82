package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tibyan/pkg/config"
	"tibyan/pkg/services"
)

// Small utility to exercise the classifier gateway from a terminal.
// Texts come from args, or one per line on stdin when no args are
// given. Useful for checking a classifier deployment and for eyeballing
// the keyword fallback (run with -url pointed at a dead port).
func main() {
	url := flag.String("url", config.ClassifierURL, "classifier base URL")
	timeout := flag.Int("timeout", config.ClassifierTimeoutSeconds, "per-request timeout in seconds")
	flag.Parse()

	texts := flag.Args()
	if len(texts) == 0 {
		sc := bufio.NewScanner(os.Stdin)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			if line := sc.Text(); line != "" {
				texts = append(texts, line)
			}
		}
		if err := sc.Err(); err != nil {
			log.Fatalf("[classify] read stdin: %v", err)
		}
	}
	if len(texts) == 0 {
		fmt.Fprintln(os.Stderr, "usage: classify [flags] <text> [text...]  (or pipe one text per line)")
		os.Exit(2)
	}

	svc := services.NewSentimentService(services.SentimentOptions{
		BaseURL: *url,
		Timeout: time.Duration(*timeout) * time.Second,
	})
	defer svc.Close()

	start := time.Now()
	results := svc.BatchClassify(context.Background(), texts)
	elapsed := time.Since(start)

	for i, res := range results {
		fmt.Printf("%-10s %.2f  %-8s  %s\n", res.Label, res.Confidence, res.Source, texts[i])
	}
	fmt.Printf("%d texts in %s\n", len(texts), elapsed.Round(time.Millisecond))
}
