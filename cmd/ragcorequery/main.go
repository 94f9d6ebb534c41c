package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"ragcore/internal/appwiring"
	"ragcore/internal/config"
	"ragcore/internal/rag/answer"
)

func main() {
	log.SetFlags(0)
	var (
		question = flag.String("q", "", "question to ask (use -stdin to read it from STDIN instead)")
		stdin    = flag.Bool("stdin", false, "read the question from STDIN")
		model    = flag.String("model", "", "explicit provider id to prefer (primary|fallback|emergency)")
		topK     = flag.Int("topk", 0, "override the number of chunks retrieved (0 = config default)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	app, err := appwiring.Build(cfg)
	if err != nil {
		log.Fatalf("wire application: %v", err)
	}
	if app.Shutdown != nil {
		defer app.Shutdown(context.Background())
	}

	q := *question
	if *stdin {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("read stdin: %v", err)
		}
		q = strings.TrimSpace(string(b))
	}
	if q == "" {
		log.Fatal("no question provided; use -q or -stdin")
	}

	resp, err := app.Service.Answer(context.Background(), answer.Request{
		Question: q,
		Model:    *model,
		TopK:     *topK,
	})
	if err != nil {
		log.Fatalf("answer: %v", err)
	}

	printResponse(resp)
}

func printResponse(resp answer.Response) {
	if resp.Refused {
		fmt.Println("refused: confidence below threshold, no answer synthesized")
		fmt.Printf("confidence: %.3f\n", resp.Confidence)
		return
	}
	fmt.Println(resp.Answer)
	fmt.Println()
	fmt.Printf("model: %s   confidence: %.3f   cost: $%.5f\n", resp.ModelUsed, resp.Confidence, resp.CostUSD)
	if len(resp.Sources) == 0 {
		return
	}
	fmt.Println("sources:")
	for i, s := range resp.Sources {
		fmt.Printf("  [S%d] chunk_id=%s doc_id=%s score=%.3f\n", i+1, s.ChunkID, s.DocID, s.RelevanceScore)
	}
}
