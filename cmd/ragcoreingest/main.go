package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"ragcore/internal/appwiring"
	"ragcore/internal/config"
	"ragcore/internal/docmodel"
)

func main() {
	log.SetFlags(0)
	var (
		path    = flag.String("file", "", "path to the document to ingest (use -stdin to read from STDIN instead)")
		stdin   = flag.Bool("stdin", false, "read the document body from STDIN")
		docType = flag.String("type", "", "override the detected document type (email|markdown|pdf|image|chat|generic)")
		gate    = flag.Bool("gate", false, "enable quality gating for this document")
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

	var raw []byte
	var filename string
	if *stdin {
		raw, err = io.ReadAll(os.Stdin)
		filename = "stdin"
	} else if *path != "" {
		raw, err = os.ReadFile(*path)
		filename = filepath.Base(*path)
	} else {
		log.Fatal("no input provided; use -file or -stdin")
	}
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	dt := docmodel.DocType(*docType)
	if dt == "" {
		dt = detectType(filename)
	}

	resp, err := app.Service.Ingest(context.Background(), raw, filename, dt, *gate)
	if err != nil {
		log.Fatalf("ingest: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any{
		"outcome":    resp.Outcome,
		"doc_id":     resp.DocID,
		"reason":     resp.Reason,
		"num_chunks": resp.NumChunks,
		"signalness": resp.Gate.Scores.Signalness,
	}); err != nil {
		log.Fatalf("encode: %v", err)
	}
}

func detectType(filename string) docmodel.DocType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return docmodel.DocTypeMarkdown
	case ".eml":
		return docmodel.DocTypeEmail
	case ".pdf":
		return docmodel.DocTypePDF
	case ".png", ".jpg", ".jpeg", ".gif":
		return docmodel.DocTypeImage
	default:
		return docmodel.DocTypeGeneric
	}
}
