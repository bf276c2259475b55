package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"multisource-rag/internal/archive"
	"multisource-rag/internal/config"
	"multisource-rag/internal/embedding"
	"multisource-rag/internal/extractor"
	"multisource-rag/internal/llmservice"
	"multisource-rag/internal/models"
	"multisource-rag/internal/session"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	source := flag.String("source", "", "Initial source: URL (web page, YouTube) or document path")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	llm, err := llmservice.NewLLM(&cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM")
	}

	var store *archive.Store
	if cfg.Database.Enabled {
		store, err = archive.Connect(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to archive database")
		}
		defer store.Close()
		if err := store.Init(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("Error initializing archive database")
		}
	}

	var transcriber extractor.Transcriber
	if wc := extractor.NewWhisperClient(&cfg.Whisper); wc != nil {
		transcriber = wc
	}
	sess := session.New(cfg, extractor.New(transcriber), embedder, llm, store)

	ctx := context.Background()
	if *source != "" {
		if err := ingest(ctx, sess, *source); err != nil {
			log.Fatal().Err(err).Msg("Error processing source")
		}
	}

	runChat(ctx, sess)
}

func ingest(ctx context.Context, sess *session.Session, ref string) error {
	src, err := buildSource(ref)
	if err != nil {
		return err
	}
	fmt.Printf("Processing %s ...\n", src.Name)
	if err := sess.Ingest(ctx, src); err != nil {
		return err
	}
	fmt.Printf("Ready to chat with %s\n", src.Name)
	return nil
}

func buildSource(ref string) (extractor.Source, error) {
	kind := extractor.DetectKind(ref)
	if kind == extractor.KindDocument {
		data, err := os.ReadFile(ref)
		if err != nil {
			return extractor.Source{}, err
		}
		return extractor.Source{Kind: kind, Name: filepath.Base(ref), Data: data}, nil
	}
	return extractor.Source{Kind: kind, Name: ref, URL: ref}, nil
}

func runChat(ctx context.Context, sess *session.Session) {
	fmt.Println(`Type a question, "/source <url-or-path>" to switch sources, or "/quit" to exit.`)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		printSuggestions(sess)
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit", line == "/exit":
			return
		case strings.HasPrefix(line, "/source "):
			ref := strings.TrimSpace(strings.TrimPrefix(line, "/source "))
			if err := ingest(ctx, sess, ref); err != nil {
				log.Error().Err(err).Msg("Processing source failed")
			}
		default:
			ask(ctx, sess, line)
		}
	}
}

func ask(ctx context.Context, sess *session.Session, question string) {
	answer, err := sess.Ask(ctx, question, func(delta string) error {
		fmt.Print(delta)
		return nil
	})
	fmt.Println()
	if err != nil {
		log.Error().Err(err).Msg("Answering failed")
		return
	}
	if answer.Provenance == models.ProvenanceContext {
		printCitations(answer.Citations)
	}
}

func printCitations(citations []models.Chunk) {
	if len(citations) == 0 {
		return
	}
	fmt.Println("Sources:")
	seen := map[string]bool{}
	for _, c := range citations {
		ref := fmt.Sprintf("  %s (page %d)", c.Source, c.Page)
		if seen[ref] {
			continue
		}
		seen[ref] = true
		fmt.Println(ref)
	}
}

func printSuggestions(sess *session.Session) {
	suggestions := sess.Suggestions()
	if len(suggestions) == 0 {
		return
	}
	fmt.Println("Suggested questions:")
	for i, q := range suggestions {
		fmt.Printf("  %d. %s\n", i+1, q)
	}
}
