package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"multisource-rag/internal/config"
	"multisource-rag/internal/embedding"
	"multisource-rag/internal/extractor"
	"multisource-rag/internal/generator"
	"multisource-rag/internal/llmservice"
	"multisource-rag/internal/models"
	"multisource-rag/internal/session"
)

// evalItem is one question/ground-truth pair from the dataset file.
type evalItem struct {
	Question    string `yaml:"question"`
	GroundTruth string `yaml:"ground_truth"`
}

type result struct {
	item      evalItem
	answer    *models.Answer
	precision float64
	recall    float64
	f1        float64
	ctxRecall float64
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	configPath := flag.String("config", "./configs/config.yaml", "Path to the config file")
	sourcePath := flag.String("source", "", "Ground-truth document to ingest")
	datasetPath := flag.String("dataset", "", "YAML file with question/ground_truth pairs")
	flag.Parse()

	if *sourcePath == "" || *datasetPath == "" {
		log.Fatal().Msg("Both -source and -dataset are required")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	items, err := loadDataset(*datasetPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading dataset")
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	llm, err := llmservice.NewLLM(&cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM")
	}

	sess := session.New(cfg, extractor.New(nil), embedder, llm, nil)

	ctx := context.Background()
	data, err := os.ReadFile(*sourcePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading source document")
	}
	src := extractor.Source{
		Kind: extractor.KindDocument,
		Name: filepath.Base(*sourcePath),
		Data: data,
	}
	if err := sess.Ingest(ctx, src); err != nil {
		log.Fatal().Err(err).Msg("Error ingesting source")
	}

	results := make([]result, 0, len(items))
	for _, item := range items {
		// Every question is asked non-conversationally.
		sess.ClearHistory()

		answer, err := sess.Ask(ctx, item.Question, nil)
		if err != nil {
			log.Error().Err(err).Str("question", item.Question).Msg("Ask failed, skipping")
			continue
		}
		results = append(results, score(item, answer))
	}

	report(results)
}

func loadDataset(path string) ([]evalItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []evalItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}
	return items, nil
}

// score computes token-overlap metrics between the generated answer and the
// ground truth, plus how much of the ground truth is covered by the cited
// chunks. These stand in for LLM-judged faithfulness/relevancy metrics, which
// are outside this harness.
func score(item evalItem, answer *models.Answer) result {
	answerTokens := tokenize(stripMarker(answer.Text))
	truthTokens := tokenize(item.GroundTruth)

	overlap := overlapCount(answerTokens, truthTokens)
	precision := ratio(overlap, len(answerTokens))
	recall := ratio(overlap, len(truthTokens))

	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	var ctxTokens []string
	for _, c := range answer.Citations {
		ctxTokens = append(ctxTokens, tokenize(c.Content)...)
	}
	ctxRecall := ratio(overlapCount(ctxTokens, truthTokens), len(truthTokens))

	return result{item: item, answer: answer, precision: precision, recall: recall, f1: f1, ctxRecall: ctxRecall}
}

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

func tokenize(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}

func stripMarker(text string) string {
	trimmed := strings.TrimSpace(text)
	for _, marker := range []string{generator.ContextMarker, generator.GeneralMarker} {
		if strings.HasPrefix(trimmed, marker) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, marker))
		}
	}
	return trimmed
}

func overlapCount(a, b []string) int {
	set := make(map[string]struct{}, len(b))
	for _, t := range b {
		set[t] = struct{}{}
	}
	seen := make(map[string]struct{}, len(a))
	n := 0
	for _, t := range a {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := set[t]; ok {
			n++
		}
	}
	return n
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func report(results []result) {
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}

	var sumP, sumR, sumF, sumC float64
	fmt.Printf("%-60s %9s %9s %9s %9s %s\n", "question", "precision", "recall", "f1", "ctx-rec", "provenance")
	for _, r := range results {
		q := r.item.Question
		if len(q) > 57 {
			q = q[:57] + "..."
		}
		fmt.Printf("%-60s %9.3f %9.3f %9.3f %9.3f %s\n", q, r.precision, r.recall, r.f1, r.ctxRecall, r.answer.Provenance)
		sumP += r.precision
		sumR += r.recall
		sumF += r.f1
		sumC += r.ctxRecall
	}
	n := float64(len(results))
	fmt.Printf("%-60s %9.3f %9.3f %9.3f %9.3f\n", "AVERAGE", sumP/n, sumR/n, sumF/n, sumC/n)
}
