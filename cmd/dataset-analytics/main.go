package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/cognicore/relief/pkg/relief/analytics"
	"github.com/cognicore/relief/pkg/relief/config"
	"github.com/cognicore/relief/pkg/relief/ingest"
	"github.com/cognicore/relief/pkg/relief/store"
	"github.com/cognicore/relief/pkg/relief/store/sqlite"
)

type report struct {
	TotalDocs      int64           `json:"total_docs"`
	DistinctTerms  int             `json:"distinct_terms"`
	EmptyDocs      int             `json:"empty_docs"`
	StopwordPolicy string          `json:"stopword_policy"`
	Categories     []categoryEntry `json:"categories"`
	TopTerms       []termEntry     `json:"top_terms"`
}

type categoryEntry struct {
	Name      string  `json:"name"`
	Positives int     `json:"positives"`
	Rate      float64 `json:"rate"`
}

type termEntry struct {
	Token     string  `json:"token"`
	TF        int64   `json:"tf"`
	DFPercent float64 `json:"df_percent"`
	IDF       float64 `json:"idf"`
}

func main() {
	var (
		dbPath     = flag.String("db", "", "Database path (required)")
		table      = flag.String("table", store.DefaultTable, "Table holding the messages")
		configPath = flag.String("config", "", "Training config YAML (optional)")
		top        = flag.Int("top", 20, "Number of most frequent terms to list")
	)
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("--db required")
	}

	ctx := context.Background()

	cfg := config.DefaultTraining()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadTraining(*configPath); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	loader, err := cfg.Loader()
	if err != nil {
		log.Fatalf("tokenizer settings: %v", err)
	}
	components, err := loader.Load()
	if err != nil {
		log.Fatalf("load tokenizer: %v", err)
	}

	st, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer st.Close()

	ds, err := st.LoadDataset(ctx, *table)
	if err != nil {
		log.Fatalf("load dataset: %v", err)
	}

	out, err := json.MarshalIndent(buildReport(ds, components.Tokenizer, *top), "", "  ")
	if err != nil {
		log.Fatalf("marshal report: %v", err)
	}
	fmt.Println(string(out))
}

// buildReport summarizes label balance and the term statistics the feature
// pipeline would see.
func buildReport(ds store.Dataset, tok *ingest.Tokenizer, top int) report {
	analyzer := analytics.NewAnalyzer()
	empty := 0
	for _, msg := range ds.Messages {
		tokens := tok.Tokenize(msg)
		if len(tokens) == 0 {
			empty++
		}
		analyzer.Process(tokens)
	}
	stats := analyzer.Snapshot()

	r := report{
		TotalDocs:      stats.TotalDocs,
		DistinctTerms:  len(stats.TokenTF),
		EmptyDocs:      empty,
		StopwordPolicy: tok.Policy().String(),
	}

	for j, name := range ds.Categories {
		pos := 0
		for _, row := range ds.Labels {
			if row[j] == 1 {
				pos++
			}
		}
		entry := categoryEntry{Name: name, Positives: pos}
		if len(ds.Labels) > 0 {
			entry.Rate = float64(pos) / float64(len(ds.Labels))
		}
		r.Categories = append(r.Categories, entry)
	}

	for _, token := range stats.TopTerms(top) {
		entry := termEntry{Token: token, TF: stats.TokenTF[token], IDF: stats.SmoothIDF(token)}
		if stats.TotalDocs > 0 {
			entry.DFPercent = 100 * float64(stats.TokenDF[token]) / float64(stats.TotalDocs)
		}
		r.TopTerms = append(r.TopTerms, entry)
	}
	return r
}
