package main

import (
	"context"
	"encoding/json"
	"flag"
	"math/rand"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"product-recommender/backend/internal/ai"
	"product-recommender/backend/internal/catalog"
	"product-recommender/backend/internal/config"
)

func main() {
	var (
		dataPath   = flag.String("data", "", "Catalog JSON file (env DATA_PATH)")
		price      = flag.String("price", "", "Price range preference, e.g. 0-50")
		promptOnly = flag.Bool("prompt-only", false, "Print the rendered prompt without calling the model")
		seed       = flag.Int64("seed", 0, "Seed for fallback sampling (0 = random)")
		categories multiFlag
		brands     multiFlag
		history    multiFlag
	)
	flag.Var(&categories, "category", "Preferred category (repeatable)")
	flag.Var(&brands, "brand", "Preferred brand (repeatable)")
	flag.Var(&history, "history", "Browsed product id (repeatable)")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		logrus.Fatalf("load .env: %v", err)
	}
	cfg := config.Load()
	logrus.SetLevel(cfg.LogLevel)
	if strings.TrimSpace(*dataPath) == "" {
		*dataPath = cfg.DataPath
	}

	loader := catalog.NewLoader(*dataPath)
	products, err := loader.LoadErr()
	if err != nil {
		logrus.WithError(err).WithField("data_path", loader.Path()).Warn("catalog unavailable, continuing with empty catalog")
		products = []catalog.Product{}
	}

	prefs := ai.Preferences{
		PriceRange: *price,
		Categories: categories,
		Brands:     brands,
	}

	if *promptOnly {
		prompt, err := ai.BuildPrompt(prefs, history, products)
		if err != nil {
			logrus.Fatalf("build prompt: %v", err)
		}
		os.Stdout.WriteString(prompt)
		return
	}

	var completer ai.Completer
	if client, err := ai.NewClient(cfg.AI); err == nil {
		completer = client
	} else {
		logrus.WithError(err).Info("model unavailable, using fallback selection")
	}

	var opts []ai.Option
	if *seed != 0 {
		opts = append(opts, ai.WithRand(rand.New(rand.NewSource(*seed))))
	}
	outcome := ai.NewPipeline(completer, opts...).Recommend(context.Background(), ai.Request{
		Preferences: prefs,
		History:     history,
		Products:    products,
	})

	fields := logrus.Fields{
		"branch":  outcome.Branch,
		"count":   outcome.Result.Count,
		"catalog": len(products),
	}
	if outcome.Err != nil {
		fields["reason"] = outcome.Err.Error()
	}
	logrus.WithFields(fields).Info("recommendation run complete")

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(outcome.Result); err != nil {
		logrus.Fatalf("write result: %v", err)
	}
}

type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *multiFlag) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*m = append(*m, part)
		}
	}
	return nil
}
