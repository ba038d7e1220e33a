package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"studio/internal/infra"
	"studio/internal/infra/credentials"
)

// envKeys maps a provider to the environment variable holding its key.
var envKeys = map[string]string{
	credentials.ProviderGemini:    "GEMINI_API_KEY",
	credentials.ProviderDashScope: "DASHSCOPE_API_KEY",
	credentials.ProviderPexels:    "PEXELS_API_KEY",
	credentials.ProviderMediaJobs: "MEDIAJOBS_API_KEY",
	credentials.ProviderTTS:       "TTS_API_KEY",
}

func main() {
	_ = godotenv.Load()

	var (
		keyFlag      string
		providerFlag string
		modelFlag    string
		listFlag     bool
		deleteFlag   bool
	)
	flag.StringVar(&keyFlag, "key", "", "API key for the selected provider (falls back to the environment)")
	flag.StringVar(&providerFlag, "provider", credentials.ProviderGemini, "provider to configure ("+strings.Join(credentials.Providers, ", ")+")")
	flag.StringVar(&modelFlag, "model", "", "optional model recorded with the key")
	flag.BoolVar(&listFlag, "list", false, "list stored providers")
	flag.BoolVar(&deleteFlag, "delete", false, "remove the stored key of -provider")
	flag.Parse()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fail("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fail("failed to create pool: %v", err)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "providerkey").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	if listFlag {
		if err := list(ctx, store); err != nil {
			fail("failed to list providers: %v", err)
		}
		return
	}

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	if !credentials.IsKnown(provider) {
		fail("unsupported provider %q", providerFlag)
	}

	if deleteFlag {
		existed, err := store.Delete(ctx, provider)
		if err != nil {
			fail("failed to delete %s api key: %v", provider, err)
		}
		if !existed {
			fmt.Printf("no %s API key was stored\n", strings.ToUpper(provider))
			return
		}
		fmt.Printf("%s API key removed\n", strings.ToUpper(provider))
		return
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv(envKeys[provider]))
	}
	if key == "" {
		fail("%s API key is required via -key or %s", strings.ToUpper(provider), envKeys[provider])
	}

	var props map[string]any
	if m := strings.TrimSpace(modelFlag); m != "" {
		props = map[string]any{"model": m}
	}
	if err := store.SetToken(ctx, provider, key, props); err != nil {
		fail("failed to persist %s api key: %v", provider, err)
	}
	fmt.Printf("%s API key stored successfully\n", strings.ToUpper(provider))
}

func list(ctx context.Context, store *credentials.Store) error {
	entries, err := store.List(ctx)
	if err != nil {
		return err
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Provider", "Model", "Env override", "Updated"})
	for _, e := range entries {
		override := ""
		if os.Getenv(envKeys[e.Provider]) != "" {
			override = envKeys[e.Provider]
		}
		tw.AppendRow(table.Row{e.Provider, e.Model, override, e.UpdatedAt.Format(time.RFC3339)})
	}
	tw.Render()
	return nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
