package main

import (
	"fmt"
	"log"
	"time"

	"hoadon/internal/config"
	"hoadon/internal/events"
	"hoadon/internal/extract"
	"hoadon/internal/gateway"
	"hoadon/internal/gateway/claude"
	"hoadon/internal/gateway/gemini"
	"hoadon/internal/gateway/openai"
	"hoadon/internal/handler"
	"hoadon/internal/normalize"
	"hoadon/internal/pdfrender"
	"hoadon/internal/port"
	"hoadon/internal/router"
	"hoadon/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registerProviders()

	client, err := buildModelClient(&cfg.Parser)
	if err != nil {
		return fmt.Errorf("failed to build model client: %w", err)
	}

	limiter := gateway.NewLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	gw := gateway.New(client, limiter, gateway.Config{
		MaxAttempts:     cfg.Parser.MaxAttempts,
		RetryBase:       time.Duration(cfg.Parser.RetryBaseSecs) * time.Second,
		MaxRequestBytes: cfg.Parser.MaxRequestBytes,
	})

	sink := events.LogSink{}
	orchestrator := extract.New(gw, sink, cfg.Parser.MaxTokens)
	normalizer := normalize.New(cfg.Upload.MaxFileSizeBytes, cfg.Upload.AllowedExtensions, pdfrender.New())

	jobs := service.NewJobRegistry()
	extractionSvc := service.NewExtractionService(normalizer, orchestrator, jobs, sink)

	extractH := handler.NewExtractHandler(extractionSvc, cfg.Upload.MaxFileSizeBytes)
	jobH := handler.NewJobHandler(extractionSvc)
	healthH := handler.NewHealthHandler()

	r := router.Setup(extractH, jobH, healthH, cfg.CORS.AllowedOrigins)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func registerProviders() {
	gateway.RegisterProvider("openai", func(cfg *config.ProviderConfig) (port.ModelClient, error) {
		return openai.NewClient(cfg), nil
	})
	gateway.RegisterProvider("claude", func(cfg *config.ProviderConfig) (port.ModelClient, error) {
		return claude.NewClient(cfg), nil
	})
	gateway.RegisterProvider("gemini", func(cfg *config.ProviderConfig) (port.ModelClient, error) {
		return gemini.NewClient(cfg), nil
	})
}

// buildModelClient assembles the provider chain. One configured provider is
// used directly; more than one is wrapped in a FallbackClient in priority
// order.
func buildModelClient(cfg *config.ParserConfig) (port.ModelClient, error) {
	var clients []port.ModelClient
	var names []string

	for _, pc := range []*config.ProviderConfig{cfg.PrimaryConfig(), cfg.SecondaryConfig(), cfg.TertiaryConfig()} {
		if pc == nil {
			continue
		}
		c, err := gateway.NewClient(pc)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
		names = append(names, pc.Provider)
	}

	switch len(clients) {
	case 0:
		return nil, fmt.Errorf("no model providers configured")
	case 1:
		return clients[0], nil
	default:
		log.Printf("model fallback chain: %v", names)
		return gateway.NewFallbackClient(clients, names), nil
	}
}
