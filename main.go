package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/agents/specialist"
	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/channel"
	llmx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/llm"
	configx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/pkg/config"
	_ "github.com/tanpawarit/Chative-Lead-Qualification-Agent/pkg/logger/autoload"
	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/pkg/metrics"
)

type AppConfig struct {
	HTTPAddr          string        `envconfig:"HTTP_ADDR" default:":8080"`
	BrandName         string        `envconfig:"BRAND_NAME" default:"AutoStream"`
	CapabilityTimeout time.Duration `envconfig:"CAPABILITY_TIMEOUT" default:"30s"`
	LockTimeout       time.Duration `envconfig:"LOCK_TIMEOUT"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	ClassifierWindow  int           `envconfig:"CLASSIFIER_WINDOW" default:"10"`
	RetrievalTopK     int           `envconfig:"RETRIEVAL_TOP_K" default:"4"`

	StoreDriver       string        `envconfig:"STORE_DRIVER" default:"memory"`
	StateTTL          time.Duration `envconfig:"STATE_TTL" default:"168h"`
	StateKeyPrefix    string        `envconfig:"STATE_KEY_PREFIX" default:"leadqual:thread:"`
	RetrievalDriver   string        `envconfig:"RETRIEVAL_DRIVER" default:"keyword"`
	SeedOnStart       bool          `envconfig:"SEED_ON_START" default:"false"`
	KnowledgeBasePath string        `envconfig:"KNOWLEDGE_BASE_PATH" default:"data/knowledge_base.json"`
	LeadsCSVPath      string        `envconfig:"LEADS_CSV_PATH" default:"data/leads.csv"`
	LeadsToPostgres   bool          `envconfig:"LEADS_TO_POSTGRES" default:"false"`
	AuditDir          string        `envconfig:"AUDIT_DIR" default:"chat_logs"`
	DatabaseURL       string        `envconfig:"DATABASE_URL"`
	OutboundURL       string        `envconfig:"OUTBOUND_URL"`
	MetricsNamespace  string        `envconfig:"METRICS_NAMESPACE" default:"leadqual"`
}

var (
	seedOnly = flag.Bool("seed", false, "build the knowledge index and exit")
	usage    = flag.Bool("usage", false, "print the environment variables and exit")
)

func main() {
	flag.Parse()
	if *usage {
		printUsage()
		return
	}

	appCfg := configx.MustNew[AppConfig]("")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := openResources(ctx, *appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open resources")
	}
	defer res.Close()

	if *seedOnly {
		n, err := seedKnowledge(ctx, *appCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("seed failed")
		}
		log.Info().Int("documents", n).Msg("knowledge index seeded")
		return
	}
	if appCfg.SeedOnStart && appCfg.RetrievalDriver == retrievalChroma {
		if _, err := seedKnowledge(ctx, *appCfg); err != nil {
			log.Fatal().Err(err).Msg("seed on start failed")
		}
	}

	store, err := buildStore(ctx, *appCfg, res)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build state store")
	}
	retriever, err := buildRetriever(*appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build retriever")
	}

	llmCfg := configx.MustNew[llmx.Config]("LLM")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid llm config")
	}
	registry, err := specialist.NewRegistry(ctx, *llmCfg, specialist.Options{
		Brand:            appCfg.BrandName,
		ClassifierWindow: appCfg.ClassifierWindow,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build model registry")
	}

	orch, err := orchestrator.New(store, registry, retriever, orchestrator.Config{
		Brand:             appCfg.BrandName,
		TopK:              appCfg.RetrievalTopK,
		CapabilityTimeout: appCfg.CapabilityTimeout,
		LockTimeout:       appCfg.LockTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	leads, err := buildLeadSink(ctx, *appCfg, res)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build lead sink")
	}
	auditLog, err := buildAudit(*appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build audit log")
	}
	outbound, err := buildOutbound(*appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build outbound delivery")
	}

	api, err := channel.NewServer(orch, channel.Options{
		Leads:         leads,
		Audit:         auditLog,
		Outbound:      outbound,
		Metrics:       metrics.New(appCfg.MetricsNamespace, nil),
		Conversations: orch,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build http api")
	}

	httpServer := &http.Server{
		Addr:              appCfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().
			Str("addr", appCfg.HTTPAddr).
			Str("store", appCfg.StoreDriver).
			Str("retrieval", appCfg.RetrievalDriver).
			Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}
}

func printUsage() {
	if err := configx.Usage[AppConfig]("", os.Stdout); err != nil {
		log.Error().Err(err).Msg("usage")
	}
	if err := configx.Usage[llmx.Config]("LLM", os.Stdout); err != nil {
		log.Error().Err(err).Msg("usage")
	}
}
