package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/audit"
	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/channel"
	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/knowledge"
	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/lead"
	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/retrieval"
	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
	configx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/pkg/config"
	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/pkg/pgdb"
	qstashx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/pkg/qstash"
)

const (
	storeMemory   = "memory"
	storeUpstash  = "upstash"
	storeRedis    = "redis"
	storePostgres = "postgres"

	retrievalKeyword = "keyword"
	retrievalChroma  = "chroma"
)

// resources are shared connections opened once at startup.
type resources struct {
	db *bun.DB
}

func openResources(ctx context.Context, cfg AppConfig) (*resources, error) {
	res := &resources{}
	if cfg.StoreDriver == storePostgres || cfg.LeadsToPostgres {
		db, err := pgdb.Open(ctx, pgdb.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, err
		}
		res.db = db
	}
	return res, nil
}

func (r *resources) Close() {
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}
}

func buildStore(ctx context.Context, cfg AppConfig, res *resources) (statex.Store, error) {
	switch strings.ToLower(cfg.StoreDriver) {
	case storeMemory, "":
		return statex.NewMemoryStore(), nil
	case storeUpstash:
		upstashCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		return statex.NewUpstashRedisStore(*upstashCfg, statex.WithTTL(cfg.StateTTL), statex.WithKeyPrefix(cfg.StateKeyPrefix))
	case storeRedis:
		redisCfg := configx.MustNew[statex.RedisConfig]("REDIS")
		client, err := statex.NewRedisClient(*redisCfg)
		if err != nil {
			return nil, err
		}
		return statex.NewRedisStore(client, statex.WithTTL(cfg.StateTTL), statex.WithKeyPrefix(cfg.StateKeyPrefix))
	case storePostgres:
		store, err := statex.NewPostgresStore(res.db)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func loadDocuments(cfg AppConfig) ([]knowledge.Document, error) {
	base, err := knowledge.Load(cfg.KnowledgeBasePath)
	if err != nil {
		return nil, err
	}
	return base.Documents(), nil
}

func buildRetriever(cfg AppConfig) (contractx.Retriever, error) {
	switch strings.ToLower(cfg.RetrievalDriver) {
	case retrievalKeyword, "":
		docs, err := loadDocuments(cfg)
		if err != nil {
			return nil, err
		}
		return retrieval.NewKeywordRetriever(docs), nil
	case retrievalChroma:
		chromaCfg := configx.MustNew[retrieval.ChromaConfig]("CHROMA")
		embedCfg := configx.MustNew[retrieval.EmbedConfig]("EMBED")
		store, err := retrieval.NewChromaStore(*chromaCfg, *embedCfg)
		if err != nil {
			return nil, err
		}
		return retrieval.NewVectorRetriever(store, chromaCfg.MinScore)
	default:
		return nil, fmt.Errorf("unknown retrieval driver %q", cfg.RetrievalDriver)
	}
}

func seedKnowledge(ctx context.Context, cfg AppConfig) (int, error) {
	docs, err := loadDocuments(cfg)
	if err != nil {
		return 0, err
	}
	chromaCfg := configx.MustNew[retrieval.ChromaConfig]("CHROMA")
	embedCfg := configx.MustNew[retrieval.EmbedConfig]("EMBED")
	store, err := retrieval.NewChromaStore(*chromaCfg, *embedCfg)
	if err != nil {
		return 0, err
	}
	if chromaCfg.ResetOnSeed {
		if err := store.RemoveCollection(); err != nil {
			return 0, fmt.Errorf("reset collection: %w", err)
		}
		if store, err = retrieval.NewChromaStore(*chromaCfg, *embedCfg); err != nil {
			return 0, err
		}
	}
	return knowledge.Seed(ctx, store, docs)
}

func buildLeadSink(ctx context.Context, cfg AppConfig, res *resources) (contractx.LeadSink, error) {
	var sinks lead.MultiSink
	if cfg.LeadsCSVPath != "" {
		csvSink, err := lead.NewCSVSink(cfg.LeadsCSVPath, "channel", "sender_number", "profile_name")
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, csvSink)
	}
	if cfg.LeadsToPostgres {
		pgSink, err := lead.NewPostgresSink(res.db)
		if err != nil {
			return nil, err
		}
		if err := pgSink.Migrate(ctx); err != nil {
			return nil, err
		}
		sinks = append(sinks, pgSink)
	}
	if len(sinks) == 0 {
		return lead.LogSink{}, nil
	}
	return sinks, nil
}

func buildAudit(cfg AppConfig) (channel.Auditor, error) {
	if cfg.AuditDir == "" {
		return nil, nil
	}
	return audit.NewLogger(cfg.AuditDir)
}

func buildOutbound(cfg AppConfig) (contractx.Outbound, error) {
	if cfg.OutboundURL == "" {
		log.Warn().Msg("OUTBOUND_URL not set, replies are only logged")
		return channel.LogOutbound{}, nil
	}
	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	client, err := qstashx.NewClient(*qstashCfg)
	if err != nil {
		return nil, errors.Join(errors.New("outbound needs QSTASH_TOKEN"), err)
	}
	return channel.NewQStashOutbound(client, cfg.OutboundURL)
}
