package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/adapter/a2ahttp"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/adapter/jwtauth"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/adapter/keyword"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/adapter/memory"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/adapter/probe"
	pgdb "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/adapter/postgres"
	pgaudit "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/adapter/postgres/audit"
	pgeventbus "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/adapter/postgres/eventbus"
	pghandshake "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/adapter/postgres/handshake"
	pglocker "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/adapter/postgres/locker"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/config"
	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/mesh"
	portaudit "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/audit"
	portauth "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/auth"
	porteventbus "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/eventbus"
	porthandshake "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/handshake"
	portlocker "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/locker"

	breakersvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/breaker"
	deliverysvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/delivery"
	healthsvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/health"
	routingsvc "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/service/routing"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/transport"
	a2atransport "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/transport/a2a"
	mcptransport "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/transport/mcp"
	meshtransport "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/transport/mesh"
)

// App holds the top-level resources needed to run and gracefully stop a node.
type App struct {
	Pool     *pgxpool.Pool
	Server   *http.Server
	Monitor  *healthsvc.Monitor
	Delivery *deliverysvc.Service
}

// Build is the composition root: the only place concrete types are wired to
// their interface dependencies. Postgres is optional; without DATABASE_URL
// the node runs on in-process adapters and loses only cross-node dedup and
// cross-process handshakes.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	table, err := routingsvc.NewTable(cfg.Nodes(), cfg.Edges())
	if err != nil {
		return nil, fmt.Errorf("building route table: %w", err)
	}

	// ── Storage-backed adapters ──────────────────────────────────────────────
	var (
		pool       *pgxpool.Pool
		eventBus   porteventbus.EventBus
		audit      portaudit.Recorder
		handshakes porthandshake.Store
		locker     portlocker.AdvisoryLocker
	)
	if cfg.Database.URL != "" {
		pool, err = pgdb.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := pgdb.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		eventBus = pgeventbus.New(pool)
		audit = pgaudit.New(pool)
		handshakes = pghandshake.New(pool)
		locker = pglocker.New(pool)
	} else {
		slog.Warn("DATABASE_URL not set, using in-process adapters")
		eventBus = memory.NewBus()
		audit = memory.NewAuditRecorder()
		handshakes = memory.NewHandshakeStore()
	}

	// ── Core services ────────────────────────────────────────────────────────
	peers := peersOf(cfg)
	peerIDs := make([]string, 0, len(peers))
	for _, p := range peers {
		peerIDs = append(peerIDs, p.ID)
	}

	circuitBreaker := breakersvc.New(peerIDs, eventBus, breakersvc.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Cooldown:         cfg.Breaker.Cooldown,
	})

	monitor := healthsvc.New(peers, probe.NewHTTP(cfg.Health.ProbeTimeout), eventBus, healthsvc.Config{
		Interval:         cfg.Health.Interval,
		ProbeTimeout:     cfg.Health.ProbeTimeout,
		FailureThreshold: cfg.Health.FailureThreshold,
	})

	engine := routingsvc.NewEngine(table, monitor, circuitBreaker, eventBus)

	var issuer portauth.TokenIssuer
	var verifier portauth.TokenVerifier
	if cfg.Auth.Secret != "" {
		authenticator := jwtauth.New(cfg.Auth.Secret, cfg.Node.ID, cfg.Auth.TokenTTL)
		issuer = authenticator
		verifier = authenticator
	}

	caller := a2ahttp.New(cfg.Node.ID, cfg.Delivery.CallTimeout, issuer)

	delivery := deliverysvc.NewService(
		engine,
		caller,
		circuitBreaker,
		monitor,
		audit,
		locker,
		handshakes,
		eventBus,
		deliverysvc.Config{
			CallTimeout: cfg.Delivery.CallTimeout,
			DedupWindow: cfg.Delivery.DedupWindow,
		},
	)

	reasoner := keyword.New(reasonerRules(cfg), cfg.Routing.DefaultReply)

	// ── Transport ────────────────────────────────────────────────────────────
	a2aHandler := a2atransport.NewHandler(cfg.Node.ID, reasoner, delivery, handshakes, table, caller)
	meshHandler := meshtransport.NewHandler(cfg.Node.ID, table, monitor, circuitBreaker, delivery)
	mcpServer := mcptransport.New(cfg.Node.ID, delivery, table, monitor, circuitBreaker)

	router := transport.NewRouter(ctx, a2aHandler, meshHandler, mcpServer, verifier, eventBus)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Node.Port),
		Handler: router,
	}

	slog.Info("node wired", "node_id", cfg.Node.ID, "port", cfg.Node.Port, "peers", len(peers))

	return &App{
		Pool:     pool,
		Server:   server,
		Monitor:  monitor,
		Delivery: delivery,
	}, nil
}

// peersOf lists every mesh node except this one; a node never probes itself.
func peersOf(cfg *config.Config) []mesh.Node {
	all := cfg.Nodes()
	peers := make([]mesh.Node, 0, len(all)-1)
	for _, n := range all {
		if n.ID != cfg.Node.ID {
			peers = append(peers, n)
		}
	}
	return peers
}

func reasonerRules(cfg *config.Config) []keyword.Rule {
	rules := make([]keyword.Rule, 0, len(cfg.Routing.Rules))
	for _, r := range cfg.Routing.Rules {
		rules = append(rules, keyword.Rule{Keywords: r.Keywords, Intent: r.Intent, Reply: r.Reply})
	}
	return rules
}
