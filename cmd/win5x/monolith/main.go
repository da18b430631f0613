package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jbdekhoooff08512/Win5x/internal/config"
	gatewayHttp "github.com/jbdekhoooff08512/Win5x/internal/modules/gateway/adapter/http"
	gatewayAdapter "github.com/jbdekhoooff08512/Win5x/internal/modules/gateway/adapter/local"
	gatewayUseCase "github.com/jbdekhoooff08512/Win5x/internal/modules/gateway/usecase"
	"github.com/jbdekhoooff08512/Win5x/internal/modules/gateway/ws"
	walletModule "github.com/jbdekhoooff08512/Win5x/internal/modules/wallet"
	gmsLocal "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/adapter/local"
	gmsDomain "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/domain"
	gmsMachine "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/machine"
	gmsRepo "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/repository/db"
	gmsUseCase "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/usecase"
	gsLocal "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/adapter/local"
	gsDomain "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/domain"
	gsDB "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/repository/db"
	gsMemory "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/repository/memory"
	gsRedis "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/repository/redis"
	gsUseCase "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/usecase"
	"github.com/jbdekhoooff08512/Win5x/pkg/logger"
)

func main() {
	pprofPort := flag.String("pprof-port", "", "Port to run pprof server on (e.g., 6060)")
	background := flag.Bool("d", false, "Run in background mode (disable console logging)")
	flag.Parse()

	// If background is true, disable console logging (enableConsole = false)
	logger.InitWithFile("logs/win5x/monolith.log", "info", "json", !*background)
	defer logger.Flush()

	if *pprofPort != "" {
		go func() {
			addr := "localhost:" + *pprofPort
			logger.InfoGlobal().Str("addr", addr).Msg("📈 Starting pprof server")
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.ErrorGlobal().Err(err).Msg("Failed to start pprof server")
			}
		}()
	}

	fmt.Println("🚀 Starting Win5x Monolith... Logs are being written to logs/win5x/monolith.log (rotating)")
	logger.InfoGlobal().Msg("🎡 Starting Win5x Monolith...")

	// 1. Load Config
	cfg := config.LoadEngineConfig()

	// 2. Initialize Infrastructure
	db, err := gorm.Open(postgres.Open(cfg.Win5x.Database.DSN()), &gorm.Config{
		Logger: logger.NewGormLogger(),
	})
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to get database instance")
	}

	// Postgres default max_connections is usually 100; stay well below it.
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to ping database")
	}
	if err := db.AutoMigrate(&gmsDomain.GameRound{}, &gsDomain.BetOrder{}); err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to migrate schema")
	}
	logger.InfoGlobal().Msg("✅ Database connected")

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Win5x.Redis.Addr(),
	})
	defer rdb.Close()
	logger.InfoGlobal().Msg("✅ Redis connected")

	// 3. Initialize Modules

	// Wallet Module (Mock)
	walletSvc := walletModule.NewMockService()
	logger.InfoGlobal().Msg("✅ Wallet module initialized (Mock)")

	// Gateway Module (initialize early to get broadcast channel)
	wsManager := ws.NewManager(cfg.Gateway.WebSocket)
	go wsManager.Run()
	gatewayHandler := gatewayAdapter.NewHandler(wsManager)

	// Win5x Module (GMS + GS)
	logger.InfoGlobal().Msg("🎰 Initializing Win5x...")

	// GMS: selector, scheduler, round persistence
	selector := gmsDomain.NewSelector(gmsDomain.ZeroPolicy(cfg.Win5x.Game.ZeroPolicy))
	stateMachine := gmsMachine.NewStateMachine(selector)
	stateMachine.BettingDuration = cfg.Win5x.Game.BettingDuration
	stateMachine.PrepareDuration = cfg.Win5x.Game.SpinPreparationDuration
	stateMachine.SpinningDuration = cfg.Win5x.Game.SpinningDuration
	stateMachine.ResultDuration = cfg.Win5x.Game.ResultDuration
	stateMachine.WaitDuration = cfg.Win5x.Game.TransitionDuration

	gameRoundRepo := gmsRepo.NewGameRoundRepository(db)
	gmsUC := gmsUseCase.NewGMSUseCase(stateMachine, gatewayHandler, gameRoundRepo)
	gmsHandler := gmsLocal.NewHandler(gmsUC)
	logger.InfoGlobal().Msg("  ✅ GMS initialized")

	// GS: live bets, bet orders, settlement
	var betRepo gsDomain.BetRepository
	if cfg.Win5x.RepoType == "redis" {
		betRepo = gsRedis.NewBetRepository(rdb)
		logger.InfoGlobal().Msg("  ✅ GS Repository: Redis")
	} else {
		betRepo = gsMemory.NewBetRepository()
		logger.InfoGlobal().Msg("  ✅ GS Repository: Memory")
	}
	betOrderRepo := gsDB.NewBetOrderRepository(db)

	gsUC := gsUseCase.NewGSUseCase(
		betRepo, betOrderRepo, gmsHandler, walletSvc, gatewayHandler,
		cfg.Win5x.Game.MinBetAmount, cfg.Win5x.Game.MaxBetAmount, cfg.Win5x.Game.PayoutMultiplier,
	)
	gsHandler := gsLocal.NewHandler(gsUC)

	// GMS supplies the frozen distribution (same lock as RecordBet), GS
	// settles; setter injection closes the GS/GMS cycle.
	stateMachine.SetCollaborators(gmsUC, gsUC)
	gmsUC.SetSettler(gsUC)
	logger.InfoGlobal().Msg("  ✅ GS initialized")

	// 4. Crash recovery before the first round starts
	if err := gmsUC.Recover(context.Background()); err != nil {
		logger.FatalGlobal().Err(err).Msg("Recovery of unfinished rounds failed")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		stateMachine.Start(context.Background())
	}()
	logger.InfoGlobal().Msg("  ✅ Round scheduler started")

	// 5. Gateway UseCase + HTTP surface
	gatewayUC := gatewayUseCase.NewGatewayUseCase(gsHandler)
	gatewayHttpHandler := gatewayHttp.NewHandler(gatewayUC, wsManager, gmsHandler, gsHandler)
	logger.InfoGlobal().Msg("✅ Win5x ready")

	gatewayRouter := gin.New()
	gatewayRouter.Use(gin.Recovery())
	gatewayRouter.Use(logger.GinMiddleware())
	gatewayHttpHandler.RegisterRoutes(gatewayRouter)

	gatewayPort := cfg.Gateway.Server.Port

	gatewaySrv := &http.Server{
		Addr:    ":" + gatewayPort,
		Handler: gatewayRouter,
	}

	logger.InfoGlobal().
		Str("gateway_port", gatewayPort).
		Str("ws_url", fmt.Sprintf("ws://localhost:%s/ws?user_id=USER_ID", gatewayPort)).
		Msg("🚀 Win5x Monolith running")

	go func() {
		if err := gatewaySrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalGlobal().Err(err).Msg("Gateway server failed")
		}
	}()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.InfoGlobal().Msg("🛑 Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := gatewaySrv.Shutdown(ctx); err != nil {
		logger.ErrorGlobal().Err(err).Msg("Gateway server forced to shutdown")
	}

	// Stop the scheduler after the current round reaches a terminal state.
	logger.InfoGlobal().Msg("⏳ Waiting for current round to finish...")
	stateMachine.Stop()
	wg.Wait()

	logger.InfoGlobal().Msg("🔌 Closing all WebSocket connections...")
	wsManager.Shutdown()

	logger.InfoGlobal().Msg("👋 Server exited properly")
}
