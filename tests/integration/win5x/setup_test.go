package win5x_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	gmsLocal "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/adapter/local"
	gmsDomain "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/domain"
	gmsMachine "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/machine"
	gmsRepo "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/repository/db"
	gmsUseCase "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gms/usecase"
	gsLocal "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/adapter/local"
	gsDomain "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/domain"
	gsDB "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/repository/db"
	gsMemory "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/repository/memory"
	gsUseCase "github.com/jbdekhoooff08512/Win5x/internal/modules/win5x/gs/usecase"
	"github.com/jbdekhoooff08512/Win5x/internal/modules/wallet"
	"github.com/jbdekhoooff08512/Win5x/pkg/logger"
	"github.com/jbdekhoooff08512/Win5x/pkg/service"
	"github.com/jbdekhoooff08512/Win5x/pkg/service/win5x"
)

func init() {
	// Init logger for all tests in this package
	logger.Init(logger.Config{Level: "debug", Format: "console"})
}

// TestBroadcaster captures pushed events so tests can assert on them.
type TestBroadcaster struct {
	mu     sync.Mutex
	events []service.Event
	ch     chan service.Event
}

func NewTestBroadcaster() *TestBroadcaster {
	return &TestBroadcaster{ch: make(chan service.Event, 200)}
}

func (b *TestBroadcaster) Broadcast(ctx context.Context, gameCode string, event service.Event) {
	b.record(event)
}

func (b *TestBroadcaster) SendToUser(ctx context.Context, userID int64, gameCode string, event service.Event) {
	b.record(event)
}

func (b *TestBroadcaster) record(event service.Event) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
	select {
	case b.ch <- event:
	default:
	}
}

func (b *TestBroadcaster) All() []service.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]service.Event, len(b.events))
	copy(out, b.events)
	return out
}

// WaitFor blocks until an event with the given wire name arrives.
func (b *TestBroadcaster) WaitFor(t *testing.T, name string) service.Event {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case event := <-b.ch:
			if event.EventName() == name {
				return event
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q event", name)
		}
	}
}

var dbSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A named shared in-memory database, one per test: plain ":memory:"
	// would give every pooled connection its own empty schema.
	dsn := fmt.Sprintf("file:win5x_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := db.AutoMigrate(&gmsDomain.GameRound{}, &gsDomain.BetOrder{}); err != nil {
		t.Fatalf("migrating schema: %v", err)
	}
	return db
}

// engine is a fully wired game stack over sqlite and the mock wallet.
type engine struct {
	machine     *gmsMachine.StateMachine
	gmsUC       *gmsUseCase.GMSUseCase
	gsUC        *gsUseCase.GSUseCase
	gms         win5x.GMSService
	gs          win5x.GSService
	wallet      *wallet.MockService
	broadcaster *TestBroadcaster
	roundRepo   *gmsRepo.GameRoundRepository
	orderRepo   *gsDB.BetOrderRepository
	db          *gorm.DB
}

// newEngine wires the whole stack the way the monolith main does, with phase
// durations short enough for full rounds inside a test.
func newEngine(t *testing.T, bettingDuration time.Duration) *engine {
	t.Helper()
	db := newTestDB(t)
	broadcaster := NewTestBroadcaster()
	walletSvc := wallet.NewMockService()

	stateMachine := gmsMachine.NewStateMachine(gmsDomain.NewSelector(gmsDomain.ZeroPolicyCount))
	stateMachine.BettingDuration = bettingDuration
	stateMachine.PrepareDuration = 30 * time.Millisecond
	stateMachine.SpinningDuration = 30 * time.Millisecond
	stateMachine.ResultDuration = 30 * time.Millisecond
	stateMachine.WaitDuration = 20 * time.Millisecond
	stateMachine.SettleBackoff = time.Millisecond

	roundRepo := gmsRepo.NewGameRoundRepository(db)
	gmsUC := gmsUseCase.NewGMSUseCase(stateMachine, broadcaster, roundRepo)
	gmsHandler := gmsLocal.NewHandler(gmsUC)

	orderRepo := gsDB.NewBetOrderRepository(db)
	gsUC := gsUseCase.NewGSUseCase(gsMemory.NewBetRepository(), orderRepo, gmsHandler, walletSvc, broadcaster, 10, 5000, 5)
	gsHandler := gsLocal.NewHandler(gsUC)

	stateMachine.SetCollaborators(gmsUC, gsUC)
	gmsUC.SetSettler(gsUC)

	return &engine{
		machine:     stateMachine,
		gmsUC:       gmsUC,
		gsUC:        gsUC,
		gms:         gmsHandler,
		gs:          gsHandler,
		wallet:      walletSvc,
		broadcaster: broadcaster,
		roundRepo:   roundRepo,
		orderRepo:   orderRepo,
		db:          db,
	}
}

// start runs the scheduler and returns a stop function that waits for it.
func (e *engine) start(t *testing.T) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.machine.Start(ctx)
		close(done)
	}()
	return func() {
		e.machine.Stop()
		cancel()
		<-done
	}
}

func (e *engine) balances(t *testing.T, userID int64) map[service.Wallet]int64 {
	t.Helper()
	balances, err := e.wallet.GetBalances(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetBalances: %v", err)
	}
	return balances
}
