// Package settlementtest wires the shared ledger, wallet and notification
// services over an in-memory database for settlement service tests.
package settlementtest

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/settlement-engine/internal/ledger"
	"github.com/angelmondragon/settlement-engine/internal/notifications"
	"github.com/angelmondragon/settlement-engine/internal/wallet"
	"github.com/angelmondragon/settlement-engine/pkg/db"
	"github.com/angelmondragon/settlement-engine/pkg/db/dbtest"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
)

// Publisher captures published notification messages.
type Publisher struct {
	mu       sync.Mutex
	Messages []notifications.Message
	Err      error
}

func (p *Publisher) Publish(ctx context.Context, msg notifications.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, msg)
	return p.Err
}

func (p *Publisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Messages)
}

// Deps bundles the collaborators every settlement service depends on.
type Deps struct {
	Conn          *gorm.DB
	Client        *db.Client
	Ledger        ledger.Service
	Wallet        wallet.Service
	Notifications notifications.Service
	Publisher     *Publisher
	Logger        *logger.Logger
	LogOutput     *bytes.Buffer
	Now           func() time.Time
}

// Clock is the fixed instant settlement tests run at.
var Clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func New(t *testing.T) Deps {
	t.Helper()
	conn := dbtest.Open(t)
	out := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "settlement-test", Output: out})
	now := func() time.Time { return Clock }

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	walletSvc, err := wallet.NewService(wallet.NewRepository(conn))
	require.NoError(t, err)

	pub := &Publisher{}
	notifSvc, err := notifications.NewService(notifications.ServiceParams{
		Repo:      notifications.NewRepository(conn),
		Publisher: pub,
		Logger:    logg,
		Now:       now,
	})
	require.NoError(t, err)

	return Deps{
		Conn:          conn,
		Client:        db.FromConn(conn),
		Ledger:        ledgerSvc,
		Wallet:        walletSvc,
		Notifications: notifSvc,
		Publisher:     pub,
		Logger:        logg,
		LogOutput:     out,
		Now:           now,
	}
}
