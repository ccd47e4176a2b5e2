package campaign_test

import (
	"math/big"
	"testing"

	"campchain/core/events"
	"campchain/core/state"
	"campchain/native/campaign"
	"campchain/native/token"
	"campchain/storage"
)

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(e events.Event) {
	c.events = append(c.events, e)
}

func (c *capturingEmitter) typesSeen() []string {
	seen := make([]string, 0, len(c.events))
	for _, e := range c.events {
		seen = append(seen, e.EventType())
	}
	return seen
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

var (
	adminAddr   = addr(0xA0)
	managerAddr = addr(0xB0)
	ownerAddr   = addr(0xC0)
	taxAddr     = addr(0xD0)
)

type testEnv struct {
	mgr      *state.Manager
	token    *token.Ledger
	engine   *campaign.Engine
	registry *campaign.Registry
	dir      *campaign.Directory
}

// newTestEnv wires a full in-memory stack: state manager, reward token,
// engine, registry and a directory with a designated manager and 500 bps
// default tax routed to taxAddr. The clock is pinned to t=1000.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	mgr := state.NewManager(db)
	tok, err := token.NewLedger(mgr, "CMP")
	if err != nil {
		t.Fatalf("new token ledger: %v", err)
	}
	engine := campaign.NewEngine()
	engine.SetState(mgr)
	engine.SetAsset(tok)
	registry := campaign.NewRegistry(mgr)
	registry.SetNowFunc(func() int64 { return 1000 })
	dir, err := campaign.NewDirectory(mgr, adminAddr, campaign.Defaults{
		Token:        "CMP",
		TaxRecipient: taxAddr,
		TaxRateBps:   500,
	})
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}
	dir.SetNowFunc(func() int64 { return 1000 })
	if err := dir.SetManager(adminAddr, managerAddr); err != nil {
		t.Fatalf("set manager: %v", err)
	}
	return &testEnv{mgr: mgr, token: tok, engine: engine, registry: registry, dir: dir}
}

// createCampaign creates a campaign owned by ownerAddr starting at t=2000 and
// ending at t=3000.
func (env *testEnv) createCampaign(t *testing.T) *campaign.Campaign {
	t.Helper()
	c, err := env.dir.CreateCampaign(managerAddr, "spring contributor drive", 2000, 3000, big.NewInt(500), ownerAddr)
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return c
}

// fund mints the amount to the owner, approves the campaign vault and funds
// the campaign.
func (env *testEnv) fund(t *testing.T, id campaign.CampaignID, amount int64) {
	t.Helper()
	if err := env.token.Mint(ownerAddr, big.NewInt(amount)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := env.token.Approve(ownerAddr, campaign.VaultAddress(id), big.NewInt(amount)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := env.engine.Fund(id, ownerAddr, big.NewInt(amount)); err != nil {
		t.Fatalf("fund: %v", err)
	}
}

func (env *testEnv) balance(t *testing.T, a [20]byte) *big.Int {
	t.Helper()
	balance, err := env.token.BalanceOf(a)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return balance
}
