package campaign_test

import (
	"errors"
	"math/big"
	"testing"

	"campchain/core/state"
	"campchain/native/campaign"
	"campchain/storage"
)

func TestCreateCampaignRequiresDesignatedManager(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	dir, err := campaign.NewDirectory(state.NewManager(db), adminAddr, campaign.Defaults{Token: "CMP", TaxRecipient: taxAddr, TaxRateBps: 500})
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}
	dir.SetNowFunc(func() int64 { return 1000 })

	// No manager designated yet.
	_, err = dir.CreateCampaign(managerAddr, "drive", 2000, 3000, big.NewInt(100), ownerAddr)
	if !errors.Is(err, campaign.ErrManagerNotSet) {
		t.Fatalf("expected manager not set, got %v", err)
	}

	if err := dir.SetManager(adminAddr, managerAddr); err != nil {
		t.Fatalf("set manager: %v", err)
	}
	_, err = dir.CreateCampaign(ownerAddr, "drive", 2000, 3000, big.NewInt(100), ownerAddr)
	if !errors.Is(err, campaign.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for non-manager, got %v", err)
	}
	if _, err := dir.CreateCampaign(managerAddr, "drive", 2000, 3000, big.NewInt(100), ownerAddr); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestSetManagerOverwrites(t *testing.T) {
	env := newTestEnv(t)
	emitter := &capturingEmitter{}
	env.dir.SetEmitter(emitter)
	replacement := addr(0xB1)

	if err := env.dir.SetManager(managerAddr, replacement); !errors.Is(err, campaign.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for non-admin, got %v", err)
	}
	if err := env.dir.SetManager(adminAddr, [20]byte{}); !errors.Is(err, campaign.ErrZeroAddress) {
		t.Fatalf("expected zero address, got %v", err)
	}
	if err := env.dir.SetManager(adminAddr, replacement); err != nil {
		t.Fatalf("set manager: %v", err)
	}
	current, ok := env.dir.Manager()
	if !ok || current != replacement {
		t.Fatalf("expected manager replaced, got %x (ok=%v)", current, ok)
	}
	// Single active manager: the previous one loses the capability.
	_, err := env.dir.CreateCampaign(managerAddr, "drive", 2000, 3000, big.NewInt(100), ownerAddr)
	if !errors.Is(err, campaign.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for replaced manager, got %v", err)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType() != campaign.EventTypeManagerUpdated {
		t.Fatalf("expected one manager_updated event, got %v", emitter.typesSeen())
	}
}

func TestCreateCampaignCopiesDefaults(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCampaign(t)
	if c.Token != "CMP" {
		t.Fatalf("expected default token, got %q", c.Token)
	}
	if c.TaxRecipient != taxAddr || c.TaxRateBps != 500 {
		t.Fatalf("expected default tax config, got %x/%d", c.TaxRecipient, c.TaxRateBps)
	}
	if c.Manager != managerAddr {
		t.Fatalf("expected designated manager on campaign, got %x", c.Manager)
	}
	if c.Funded || c.Pool.Sign() != 0 || c.TotalScore != 0 {
		t.Fatalf("expected pristine economic state")
	}
}

func TestCreateCampaignValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		name    string
		start   uint64
		end     uint64
		owner   [20]byte
		wantErr error
	}{
		{"drive", 2000, 3000, [20]byte{}, campaign.ErrZeroAddress},
		{"   ", 2000, 3000, ownerAddr, campaign.ErrInvalidName},
		{"drive", 2000, 900, ownerAddr, campaign.ErrEndNotInFuture},
		{"drive", 4000, 3000, ownerAddr, campaign.ErrInvalidDates},
	}
	for _, tc := range cases {
		_, err := env.dir.CreateCampaign(managerAddr, tc.name, tc.start, tc.end, big.NewInt(100), tc.owner)
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("case %q: expected %v, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestDirectoryIndexes(t *testing.T) {
	env := newTestEnv(t)
	otherOwner := addr(0xC1)

	first, err := env.dir.CreateCampaign(managerAddr, "first", 2000, 3000, big.NewInt(100), ownerAddr)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := env.dir.CreateCampaign(managerAddr, "second", 2000, 3000, big.NewInt(100), ownerAddr)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	third, err := env.dir.CreateCampaign(managerAddr, "third", 2000, 3000, big.NewInt(100), otherOwner)
	if err != nil {
		t.Fatalf("create third: %v", err)
	}
	if first.ID == second.ID || second.ID == third.ID {
		t.Fatalf("expected distinct campaign IDs")
	}

	all, err := env.dir.ListCampaigns()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 campaigns, got %d", len(all))
	}
	count, err := env.dir.CampaignCount()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
	mine, err := env.dir.CampaignsByOwner(ownerAddr)
	if err != nil {
		t.Fatalf("by owner: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 campaigns for owner, got %d", len(mine))
	}
	theirs, err := env.dir.CampaignsByOwner(otherOwner)
	if err != nil {
		t.Fatalf("by owner: %v", err)
	}
	if len(theirs) != 1 || theirs[0] != third.ID {
		t.Fatalf("unexpected index for other owner: %v", theirs)
	}
	none, err := env.dir.CampaignsByOwner(addr(0xEE))
	if err != nil {
		t.Fatalf("by owner: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected empty index, got %d", len(none))
	}
}

func TestDirectoryRejectsInvalidDefaults(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	mgr := state.NewManager(db)
	if _, err := campaign.NewDirectory(mgr, [20]byte{}, campaign.Defaults{}); !errors.Is(err, campaign.ErrZeroAddress) {
		t.Fatalf("expected zero address admin rejection, got %v", err)
	}
	if _, err := campaign.NewDirectory(mgr, adminAddr, campaign.Defaults{TaxRateBps: 10_001}); !errors.Is(err, campaign.ErrTaxRateTooHigh) {
		t.Fatalf("expected tax rate rejection, got %v", err)
	}
}
