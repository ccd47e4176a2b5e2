package campaign

import (
	"math/big"
	"strings"
	"sync"
	"time"

	"campchain/core/events"
	"campchain/core/types"
)

// Registry enforces role-gated administrative mutation of campaign metadata.
// The owner edits name, schedule and nominal reward while the campaign is
// still unfunded; the manager controls the tax configuration at any time.
// The two roles are disjoint capability sets, not a hierarchy.
type Registry struct {
	st      State
	emitter events.Emitter
	nowFn   func() int64

	// mu serializes the read-modify-write update paths so concurrent
	// administrative calls cannot lose each other's writes.
	mu sync.Mutex
}

// NewRegistry creates a registry backed by the provided state manager.
func NewRegistry(st State) *Registry {
	return &Registry{
		st:      st,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetNowFunc overrides the time source used by the registry. Primarily
// intended for tests to provide deterministic timestamps.
func (r *Registry) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

func (r *Registry) emit(event *types.Event) {
	if r == nil || r.emitter == nil || event == nil {
		return
	}
	r.emitter.Emit(campaignEvent{evt: event})
}

func (r *Registry) now() uint64 {
	if r == nil || r.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	now := r.nowFn()
	if now < 0 {
		return 0
	}
	return uint64(now)
}

// Get retrieves a campaign by identifier.
func (r *Registry) Get(id CampaignID) (*Campaign, bool) {
	if r == nil || r.st == nil {
		return nil, false
	}
	c, err := loadCampaign(r.st, id)
	if err != nil {
		return nil, false
	}
	return c.Clone(), true
}

// UpdateName renames the campaign. Owner only, pre-funding.
func (r *Registry) UpdateName(id CampaignID, caller [20]byte, name string) error {
	if r == nil || r.st == nil {
		return ErrNilState
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := loadCampaign(r.st, id)
	if err != nil {
		return err
	}
	if err := Authorize(caller, RoleOwner, c.Owner); err != nil {
		return err
	}
	if c.Funded {
		return ErrAlreadyFunded
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrInvalidName
	}
	c.Name = trimmed
	if err := storeCampaign(r.st, c); err != nil {
		return err
	}
	r.emit(NewNameUpdatedEvent(c))
	return nil
}

// UpdateDates reschedules the campaign. Owner only, pre-funding; the end time
// must be strictly in the future and not precede the start time.
func (r *Registry) UpdateDates(id CampaignID, caller [20]byte, start, end uint64) error {
	if r == nil || r.st == nil {
		return ErrNilState
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := loadCampaign(r.st, id)
	if err != nil {
		return err
	}
	if err := Authorize(caller, RoleOwner, c.Owner); err != nil {
		return err
	}
	if c.Funded {
		return ErrAlreadyFunded
	}
	if end <= r.now() {
		return ErrEndNotInFuture
	}
	if end < start {
		return ErrInvalidDates
	}
	c.StartTime = start
	c.EndTime = end
	if err := storeCampaign(r.st, c); err != nil {
		return err
	}
	r.emit(NewDatesUpdatedEvent(c))
	return nil
}

// UpdateRewardAmount edits the nominal reward. Owner only, and only while the
// campaign has neither started nor been funded; funding freezes the economics.
func (r *Registry) UpdateRewardAmount(id CampaignID, caller [20]byte, amount *big.Int) error {
	if r == nil || r.st == nil {
		return ErrNilState
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := loadCampaign(r.st, id)
	if err != nil {
		return err
	}
	if err := Authorize(caller, RoleOwner, c.Owner); err != nil {
		return err
	}
	if c.Funded || c.Started(r.now()) {
		return ErrRewardLocked
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	c.RewardAmount = amt
	if err := storeCampaign(r.st, c); err != nil {
		return err
	}
	r.emit(NewRewardUpdatedEvent(c))
	return nil
}

// SetTaxRecipient redirects the tax cut. Manager only, independent of the
// funding state.
func (r *Registry) SetTaxRecipient(id CampaignID, caller, recipient [20]byte) error {
	if r == nil || r.st == nil {
		return ErrNilState
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if recipient == ([20]byte{}) {
		return ErrZeroAddress
	}
	c, err := loadCampaign(r.st, id)
	if err != nil {
		return err
	}
	if err := Authorize(caller, RoleManager, c.Manager); err != nil {
		return err
	}
	c.TaxRecipient = recipient
	if err := storeCampaign(r.st, c); err != nil {
		return err
	}
	r.emit(NewTaxRecipientUpdatedEvent(c))
	return nil
}

// SetTaxRate adjusts the withholding rate. Manager only; a rate above 10000
// bps is rejected before the role check so it fails for every caller.
func (r *Registry) SetTaxRate(id CampaignID, caller [20]byte, bps uint32) error {
	if r == nil || r.st == nil {
		return ErrNilState
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if bps > 10_000 {
		return ErrTaxRateTooHigh
	}
	c, err := loadCampaign(r.st, id)
	if err != nil {
		return err
	}
	if err := Authorize(caller, RoleManager, c.Manager); err != nil {
		return err
	}
	c.TaxRateBps = bps
	if err := storeCampaign(r.st, c); err != nil {
		return err
	}
	r.emit(NewTaxRateUpdatedEvent(c))
	return nil
}
