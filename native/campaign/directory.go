package campaign

import (
	"bytes"
	"math/big"
	"sort"
	"sync"
	"time"

	"campchain/core/events"
	"campchain/core/types"
)

// Defaults carries the deployment-time configuration copied into every new
// campaign: the reward-asset symbol, the platform tax recipient and the tax
// rate in basis points.
type Defaults struct {
	Token        string
	TaxRecipient [20]byte
	TaxRateBps   uint32
}

// Directory authorizes campaign creation and indexes campaigns for lookup.
// The admin principal (fixed at construction) designates a single manager;
// only the designated manager may create campaigns. The directory holds a
// non-owning index over campaign IDs, never lifecycle control.
type Directory struct {
	st       State
	emitter  events.Emitter
	nowFn    func() int64
	admin    [20]byte
	defaults Defaults

	// mu serializes manager designation and campaign creation so the
	// sequence counter never hands out the same value twice.
	mu sync.Mutex
}

// NewDirectory creates a directory owned by the supplied admin principal.
func NewDirectory(st State, admin [20]byte, defaults Defaults) (*Directory, error) {
	if st == nil {
		return nil, ErrNilState
	}
	if admin == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	if defaults.TaxRateBps > 10_000 {
		return nil, ErrTaxRateTooHigh
	}
	return &Directory{
		st:       st,
		emitter:  events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
		admin:    admin,
		defaults: defaults,
	}, nil
}

// SetEmitter configures the event emitter used by the directory. Passing nil
// resets the emitter to a no-op implementation.
func (d *Directory) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		d.emitter = events.NoopEmitter{}
		return
	}
	d.emitter = emitter
}

// SetNowFunc overrides the time source used by the directory. Primarily
// intended for tests to provide deterministic timestamps.
func (d *Directory) SetNowFunc(now func() int64) {
	if now == nil {
		d.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	d.nowFn = now
}

func (d *Directory) emit(event *types.Event) {
	if d == nil || d.emitter == nil || event == nil {
		return
	}
	d.emitter.Emit(campaignEvent{evt: event})
}

func (d *Directory) now() uint64 {
	if d == nil || d.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	now := d.nowFn()
	if now < 0 {
		return 0
	}
	return uint64(now)
}

// Admin returns the directory owner principal.
func (d *Directory) Admin() [20]byte { return d.admin }

// SetManager designates the single principal allowed to create campaigns.
// Admin only; designation overwrites, it never accumulates.
func (d *Directory) SetManager(caller, manager [20]byte) error {
	if d == nil || d.st == nil {
		return ErrNilState
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := Authorize(caller, RoleDirectoryAdmin, d.admin); err != nil {
		return err
	}
	if manager == ([20]byte{}) {
		return ErrZeroAddress
	}
	if err := d.st.KVPut(directoryManagerKey, manager[:]); err != nil {
		return err
	}
	d.emit(NewManagerUpdatedEvent(manager))
	return nil
}

// Manager returns the currently designated manager, if any.
func (d *Directory) Manager() ([20]byte, bool) {
	var manager [20]byte
	if d == nil || d.st == nil {
		return manager, false
	}
	var raw []byte
	ok, err := d.st.KVGet(directoryManagerKey, &raw)
	if err != nil || !ok || len(raw) != len(manager) {
		return [20]byte{}, false
	}
	copy(manager[:], raw)
	return manager, manager != [20]byte{}
}

// CreateCampaign instantiates a new campaign with a fresh reward ledger owned
// by the supplied owner and managed by the designated manager. Only the
// designated manager may call it. The directory defaults for token, tax
// recipient and tax rate are copied into the campaign.
func (d *Directory) CreateCampaign(caller [20]byte, name string, start, end uint64, rewardAmount *big.Int, owner [20]byte) (*Campaign, error) {
	if d == nil || d.st == nil {
		return nil, ErrNilState
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	manager, ok := d.Manager()
	if !ok {
		return nil, ErrManagerNotSet
	}
	if err := Authorize(caller, RoleManager, manager); err != nil {
		return nil, err
	}
	if owner == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	now := d.now()
	if end <= now {
		return nil, ErrEndNotInFuture
	}
	if end < start {
		return nil, ErrInvalidDates
	}

	var seq uint64
	if _, err := d.st.KVGet(directorySeqKey, &seq); err != nil {
		return nil, err
	}
	c := &Campaign{
		Name:         name,
		Owner:        owner,
		Manager:      manager,
		StartTime:    start,
		EndTime:      end,
		CreatedAt:    now,
		Token:        d.defaults.Token,
		RewardAmount: cloneBigInt(rewardAmount),
		TaxRecipient: d.defaults.TaxRecipient,
		TaxRateBps:   d.defaults.TaxRateBps,
		Pool:         big.NewInt(0),
	}
	sanitized, err := SanitizeCampaign(c)
	if err != nil {
		return nil, err
	}
	sanitized.ID = NewCampaignID(sanitized.Owner, sanitized.Name, seq)
	if err := d.st.KVPut(directorySeqKey, seq+1); err != nil {
		return nil, err
	}
	if err := storeCampaign(d.st, sanitized); err != nil {
		return nil, err
	}
	if err := d.st.KVAppend(directoryAllIdxKey, sanitized.ID[:]); err != nil {
		return nil, err
	}
	if err := d.st.KVAppend(ownerIdxKey(sanitized.Owner), sanitized.ID[:]); err != nil {
		return nil, err
	}
	d.emit(NewCreatedEvent(sanitized))
	return sanitized.Clone(), nil
}

// ListCampaigns returns every campaign ID in deterministic order.
func (d *Directory) ListCampaigns() ([]CampaignID, error) {
	if d == nil || d.st == nil {
		return nil, ErrNilState
	}
	return d.listIndex(directoryAllIdxKey)
}

// CampaignsByOwner returns the campaign IDs created for the supplied owner in
// deterministic order.
func (d *Directory) CampaignsByOwner(owner [20]byte) ([]CampaignID, error) {
	if d == nil || d.st == nil {
		return nil, ErrNilState
	}
	return d.listIndex(ownerIdxKey(owner))
}

// CampaignCount returns the number of campaigns ever created.
func (d *Directory) CampaignCount() (int, error) {
	ids, err := d.ListCampaigns()
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (d *Directory) listIndex(key []byte) ([]CampaignID, error) {
	var raw [][]byte
	if err := d.st.KVGetList(key, &raw); err != nil {
		return nil, err
	}
	ids := make([]CampaignID, 0, len(raw))
	seen := make(map[CampaignID]struct{}, len(raw))
	for _, b := range raw {
		var id CampaignID
		copy(id[:], b)
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids, nil
}
