package campaign

import (
	"errors"
	"fmt"
	"math/big"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"campchain/core/events"
	"campchain/core/types"
)

// RewardAsset is the two-operation transfer capability the engine requires
// from the reward token. Pull needs a prior allowance from the funder towards
// the campaign vault; push moves funds out of the vault's own balance.
type RewardAsset interface {
	TransferFrom(spender, from, to [20]byte, amount *big.Int) error
	Transfer(from, to [20]byte, amount *big.Int) error
}

// Engine holds custody of deposited rewards and pays out proportional shares.
// All state mutation is committed before any external asset transfer is
// issued. Mutating operations on the same campaign are serialized through a
// per-campaign lock, so concurrent callers observe each other's state already
// applied; a re-entrant call from an asset callback is rejected instead of
// deadlocking.
type Engine struct {
	state   State
	asset   RewardAsset
	emitter events.Emitter

	mu    sync.Mutex
	locks map[CampaignID]*campaignLock
}

// campaignLock serializes mutating operations on one campaign. The holder
// field records the goroutine currently inside the critical section so a
// callback re-entering the engine on the same goroutine fails fast.
type campaignLock struct {
	mu     sync.Mutex
	holder atomic.Uint64
}

// NewEngine creates a reward ledger engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		locks:   make(map[CampaignID]*campaignLock),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetAsset configures the reward asset the engine moves on fund and withdraw.
func (e *Engine) SetAsset(asset RewardAsset) { e.asset = asset }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(campaignEvent{evt: event})
}

// acquire takes the per-campaign lock, blocking until any concurrent mutation
// on the same campaign has finished. When the lock is already held by the
// calling goroutine the call is re-entrant and rejected. The returned release
// function must be called exactly once.
func (e *Engine) acquire(id CampaignID) (func(), error) {
	e.mu.Lock()
	if e.locks == nil {
		e.locks = make(map[CampaignID]*campaignLock)
	}
	l, ok := e.locks[id]
	if !ok {
		l = &campaignLock{}
		e.locks[id] = l
	}
	e.mu.Unlock()

	gid := goroutineID()
	if gid != 0 && l.holder.Load() == gid {
		return nil, ErrReentrantCall
	}
	l.mu.Lock()
	l.holder.Store(gid)
	return func() {
		l.holder.Store(0)
		l.mu.Unlock()
	}, nil
}

// goroutineID parses the current goroutine id from the runtime stack header
// ("goroutine N [running]:"). Only used to tell a re-entrant call apart from a
// concurrent one.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	header := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	idx := strings.IndexByte(header, ' ')
	if idx <= 0 {
		return 0
	}
	id, err := strconv.ParseUint(header[:idx], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Fund pulls the full reward amount from the owner into the campaign vault,
// forwards the tax cut to the tax recipient and retains the net amount as the
// distributable pool. Callable exactly once, by the owner only. The tax is a
// cut subtracted from the nominal reward, not added on top.
func (e *Engine) Fund(id CampaignID, caller [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.asset == nil {
		return ErrNilAsset
	}
	release, err := e.acquire(id)
	if err != nil {
		return err
	}
	defer release()

	c, err := loadCampaign(e.state, id)
	if err != nil {
		return err
	}
	if err := Authorize(caller, RoleOwner, c.Owner); err != nil {
		return err
	}
	if c.Funded {
		return ErrAlreadyFunded
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}

	tax := new(big.Int).Mul(amt, new(big.Int).SetUint64(uint64(c.TaxRateBps)))
	tax.Div(tax, big.NewInt(10_000))
	net := new(big.Int).Sub(amt, tax)
	vault := VaultAddress(id)

	prev := c.Clone()
	c.Funded = true
	c.RewardAmount = amt
	c.Pool = net
	if err := storeCampaign(e.state, c); err != nil {
		return err
	}
	if err := e.asset.TransferFrom(vault, c.Owner, vault, amt); err != nil {
		return e.rollbackCampaign(prev, fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}
	if tax.Sign() > 0 {
		if err := e.asset.Transfer(vault, c.TaxRecipient, tax); err != nil {
			wrapped := fmt.Errorf("%w: %v", ErrTransferFailed, err)
			if refundErr := e.asset.Transfer(vault, c.Owner, amt); refundErr != nil {
				wrapped = errors.Join(wrapped, refundErr)
			}
			return e.rollbackCampaign(prev, wrapped)
		}
	}
	e.emit(NewFundedEvent(c, amt, tax))
	return nil
}

func (e *Engine) rollbackCampaign(prev *Campaign, cause error) error {
	if err := storeCampaign(e.state, prev); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// RegisterScore records the participant's contribution score and adds it to
// the campaign total. A participant holding a nonzero score is never
// overwritten: the call is a no-op that still notifies observers. Correcting a
// mistaken score therefore requires a fresh participant identity.
func (e *Engine) RegisterScore(id CampaignID, caller, participant [20]byte, score uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	release, err := e.acquire(id)
	if err != nil {
		return err
	}
	defer release()

	c, err := loadCampaign(e.state, id)
	if err != nil {
		return err
	}
	if err := Authorize(caller, RoleOwner, c.Owner); err != nil {
		return err
	}
	if err := e.registerOne(c, participant, score); err != nil {
		return err
	}
	return storeCampaign(e.state, c)
}

// RegisterScores is the batched form of RegisterScore. The two sequences must
// have equal length; each pair applies the first-write-wins rule
// independently, so duplicate entries inside a batch are expected partial
// successes rather than failures. Every entry is validated before anything is
// persisted: a violated precondition aborts the whole batch with no state
// change.
func (e *Engine) RegisterScores(id CampaignID, caller [20]byte, participants [][20]byte, scores []uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if len(participants) != len(scores) {
		return ErrLengthMismatch
	}
	release, err := e.acquire(id)
	if err != nil {
		return err
	}
	defer release()

	c, err := loadCampaign(e.state, id)
	if err != nil {
		return err
	}
	if err := Authorize(caller, RoleOwner, c.Owner); err != nil {
		return err
	}
	for _, participant := range participants {
		if participant == ([20]byte{}) {
			return ErrZeroAddress
		}
	}
	for i := range participants {
		if err := e.registerOne(c, participants[i], scores[i]); err != nil {
			return err
		}
	}
	return storeCampaign(e.state, c)
}

// registerOne mutates the in-memory campaign total and persists the score
// record; the caller persists the campaign afterwards.
func (e *Engine) registerOne(c *Campaign, participant [20]byte, score uint64) error {
	if participant == ([20]byte{}) {
		return ErrZeroAddress
	}
	existing, found, err := loadScore(e.state, c.ID, participant)
	if err != nil {
		return err
	}
	if found && existing.Score != 0 {
		// First-write-wins: keep the recorded score but still notify.
		e.emit(NewScoreRegisteredEvent(c, participant, existing.Score, true))
		return nil
	}
	rec := &ScoreRecord{Participant: participant, Score: score}
	if found {
		rec.Withdrawn = existing.Withdrawn
	}
	if err := storeScore(e.state, c.ID, rec); err != nil {
		return err
	}
	if err := e.state.KVAppend(participantsIdxKey(c.ID), participant[:]); err != nil {
		return err
	}
	c.TotalScore += score
	e.emit(NewScoreRegisteredEvent(c, participant, score, false))
	return nil
}

// Withdraw pays the caller their proportional share of the distributable
// pool, at most once. Shares are computed with floor division against the
// full original pool, so the sum of all payouts never exceeds the pool and
// rounding dust stays in the vault.
func (e *Engine) Withdraw(id CampaignID, caller [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if e.asset == nil {
		return nil, ErrNilAsset
	}
	release, err := e.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := loadCampaign(e.state, id)
	if err != nil {
		return nil, err
	}
	if !c.Funded {
		return nil, ErrNotFunded
	}
	rec, found, err := loadScore(e.state, id, caller)
	if err != nil {
		return nil, err
	}
	if !found || rec.Score == 0 {
		return nil, ErrNoScore
	}
	if rec.Withdrawn {
		return nil, ErrAlreadyWithdrawn
	}

	share := proportionalShare(c.Pool, rec.Score, c.TotalScore)
	rec.Withdrawn = true
	if err := storeScore(e.state, id, rec); err != nil {
		return nil, err
	}
	if share.Sign() > 0 {
		if err := e.asset.Transfer(VaultAddress(id), caller, share); err != nil {
			wrapped := fmt.Errorf("%w: %v", ErrTransferFailed, err)
			rec.Withdrawn = false
			if rbErr := storeScore(e.state, id, rec); rbErr != nil {
				return nil, errors.Join(wrapped, rbErr)
			}
			return nil, wrapped
		}
	}
	e.emit(NewWithdrawnEvent(c, caller, share))
	return share, nil
}

// GetCampaign retrieves a campaign by identifier.
func (e *Engine) GetCampaign(id CampaignID) (*Campaign, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	c, err := loadCampaign(e.state, id)
	if err != nil {
		return nil, false
	}
	return c.Clone(), true
}

// GetScore retrieves the score record for a participant.
func (e *Engine) GetScore(id CampaignID, participant [20]byte) (*ScoreRecord, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	rec, found, err := loadScore(e.state, id, participant)
	if err != nil || !found {
		return nil, false
	}
	return rec.Clone(), true
}

// Participants returns every registered participant of a campaign in
// registration order.
func (e *Engine) Participants(id CampaignID) ([][20]byte, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	var raw [][]byte
	if err := e.state.KVGetList(participantsIdxKey(id), &raw); err != nil {
		return nil, err
	}
	participants := make([][20]byte, 0, len(raw))
	for _, b := range raw {
		var addr [20]byte
		copy(addr[:], b)
		participants = append(participants, addr)
	}
	return participants, nil
}

// proportionalShare computes floor(pool * score / totalScore).
func proportionalShare(pool *big.Int, score, totalScore uint64) *big.Int {
	if pool == nil || pool.Sign() <= 0 || totalScore == 0 || score == 0 {
		return big.NewInt(0)
	}
	share := new(big.Int).Mul(pool, new(big.Int).SetUint64(score))
	return share.Div(share, new(big.Int).SetUint64(totalScore))
}
