package campaign

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// State is the persistence surface shared by the engine, the registry and the
// directory. The concrete implementation lives in core/state.
type State interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

var (
	directoryManagerKey = []byte("campaign/directory/manager")
	directorySeqKey     = []byte("campaign/directory/seq")
	directoryAllIdxKey  = []byte("campaign/index/all")
)

func campaignKey(id CampaignID) []byte {
	return append([]byte("campaign/record/"), id[:]...)
}

func scoreKey(id CampaignID, participant [20]byte) []byte {
	key := append([]byte("campaign/score/"), id[:]...)
	return append(key, participant[:]...)
}

func participantsIdxKey(id CampaignID) []byte {
	return append([]byte("campaign/participants/"), id[:]...)
}

func ownerIdxKey(owner [20]byte) []byte {
	return append([]byte("campaign/index/owner/"), owner[:]...)
}

// NewCampaignID derives the deterministic identifier for a campaign created by
// the supplied owner under the given directory sequence number.
func NewCampaignID(owner [20]byte, name string, seq uint64) CampaignID {
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)
	return CampaignID(ethcrypto.Keccak256Hash(owner[:], []byte(name), seqBytes[:]))
}

// VaultAddress derives the custody address holding a campaign's deposited
// reward asset. The address has no known private key; only the engine moves
// funds out of it.
func VaultAddress(id CampaignID) [20]byte {
	hash := ethcrypto.Keccak256([]byte("campaign/vault"), id[:])
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}

func loadCampaign(st State, id CampaignID) (*Campaign, error) {
	if st == nil {
		return nil, ErrNilState
	}
	c := new(Campaign)
	ok, err := st.KVGet(campaignKey(id), c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCampaignNotFound
	}
	return c, nil
}

func storeCampaign(st State, c *Campaign) error {
	if st == nil {
		return ErrNilState
	}
	return st.KVPut(campaignKey(c.ID), c)
}

func loadScore(st State, id CampaignID, participant [20]byte) (*ScoreRecord, bool, error) {
	if st == nil {
		return nil, false, ErrNilState
	}
	rec := new(ScoreRecord)
	ok, err := st.KVGet(scoreKey(id, participant), rec)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return rec, true, nil
}

func storeScore(st State, id CampaignID, rec *ScoreRecord) error {
	if st == nil {
		return ErrNilState
	}
	return st.KVPut(scoreKey(id, rec.Participant), rec)
}
