package state

import (
	"math/big"
	"testing"

	"campchain/storage"
)

type kvRecord struct {
	Label  string
	Amount *big.Int
	Active bool
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewManager(db)
}

func TestKVPutGetRoundTrip(t *testing.T) {
	m := newTestManager(t)
	in := kvRecord{Label: "pool", Amount: big.NewInt(475), Active: true}
	if err := m.KVPut([]byte("test/record"), &in); err != nil {
		t.Fatalf("put: %v", err)
	}
	out := new(kvRecord)
	ok, err := m.KVGet([]byte("test/record"), out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected record to exist")
	}
	if out.Label != in.Label || out.Amount.Cmp(in.Amount) != 0 || !out.Active {
		t.Fatalf("unexpected round trip: %+v", out)
	}
}

func TestKVGetMissingKey(t *testing.T) {
	m := newTestManager(t)
	ok, err := m.KVGet([]byte("test/absent"), new(kvRecord))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expected missing key")
	}
}

func TestKVRejectsEmptyKey(t *testing.T) {
	m := newTestManager(t)
	if err := m.KVPut(nil, uint64(1)); err == nil {
		t.Fatalf("expected error for empty key on put")
	}
	if _, err := m.KVGet(nil, nil); err == nil {
		t.Fatalf("expected error for empty key on get")
	}
}

func TestKVAppendDeduplicates(t *testing.T) {
	m := newTestManager(t)
	key := []byte("test/index")
	if err := m.KVAppend(key, []byte{0x01}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := m.KVAppend(key, []byte{0x02}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := m.KVAppend(key, []byte{0x01}); err != nil {
		t.Fatalf("append duplicate: %v", err)
	}
	var list [][]byte
	if err := m.KVGetList(key, &list); err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
}

func TestKVGetListMissingInitialisesEmpty(t *testing.T) {
	m := newTestManager(t)
	list := [][]byte{{0xFF}}
	if err := m.KVGetList([]byte("test/none"), &list); err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty slice, got %d entries", len(list))
	}
}
