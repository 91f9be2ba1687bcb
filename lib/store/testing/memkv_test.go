package testing

import (
	"context"
	"errors"
	"testing"

	pb "go.etcd.io/etcd/api/v3/etcdserverpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func put(t *testing.T, m *MemoryKV, key, value string) {
	t.Helper()
	if _, err := m.Put(context.Background(), &pb.PutRequest{Key: []byte(key), Value: []byte(value)}); err != nil {
		t.Fatalf("Put(%s) failed: %v", key, err)
	}
}

func rangeCount(t *testing.T, m *MemoryKV, key, end []byte) int64 {
	t.Helper()
	resp, err := m.Range(context.Background(), &pb.RangeRequest{Key: key, RangeEnd: end})
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	return resp.Count
}

func TestMemoryKVRangeConventions(t *testing.T) {
	m := NewMemoryKV()
	put(t, m, "a", "1")
	put(t, m, "b", "2")
	put(t, m, "c", "3")

	if n := rangeCount(t, m, []byte("b"), nil); n != 1 {
		t.Errorf("Expected exact key lookup to find 1 key, got %d", n)
	}
	if n := rangeCount(t, m, []byte("b"), []byte{0}); n != 2 {
		t.Errorf("Expected range end \\x00 to select all keys >= b, got %d", n)
	}
	if n := rangeCount(t, m, []byte("a"), []byte("c")); n != 2 {
		t.Errorf("Expected [a, c) to contain 2 keys, got %d", n)
	}
	if n := rangeCount(t, m, []byte("c"), []byte("a")); n != 0 {
		t.Errorf("Expected an end below the start to select nothing, got %d", n)
	}
}

func TestMemoryKVVersions(t *testing.T) {
	m := NewMemoryKV()
	put(t, m, "k", "1")
	put(t, m, "k", "2")

	resp, err := m.Range(context.Background(), &pb.RangeRequest{Key: []byte("k")})
	if err != nil || len(resp.Kvs) != 1 {
		t.Fatalf("Range failed: %v", err)
	}
	kv := resp.Kvs[0]
	if kv.Version != 2 || kv.CreateRevision != 2 || kv.ModRevision != 3 {
		t.Errorf("Unexpected version/create/mod: %d/%d/%d", kv.Version, kv.CreateRevision, kv.ModRevision)
	}
}

func TestMemoryKVTxn(t *testing.T) {
	m := NewMemoryKV()
	put(t, m, "k", "old")

	txn := &pb.TxnRequest{
		Compare: []*pb.Compare{{
			Result:      pb.Compare_EQUAL,
			Target:      pb.Compare_VALUE,
			Key:         []byte("k"),
			TargetUnion: &pb.Compare_Value{Value: []byte("old")},
		}},
		Success: []*pb.RequestOp{{Request: &pb.RequestOp_RequestPut{RequestPut: &pb.PutRequest{Key: []byte("k"), Value: []byte("new")}}}},
	}

	resp, err := m.Txn(context.Background(), txn)
	if err != nil {
		t.Fatalf("Txn failed: %v", err)
	}
	if !resp.Succeeded {
		t.Error("Expected the compare to hold")
	}

	// same compare fails now
	resp, err = m.Txn(context.Background(), txn)
	if err != nil {
		t.Fatalf("Txn failed: %v", err)
	}
	if resp.Succeeded {
		t.Error("Expected the compare to fail")
	}

	// duplicate puts are rejected
	txn.Compare = nil
	txn.Success = append(txn.Success, txn.Success[0])
	if _, err := m.Txn(context.Background(), txn); status.Code(err) != codes.InvalidArgument {
		t.Errorf("Expected InvalidArgument for duplicate keys, got %v", err)
	}
}

func TestMemoryKVTxnPutDeleteOverlap(t *testing.T) {
	m := NewMemoryKV()
	put(t, m, "a/1", "v")

	putOp := func(key string) *pb.RequestOp {
		return &pb.RequestOp{Request: &pb.RequestOp_RequestPut{RequestPut: &pb.PutRequest{Key: []byte(key), Value: []byte("new")}}}
	}
	deleteOp := func(key, end string) *pb.RequestOp {
		return &pb.RequestOp{Request: &pb.RequestOp_RequestDeleteRange{RequestDeleteRange: &pb.DeleteRangeRequest{Key: []byte(key), RangeEnd: []byte(end)}}}
	}

	rejected := []struct {
		name string
		txn  *pb.TxnRequest
	}{
		{"same key", &pb.TxnRequest{Success: []*pb.RequestOp{putOp("k"), deleteOp("k", "")}}},
		{"delete first", &pb.TxnRequest{Success: []*pb.RequestOp{deleteOp("k", ""), putOp("k")}}},
		{"covering range", &pb.TxnRequest{Success: []*pb.RequestOp{putOp("a/2"), deleteOp("a/", "a0")}}},
		{"all keys from", &pb.TxnRequest{Success: []*pb.RequestOp{deleteOp("a/", "\x00"), putOp("z")}}},
		{"failure branch", &pb.TxnRequest{Failure: []*pb.RequestOp{putOp("k"), deleteOp("k", "")}}},
	}
	for _, tt := range rejected {
		if _, err := m.Txn(context.Background(), tt.txn); status.Code(err) != codes.InvalidArgument {
			t.Errorf("%s: expected InvalidArgument, got %v", tt.name, err)
		}
	}
	if m.Len() != 1 {
		t.Errorf("Expected rejected transactions to leave the store unchanged, got %d keys", m.Len())
	}

	// disjoint keys and ranges are fine, as is the same key in different branches
	txn := &pb.TxnRequest{
		Success: []*pb.RequestOp{putOp("b"), deleteOp("a/", "a0")},
		Failure: []*pb.RequestOp{deleteOp("b", "")},
	}
	if _, err := m.Txn(context.Background(), txn); err != nil {
		t.Fatalf("Txn failed: %v", err)
	}
	if rangeCount(t, m, []byte("a/1"), nil) != 0 || rangeCount(t, m, []byte("b"), nil) != 1 {
		t.Error("Expected a/1 to be deleted and b to be written")
	}
}

func TestMemoryKVFailureHook(t *testing.T) {
	m := NewMemoryKV()
	injected := status.Error(codes.Unavailable, "down")
	m.SetFailureHook(FailOnCall(MethodPut, 2, injected))

	put(t, m, "k1", "v")
	_, err := m.Put(context.Background(), &pb.PutRequest{Key: []byte("k2"), Value: []byte("v")})
	if !errors.Is(err, injected) {
		t.Errorf("Expected the injected error, got %v", err)
	}
	put(t, m, "k3", "v")

	if m.Calls(MethodPut) != 3 {
		t.Errorf("Expected 3 calls, got %d", m.Calls(MethodPut))
	}
	if m.Len() != 2 {
		t.Errorf("Expected 2 keys, got %d", m.Len())
	}
}

func TestMemoryKVCancelledContext(t *testing.T) {
	m := NewMemoryKV()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Range(ctx, &pb.RangeRequest{Key: []byte("k")})
	if status.Code(err) != codes.Canceled {
		t.Errorf("Expected Canceled, got %v", err)
	}
}
