package testing

import (
	"bytes"
	"context"
	"sync"

	"github.com/ValentinKolb/eKV/lib/store"
	"github.com/google/btree"
	pb "go.etcd.io/etcd/api/v3/etcdserverpb"
	"go.etcd.io/etcd/api/v3/mvccpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Method names a method of the KV service
type Method string

const (
	MethodRange       Method = "Range"
	MethodPut         Method = "Put"
	MethodDeleteRange Method = "DeleteRange"
	MethodTxn         Method = "Txn"
	MethodCompact     Method = "Compact"
)

// FailureHook is called before a request is applied. call is the 1-based number of
// calls of method so far (including this one). A non nil error is returned to the
// client instead of applying the request.
type FailureHook func(method Method, call uint64) error

// FailOnCall returns a hook that fails exactly the n-th call of method with err
func FailOnCall(method Method, n uint64, err error) FailureHook {
	return func(m Method, call uint64) error {
		if m == method && call == n {
			return err
		}
		return nil
	}
}

// MemoryKV is an in-memory implementation of the etcd KV service (etcdserverpb.KVServer).
// It follows etcd's semantics for ranges, transactions and revisions closely enough to
// test clients against it, and it can inject failures.
// It can be used in-process (local transport) or served with a grpc.Server.
//
// Thread-safety: all methods are safe for concurrent use, every request is applied atomically.
type MemoryKV struct {
	mu       sync.Mutex
	data     *btree.BTreeG[*mvccpb.KeyValue]
	revision int64
	calls    map[Method]uint64
	hook     FailureHook

	// MaxTxnOps limits the number of operations per transaction like etcd's
	// --max-txn-ops flag. 0 means unlimited. Must be set before first use.
	MaxTxnOps int
}

var _ pb.KVServer = (*MemoryKV)(nil)

// NewMemoryKV creates an empty store
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		data: btree.NewG(32, func(a, b *mvccpb.KeyValue) bool {
			return bytes.Compare(a.Key, b.Key) < 0
		}),
		revision: 1,
		calls:    make(map[Method]uint64),
	}
}

// SetFailureHook installs (or with nil removes) the failure hook
func (m *MemoryKV) SetFailureHook(hook FailureHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = hook
}

// Calls returns how often method was called (including failed calls)
func (m *MemoryKV) Calls(method Method) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Len returns the number of keys in the store
func (m *MemoryKV) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.Len()
}

// Revision returns the current revision of the store
func (m *MemoryKV) Revision() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision
}

// --------------------------------------------------------------------------
// Interface Methods (docu see etcdserverpb.KVServer)
// --------------------------------------------------------------------------

func (m *MemoryKV) Range(ctx context.Context, req *pb.RangeRequest) (*pb.RangeResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, MethodRange); err != nil {
		return nil, err
	}
	return m.applyRange(req), nil
}

func (m *MemoryKV) Put(ctx context.Context, req *pb.PutRequest) (*pb.PutResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, MethodPut); err != nil {
		return nil, err
	}
	if len(req.Key) == 0 {
		return nil, errEmptyKey
	}

	m.revision++
	return m.applyPut(req, m.revision), nil
}

func (m *MemoryKV) DeleteRange(ctx context.Context, req *pb.DeleteRangeRequest) (*pb.DeleteRangeResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, MethodDeleteRange); err != nil {
		return nil, err
	}
	if len(req.Key) == 0 {
		return nil, errEmptyKey
	}

	resp := m.applyDeleteRange(req)
	if resp.Deleted > 0 {
		m.revision++
		resp.Header = m.header()
	}
	return resp, nil
}

func (m *MemoryKV) Txn(ctx context.Context, req *pb.TxnRequest) (*pb.TxnResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, MethodTxn); err != nil {
		return nil, err
	}
	if err := m.checkTxn(req); err != nil {
		return nil, err
	}

	// Evaluate all predicates
	succeeded := true
	for _, c := range req.Compare {
		ok, err := m.evalCompare(c)
		if err != nil {
			return nil, err
		}
		if !ok {
			succeeded = false
			break
		}
	}

	ops := req.Success
	if !succeeded {
		ops = req.Failure
	}

	// Apply the chosen branch, all writes share one revision
	rev := m.revision + 1
	wrote := false
	responses := make([]*pb.ResponseOp, 0, len(ops))
	for _, op := range ops {
		switch {
		case op.GetRequestPut() != nil:
			resp := m.applyPut(op.GetRequestPut(), rev)
			responses = append(responses, &pb.ResponseOp{Response: &pb.ResponseOp_ResponsePut{ResponsePut: resp}})
			wrote = true
		case op.GetRequestDeleteRange() != nil:
			resp := m.applyDeleteRange(op.GetRequestDeleteRange())
			responses = append(responses, &pb.ResponseOp{Response: &pb.ResponseOp_ResponseDeleteRange{ResponseDeleteRange: resp}})
			wrote = wrote || resp.Deleted > 0
		case op.GetRequestRange() != nil:
			resp := m.applyRange(op.GetRequestRange())
			responses = append(responses, &pb.ResponseOp{Response: &pb.ResponseOp_ResponseRange{ResponseRange: resp}})
		}
	}
	if wrote {
		m.revision = rev
	}

	return &pb.TxnResponse{
		Header:    m.header(),
		Succeeded: succeeded,
		Responses: responses,
	}, nil
}

func (m *MemoryKV) Compact(ctx context.Context, req *pb.CompactionRequest) (*pb.CompactionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, MethodCompact); err != nil {
		return nil, err
	}
	// no history is kept, only the revision is validated
	if req.Revision > m.revision {
		return nil, status.Error(codes.OutOfRange, "etcdserver: mvcc: required revision is a future revision")
	}
	return &pb.CompactionResponse{Header: m.header()}, nil
}

// --------------------------------------------------------------------------
// Helper Methods (all expect m.mu to be held)
// --------------------------------------------------------------------------

var (
	errEmptyKey     = status.Error(codes.InvalidArgument, "etcdserver: key is not provided")
	errDuplicateKey = status.Error(codes.InvalidArgument, "etcdserver: duplicate key given in txn request")
)

// begin counts the call, checks the context and runs the failure hook
func (m *MemoryKV) begin(ctx context.Context, method Method) error {
	m.calls[method]++
	if err := ctx.Err(); err != nil {
		return status.FromContextError(err).Err()
	}
	if m.hook != nil {
		return m.hook(method, m.calls[method])
	}
	return nil
}

func (m *MemoryKV) header() *pb.ResponseHeader {
	return &pb.ResponseHeader{Revision: m.revision}
}

// checkTxn validates a transaction like etcd does before applying it
func (m *MemoryKV) checkTxn(req *pb.TxnRequest) error {
	if m.MaxTxnOps > 0 && (len(req.Compare) > m.MaxTxnOps || len(req.Success) > m.MaxTxnOps || len(req.Failure) > m.MaxTxnOps) {
		return status.Error(codes.InvalidArgument, "etcdserver: too many operations in txn request")
	}
	for _, branch := range [][]*pb.RequestOp{req.Success, req.Failure} {
		puts := make(map[string]struct{}, len(branch))
		var deletes []store.Range
		for _, op := range branch {
			switch {
			case op.GetRequestPut() != nil:
				key := op.GetRequestPut().Key
				if len(key) == 0 {
					return errEmptyKey
				}
				if _, dup := puts[string(key)]; dup {
					return errDuplicateKey
				}
				puts[string(key)] = struct{}{}
			case op.GetRequestDeleteRange() != nil:
				dr := op.GetRequestDeleteRange()
				if len(dr.Key) == 0 {
					return errEmptyKey
				}
				deletes = append(deletes, store.Range{Start: dr.Key, End: dr.RangeEnd})
			case op.GetRequestRange() != nil:
			default:
				return status.Error(codes.Unimplemented, "nested transactions are not supported")
			}
		}
		// a key may not be both written and deleted in one branch, in any order
		for key := range puts {
			for _, r := range deletes {
				if r.Contains([]byte(key)) {
					return errDuplicateKey
				}
			}
		}
	}
	return nil
}

// evalCompare evaluates a single predicate
func (m *MemoryKV) evalCompare(c *pb.Compare) (bool, error) {
	if len(c.RangeEnd) > 0 {
		return false, status.Error(codes.Unimplemented, "range compares are not supported")
	}

	kv, found := m.data.Get(&mvccpb.KeyValue{Key: c.Key})
	if !found {
		// a missing key never matches a value compare
		if c.Target == pb.Compare_VALUE {
			return false, nil
		}
		kv = &mvccpb.KeyValue{}
	}

	var result int
	switch c.Target {
	case pb.Compare_VALUE:
		result = bytes.Compare(kv.Value, c.GetValue())
	case pb.Compare_VERSION:
		result = compareInt64(kv.Version, c.GetVersion())
	case pb.Compare_CREATE:
		result = compareInt64(kv.CreateRevision, c.GetCreateRevision())
	case pb.Compare_MOD:
		result = compareInt64(kv.ModRevision, c.GetModRevision())
	case pb.Compare_LEASE:
		result = compareInt64(kv.Lease, c.GetLease())
	default:
		return false, status.Errorf(codes.InvalidArgument, "unknown compare target %v", c.Target)
	}

	switch c.Result {
	case pb.Compare_EQUAL:
		return result == 0, nil
	case pb.Compare_NOT_EQUAL:
		return result != 0, nil
	case pb.Compare_GREATER:
		return result > 0, nil
	case pb.Compare_LESS:
		return result < 0, nil
	default:
		return false, status.Errorf(codes.InvalidArgument, "unknown compare result %v", c.Result)
	}
}

func (m *MemoryKV) applyRange(req *pb.RangeRequest) *pb.RangeResponse {
	resp := &pb.RangeResponse{Header: m.header()}
	m.ascend(req.Key, req.RangeEnd, func(kv *mvccpb.KeyValue) bool {
		resp.Count++
		if req.CountOnly {
			return true
		}
		if req.Limit > 0 && int64(len(resp.Kvs)) >= req.Limit {
			resp.More = true
			return true
		}
		c := cloneKV(kv)
		if req.KeysOnly {
			c.Value = nil
		}
		resp.Kvs = append(resp.Kvs, c)
		return true
	})
	return resp
}

func (m *MemoryKV) applyPut(req *pb.PutRequest, rev int64) *pb.PutResponse {
	resp := &pb.PutResponse{}

	kv := &mvccpb.KeyValue{
		Key:            bytes.Clone(req.Key),
		Value:          bytes.Clone(req.Value),
		CreateRevision: rev,
		ModRevision:    rev,
		Version:        1,
		Lease:          req.Lease,
	}
	if prev, found := m.data.Get(kv); found {
		kv.CreateRevision = prev.CreateRevision
		kv.Version = prev.Version + 1
		if req.IgnoreValue {
			kv.Value = prev.Value
		}
		if req.PrevKv {
			resp.PrevKv = cloneKV(prev)
		}
	}
	m.data.ReplaceOrInsert(kv)

	resp.Header = &pb.ResponseHeader{Revision: rev}
	return resp
}

func (m *MemoryKV) applyDeleteRange(req *pb.DeleteRangeRequest) *pb.DeleteRangeResponse {
	var victims []*mvccpb.KeyValue
	m.ascend(req.Key, req.RangeEnd, func(kv *mvccpb.KeyValue) bool {
		victims = append(victims, kv)
		return true
	})

	resp := &pb.DeleteRangeResponse{Header: m.header(), Deleted: int64(len(victims))}
	for _, kv := range victims {
		m.data.Delete(kv)
		if req.PrevKv {
			resp.PrevKvs = append(resp.PrevKvs, cloneKV(kv))
		}
	}
	return resp
}

// ascend calls fn for all keys selected by key and rangeEnd (see store.Range)
func (m *MemoryKV) ascend(key, rangeEnd []byte, fn func(kv *mvccpb.KeyValue) bool) {
	r := store.Range{Start: key, End: rangeEnd}
	pivot := &mvccpb.KeyValue{Key: key}

	if len(rangeEnd) == 0 {
		if kv, found := m.data.Get(pivot); found {
			fn(kv)
		}
		return
	}
	m.data.AscendGreaterOrEqual(pivot, func(kv *mvccpb.KeyValue) bool {
		if !r.Contains(kv.Key) {
			return false
		}
		return fn(kv)
	})
}

func cloneKV(kv *mvccpb.KeyValue) *mvccpb.KeyValue {
	c := *kv
	c.Key = bytes.Clone(kv.Key)
	c.Value = bytes.Clone(kv.Value)
	return &c
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
