package common

import (
	pb "go.etcd.io/etcd/api/v3/etcdserverpb"
)

// --------------------------------------------------------------------------
// Mutation and Predicate Structures
// --------------------------------------------------------------------------

// Mutation represents a single write that is applied as part of a transaction.
// Which fields are used depends on the type of the mutation.
type Mutation struct {
	// Type of mutation
	Type MutationType

	Key      []byte // Used for: Put, Delete
	Value    []byte // Used for: Put
	RangeEnd []byte // Used for: Delete (empty deletes exactly Key)
}

// Predicate is a comparison that gates a transaction.
// The only supported comparison is equality on the value stored at Key.
type Predicate struct {
	Key      []byte
	Expected []byte
}

// --------------------------------------------------------------------------
// Mutation / Predicate Factory Functions
// --------------------------------------------------------------------------

// NewPutMutation creates a mutation that stores value under key
func NewPutMutation(key, value []byte) Mutation {
	return Mutation{
		Type:  MutationTPut,
		Key:   key,
		Value: value,
	}
}

// NewDeleteMutation creates a mutation that deletes exactly one key
func NewDeleteMutation(key []byte) Mutation {
	return Mutation{
		Type: MutationTDelete,
		Key:  key,
	}
}

// NewDeleteRangeMutation creates a mutation that deletes all keys in [key, rangeEnd)
func NewDeleteRangeMutation(key, rangeEnd []byte) Mutation {
	return Mutation{
		Type:     MutationTDelete,
		Key:      key,
		RangeEnd: rangeEnd,
	}
}

// NewValueEquals creates a predicate that holds if the value at key equals expected.
// The predicate does not hold for a key that does not exist.
func NewValueEquals(key, expected []byte) Predicate {
	return Predicate{
		Key:      key,
		Expected: expected,
	}
}

// --------------------------------------------------------------------------
// Transaction Builder
// --------------------------------------------------------------------------

// BuildConditional creates a single atomic transaction request.
// The store evaluates all predicates and applies onSuccess if all of them hold,
// otherwise onFailure.
func BuildConditional(predicates []Predicate, onSuccess, onFailure []Mutation) *pb.TxnRequest {
	req := &pb.TxnRequest{
		Compare: make([]*pb.Compare, 0, len(predicates)),
		Success: encodeMutations(onSuccess),
		Failure: encodeMutations(onFailure),
	}
	for _, p := range predicates {
		req.Compare = append(req.Compare, encodePredicate(p))
	}
	return req
}

// BuildUnconditional creates a transaction without predicates.
// A transaction without predicates always succeeds, which makes it an atomic
// multi-mutation apply.
func BuildUnconditional(mutations []Mutation) *pb.TxnRequest {
	return BuildConditional(nil, mutations, nil)
}

// Interpret reports which branch of a transaction was executed
// (true = success branch)
func Interpret(resp *pb.TxnResponse) bool {
	if resp == nil {
		return false
	}
	return resp.Succeeded
}

// --------------------------------------------------------------------------
// Request Factory Functions (single RPCs that need no transaction)
// --------------------------------------------------------------------------

// NewPutRequest creates a new Put request
func NewPutRequest(key, value []byte) *pb.PutRequest {
	return &pb.PutRequest{
		Key:   key,
		Value: value,
	}
}

// NewRangeRequest creates a new Range request.
// An empty rangeEnd queries exactly one key.
func NewRangeRequest(key, rangeEnd []byte) *pb.RangeRequest {
	return &pb.RangeRequest{
		Key:      key,
		RangeEnd: rangeEnd,
	}
}

// NewDeleteRangeRequest creates a new DeleteRange request.
// An empty rangeEnd deletes exactly one key.
func NewDeleteRangeRequest(key, rangeEnd []byte) *pb.DeleteRangeRequest {
	return &pb.DeleteRangeRequest{
		Key:      key,
		RangeEnd: rangeEnd,
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func encodeMutations(mutations []Mutation) []*pb.RequestOp {
	ops := make([]*pb.RequestOp, 0, len(mutations))
	for _, m := range mutations {
		ops = append(ops, encodeMutation(m))
	}
	return ops
}

func encodeMutation(m Mutation) *pb.RequestOp {
	switch m.Type {
	case MutationTPut:
		return &pb.RequestOp{
			Request: &pb.RequestOp_RequestPut{
				RequestPut: NewPutRequest(m.Key, m.Value),
			},
		}
	case MutationTDelete:
		return &pb.RequestOp{
			Request: &pb.RequestOp_RequestDeleteRange{
				RequestDeleteRange: NewDeleteRangeRequest(m.Key, m.RangeEnd),
			},
		}
	default:
		panic("unknown mutation type: " + m.Type.String())
	}
}

func encodePredicate(p Predicate) *pb.Compare {
	return &pb.Compare{
		Result: pb.Compare_EQUAL,
		Target: pb.Compare_VALUE,
		Key:    p.Key,
		TargetUnion: &pb.Compare_Value{
			Value: p.Expected,
		},
	}
}

// --------------------------------------------------------------------------
// Mutation Type Definition
// --------------------------------------------------------------------------

// MutationType defines the kind of write a Mutation performs.
type MutationType uint8

// String returns the string representation of a MutationType.
func (t MutationType) String() string {
	switch t {
	case MutationTPut:
		return "put"
	case MutationTDelete:
		return "delete"
	default:
		return "unknown"
	}
}

const (
	MutationTUnknown MutationType = iota
	MutationTPut                  // Store a value
	MutationTDelete               // Delete a key or a key range
)
