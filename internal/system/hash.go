package system

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/jbarthelmes/flecs/internal/entity"
)

// DomainDescriptor is the domain prefix for descriptor identity hashing.
// The version suffix enables future algorithm migration.
const DomainDescriptor = "flecs/descriptor/v1"

// Hash computes a content-addressed identity for the scheduling-relevant
// fields of a descriptor. Two descriptors with the same name, query, phase,
// edges, timing policy, and flags hash identically regardless of the order
// edges were added in.
//
// Ctx, Each, and Run are opaque invocation values, not data; they are
// excluded from the hash.
func Hash(desc Descriptor) (string, error) {
	m := map[string]any{
		"name":           desc.Name,
		"query_with":     stringsAny(desc.Query.With, true),
		"query_without":  stringsAny(desc.Query.Without, true),
		"phase":          uint64(desc.Phase),
		"after":          entitiesAny(desc.After),
		"before":         entitiesAny(desc.Before),
		"timing_kind":    int(desc.Timing.Kind),
		"interval":       desc.Timing.Interval,
		"multiplier":     desc.Timing.Multiplier,
		"tick_source":    uint64(desc.Timing.Source),
		"multi_threaded": desc.MultiThreaded,
		"no_readonly":    desc.NoReadonly,
	}

	data, err := MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("canonicalize descriptor: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DomainDescriptor))
	h.Write([]byte{0x00}) // separator prevents domain/data boundary ambiguity
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func stringsAny(ss []string, sorted bool) []any {
	cp := make([]string, len(ss))
	copy(cp, ss)
	if sorted {
		sort.Strings(cp)
	}
	out := make([]any, len(cp))
	for i, s := range cp {
		out[i] = s
	}
	return out
}

func entitiesAny(es []entity.Entity) []any {
	cp := make([]entity.Entity, len(es))
	copy(cp, es)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	out := make([]any, len(cp))
	for i, e := range cp {
		out[i] = uint64(e)
	}
	return out
}
