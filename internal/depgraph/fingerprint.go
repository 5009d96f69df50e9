package depgraph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// fingerprintEdge is the canonical wire form of one edge. Field order and
// metadata key order are fixed by CBOR core-deterministic encoding, so two
// identical edge sets always hash the same regardless of insertion order.
type fingerprintEdge struct {
	TaskID      string            `cbor:"1,keyasint"`
	DependsOn   string            `cbor:"2,keyasint"`
	Kind        string            `cbor:"3,keyasint"`
	Description string            `cbor:"4,keyasint,omitempty"`
	Metadata    map[string]string `cbor:"5,keyasint,omitempty"`
}

var fingerprintMode cbor.EncMode

func init() {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("depgraph: building deterministic cbor mode: %v", err))
	}
	fingerprintMode = mode
}

// fingerprint digests the canonicalized (sorted) edge list with SHA-256.
// Any change to any edge field produces a different digest.
func fingerprint(edges []Edge) string {
	canonical := make([]fingerprintEdge, 0, len(edges))
	for _, e := range edges {
		canonical = append(canonical, fingerprintEdge{
			TaskID:      e.TaskID,
			DependsOn:   e.DependsOn,
			Kind:        string(e.Kind),
			Description: e.Description,
			Metadata:    e.Metadata,
		})
	}
	sort.Slice(canonical, func(i, j int) bool {
		if canonical[i].TaskID != canonical[j].TaskID {
			return canonical[i].TaskID < canonical[j].TaskID
		}
		return canonical[i].DependsOn < canonical[j].DependsOn
	})

	encoded, err := fingerprintMode.Marshal(canonical)
	if err != nil {
		// Only reachable through a broken canonical type definition.
		panic(fmt.Sprintf("depgraph: encoding edge set for fingerprinting: %v", err))
	}

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}
