package storage

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	xerrors "github.com/standardbeagle/xref/internal/errors"
)

// RelationSummary is one relation of a stored node, by raw codec ids.
type RelationSummary struct {
	ElementID      int32 `json:"element_id"`
	RelationshipID int32 `json:"relationship_id"`
	Locations      int   `json:"locations"`
}

// BlobSummary describes a node blob without resolving any of its ids.
type BlobSummary struct {
	Name      string            `json:"name"`
	Size      int               `json:"size"`
	Checksum  uint64            `json:"checksum"`
	Version   int32             `json:"version"`
	ContextID int32             `json:"context_id"`
	Relations []RelationSummary `json:"relations"`
	Locations int               `json:"locations"`
}

// Inspect walks a node blob and checks its structure. Ids are reported as
// stored; no codec is consulted, so blobs of another process can be read.
func Inspect(name string, data []byte) (BlobSummary, error) {
	summary := BlobSummary{
		Name:     name,
		Size:     len(data),
		Checksum: xxhash.Sum64(data),
	}
	r := &intReader{data: data}

	summary.Version = r.next()
	if r.err != nil {
		return summary, xerrors.NewCorruptNodeError(name, r.err)
	}
	if summary.Version != FormatVersion {
		return summary, xerrors.NewVersionError(name, summary.Version, FormatVersion)
	}

	summary.ContextID = r.next()
	relationCount := r.next()
	if r.err != nil {
		return summary, xerrors.NewCorruptNodeError(name, r.err)
	}
	if relationCount < 0 || int(relationCount) > r.remaining()/relationHeaderSize {
		return summary, xerrors.NewCorruptNodeError(name, fmt.Errorf("relation count %d", relationCount))
	}

	summary.Relations = make([]RelationSummary, 0, relationCount)
	for i := int32(0); i < relationCount; i++ {
		relation := RelationSummary{ElementID: r.next(), RelationshipID: r.next()}
		locationCount := r.next()
		if r.err != nil {
			return summary, xerrors.NewCorruptNodeError(name, r.err)
		}
		if locationCount < 0 || int(locationCount) > r.remaining()/locationSize {
			return summary, xerrors.NewCorruptNodeError(name, fmt.Errorf("location count %d", locationCount))
		}
		// skip element, offset and length of every location
		r.pos += int(locationCount) * locationSize
		relation.Locations = int(locationCount)
		summary.Locations += relation.Locations
		summary.Relations = append(summary.Relations, relation)
	}
	if r.remaining() != 0 {
		return summary, xerrors.NewCorruptNodeError(name, fmt.Errorf("%d trailing bytes", r.remaining()))
	}
	return summary, nil
}
