package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/standardbeagle/xref/internal/codec"
	"github.com/standardbeagle/xref/internal/debug"
	xerrors "github.com/standardbeagle/xref/internal/errors"
	"github.com/standardbeagle/xref/internal/index"
	"github.com/standardbeagle/xref/internal/metrics"
	"github.com/standardbeagle/xref/internal/types"
)

// FormatVersion is written first in every node blob. Blobs carrying any other
// version are ignored.
const FormatVersion int32 = 1

// minimum bytes of one encoded relation (element, relationship, count)
const relationHeaderSize = 12

// one encoded location (element, offset, length)
const locationSize = 12

// FileNodeManager persists nodes through a FileManager in a big-endian binary form:
//
//	version, contextId, relationCount,
//	  { elementId, relationshipId, locationCount,
//	      { elementId, offset, length } * locationCount } * relationCount
//
// Ids refer to the shared codecs, so blobs are only meaningful to the process
// that wrote them.
type FileNodeManager struct {
	files   FileManager
	codecs  *codec.Set
	metrics *metrics.Metrics

	mu            sync.Mutex
	locationCount int
	nodeLocations map[string]int
}

// NewFileNodeManager creates a manager over files. A nil m uses metrics.Default().
func NewFileNodeManager(files FileManager, codecs *codec.Set, m *metrics.Metrics) *FileNodeManager {
	if codecs == nil {
		codecs = codec.NewSet()
	}
	return &FileNodeManager{
		files:         files,
		codecs:        codecs,
		metrics:       metrics.Or(m),
		nodeLocations: make(map[string]int),
	}
}

// Codecs implements index.NodeManager.
func (m *FileNodeManager) Codecs() *codec.Set {
	return m.codecs
}

// Files returns the underlying blob storage.
func (m *FileNodeManager) Files() FileManager {
	return m.files
}

// LocationCount implements index.NodeManager.
func (m *FileNodeManager) LocationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locationCount
}

// NewNode implements index.NodeManager.
func (m *FileNodeManager) NewNode(ctx types.Context) *index.IndexNode {
	return index.NewIndexNode(ctx, m.codecs)
}

// GetNode implements index.NodeManager. Missing, unreadable, corrupt and
// foreign-version blobs all yield nil; the cause is logged.
func (m *FileNodeManager) GetNode(name string) *index.IndexNode {
	data, err := m.files.Read(name)
	if err != nil {
		readErr := xerrors.NewStorageError("read", name, err)
		if readErr.IsNotFound() {
			m.record(metrics.OpRead, metrics.ResultNotFound)
			return nil
		}
		m.record(metrics.OpRead, metrics.ResultError)
		debug.LogError("STORAGE", readErr, "reading node")
		return nil
	}

	node, err := m.decode(name, data)
	if err != nil {
		if errors.Is(err, xerrors.ErrVersionMismatch) {
			m.record(metrics.OpRead, metrics.ResultVersionMismatch)
		} else {
			m.record(metrics.OpRead, metrics.ResultCorrupt)
		}
		debug.LogError("STORAGE", err, "decoding node")
		return nil
	}
	if node == nil {
		// context of the node has been removed
		m.record(metrics.OpRead, metrics.ResultNotFound)
		debug.LogStorage("node %s refers to a removed context\n", name)
		return nil
	}
	m.record(metrics.OpRead, metrics.ResultOK)
	return node
}

// PutNode implements index.NodeManager. Location counts change only once the
// blob has been written.
func (m *FileNodeManager) PutNode(name string, node *index.IndexNode) error {
	data := m.encode(node)
	if err := m.files.Write(name, data); err != nil {
		m.record(metrics.OpWrite, metrics.ResultError)
		return xerrors.NewStorageError("write", name, err)
	}
	m.record(metrics.OpWrite, metrics.ResultOK)

	m.mu.Lock()
	defer m.mu.Unlock()
	count := node.LocationCount()
	m.locationCount += count - m.nodeLocations[name]
	m.nodeLocations[name] = count
	m.metrics.StoredLocations.Set(float64(m.locationCount))
	debug.LogStorage("stored %s (%d relations, %d locations)\n", name, node.RelationCount(), count)
	return nil
}

// RemoveNode implements index.NodeManager.
func (m *FileNodeManager) RemoveNode(name string) error {
	if err := m.files.Delete(name); err != nil {
		m.record(metrics.OpRemove, metrics.ResultError)
		return xerrors.NewStorageError("remove", name, err)
	}
	m.record(metrics.OpRemove, metrics.ResultOK)

	m.mu.Lock()
	defer m.mu.Unlock()
	if count, ok := m.nodeLocations[name]; ok {
		m.locationCount -= count
		delete(m.nodeLocations, name)
		m.metrics.StoredLocations.Set(float64(m.locationCount))
	}
	return nil
}

// Clear implements index.NodeManager.
func (m *FileNodeManager) Clear() error {
	if err := m.files.Clear(); err != nil {
		m.record(metrics.OpClear, metrics.ResultError)
		return xerrors.NewStorageError("clear", "*", err)
	}
	m.record(metrics.OpClear, metrics.ResultOK)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.locationCount = 0
	m.nodeLocations = make(map[string]int)
	m.metrics.StoredLocations.Set(0)
	return nil
}

// Close implements index.NodeManager.
func (m *FileNodeManager) Close() error {
	return m.files.Close()
}

func (m *FileNodeManager) record(op, result string) {
	m.metrics.StorageOperations.WithLabelValues(op, result).Inc()
}

func (m *FileNodeManager) encode(node *index.IndexNode) []byte {
	var buf bytes.Buffer
	buf.Grow(3*4 + node.RelationCount()*relationHeaderSize + node.LocationCount()*locationSize)

	var word [4]byte
	put := func(v int32) {
		binary.BigEndian.PutUint32(word[:], uint32(v))
		buf.Write(word[:])
	}

	put(FormatVersion)
	put(m.codecs.Contexts.Encode(node.Context()))
	put(int32(node.RelationCount()))
	node.Range(func(key index.RelationKeyData, locations []index.LocationData) bool {
		put(key.ElementID)
		put(key.RelationshipID)
		put(int32(len(locations)))
		for _, d := range locations {
			put(d.ElementID)
			put(d.Offset)
			put(d.Length)
		}
		return true
	})
	return buf.Bytes()
}

// decode returns (nil, nil) when the node's context is no longer known.
func (m *FileNodeManager) decode(name string, data []byte) (*index.IndexNode, error) {
	r := &intReader{data: data}

	version := r.next()
	if r.err != nil {
		return nil, xerrors.NewCorruptNodeError(name, r.err)
	}
	if version != FormatVersion {
		return nil, xerrors.NewVersionError(name, version, FormatVersion)
	}

	contextID := r.next()
	relationCount := r.next()
	if r.err != nil {
		return nil, xerrors.NewCorruptNodeError(name, r.err)
	}
	if relationCount < 0 || int(relationCount) > r.remaining()/relationHeaderSize {
		return nil, xerrors.NewCorruptNodeError(name, fmt.Errorf("relation count %d", relationCount))
	}

	ctx, ok := m.codecs.Contexts.Decode(contextID)
	if !ok {
		return nil, nil
	}

	node := index.NewIndexNode(ctx, m.codecs)
	for i := int32(0); i < relationCount; i++ {
		key := index.RelationKeyData{ElementID: r.next(), RelationshipID: r.next()}
		locationCount := r.next()
		if r.err != nil {
			return nil, xerrors.NewCorruptNodeError(name, r.err)
		}
		if locationCount < 0 || int(locationCount) > r.remaining()/locationSize {
			return nil, xerrors.NewCorruptNodeError(name, fmt.Errorf("location count %d", locationCount))
		}
		locations := make([]index.LocationData, locationCount)
		for j := range locations {
			locations[j] = index.LocationData{ElementID: r.next(), Offset: r.next(), Length: r.next()}
		}
		node.AddRelation(key, locations...)
	}
	if r.err != nil {
		return nil, xerrors.NewCorruptNodeError(name, r.err)
	}
	if r.remaining() != 0 {
		return nil, xerrors.NewCorruptNodeError(name, fmt.Errorf("%d trailing bytes", r.remaining()))
	}
	return node, nil
}

// intReader reads big-endian int32 values and remembers the first short read.
type intReader struct {
	data []byte
	pos  int
	err  error
}

func (r *intReader) next() int32 {
	if r.err != nil {
		return 0
	}
	if len(r.data)-r.pos < 4 {
		r.err = io.ErrUnexpectedEOF
		return 0
	}
	v := int32(binary.BigEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	return v
}

func (r *intReader) remaining() int {
	return len(r.data) - r.pos
}
