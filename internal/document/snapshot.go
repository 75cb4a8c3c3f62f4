package document

import (
	"time"
)

// Origin identifies which side a snapshot was captured from.
type Origin string

const (
	// OriginLocal marks a snapshot read from the local configuration file.
	OriginLocal Origin = "local"

	// OriginRemote marks a snapshot fetched from the storage backend.
	OriginRemote Origin = "remote"
)

// Snapshot is an immutable capture of a configuration document.
type Snapshot struct {
	// Doc is the parsed document content.
	Doc Document

	// Canonical is the deterministic serialized form used for hashing
	// and for writing the document back out.
	Canonical []byte

	// Hash is the hex-encoded SHA-256 digest of Canonical.
	Hash string

	// CapturedAt records when the snapshot was taken.
	CapturedAt time.Time

	// Origin records which side the snapshot came from.
	Origin Origin
}

// Capture parses raw bytes into an immutable snapshot.
func Capture(raw []byte, origin Origin, capturedAt time.Time) (*Snapshot, error) {
	doc, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc, origin, capturedAt)
}

// FromDocument builds a snapshot from an already-parsed document.
func FromDocument(doc Document, origin Origin, capturedAt time.Time) (*Snapshot, error) {
	canon, err := doc.Canonical()
	if err != nil {
		return nil, err
	}
	hash, err := doc.Hash()
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Doc:        doc,
		Canonical:  canon,
		Hash:       hash,
		CapturedAt: capturedAt,
		Origin:     origin,
	}, nil
}

// Equal reports whether two snapshots carry identical content.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Hash == other.Hash
}

// Empty reports whether the snapshot holds no content.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Doc) == 0
}
