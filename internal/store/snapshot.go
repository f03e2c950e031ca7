package store

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/phrazzld/scry-local/internal/domain"
)

// envelope is the persisted form of a snapshot.
// The tag is informational: readers always recompute it from format and cards.
type envelope struct {
	Format  int                 `json:"format"`
	Tag     domain.IntegrityTag `json:"tag"`
	SavedAt time.Time           `json:"saved_at"`
	Cards   []domain.Card       `json:"cards"`
}

// DeriveTag returns the integrity tag of a card set: the hex BLAKE2b-256
// digest of its compact JSON encoding. Equal content gives equal tags
// regardless of how the set was produced.
func DeriveTag(set domain.CardSet) (domain.IntegrityTag, error) {
	canonical, err := json.Marshal(normalize(set))
	if err != nil {
		return "", fmt.Errorf("failed to encode card set for tagging: %w", err)
	}
	sum := blake2b.Sum256(canonical)
	return domain.IntegrityTag(hex.EncodeToString(sum[:])), nil
}

func normalize(set domain.CardSet) domain.CardSet {
	if set.Cards == nil {
		set.Cards = []domain.Card{}
	}
	return set
}

// encodeSnapshot serializes set together with its freshly derived tag.
func encodeSnapshot(set domain.CardSet, savedAt time.Time) ([]byte, domain.IntegrityTag, error) {
	set = normalize(set)
	tag, err := DeriveTag(set)
	if err != nil {
		return nil, "", err
	}

	data, err := json.MarshalIndent(envelope{
		Format:  set.Format,
		Tag:     tag,
		SavedAt: savedAt.UTC(),
		Cards:   set.Cards,
	}, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return append(data, '\n'), tag, nil
}

// decoded is the result of reading raw medium content.
type decoded struct {
	Snapshot  domain.Snapshot
	StoredTag domain.IntegrityTag
	Empty     bool
}

// decodeSnapshot parses raw medium content. Absent or blank content is an
// empty medium tagged EmptyTag. Anything that is not a valid envelope holding
// a valid card set is reported as ErrCorruptData.
func decodeSnapshot(data []byte) (decoded, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return decoded{
			Snapshot: domain.Snapshot{Set: domain.NewCardSet(), Tag: domain.EmptyTag},
			Empty:    true,
		}, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return decoded{}, fmt.Errorf("%w: %w", ErrCorruptData, err)
	}

	set := normalize(domain.CardSet{Format: env.Format, Cards: env.Cards})
	if err := set.Validate(); err != nil {
		return decoded{}, fmt.Errorf("%w: %w", ErrCorruptData, err)
	}

	tag, err := DeriveTag(set)
	if err != nil {
		return decoded{}, fmt.Errorf("%w: %w", ErrCorruptData, err)
	}

	return decoded{
		Snapshot:  domain.Snapshot{Set: set, Tag: tag},
		StoredTag: env.Tag,
	}, nil
}
