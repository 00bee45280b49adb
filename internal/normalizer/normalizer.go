// Package normalizer turns adapter output into canonical records and assigns
// each one its identity checksum.
package normalizer

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benny59/architetti/internal/model"
)

var (
	// ErrMissingTitle is returned for raw fields without a usable title.
	ErrMissingTitle = errors.New("missing title")
	// ErrMissingIdentity is returned when an identity field other than the title is empty.
	ErrMissingIdentity = errors.New("missing identity field")
	// ErrUnknownSource is returned for nicknames without a registered profile.
	ErrUnknownSource = errors.New("unknown source")
)

const isoDate = "2006-01-02"

// Normalizer holds one Profile per source nickname.
type Normalizer struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// New creates an empty Normalizer.
func New() *Normalizer {
	return &Normalizer{profiles: make(map[string]Profile)}
}

// Register sets the profile used for nickname.
func (n *Normalizer) Register(nickname string, p Profile) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.profiles[nickname] = p
}

// Profile returns the profile registered for nickname.
func (n *Normalizer) Profile(nickname string) (Profile, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	p, ok := n.profiles[nickname]
	return p, ok
}

// Normalize maps raw onto a Record using the nickname's profile. Unknown raw
// keys are ignored.
func (n *Normalizer) Normalize(raw model.RawFields, nickname string) (model.Record, error) {
	p, ok := n.Profile(nickname)
	if !ok {
		return model.Record{}, fmt.Errorf("%w: %s", ErrUnknownSource, nickname)
	}
	return Apply(p, raw)
}

// Apply normalizes raw with an explicit profile.
func Apply(p Profile, raw model.RawFields) (model.Record, error) {
	title := raw.Get(p.TitleKey)
	if title == "" || title == model.NotAvailable {
		return model.Record{}, ErrMissingTitle
	}

	checksum, err := identity(p, raw)
	if err != nil {
		return model.Record{}, err
	}

	return model.Record{
		Title:    title,
		Date:     formatDate(raw.Get(p.DateKey), p.DateLayout),
		Category: orDefault(raw.Get(p.CategoryKey), model.NotAvailable),
		Summary:  orDefault(raw.Get(p.SummaryKey), model.NotAvailable),
		URL:      orDefault(raw.Get(p.URLKey), model.URLNotAvailable),
		Checksum: checksum,
	}, nil
}

func identity(p Profile, raw model.RawFields) (string, error) {
	keys := p.identityKeys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := raw.Get(k)
		if v == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingIdentity, k)
		}
		parts = append(parts, v)
	}
	return Checksum(strings.Join(parts, "|")), nil
}

// Checksum is the lowercase hex MD5 digest of value.
func Checksum(value string) string {
	sum := md5.Sum([]byte(value))
	return hex.EncodeToString(sum[:])
}

func formatDate(value, layout string) string {
	if value == "" {
		return model.DateNotAvailable
	}
	if layout == "" {
		return value
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return value
	}
	return t.Format(isoDate)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
