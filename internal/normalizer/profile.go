package normalizer

// Canonical raw field keys. Adapters that already speak the canonical schema
// use these and the DefaultProfile.
const (
	KeyTitle    = "title"
	KeyDate     = "date"
	KeyCategory = "category"
	KeySummary  = "summary"
	KeyURL      = "url"
)

// Profile maps one source's raw field names onto the Record schema.
type Profile struct {
	TitleKey    string
	DateKey     string
	CategoryKey string
	SummaryKey  string
	URLKey      string

	// DateLayout is the source's date format (Go reference layout). When set
	// and the value parses, the date is rewritten as YYYY-MM-DD; otherwise
	// the value is kept verbatim.
	DateLayout string

	// IdentityKeys are hashed into the checksum, joined with "|".
	// Empty means the title alone.
	IdentityKeys []string
}

// DefaultProfile reads canonical keys and identifies records by title.
var DefaultProfile = Profile{
	TitleKey:    KeyTitle,
	DateKey:     KeyDate,
	CategoryKey: KeyCategory,
	SummaryKey:  KeySummary,
	URLKey:      KeyURL,
}

func (p Profile) identityKeys() []string {
	if len(p.IdentityKeys) == 0 {
		return []string{p.TitleKey}
	}
	return p.IdentityKeys
}
