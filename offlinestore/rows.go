package offlinestore

// ReleaseType is a reserved extension point for future release-type-aware
// scoring (compilation vs primary album); see DESIGN.md Open Question.
type ReleaseType string

const (
	ReleaseTypeUnknown     ReleaseType = ""
	ReleaseTypeAlbum       ReleaseType = "album"
	ReleaseTypeCompilation ReleaseType = "compilation"
	ReleaseTypeSingle      ReleaseType = "single"
	ReleaseTypeEP          ReleaseType = "ep"
	ReleaseTypeSoundtrack  ReleaseType = "soundtrack"
)

// Row is an immutable recording row as described by spec.md §3. score is a
// row-id in the upstream MusicBrainz export, not a popularity measure:
// lower means earlier-established, i.e. more canonical.
type Row struct {
	RecordingID            string
	RecordingName          string
	RecordingNameClean     string
	ArtistCreditName       string
	ArtistCreditNameClean  string
	ReleaseName            string
	ReleaseNameClean       string
	Score                  int64
	ReleaseType            ReleaseType
}

// Table identifies which of the HOT/COLD partitions a query should target.
type Table string

const (
	TableHot  Table = "recordings_hot"
	TableCold Table = "recordings_cold"
)

// CascadeLevel identifies a tier of the exact->prefix->contains->reverse
// cascade described in spec.md §4.C.
type CascadeLevel int

const (
	LevelExact CascadeLevel = iota
	LevelPrefix
	LevelContains
	LevelReverseContains
)

func (l CascadeLevel) String() string {
	switch l {
	case LevelExact:
		return "exact"
	case LevelPrefix:
		return "prefix"
	case LevelContains:
		return "contains"
	case LevelReverseContains:
		return "reverse_contains"
	default:
		return "unknown"
	}
}
