package ingest

// Event is a canonical listening event, shared by every downstream stage.
// Artist and track names are pointers because both export formats may omit
// them (podcast episodes, local files); EndTime is minute precision.
type Event struct {
	EndTime    string  // "2006-01-02 15:04"
	ArtistName *string
	TrackName  *string
	MsPlayed   int64
}

// Format identifies which export schema a batch of raw records uses.
type Format int

const (
	FormatUnknown Format = iota
	FormatLegacy
	FormatExtended
)

func (f Format) String() string {
	switch f {
	case FormatLegacy:
		return "legacy"
	case FormatExtended:
		return "extended"
	default:
		return "unknown"
	}
}

// legacyRecord is a record from a StreamingHistory*.json export.
type legacyRecord struct {
	EndTime    string  `json:"endTime"`
	ArtistName *string `json:"artistName"`
	TrackName  *string `json:"trackName"`
	MsPlayed   int64   `json:"msPlayed"`
}

// extendedRecord is a record from an extended streaming history export.
type extendedRecord struct {
	TS         string  `json:"ts"`
	ArtistName *string `json:"master_metadata_album_artist_name"`
	TrackName  *string `json:"master_metadata_track_name"`
	MsPlayed   int64   `json:"ms_played"`
}
