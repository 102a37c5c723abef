package catalog

import "time"

// nowRFC3339 formats the current time the way every timestamp column in
// this store is persisted: RFC 3339 in UTC with a fixed-width nanosecond
// fraction, so lexical and chronological ordering agree.
func nowRFC3339() string {
	return formatTime(time.Now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// Provider is an upstream IPTV source.
type Provider struct {
	ID             string
	Name           string
	PlaylistURL    string
	GuideURL       string
	Headers        map[string]string
	UserAgent      string
	TimeoutSeconds int
	Enabled        bool
	IsActive       bool
	IncludeVOD     bool
	IncludeSeries  bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Profile is a named output lineup.
type Profile struct {
	ID         string
	Name       string
	OutputName string
	Enabled    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProfileProvider associates a Profile with a Provider at a given priority.
type ProfileProvider struct {
	ProfileID  string
	ProviderID string
	Priority   int
	Enabled    bool
}

// GroupContentType is a ProviderGroup's aggregate content-type label.
type GroupContentType string

const (
	GroupLive   GroupContentType = "live"
	GroupVOD    GroupContentType = "vod"
	GroupSeries GroupContentType = "series"
	GroupMixed  GroupContentType = "mixed"
)

// ProviderGroup is a raw group name seen under one provider.
type ProviderGroup struct {
	ID           string
	ProviderID   string
	RawName      string
	FirstSeen    time.Time
	LastSeen     time.Time
	Active       bool
	ChannelCount int
	ContentType  GroupContentType
}

// ProviderChannel is one channel entry seen under one provider, keyed by a
// stable hash derived from its identity (see internal/identity).
type ProviderChannel struct {
	ID             string
	ProviderID     string
	StableKey      string
	DisplayName    string
	TvgID          string
	TvgName        string
	TvgLogo        string
	StreamURL      string
	GroupRawName   string
	GroupID        string
	ContentType    string
	FirstSeen      time.Time
	LastSeen       time.Time
	Active         bool
	LastFetchRunID string
}

// FilterDecision is an operator's disposition for a ProviderGroup within a
// Profile.
type FilterDecision string

const (
	DecisionPending FilterDecision = "pending"
	DecisionInclude FilterDecision = "include"
	DecisionExclude FilterDecision = "exclude"
)

// ChannelMode controls whether a filter's include applies to every active
// channel in the group or only to explicitly listed overrides.
type ChannelMode string

const (
	ChannelModeAll    ChannelMode = "all"
	ChannelModeSelect ChannelMode = "select"
)

// ProfileGroupFilter is the operator's decision for one (profile, group) pair.
type ProfileGroupFilter struct {
	ID                string
	ProfileID         string
	ProviderGroupID   string
	Decision          FilterDecision
	ChannelMode       ChannelMode
	OutputName        string
	AutoNumStart      *int
	AutoNumEnd        *int
	TrackNewChannels  bool
}

// ProfileGroupChannelFilter is a per-channel override under a select-mode
// group filter.
type ProfileGroupChannelFilter struct {
	ID                string
	ParentFilterID    string
	ProviderChannelID string
	OutputGroupName   string
	ChannelNumber     *int
}

// FetchRunType distinguishes a full snapshot-producing fetch from a preview
// fetch used to validate provider settings without publishing.
type FetchRunType string

const (
	FetchRunSnapshot FetchRunType = "snapshot"
	FetchRunPreview  FetchRunType = "preview"
)

// FetchRunStatus is a FetchRun's lifecycle state.
type FetchRunStatus string

const (
	FetchRunRunning FetchRunStatus = "running"
	FetchRunOK      FetchRunStatus = "ok"
	FetchRunFail    FetchRunStatus = "fail"
)

// FetchRun records one attempt to retrieve and process a provider's playlist.
type FetchRun struct {
	ID               string
	ProviderID       string
	Type             FetchRunType
	StartedAt        time.Time
	FinishedAt       time.Time
	Status           FetchRunStatus
	BytesFetched     int64
	ChannelCountSeen int
	ErrorSummary     string
}

// SnapshotStatus is a Snapshot's lifecycle state.
type SnapshotStatus string

const (
	SnapshotStaged   SnapshotStatus = "staged"
	SnapshotActive   SnapshotStatus = "active"
	SnapshotArchived SnapshotStatus = "archived"
)

// Snapshot is one published-artifact generation for a Profile.
type Snapshot struct {
	ID                    string
	ProfileID             string
	CreatedAt             time.Time
	Status                SnapshotStatus
	ChannelIndexPath      string
	GuidePath             string
	ChannelCountPublished int
	ErrorSummary          string
}
