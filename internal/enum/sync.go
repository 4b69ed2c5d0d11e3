package enum

type SyncState string

const (
	SyncIdle       SyncState = "idle"
	SyncFetching   SyncState = "fetching"
	SyncDiffing    SyncState = "diffing"
	SyncBackoff    SyncState = "backoff"
	SyncAuthFailed SyncState = "auth_failed"
)

func (t SyncState) String() string {
	return string(t)
}

type ChangeType string

const (
	MessageAdded          ChangeType = "message_added"
	MessageRemoved        ChangeType = "message_removed"
	ListenedStatusChanged ChangeType = "listened_status_changed"
	CountsChanged         ChangeType = "counts_changed"
)

func (t ChangeType) String() string {
	return string(t)
}

type Availability string

const (
	AvailabilityOnline  Availability = "online"
	AvailabilityOffline Availability = "offline"
)

func (t Availability) String() string {
	return string(t)
}
