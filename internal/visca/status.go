package visca

// Status is the state of the command channel as reported to the host
type Status int

const (
	StatusOK Status = iota
	StatusConnecting
	StatusDisconnected
	StatusBadConfig
	StatusConnectionFailure
)

// AllStatuses lists every Status in declaration order
var AllStatuses = []Status{
	StatusOK,
	StatusConnecting,
	StatusDisconnected,
	StatusBadConfig,
	StatusConnectionFailure,
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusConnecting:
		return "connecting"
	case StatusDisconnected:
		return "disconnected"
	case StatusBadConfig:
		return "bad_config"
	case StatusConnectionFailure:
		return "connection_failure"
	default:
		return "unknown"
	}
}

// StatusNames returns the String form of every Status, for metrics labels
func StatusNames() []string {
	names := make([]string, len(AllStatuses))
	for i, s := range AllStatuses {
		names[i] = s.String()
	}
	return names
}
