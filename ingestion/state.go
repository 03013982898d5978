package ingestion

// State is a pipeline run phase.
type State int32

const (
	StateIdle State = iota
	StateServiceCheck
	StateCollectionSetup
	StateLoading
	StateImporting
	StateVerifying
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateServiceCheck:
		return "ServiceCheck"
	case StateCollectionSetup:
		return "CollectionSetup"
	case StateLoading:
		return "Loading"
	case StateImporting:
		return "Importing"
	case StateVerifying:
		return "Verifying"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	}
	return "Unknown"
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
