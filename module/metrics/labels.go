package metrics

const (
	LabelSubsystem   = "subsystem"
	LabelOrigin      = "origin"
	LabelDestination = "destination"
	LabelMessage     = "message"
	LabelDirection   = "direction"
	LabelChannel     = "channel"
	LabelResult      = "result"
)

const (
	ResultValid   = "valid"
	ResultInvalid = "invalid"
)
