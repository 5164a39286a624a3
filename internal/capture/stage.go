package capture

// Stage is the position of a session in the capture flow.
type Stage string

const (
	StageFreeChat Stage = "free_chat"
	StageAskName  Stage = "ask_name"
	StageAskEmail Stage = "ask_email"
	StageAskPhone Stage = "ask_phone"
	StageDone     Stage = "done"
)

// Capturing reports whether the stage collects identity rather than chatting.
func (s Stage) Capturing() bool {
	return s == StageAskName || s == StageAskEmail || s == StageAskPhone
}
