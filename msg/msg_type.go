package msg

// MessageType is the first value of every frame and selects the payload type.
type MessageType uint32

const (
	UndefinedMsg            MessageType = 0
	RegisterWorkerResultMsg MessageType = 1
	RowsMsg                 MessageType = 2
	PivotMsg                MessageType = 3
)

func (t MessageType) String() string {
	switch t {
	case RegisterWorkerResultMsg:
		return "RegisterWorkerResult"
	case RowsMsg:
		return "Rows"
	case PivotMsg:
		return "Pivot"
	default:
		return "Undefined"
	}
}
