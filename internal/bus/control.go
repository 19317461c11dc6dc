package bus

// Control-plane ops carried on the wsctl topics.
const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpReplace     = "replace"
)

// ControlCommand mutates a process's upstream subscription set. The bridge
// publishes these; each ingestion process consumes only the commands whose
// Channel matches its role.
type ControlCommand struct {
	Op      string   `json:"op"`
	Channel string   `json:"channel"`
	Symbols []string `json:"symbols"`
}
