package protocol

// CommandType defines the type of the command (using uint8 for memory alignment and performance)
type CommandType uint8

// Command Type Numbering Strategy:
// - 0-50:  Market Management Commands (scheduler driven)
// - 51+:   Trading Commands (agent driven)
const (
	CmdUnknown    CommandType = 0
	CmdClear      CommandType = 1
	CmdEndOfRound CommandType = 2
	CmdEndOfDay   CommandType = 3
	CmdClose      CommandType = 4
	CmdRegister   CommandType = 5

	CmdSubmitShout   CommandType = 51
	CmdWithdrawShout CommandType = 52
)

func (t CommandType) String() string {
	switch t {
	case CmdClear:
		return "clear"
	case CmdEndOfRound:
		return "end_of_round"
	case CmdEndOfDay:
		return "end_of_day"
	case CmdClose:
		return "close"
	case CmdRegister:
		return "register"
	case CmdSubmitShout:
		return "submit_shout"
	case CmdWithdrawShout:
		return "withdraw_shout"
	}
	return "unknown"
}

// Command is the standard carrier for commands entering an auctioneer.
// A scenario is a sequence of commands, so runs can be recorded and replayed.
type Command struct {
	// Version is the protocol version for backward compatibility.
	Version uint8 `json:"version"`

	// MarketID is the target market for this command.
	MarketID string `json:"market_id"`

	// SeqID is used for ordering and deduplication.
	SeqID uint64 `json:"seq_id"`

	// Type identifies the payload type for fast routing.
	Type CommandType `json:"type"`

	// Payload contains the serialized business data (e.g., JSON bytes of SubmitShoutCommand).
	// Management commands carry no payload.
	Payload []byte `json:"payload,omitempty"`

	// Metadata stores non-business context (e.g., replication id).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SubmitShoutCommand is the payload for submitting a new shout.
type SubmitShoutCommand struct {
	AgentID  uint64  `json:"agent_id"`
	Side     Side    `json:"side"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// WithdrawShoutCommand is the payload for withdrawing a live shout.
type WithdrawShoutCommand struct {
	ShoutID uint64 `json:"shout_id"`
	AgentID uint64 `json:"agent_id"`
}

// RegisterAgentCommand is the payload for declaring an agent's role.
type RegisterAgentCommand struct {
	AgentID uint64 `json:"agent_id"`
	Role    Role   `json:"role"`
}
