package session

// Phase is the position of a session in the protocol.
type Phase int

const (
	// Idle means no session is active.
	Idle Phase = iota
	// ShareKeys means the session has begun and its seed awaits sharing.
	ShareKeys
	// MaskedInput means key shares were produced and the update awaits masking.
	MaskedInput
	// Unmasking means the masked update was produced and the session awaits
	// the server's dropout report.
	Unmasking
	// Completed means unmasking shares were produced; only Reset remains.
	Completed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case ShareKeys:
		return "share_keys"
	case MaskedInput:
		return "masked_input"
	case Unmasking:
		return "unmasking"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}
