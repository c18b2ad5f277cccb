package types

// Metadata is the authorization context forwarded unchanged with every dispatch.
type Metadata struct {
	Creator string   `json:"creator"`
	Signers []string `json:"signers"`
}

// State is the singular relay configuration record.
//
// Fields:
// - RetryDelay: the retry window in seconds applied by the retry gate.
// - JobID: the relay job that carries every dispatch.
// - Owner: the only identity allowed to execute actions.
// - Metadata: the creator and signers forwarded with every dispatch.
type State struct {
	RetryDelay uint64   `json:"retry_delay"`
	JobID      string   `json:"job_id"`
	Owner      string   `json:"owner"`
	Metadata   Metadata `json:"metadata"`
}

// Invocation carries the caller identity and the ledger time of one call.
type Invocation struct {
	Sender    string
	BlockTime uint64
}
