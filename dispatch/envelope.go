package dispatch

import "github.com/ClipFinance/juice-bot-relay/common/types"

// NewEnvelope wraps encoded call data with the job id and metadata of the relay configuration.
// The metadata is copied so that later changes to state do not reach the envelope.
func NewEnvelope(state *types.State, payload []byte) types.DispatchEnvelope {
	return types.DispatchEnvelope{
		JobID:   state.JobID,
		Payload: payload,
		Metadata: types.Metadata{
			Creator: state.Metadata.Creator,
			Signers: append([]string(nil), state.Metadata.Signers...),
		},
	}
}
