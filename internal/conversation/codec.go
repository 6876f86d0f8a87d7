package conversation

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/interview-coach/internal/types"
)

// EncodeState serializes state as it will be stored at version. state itself is not modified.
func EncodeState(state *types.ConversationState, version int64) ([]byte, error) {
	snapshot := *state
	snapshot.Version = version
	data, err := json.Marshal(&snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal thread %s: %w", state.ThreadID, err)
	}
	return data, nil
}

// DecodeState restores a stored state. The version kept alongside the record wins over the serialized one.
func DecodeState(data []byte, version int64) (*types.ConversationState, error) {
	var state types.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal thread state: %w", err)
	}
	state.Version = version
	return &state, nil
}
