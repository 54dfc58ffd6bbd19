// chains/starknet.go
package chains

import (
	"context"
	"fmt"

	"voisss-backend/models"
)

// StarknetRecorder is a placeholder until a Starknet signer is wired in.
type StarknetRecorder struct {
	contract string
}

func NewStarknetRecorder(contract string) *StarknetRecorder {
	return &StarknetRecorder{contract: contract}
}

func (r *StarknetRecorder) Chain() models.Chain { return models.ChainStarknet }

func (r *StarknetRecorder) SaveRecording(ctx context.Context, req models.SaveRecordingRequest) (string, error) {
	return "", fmt.Errorf("starknet save_recording: %w", ErrNotImplemented)
}
