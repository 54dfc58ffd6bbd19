// chains/recorder.go

// Package chains relays recording metadata to the supported networks.
package chains

import (
	"context"
	"errors"
	"log"

	"voisss-backend/config"
	"voisss-backend/models"

	"github.com/ethereum/go-ethereum/common"
)

var ErrNotImplemented = errors.New("chain adapter not implemented")

// Recorder saves an IPFS-backed recording on one chain and returns the tx hash.
type Recorder interface {
	Chain() models.Chain
	SaveRecording(ctx context.Context, req models.SaveRecordingRequest) (string, error)
}

// NewRecorders builds a recorder for every chain that has configuration.
// Starknet is always present so callers get ErrNotImplemented instead of an unknown chain.
func NewRecorders(ctx context.Context, cfg config.ChainConfig) []Recorder {
	var out []Recorder
	if cfg.BaseRelayURL != "" {
		relay := NewBaseRelay(cfg.BaseRelayURL)
		switch {
		case cfg.SpenderAddress == "":
		case common.IsHexAddress(cfg.SpenderAddress):
			relay.SpenderAddress = common.HexToAddress(cfg.SpenderAddress).Hex()
		default:
			log.Printf("⚠️ [CHAINS] ignoring invalid SPENDER_ADDRESS %q", cfg.SpenderAddress)
		}
		out = append(out, relay)
	}
	if cfg.ScrollRPCURL != "" && cfg.ScrollContractAddress != "" && cfg.ScrollPrivateKey != "" {
		r, err := NewEVMRecorder(ctx, models.ChainScroll, cfg.ScrollRPCURL, cfg.ScrollContractAddress, cfg.ScrollPrivateKey, cfg.ScrollChainID)
		if err != nil {
			log.Printf("⚠️ [CHAINS] scroll recorder disabled: %v", err)
		} else {
			out = append(out, r)
		}
	}
	out = append(out, NewStarknetRecorder(cfg.StarknetContractAddress))
	return out
}
