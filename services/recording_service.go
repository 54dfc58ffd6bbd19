// services/recording_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"voisss-backend/chains"
	"voisss-backend/models"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnsupportedChain = errors.New("unsupported chain")
	ErrInvalidRecording = errors.New("invalid recording")
)

var (
	cidV0Re = regexp.MustCompile(`^Qm[1-9A-HJ-NP-Za-km-z]{44}$`)
	cidV1Re = regexp.MustCompile(`^b[a-z2-7]{58,}$`)
)

// IsValidCID accepts base58 CIDv0 and base32 CIDv1 strings.
func IsValidCID(s string) bool {
	return cidV0Re.MatchString(s) || cidV1Re.MatchString(s)
}

type RecordingService struct {
	recorders map[models.Chain]chains.Recorder
}

func NewRecordingService(recorders ...chains.Recorder) *RecordingService {
	m := make(map[models.Chain]chains.Recorder, len(recorders))
	for _, r := range recorders {
		m[r.Chain()] = r
	}
	return &RecordingService{recorders: m}
}

func (s *RecordingService) SaveRecording(ctx context.Context, req models.SaveRecordingRequest) (*models.RecordingReceipt, error) {
	rec, ok := s.recorders[req.Chain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedChain, req.Chain)
	}
	if !IsValidCID(req.IPFSHash) {
		return nil, fmt.Errorf("%w: ipfs_hash is not a CID", ErrInvalidRecording)
	}
	if strings.TrimSpace(req.Metadata.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidRecording)
	}
	if req.Chain != models.ChainStarknet && !common.IsHexAddress(req.Owner) {
		return nil, fmt.Errorf("%w: owner %q is not an EVM address", ErrInvalidRecording, req.Owner)
	}

	txHash, err := rec.SaveRecording(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Printf("⛓️ [CHAINS] %s recording %s saved in %s", req.Chain, req.IPFSHash, txHash)
	return &models.RecordingReceipt{Chain: req.Chain, TxHash: txHash, IPFSHash: req.IPFSHash}, nil
}
