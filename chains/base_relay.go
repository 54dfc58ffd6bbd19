// chains/base_relay.go
package chains

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voisss-backend/models"

	"github.com/go-resty/resty/v2"
)

// BaseRelay hands recordings to the gasless relay backend for Base.
type BaseRelay struct {
	// SpenderAddress is the backend account that pays for the relayed call. Optional.
	SpenderAddress string

	baseURL string
	client  *resty.Client
}

func NewBaseRelay(baseURL string) *BaseRelay {
	return &BaseRelay{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  resty.New().SetTimeout(30 * time.Second),
	}
}

func (r *BaseRelay) Chain() models.Chain { return models.ChainBase }

type relayRequest struct {
	IPFSHash    string   `json:"ipfsHash"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Duration    float64  `json:"duration"`
	IsPublic    bool     `json:"isPublic"`
	Tags        []string `json:"tags"`
	UserAddress string   `json:"userAddress"`
	Spender     string   `json:"spenderAddress,omitempty"`
}

type relayResponse struct {
	Success bool   `json:"success"`
	TxHash  string `json:"txHash"`
	Error   string `json:"error"`
}

func (r *BaseRelay) SaveRecording(ctx context.Context, req models.SaveRecordingRequest) (string, error) {
	tags := req.Metadata.Tags
	if tags == nil {
		tags = []string{}
	}
	var out relayResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(relayRequest{
			IPFSHash:    req.IPFSHash,
			Title:       req.Metadata.Title,
			Description: req.Metadata.Description,
			Duration:    req.Metadata.Duration,
			IsPublic:    req.Metadata.IsPublic,
			Tags:        tags,
			UserAddress: req.Owner,
			Spender:     r.SpenderAddress,
		}).
		SetResult(&out).
		SetError(&out).
		Post(r.baseURL + "/api/base/save-recording")
	if err != nil {
		return "", fmt.Errorf("base relay request failed: %w", err)
	}
	if resp.IsError() || !out.Success {
		msg := out.Error
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("base relay rejected recording: %s", msg)
	}
	if out.TxHash == "" {
		return "", fmt.Errorf("base relay returned no transaction hash")
	}
	return out.TxHash, nil
}
