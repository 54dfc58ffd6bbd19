// models/recording.go
package models

type Chain string

const (
	ChainBase     Chain = "base"
	ChainScroll   Chain = "scroll"
	ChainStarknet Chain = "starknet"
)

type RecordingMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Duration    float64  `json:"duration"`
	IsPublic    bool     `json:"is_public"`
	Tags        []string `json:"tags,omitempty"`
}

// SaveRecordingRequest relays an IPFS hash plus metadata to a chain.
type SaveRecordingRequest struct {
	Chain    Chain             `json:"chain"`
	IPFSHash string            `json:"ipfs_hash"`
	Owner    string            `json:"owner"`
	Metadata RecordingMetadata `json:"metadata"`
}

type RecordingReceipt struct {
	Chain    Chain  `json:"chain"`
	TxHash   string `json:"tx_hash"`
	IPFSHash string `json:"ipfs_hash"`
}
