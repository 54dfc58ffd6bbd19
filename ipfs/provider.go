// ipfs/provider.go

// Package ipfs holds the pinning providers audio uploads are pushed to.
package ipfs

import (
	"context"
	"fmt"
	"log"
	"strings"

	"voisss-backend/config"
	"voisss-backend/models"
)

// Provider pins a single payload and returns its content address.
type Provider interface {
	Name() string
	Upload(ctx context.Context, data []byte, meta models.AudioMetadata) (*models.UploadResult, error)
}

// GatewayURL joins a gateway base and a content hash.
func GatewayURL(gateway, hash string) string {
	return strings.TrimRight(gateway, "/") + "/ipfs/" + hash
}

// NewProviders builds the configured primary and fallback providers.
// Providers without credentials are skipped with a log line.
func NewProviders(ctx context.Context, cfg config.IPFSConfig) (Provider, []Provider, error) {
	var fallbacks []Provider
	seen := map[string]bool{strings.ToLower(cfg.Primary): true}
	for _, name := range cfg.Fallbacks {
		if seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		p, err := newProvider(ctx, name, cfg)
		if err != nil {
			log.Printf("⚠️ [IPFS] skipping fallback %q: %v", name, err)
			continue
		}
		fallbacks = append(fallbacks, p)
	}

	primary, err := newProvider(ctx, cfg.Primary, cfg)
	if err != nil {
		if len(fallbacks) == 0 {
			return nil, nil, fmt.Errorf("primary IPFS provider %q: %w", cfg.Primary, err)
		}
		log.Printf("⚠️ [IPFS] primary %q unusable (%v), promoting %s", cfg.Primary, err, fallbacks[0].Name())
		primary, fallbacks = fallbacks[0], fallbacks[1:]
	}
	log.Printf("✅ [IPFS] primary=%s fallbacks=%d", primary.Name(), len(fallbacks))
	return primary, fallbacks, nil
}

func newProvider(ctx context.Context, name string, cfg config.IPFSConfig) (Provider, error) {
	switch strings.ToLower(name) {
	case "pinata":
		if cfg.PinataJWT == "" {
			return nil, fmt.Errorf("PINATA_JWT is not set")
		}
		return NewPinataProvider(cfg.PinataJWT, cfg.GatewayURL, cfg.Timeout), nil
	case "infura":
		if cfg.InfuraProjectID == "" || cfg.InfuraProjectSecret == "" {
			return nil, fmt.Errorf("INFURA_PROJECT_ID / INFURA_PROJECT_SECRET are not set")
		}
		return NewInfuraProvider(cfg.InfuraProjectID, cfg.InfuraProjectSecret, cfg.GatewayURL, cfg.Timeout), nil
	case "web3storage":
		if cfg.Web3StorageToken == "" {
			return nil, fmt.Errorf("WEB3_STORAGE_TOKEN is not set")
		}
		return NewWeb3StorageProvider(cfg.Web3StorageToken, cfg.GatewayURL, cfg.Timeout), nil
	case "local":
		if cfg.LocalNodeURL == "" {
			return nil, fmt.Errorf("IPFS_LOCAL_NODE_URL is not set")
		}
		return NewLocalNodeProvider(cfg.LocalNodeURL, cfg.GatewayURL, cfg.Timeout), nil
	case "filebase":
		if cfg.FilebaseAccessKeyID == "" || cfg.FilebaseSecretAccessKey == "" || cfg.FilebaseBucket == "" {
			return nil, fmt.Errorf("FILEBASE_ACCESS_KEY_ID / FILEBASE_SECRET_ACCESS_KEY / FILEBASE_BUCKET are not set")
		}
		return NewFilebaseProvider(ctx, cfg.FilebaseAccessKeyID, cfg.FilebaseSecretAccessKey, cfg.FilebaseBucket, cfg.GatewayURL)
	default:
		return nil, fmt.Errorf("unknown provider")
	}
}
