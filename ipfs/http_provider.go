// ipfs/http_provider.go
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"voisss-backend/models"

	"github.com/go-resty/resty/v2"
	"github.com/spyzhov/ajson"
)

// HTTPProvider pins through a multipart POST endpoint. Each pinning service
// differs only in path, auth and where the hash sits in the response.
type HTTPProvider struct {
	name     string
	BaseURL  string
	path     string
	hashPath string
	sizePath string
	gateway  string
	auth     func(*resty.Request)
	extra    func(*resty.Request, models.AudioMetadata)
	client   *resty.Client
}

func newHTTPProvider(name, baseURL, path, hashPath, sizePath, gateway string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:     name,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		path:     path,
		hashPath: hashPath,
		sizePath: sizePath,
		gateway:  gateway,
		auth:     func(*resty.Request) {},
		client:   resty.New().SetTimeout(timeout),
	}
}

// NewPinataProvider uses Pinata's pinFileToIPFS with a JWT.
func NewPinataProvider(jwt, gateway string, timeout time.Duration) *HTTPProvider {
	p := newHTTPProvider("pinata", "https://api.pinata.cloud", "/pinning/pinFileToIPFS", "$.IpfsHash", "$.PinSize", gateway, timeout)
	p.auth = func(r *resty.Request) { r.SetAuthToken(jwt) }
	p.extra = func(r *resty.Request, meta models.AudioMetadata) {
		keyvalues := map[string]string{"contentType": meta.ContentType}
		if meta.UserID != "" {
			keyvalues["userId"] = meta.UserID
		}
		if meta.Title != "" {
			keyvalues["title"] = meta.Title
		}
		pm, _ := json.Marshal(map[string]any{"name": meta.Filename, "keyvalues": keyvalues})
		r.SetMultipartFormData(map[string]string{"pinataMetadata": string(pm)})
	}
	return p
}

// NewInfuraProvider uses the Infura IPFS API with project credentials.
func NewInfuraProvider(projectID, projectSecret, gateway string, timeout time.Duration) *HTTPProvider {
	p := newHTTPProvider("infura", "https://ipfs.infura.io:5001", "/api/v0/add?pin=true", "$.Hash", "$.Size", gateway, timeout)
	p.auth = func(r *resty.Request) { r.SetBasicAuth(projectID, projectSecret) }
	return p
}

func NewWeb3StorageProvider(token, gateway string, timeout time.Duration) *HTTPProvider {
	p := newHTTPProvider("web3storage", "https://api.web3.storage", "/upload", "$.cid", "", gateway, timeout)
	p.auth = func(r *resty.Request) { r.SetAuthToken(token) }
	return p
}

// NewLocalNodeProvider talks to a kubo node's RPC API.
func NewLocalNodeProvider(nodeURL, gateway string, timeout time.Duration) *HTTPProvider {
	return newHTTPProvider("local", nodeURL, "/api/v0/add?pin=true", "$.Hash", "$.Size", gateway, timeout)
}

func (p *HTTPProvider) Name() string { return p.name }

func (p *HTTPProvider) Upload(ctx context.Context, data []byte, meta models.AudioMetadata) (*models.UploadResult, error) {
	filename := meta.Filename
	if filename == "" {
		filename = "recording"
	}

	req := p.client.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(data))
	p.auth(req)
	if p.extra != nil {
		p.extra(req, meta)
	}

	resp, err := req.Post(p.BaseURL + p.path)
	if err != nil {
		return nil, fmt.Errorf("%s upload request failed: %w", p.name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s upload failed with status %d: %s", p.name, resp.StatusCode(), truncate(resp.String(), 200))
	}

	hash, size, err := parsePinResponse(resp.Body(), p.hashPath, p.sizePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	if size <= 0 {
		size = int64(len(data))
	}
	return &models.UploadResult{
		Hash:     hash,
		Size:     size,
		URL:      GatewayURL(p.gateway, hash),
		Provider: p.name,
	}, nil
}

// parsePinResponse pulls the hash and optional size out of a provider body.
// Infura and kubo report Size as a string, Pinata as a number.
func parsePinResponse(body []byte, hashPath, sizePath string) (string, int64, error) {
	nodes, err := ajson.JSONPath(body, hashPath)
	if err != nil {
		return "", 0, fmt.Errorf("decoding pin response: %w", err)
	}
	if len(nodes) == 0 || !nodes[0].IsString() {
		return "", 0, fmt.Errorf("pin response has no hash at %s", hashPath)
	}
	hash, _ := nodes[0].GetString()
	if hash == "" {
		return "", 0, fmt.Errorf("pin response has an empty hash")
	}

	if sizePath == "" {
		return hash, 0, nil
	}
	nodes, err = ajson.JSONPath(body, sizePath)
	if err != nil || len(nodes) == 0 {
		return hash, 0, nil
	}
	var size int64
	switch n := nodes[0]; {
	case n.IsNumeric():
		f, _ := n.GetNumeric()
		size = int64(f)
	case n.IsString():
		s, _ := n.GetString()
		fmt.Sscanf(s, "%d", &size)
	}
	return hash, size, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
