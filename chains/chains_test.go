package chains

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"voisss-backend/config"
	"voisss-backend/models"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const owner = "0x1111111111111111111111111111111111111111"

func sampleRequest() models.SaveRecordingRequest {
	return models.SaveRecordingRequest{
		IPFSHash: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		Owner:    owner,
		Metadata: models.RecordingMetadata{Title: "Street", Duration: 12.5, IsPublic: true},
	}
}

func TestBaseRelaySaveRecording(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/base/save-recording" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"txHash":"0xabc"}`))
	}))
	defer srv.Close()

	tx, err := NewBaseRelay(srv.URL+"/").SaveRecording(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("SaveRecording: %v", err)
	}
	if tx != "0xabc" {
		t.Errorf("tx = %q", tx)
	}
	if got["ipfsHash"] != sampleRequest().IPFSHash || got["userAddress"] != owner || got["isPublic"] != true {
		t.Errorf("payload = %v", got)
	}
	if tags, ok := got["tags"].([]any); !ok || len(tags) != 0 {
		t.Errorf("tags = %v, want empty list", got["tags"])
	}
	if _, ok := got["spenderAddress"]; ok {
		t.Errorf("spenderAddress sent without configuration: %v", got["spenderAddress"])
	}
}

func TestBaseRelayRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"error":"bad hash"}`))
	}))
	defer srv.Close()

	if _, err := NewBaseRelay(srv.URL).SaveRecording(context.Background(), sampleRequest()); err == nil {
		t.Fatal("want error on rejected relay")
	}
}

type fakeContract struct {
	method string
	params []interface{}
}

func (f *fakeContract) Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error) {
	f.method = method
	f.params = params
	return types.NewTx(&types.LegacyTx{Nonce: 7, GasPrice: big.NewInt(1), Gas: 21000}), nil
}

func TestEVMRecorderTransact(t *testing.T) {
	key, _ := crypto.GenerateKey()
	fake := &fakeContract{}
	r := &EVMRecorder{
		chain:    models.ChainScroll,
		contract: fake,
		signer:   testSigner(key),
	}

	tx, err := r.SaveRecording(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("SaveRecording: %v", err)
	}
	if len(tx) != 66 {
		t.Errorf("tx hash = %q", tx)
	}
	if fake.method != "saveRecording" || len(fake.params) != 7 {
		t.Fatalf("call = %s %v", fake.method, fake.params)
	}
	if fake.params[6] != common.HexToAddress(owner) {
		t.Errorf("owner param = %v", fake.params[6])
	}
	if d := fake.params[3].(*big.Int); d.Int64() != 12 {
		t.Errorf("duration param = %v", d)
	}
}

func testSigner(key *ecdsa.PrivateKey) func(context.Context) (*bind.TransactOpts, error) {
	return func(ctx context.Context) (*bind.TransactOpts, error) {
		return bind.NewKeyedTransactorWithChainID(key, big.NewInt(534352))
	}
}

func TestNewEVMRecorderValidation(t *testing.T) {
	ctx := context.Background()
	if _, err := NewEVMRecorder(ctx, models.ChainScroll, "http://127.0.0.1:8545", "not-an-address", "00", 1); err == nil {
		t.Error("bad contract address: want error")
	}
	if _, err := NewEVMRecorder(ctx, models.ChainScroll, "http://127.0.0.1:8545", owner, "zz", 1); err == nil {
		t.Error("bad private key: want error")
	}
}

func TestStarknetNotImplemented(t *testing.T) {
	_, err := NewStarknetRecorder("0x1").SaveRecording(context.Background(), sampleRequest())
	if !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("err = %v, want ErrNotImplemented", err)
	}
}

func TestNewRecordersAlwaysIncludesStarknet(t *testing.T) {
	recs := NewRecorders(context.Background(), config.ChainConfig{BaseRelayURL: "http://relay"})
	chains := map[models.Chain]bool{}
	for _, r := range recs {
		chains[r.Chain()] = true
	}
	if !chains[models.ChainBase] || !chains[models.ChainStarknet] || chains[models.ChainScroll] {
		t.Errorf("chains = %v", chains)
	}
}

func TestNewRecordersSpender(t *testing.T) {
	spender := "0xabcdef0000000000000000000000000000000001"
	recs := NewRecorders(context.Background(), config.ChainConfig{BaseRelayURL: "http://relay", SpenderAddress: spender})
	relay, ok := recs[0].(*BaseRelay)
	if !ok {
		t.Fatalf("first recorder = %T", recs[0])
	}
	if relay.SpenderAddress != common.HexToAddress(spender).Hex() {
		t.Errorf("spender = %q", relay.SpenderAddress)
	}

	recs = NewRecorders(context.Background(), config.ChainConfig{BaseRelayURL: "http://relay", SpenderAddress: "not-an-address"})
	if recs[0].(*BaseRelay).SpenderAddress != "" {
		t.Error("invalid spender should be ignored")
	}
}
