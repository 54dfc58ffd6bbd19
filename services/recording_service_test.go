package services

import (
	"context"
	"errors"
	"testing"

	"voisss-backend/chains"
	"voisss-backend/models"
)

type mockRecorder struct {
	chain models.Chain
	calls int
}

func (m *mockRecorder) Chain() models.Chain { return m.chain }

func (m *mockRecorder) SaveRecording(ctx context.Context, req models.SaveRecordingRequest) (string, error) {
	m.calls++
	return "0xdeadbeef", nil
}

const testCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func TestRecordingServiceRoutesByChain(t *testing.T) {
	base := &mockRecorder{chain: models.ChainBase}
	s := NewRecordingService(base, chains.NewStarknetRecorder(""))

	rc, err := s.SaveRecording(context.Background(), models.SaveRecordingRequest{
		Chain:    models.ChainBase,
		IPFSHash: testCID,
		Owner:    "0x1111111111111111111111111111111111111111",
		Metadata: models.RecordingMetadata{Title: "Walk"},
	})
	if err != nil {
		t.Fatalf("SaveRecording: %v", err)
	}
	if rc.TxHash != "0xdeadbeef" || rc.Chain != models.ChainBase || base.calls != 1 {
		t.Errorf("receipt = %+v", rc)
	}

	_, err = s.SaveRecording(context.Background(), models.SaveRecordingRequest{
		Chain: models.ChainStarknet, IPFSHash: testCID, Owner: "0x1", Metadata: models.RecordingMetadata{Title: "Walk"},
	})
	if !errors.Is(err, chains.ErrNotImplemented) {
		t.Errorf("starknet err = %v", err)
	}
}

func TestRecordingServiceValidation(t *testing.T) {
	base := &mockRecorder{chain: models.ChainBase}
	s := NewRecordingService(base)
	good := models.SaveRecordingRequest{
		Chain:    models.ChainBase,
		IPFSHash: testCID,
		Owner:    "0x1111111111111111111111111111111111111111",
		Metadata: models.RecordingMetadata{Title: "Walk"},
	}

	tests := []struct {
		name   string
		mutate func(*models.SaveRecordingRequest)
		want   error
	}{
		{"unknown chain", func(r *models.SaveRecordingRequest) { r.Chain = "solana" }, ErrUnsupportedChain},
		{"bad cid", func(r *models.SaveRecordingRequest) { r.IPFSHash = "not-a-cid" }, ErrInvalidRecording},
		{"no title", func(r *models.SaveRecordingRequest) { r.Metadata.Title = "" }, ErrInvalidRecording},
		{"bad owner", func(r *models.SaveRecordingRequest) { r.Owner = "alice" }, ErrInvalidRecording},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := good
			tt.mutate(&req)
			if _, err := s.SaveRecording(context.Background(), req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if base.calls != 0 {
		t.Errorf("recorder called %d times for invalid requests", base.calls)
	}
}

func TestIsValidCID(t *testing.T) {
	if !IsValidCID(testCID) {
		t.Error("CIDv0 rejected")
	}
	if !IsValidCID("bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi") {
		t.Error("CIDv1 rejected")
	}
	if IsValidCID("Qm123") {
		t.Error("short hash accepted")
	}
}
