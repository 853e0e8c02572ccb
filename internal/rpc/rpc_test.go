package rpc

import (
	"bytes"
	"testing"

	"github.com/arc-language/omg/internal/model"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello rpc frame")

	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	got, err := ReadFrame(&buf, MaxFrameSize)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	payload := make([]byte, MaxFrameSize+1)
	if err := WriteFrame(&buf, payload); err == nil {
		t.Fatal("expected error for payload exceeding MaxFrameSize")
	}
}

func TestReadFrameRejectsOversizedDeclaredLength(t *testing.T) {
	var buf bytes.Buffer
	// Hand-craft a frame header declaring a length beyond maxLen, without
	// ever writing that many payload bytes — ReadFrame must reject before
	// attempting to read the (absent) body.
	hdr := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	buf.Write(hdr)

	if _, err := ReadFrame(&buf, MaxFrameSize); err == nil {
		t.Fatal("expected error for declared length exceeding maxLen")
	}
}

func TestRequestResponseCodecRoundTrip(t *testing.T) {
	req := Request{ID: 7, Kind: KindSearch, Query: "curl", Limit: 10}
	encoded, err := Encode(req)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeRequest(encoded)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if decoded.ID != 7 || decoded.Kind != KindSearch || decoded.Query != "curl" || decoded.Limit != 10 {
		t.Fatalf("unexpected round-tripped request: %+v", decoded)
	}

	resp := NewSuccess(7, Result{Packages: []model.Package{{Name: "curl"}}})
	encodedResp, err := Encode(resp)
	if err != nil {
		t.Fatalf("Encode response: %v", err)
	}
	decodedResp, err := DecodeResponse(encodedResp)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if !decodedResp.Ok || decodedResp.ID != 7 || len(decodedResp.Result.Packages) != 1 {
		t.Fatalf("unexpected round-tripped response: %+v", decodedResp)
	}
}

func TestErrorResponseCarriesCode(t *testing.T) {
	resp := NewError(3, CodeNotFound, "package not found")
	encoded, err := Encode(resp)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeResponse(encoded)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if decoded.Ok {
		t.Fatal("expected Ok=false for an error response")
	}
	if decoded.Error == nil || decoded.Error.Code != CodeNotFound {
		t.Fatalf("unexpected error payload: %+v", decoded.Error)
	}
}

func TestBatchRequestPreservesOrderThroughCodec(t *testing.T) {
	batch := Request{
		ID:   1,
		Kind: KindBatch,
		Batch: []Request{
			{ID: 1, Kind: KindSearch, Query: "a"},
			{ID: 2, Kind: KindSearch, Query: "b"},
			{ID: 3, Kind: KindSearch, Query: "c"},
		},
	}
	encoded, err := Encode(batch)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeRequest(encoded)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if len(decoded.Batch) != 3 {
		t.Fatalf("expected 3 sub-requests, got %d", len(decoded.Batch))
	}
	for i, want := range []string{"a", "b", "c"} {
		if decoded.Batch[i].Query != want {
			t.Fatalf("batch order not preserved: got %q at %d, want %q", decoded.Batch[i].Query, i, want)
		}
	}
}
