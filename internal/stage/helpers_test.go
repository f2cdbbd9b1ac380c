package stage_test

import (
	"errors"
	"testing"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/stage"
)

func TestDecodePayloadRoundTrip(t *testing.T) {
	type payload struct {
		TranscriptID int64 `json:"transcript_id"`
	}

	encoded, err := stage.EncodePayload(payload{TranscriptID: 7})
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}

	var decoded payload
	if err := stage.DecodePayload(&queue.Job{Payload: encoded}, &decoded); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if decoded.TranscriptID != 7 {
		t.Fatalf("transcript id = %d", decoded.TranscriptID)
	}
}

func TestDecodePayloadRejectsEmptyAndMalformed(t *testing.T) {
	var dst struct{}
	if err := stage.DecodePayload(&queue.Job{}, &dst); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty payload: %v", err)
	}
	if err := stage.DecodePayload(&queue.Job{Payload: "{not json"}, &dst); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("malformed payload: %v", err)
	}
}
