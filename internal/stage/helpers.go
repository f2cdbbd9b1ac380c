package stage

import (
	"encoding/json"
	"strings"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
)

// DecodePayload parses a job's JSON payload into dst.
// On failure it returns a services.ErrValidation suitable for stage Execute methods.
func DecodePayload(job *queue.Job, dst any) error {
	if job == nil || strings.TrimSpace(job.Payload) == "" {
		return services.Wrap(services.ErrValidation, "stage", "decode payload",
			"job payload is empty", nil)
	}
	if err := json.Unmarshal([]byte(job.Payload), dst); err != nil {
		return services.Wrap(services.ErrValidation, "stage", "decode payload",
			"job payload is not valid JSON", err)
	}
	return nil
}

// EncodePayload renders a payload struct for enqueueing.
func EncodePayload(src any) (string, error) {
	encoded, err := json.Marshal(src)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "stage", "encode payload",
			"payload is not encodable", err)
	}
	return string(encoded), nil
}
