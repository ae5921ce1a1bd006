package ingest

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/Ladvien/self-sensored/internal/batch"
	"github.com/Ladvien/self-sensored/internal/mapping"
	"github.com/Ladvien/self-sensored/internal/model"
)

// ParseEnvelope decodes a persisted raw_ingestions payload back into a
// BatchProcessor payload, applying the same device-native translation
// and per-kind classification handleIngest uses. Exported for
// internal/reprocess, which replays raw bodies that failed the first
// time around; unlike handleIngest it skips the streaming size guard
// since the bytes were already accepted once.
func ParseEnvelope(userID uuid.UUID, raw []byte, table *mapping.Table) (batch.Payload, []model.ProcessingError, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return batch.Payload{}, nil, err
	}
	translationErrs := translateNative(&env, table)
	payload, classifyErrs := classify(userID, env)
	return payload, append(translationErrs, classifyErrs...), nil
}
