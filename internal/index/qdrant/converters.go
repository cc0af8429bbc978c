package qdrant

import (
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// pointIDToString flattens a Qdrant point id (uuid or numeric) to a string.
func pointIDToString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

// stringToPointID reverses pointIDToString. Purely numeric strings become
// numeric ids, everything else a uuid id.
func stringToPointID(s string) *qdrant.PointId {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return qdrant.NewIDNum(n)
	}
	return qdrant.NewID(s)
}

// payloadString extracts a string payload field, empty when absent.
func payloadString(payload map[string]*qdrant.Value, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}
