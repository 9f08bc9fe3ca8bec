package qdrant

import (
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/engram/pkg/vector"
)

// toPayload folds the document ID and content into the point payload next
// to the caller's metadata.
func toPayload(doc vector.Document) (map[string]*qdrant.Value, error) {
	raw := make(map[string]any, len(doc.Metadata)+2)
	for k, v := range doc.Metadata {
		raw[k] = v
	}
	raw[docIDKey] = doc.ID
	raw[contentKey] = doc.Content
	return qdrant.TryValueMap(raw)
}

func fromPayload(payload map[string]*qdrant.Value) vector.Document {
	doc := vector.Document{
		Metadata: make(map[string]any, len(payload)),
	}
	for k, v := range payload {
		switch k {
		case docIDKey:
			doc.ID = v.GetStringValue()
		case contentKey:
			doc.Content = v.GetStringValue()
		default:
			doc.Metadata[k] = fromValue(v)
		}
	}
	return doc
}

func fromValue(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	default:
		return nil
	}
}
