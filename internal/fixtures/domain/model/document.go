package model

import (
	"fmt"
	"sort"

	sharederrors "mongo-fixtures/internal/shared/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDField is the field MongoDB uses as the document identifier.
const IDField = "_id"

// Document is one schema-less record bound for a collection.
// It may carry a pre-assigned IDField; when absent the server assigns one on insert.
type Document map[string]interface{}

// DocumentBatch is the ordered sequence of documents inserted into one collection.
type DocumentBatch []Document

// FixtureSet maps a collection name to the documents inserted into it.
// Every key is one target collection; an empty batch is legal and inserts nothing.
type FixtureSet map[string]DocumentBatch

// Clone returns a deep copy of the document. Nested maps and slices are copied
// so modifiers never write through to the fixture the caller handed in.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

// Ordered returns the document as it is written to the server: IDField first, then the
// remaining fields in lexical order, nested documents likewise. Field order of the
// fixture source is not kept because Document is a map.
func (d Document) Ordered() bson.D {
	return orderedMap(d)
}

func orderedMap(m map[string]interface{}) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k != IDField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make(bson.D, 0, len(m))
	if id, ok := m[IDField]; ok {
		out = append(out, bson.E{Key: IDField, Value: orderedValue(id)})
	}
	for _, k := range keys {
		out = append(out, bson.E{Key: k, Value: orderedValue(m[k])})
	}
	return out
}

func orderedValue(v interface{}) interface{} {
	switch val := v.(type) {
	case Document:
		return orderedMap(val)
	case map[string]interface{}:
		return orderedMap(val)
	case primitive.M:
		return orderedMap(val)
	case []interface{}:
		out := make(primitive.A, len(val))
		for i, item := range val {
			out[i] = orderedValue(item)
		}
		return out
	case primitive.A:
		out := make(primitive.A, len(val))
		for i, item := range val {
			out[i] = orderedValue(item)
		}
		return out
	default:
		return v
	}
}

// ID returns the pre-assigned identifier, if any.
func (d Document) ID() (interface{}, bool) {
	id, ok := d[IDField]
	return id, ok
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case Document:
		return val.Clone()
	case map[string]interface{}:
		return map[string]interface{}(Document(val).Clone())
	case primitive.M:
		return primitive.M(Document(val).Clone())
	case primitive.D:
		out := make(primitive.D, len(val))
		for i, e := range val {
			out[i] = primitive.E{Key: e.Key, Value: cloneValue(e.Value)}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case primitive.A:
		out := make(primitive.A, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Clone deep-copies every document of the batch.
func (b DocumentBatch) Clone() DocumentBatch {
	out := make(DocumentBatch, len(b))
	for i, doc := range b {
		out[i] = doc.Clone()
	}
	return out
}

// Clone deep-copies every batch of the set.
func (fs FixtureSet) Clone() FixtureSet {
	out := make(FixtureSet, len(fs))
	for name, batch := range fs {
		out[name] = batch.Clone()
	}
	return out
}

// Collections returns the collection names of the set in lexical order.
func (fs FixtureSet) Collections() []string {
	names := make([]string, 0, len(fs))
	for name := range fs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DocumentCount is the total number of documents across all collections.
func (fs FixtureSet) DocumentCount() int {
	n := 0
	for _, batch := range fs {
		n += len(batch)
	}
	return n
}

// Merge appends every batch of other to the batch of the same collection in fs.
// A collection present only in other is added, including when its batch is empty.
func (fs FixtureSet) Merge(other FixtureSet) {
	for _, name := range other.Collections() {
		existing, ok := fs[name]
		if !ok {
			existing = DocumentBatch{}
		}
		fs[name] = append(existing, other[name]...)
	}
}

// NewFixtureSet normalizes an ordered mapping of collection name to batch source.
// Each value goes through NormalizeBatch.
func NewFixtureSet(exports bson.D) (FixtureSet, error) {
	set := make(FixtureSet, len(exports))
	for _, e := range exports {
		batch, err := NormalizeBatch(e.Value)
		if err != nil {
			return nil, fmt.Errorf("collection %q: %w", e.Key, err)
		}
		if existing, ok := set[e.Key]; ok {
			batch = append(existing, batch...)
		}
		set[e.Key] = batch
	}
	return set, nil
}

// NewFixtureSetFromMap normalizes an unordered mapping of collection name to batch source.
func NewFixtureSetFromMap(m map[string]interface{}) (FixtureSet, error) {
	set := make(FixtureSet, len(m))
	for name, value := range m {
		batch, err := NormalizeBatch(value)
		if err != nil {
			return nil, fmt.Errorf("collection %q: %w", name, err)
		}
		set[name] = batch
	}
	return set, nil
}

// NormalizeBatch turns a batch source into a DocumentBatch.
//
// Sequences keep their order. Keyed mappings contribute their values and drop the keys:
// ordered mappings (bson.D) in their own order, Go maps in lexical key order.
func NormalizeBatch(value interface{}) (DocumentBatch, error) {
	switch v := value.(type) {
	case nil:
		return DocumentBatch{}, nil
	case DocumentBatch:
		return v, nil
	case []Document:
		return DocumentBatch(v), nil
	case []map[string]interface{}:
		batch := make(DocumentBatch, len(v))
		for i, doc := range v {
			batch[i] = Document(doc)
		}
		return batch, nil
	case []primitive.M:
		batch := make(DocumentBatch, len(v))
		for i, doc := range v {
			batch[i] = Document(doc)
		}
		return batch, nil
	case []primitive.D:
		batch := make(DocumentBatch, len(v))
		for i, doc := range v {
			converted, err := ToDocument(doc)
			if err != nil {
				return nil, fmt.Errorf("document #%d: %w", i, err)
			}
			batch[i] = converted
		}
		return batch, nil
	case []interface{}:
		return normalizeSequence(v)
	case primitive.A:
		return normalizeSequence([]interface{}(v))
	case primitive.D:
		batch := make(DocumentBatch, 0, len(v))
		for _, e := range v {
			doc, err := ToDocument(e.Value)
			if err != nil {
				return nil, fmt.Errorf("document %q: %w", e.Key, err)
			}
			batch = append(batch, doc)
		}
		return batch, nil
	case map[string]interface{}:
		return normalizeKeyed(v)
	case primitive.M:
		return normalizeKeyed(v)
	case Document:
		return normalizeKeyed(v)
	default:
		return nil, fmt.Errorf("%w: batch must be a sequence or a keyed mapping of documents, got %T",
			sharederrors.ErrInvalidFixtureShape, value)
	}
}

func normalizeSequence(values []interface{}) (DocumentBatch, error) {
	batch := make(DocumentBatch, len(values))
	for i, value := range values {
		doc, err := ToDocument(value)
		if err != nil {
			return nil, fmt.Errorf("document #%d: %w", i, err)
		}
		batch[i] = doc
	}
	return batch, nil
}

func normalizeKeyed(m map[string]interface{}) (DocumentBatch, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := make(DocumentBatch, len(keys))
	for i, k := range keys {
		doc, err := ToDocument(m[k])
		if err != nil {
			return nil, fmt.Errorf("document %q: %w", k, err)
		}
		batch[i] = doc
	}
	return batch, nil
}

// ToDocument converts a document-like value into a Document.
// Maps and bson documents convert directly; structs go through their bson encoding.
// Top-level field order of an ordered input is dropped; see Document.Ordered.
func ToDocument(value interface{}) (Document, error) {
	switch v := value.(type) {
	case Document:
		return v, nil
	case map[string]interface{}:
		return Document(v), nil
	case primitive.M:
		return Document(v), nil
	case primitive.D:
		doc := make(Document, len(v))
		for _, e := range v {
			doc[e.Key] = e.Value
		}
		return doc, nil
	case nil, string, bool, int, int32, int64, float32, float64, []interface{}, primitive.A:
		return nil, fmt.Errorf("%w: expected a document, got %T", sharederrors.ErrInvalidFixtureShape, value)
	}

	raw, err := bson.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %T is not a document: %v", sharederrors.ErrInvalidFixtureShape, value, err)
	}
	var doc Document
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", sharederrors.ErrInvalidFixtureShape, err)
	}
	return doc, nil
}
