package filesystem

import (
	"fmt"

	"mongo-fixtures/internal/fixtures/domain/model"
	sharederrors "mongo-fixtures/internal/shared/errors"

	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"
)

// TagObjectID marks a YAML scalar holding a hex ObjectID, e.g. `_id: !oid 5f1d7c2e9b1e8a3d4c2b1a00`
const TagObjectID = "!oid"

// decodeYAML walks the node tree so mappings keep the order they are written in.
func decodeYAML(data []byte) (bson.D, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %w", sharederrors.ErrInvalidFixtureShape, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", sharederrors.ErrInvalidFixtureShape)
	}
	top := resolveAlias(root.Content[0])
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", sharederrors.ErrInvalidFixtureShape)
	}
	return mappingToD(top)
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func mappingToD(n *yaml.Node) (bson.D, error) {
	d := make(bson.D, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := resolveAlias(n.Content[i])
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: line %d: mapping keys must be scalars", sharederrors.ErrInvalidFixtureShape, key.Line)
		}
		value, err := nodeValue(n.Content[i+1])
		if err != nil {
			return nil, err
		}
		d = append(d, bson.E{Key: key.Value, Value: value})
	}
	return d, nil
}

func nodeValue(n *yaml.Node) (interface{}, error) {
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.MappingNode:
		return mappingToD(n)
	case yaml.SequenceNode:
		arr := make(bson.A, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := nodeValue(item)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.ScalarNode:
		if n.Tag == TagObjectID {
			id, err := model.ParseIdentifier(n.Value)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Line, err)
			}
			return id, nil
		}
		var v interface{}
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", sharederrors.ErrInvalidFixtureShape, n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: line %d: unexpected YAML node", sharederrors.ErrInvalidFixtureShape, n.Line)
	}
}
