package pathengine

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/usestring/recordflat/pkg/contenttype"
)

// yamlEngine parses YAML into the JSON data model and queries it with the
// JSON engine's jq programs.
type yamlEngine struct {
	*jsonEngine
}

// NewYAML creates the YAML engine.
func NewYAML(opts ...Option) Engine {
	return &yamlEngine{jsonEngine: newJSONEngine(contenttype.YAML, opts)}
}

// Parse decodes the first YAML document.
func (e *yamlEngine) Parse(data []byte) (*Document, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, &SourceError{Err: fmt.Errorf("invalid YAML: %w", err)}
	}
	return &Document{format: contenttype.YAML, root: ConvertYAMLToJSON(v)}, nil
}

// ConvertYAMLToJSON recursively converts YAML-parsed values to JSON-compatible types.
// yaml.v3 produces map[string]any for mappings, but may produce other map types
// for non-string keys, and integer widths gojq does not accept.
func ConvertYAMLToJSON(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = ConvertYAMLToJSON(v)
		}
		return result
	case map[any]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[fmt.Sprintf("%v", k)] = ConvertYAMLToJSON(v)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v := range val {
			result[i] = ConvertYAMLToJSON(v)
		}
		return result
	case int64:
		if val >= math.MinInt && val <= math.MaxInt {
			return int(val)
		}
		return big.NewInt(val)
	case uint64:
		if val <= math.MaxInt {
			return int(val)
		}
		return new(big.Int).SetUint64(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case nil, string, bool, int, float64:
		return val
	default:
		return fmt.Sprint(val)
	}
}
