package transaction

import (
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type yamlTransaction struct {
	ChainID string               `yaml:"chainId"`
	Address string               `yaml:"address"`
	Type    Type                 `yaml:"type"`
	Args    map[string]yaml.Node `yaml:"args"`
}

// UnmarshalYAML restores typed argument values: nested transactions,
// selectors and canonical decimal strings for numbers.
func (t *Transaction) UnmarshalYAML(value *yaml.Node) error {
	var raw yamlTransaction
	if err := value.Decode(&raw); err != nil {
		return err
	}
	t.ChainID, t.Address, t.Type = raw.ChainID, raw.Address, raw.Type
	t.Args = make(Args, len(raw.Args))
	for name, node := range raw.Args {
		v, err := decodeArg(name, &node)
		if err != nil {
			return fmt.Errorf("arg %s: %w", name, err)
		}
		t.Args[name] = v
	}
	return nil
}

func decodeArg(name string, node *yaml.Node) (any, error) {
	if node.Tag == "!!null" {
		return nil, nil
	}
	switch name {
	case ArgTransaction:
		var tx Transaction
		err := node.Decode(&tx)
		return tx, err
	case ArgTransactions:
		var txs []Transaction
		err := node.Decode(&txs)
		return txs, err
	case ArgPayee:
		if node.Kind == yaml.ScalarNode {
			return Payee{Type: node.Value}, nil
		}
		var p Payee
		err := node.Decode(&p)
		return p, err
	case ArgVote:
		if node.Kind == yaml.MappingNode {
			var v AccountVote
			err := node.Decode(&v)
			return v, err
		}
	case ArgMaxWeight:
		if node.Kind == yaml.MappingNode {
			var w Weight
			err := node.Decode(&w)
			return w, err
		}
	case ArgTimepoint, ArgMaybeTimepoint:
		var tp Timepoint
		err := node.Decode(&tp)
		return tp, err
	}

	v, err := nodeValue(node)
	if err != nil {
		return nil, err
	}
	return canonical(v), nil
}

// nodeValue decodes node into plain values. Numbers keep their exact
// decimal text: amounts routinely exceed uint64 and float64 precision.
func nodeValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return nodeValue(node.Alias)
	case yaml.SequenceNode:
		out := make([]any, len(node.Content))
		for i, item := range node.Content {
			v, err := nodeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case yaml.MappingNode:
		out := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var key string
			if err := node.Content[i].Decode(&key); err != nil {
				return nil, err
			}
			v, err := nodeValue(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!int":
			if d, err := decimal.NewFromString(node.Value); err == nil {
				return d.String(), nil
			}
			// 0x10, 0o17, 1_000
		case "!!float":
			d, err := decimal.NewFromString(node.Value)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", node.Value)
			}
			return d.String(), nil
		}
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// canonical turns YAML numbers into decimal strings and string lists into
// []string, matching what the decoder produces.
func canonical(v any) any {
	switch t := v.(type) {
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		strs := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := canonical(item).(string)
			if !ok {
				out := make([]any, len(t))
				for i := range t {
					out[i] = canonical(t[i])
				}
				return out
			}
			strs = append(strs, s)
		}
		return strs
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = canonical(val)
		}
		return out
	}
	return v
}

// ReadYAML reads a list of transactions.
func ReadYAML(r io.Reader) ([]Transaction, error) {
	var txs []Transaction
	if err := yaml.NewDecoder(r).Decode(&txs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return txs, nil
}

// WriteYAML writes transactions in the form ReadYAML accepts.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
