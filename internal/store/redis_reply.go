package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// classifyRedisError maps RediSearch error replies onto the package sentinels.
// Errors that match none of them are returned unchanged.
func classifyRedisError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unknown command"),
		strings.Contains(msg, "wrong number of arguments"):
		return fmt.Errorf("%w: %v", ErrModuleMissing, err)
	case strings.Contains(msg, "index already exists"):
		return fmt.Errorf("%w: %v", ErrIndexExists, err)
	case strings.Contains(msg, "unknown index name"),
		strings.Contains(msg, "no such index"),
		strings.Contains(msg, "unknown: index name"):
		return fmt.Errorf("%w: %v", ErrUnknownIndex, err)
	default:
		return err
	}
}

// parseSearchReply decodes a RESP2 FT.SEARCH reply:
// [total, key1, [field, value, ...], key2, [...], ...].
func parseSearchReply(reply any) (*RawResult, error) {
	items, ok := reply.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("unexpected FT.SEARCH reply type %T", reply)
	}

	total, err := toInt(items[0])
	if err != nil {
		return nil, fmt.Errorf("FT.SEARCH total: %w", err)
	}

	res := &RawResult{Total: total, Docs: make([]RawDoc, 0, (len(items)-1)/2)}
	for i := 1; i < len(items); i++ {
		key, ok := toString(items[i])
		if !ok {
			return nil, fmt.Errorf("FT.SEARCH document key has type %T", items[i])
		}
		doc := RawDoc{ID: key, Fields: map[string]string{}}

		// A key may be followed by its field list; NOCONTENT replies omit it.
		if i+1 < len(items) {
			if pairs, ok := items[i+1].([]any); ok {
				for j := 0; j+1 < len(pairs); j += 2 {
					name, _ := toString(pairs[j])
					value, _ := toString(pairs[j+1])
					doc.Fields[name] = value
				}
				i++
			}
		}
		res.Docs = append(res.Docs, doc)
	}
	return res, nil
}

// parseSpellCheckReply decodes a RESP2 FT.SPELLCHECK reply:
// [["TERM", term, [[score, suggestion], ...]], ...].
func parseSpellCheckReply(reply any) ([]SpellCheckTerm, error) {
	items, ok := reply.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected FT.SPELLCHECK reply type %T", reply)
	}

	terms := make([]SpellCheckTerm, 0, len(items))
	for _, item := range items {
		entry, ok := item.([]any)
		if !ok || len(entry) < 3 {
			continue
		}
		term, _ := toString(entry[1])
		st := SpellCheckTerm{Term: term}

		suggestions, _ := entry[2].([]any)
		for _, s := range suggestions {
			pair, ok := s.([]any)
			if !ok || len(pair) < 2 {
				continue
			}
			score, err := toFloat(pair[0])
			if err != nil {
				continue
			}
			text, _ := toString(pair[1])
			st.Suggestions = append(st.Suggestions, SpellCheckSuggestion{Score: score, Suggestion: text})
		}
		terms = append(terms, st)
	}
	return terms, nil
}

// parseInfoReply reads num_docs from a flat FT.INFO reply.
func parseInfoReply(name string, reply any) *IndexInfo {
	info := &IndexInfo{Name: name}
	items, ok := reply.([]any)
	if !ok {
		return info
	}
	for i := 0; i+1 < len(items); i += 2 {
		key, _ := toString(items[i])
		if key == "num_docs" {
			if n, err := toInt(items[i+1]); err == nil {
				info.NumDocs = n
			}
		}
	}
	return info
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case nil:
		return "", false
	default:
		return fmt.Sprint(s), true
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, err
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
