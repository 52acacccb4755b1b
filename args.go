package swarmollama

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseArguments decodes the raw argument text of a pseudo call for functions that want
// structured input. Accepted forms are a JSON object and a keyword list such as
// location="NYC", days=3. Positional values are stored as arg0, arg1 and so on.
func ParseArguments(args string) (map[string]interface{}, error) {
	args = strings.TrimSpace(args)
	out := make(map[string]interface{})
	if args == "" || args == emptyArguments {
		return out, nil
	}

	if strings.HasPrefix(args, "{") {
		if err := json.Unmarshal([]byte(args), &out); err != nil {
			return nil, fmt.Errorf("invalid JSON arguments: %w", err)
		}
		return out, nil
	}

	items, err := splitArguments(args)
	if err != nil {
		return nil, err
	}
	positional := 0
	for _, item := range items {
		key, raw, ok := cutKeyword(item)
		if !ok {
			key = "arg" + strconv.Itoa(positional)
			positional++
			raw = item
		}
		val, err := parseValue(raw)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", key, err)
		}
		out[key] = val
	}
	return out, nil
}

// splitArguments splits on top-level commas, honoring quotes and nesting
func splitArguments(s string) ([]string, error) {
	var (
		items []string
		depth int
		quote rune
		start int
	)
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if quote != 0 {
			switch r {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '"', '\'':
			quote = r
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		case ',':
			if depth == 0 {
				items = append(items, strings.TrimSpace(string(runes[start:i])))
				start = i + 1
			}
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated string in arguments")
	}
	if last := strings.TrimSpace(string(runes[start:])); last != "" {
		items = append(items, last)
	}
	return items, nil
}

// cutKeyword splits key=value or key: value when key is an identifier
func cutKeyword(item string) (string, string, bool) {
	idx := strings.IndexAny(item, "=:")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(item[:idx])
	if !identifierPattern.MatchString(key) {
		return "", "", false
	}
	return key, strings.TrimSpace(item[idx+1:]), true
}

func parseValue(raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		return strings.ReplaceAll(raw[1:len(raw)-1], `\'`, `'`), nil
	}
	switch raw {
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "None":
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v, nil
	}
	if strings.HasPrefix(raw, `"`) {
		return nil, fmt.Errorf("invalid string literal %s", raw)
	}
	return raw, nil
}
