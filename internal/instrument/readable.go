package instrument

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const maxParameterFieldLen = 50

// printReadable writes name, value and unit of every parameter in a
// snapshot, followed by its submodules. Lines longer than maxChars are
// cropped; -1 disables cropping.
func printReadable(w io.Writer, snap map[string]any, maxChars int) error {
	params, _ := snap["parameters"].(map[string]any)
	if len(params) > 0 {
		names := make([]string, 0, len(params))
		fieldLen := 0
		for name := range params {
			names = append(names, name)
			fieldLen = max(fieldLen, len(name)+1)
		}
		fieldLen = min(fieldLen, maxParameterFieldLen)
		sort.Strings(names)

		if _, err := fmt.Fprintf(w, "%v:\n", snap["name"]); err != nil {
			return err
		}
		fmt.Fprintf(w, "\t%-*s: value\n", fieldLen, "parameter")
		fmt.Fprintf(w, "\t%s\n", strings.Repeat("-", max(maxChars-8, 0)))

		for _, name := range names {
			p, _ := params[name].(map[string]any)
			msg := fmt.Sprintf("\t%-*s:", fieldLen, name)

			value, ok := p["value"]
			if !ok {
				value = "Not available"
			}
			msg += "\t" + formatValue(value) + " "

			if unit, _ := p["unit"].(string); unit != "" {
				msg += "(" + unit + ")"
			}
			if maxChars >= 3 && len(msg) > maxChars {
				msg = msg[:maxChars-3] + "..."
			}
			if _, err := fmt.Fprintln(w, msg); err != nil {
				return err
			}
		}
	}

	if subs, ok := snap["submodules"].(map[string]any); ok {
		names := make([]string, 0, len(subs))
		for name := range subs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sub, _ := subs[name].(map[string]any)
			if err := printReadable(w, sub, maxChars); err != nil {
				return err
			}
		}
	}
	if channels, ok := snap["channels"].([]any); ok {
		for _, ch := range channels {
			sub, _ := ch.(map[string]any)
			if err := printReadable(w, sub, maxChars); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatValue(value any) string {
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'g', 5, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', 5, 32)
	case nil:
		return "None"
	default:
		return fmt.Sprint(v)
	}
}
