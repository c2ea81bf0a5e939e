package discipline

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StringList decodes either a JSON string or an array of strings. Older
// clients send a single discipline code as a scalar.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected a string or a list of strings: %w", err)
	}
	if list == nil {
		list = []string{}
	}
	*l = list
	return nil
}
