// Copyright 2025 CurioAI, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package curioai

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// extractJSON locates the first balanced JSON object or array in free text
// and unmarshals it into out. Best effort: a balanced-but-unrelated JSON
// substring (say, a code example inside the model's explanation) can parse
// successfully. Callers degrade to an unstructured result on
// ErrParseFailure.
func extractJSON(text string, out any) error {
	candidate, ok := balancedJSON(text, '{', '}')
	if !ok {
		candidate, ok = balancedJSON(text, '[', ']')
	}
	if !ok {
		return fmt.Errorf("%w: no balanced object or array", ErrParseFailure)
	}
	if err := sonic.UnmarshalString(candidate, out); err != nil {
		return fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	return nil
}

// extractJSONArray is extractJSON restricted to arrays, for responses whose
// schema is list-shaped (an object would be a false positive).
func extractJSONArray(text string, out any) error {
	candidate, ok := balancedJSON(text, '[', ']')
	if !ok {
		return fmt.Errorf("%w: no balanced array", ErrParseFailure)
	}
	if err := sonic.UnmarshalString(candidate, out); err != nil {
		return fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	return nil
}

// balancedJSON returns the substring from the first open delimiter to its
// matching close, tracking nesting and string literals.
func balancedJSON(text string, open, close byte) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if start < 0 {
			if c == open {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
