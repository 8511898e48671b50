package shim

import (
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	// minUnicodeRuneValue delimits the components of an encoded composite
	// key. maxUnicodeRuneValue (the maximal, unassigned code point) is
	// appended to a prefix to form the exclusive upper bound of a
	// partial-key scan. Neither may appear inside a key component.
	minUnicodeRuneValue = 0             // U+0000
	maxUnicodeRuneValue = utf8.MaxRune  // U+10FFFF

	compositeKeyDelimiter = string(rune(minUnicodeRuneValue))
)

// UnspecifiedKey substitutes an empty range bound. The store reads it as
// "beginning/end of keyspace".
const UnspecifiedKey = "\x01"

// CreateCompositeKey flattens objectType and attributes into one string
// key: each component followed by the U+0000 delimiter. Components keep
// their relative order, so encoded keys sharing an attribute prefix sort
// together under the store's lexicographic order.
func CreateCompositeKey(objectType string, attributes []string) (string, error) {
	if err := validateCompositeKeyComponent(objectType); err != nil {
		return "", err
	}
	ck := objectType + compositeKeyDelimiter
	for _, attr := range attributes {
		if err := validateCompositeKeyComponent(attr); err != nil {
			return "", err
		}
		ck += attr + compositeKeyDelimiter
	}
	return ck, nil
}

// SplitCompositeKey is the inverse of CreateCompositeKey.
func SplitCompositeKey(compositeKey string) (string, []string, error) {
	if len(compositeKey) == 0 || compositeKey[len(compositeKey)-1] != minUnicodeRuneValue {
		return "", nil, errors.Errorf("not a composite key: [%x]", compositeKey)
	}
	componentIndex := 0
	components := []string{}
	for i := 0; i < len(compositeKey); i++ {
		if compositeKey[i] == minUnicodeRuneValue {
			components = append(components, compositeKey[componentIndex:i])
			componentIndex = i + 1
		}
	}
	return components[0], components[1:], nil
}

func validateCompositeKeyComponent(str string) error {
	if !utf8.ValidString(str) {
		return errors.Wrapf(ErrInvalidKeyComponent, "not a valid utf8 string: [%x]", str)
	}
	for index, runeValue := range str {
		if runeValue == minUnicodeRuneValue || runeValue == maxUnicodeRuneValue {
			return errors.Wrapf(ErrInvalidKeyComponent,
				"component contains reserved code point %#U at position [%d]", runeValue, index)
		}
	}
	return nil
}

// ValidateSimpleKeys checks that none of the keys start with the
// reserved U+0000 code point. The null byte is the composite key
// delimiter and must stay out of the first position of simple keys.
func ValidateSimpleKeys(simpleKeys ...string) error {
	for _, key := range simpleKeys {
		if len(key) > 0 && key[0] == minUnicodeRuneValue {
			return errors.Wrapf(ErrInvalidArgument,
				"first character of the key [%s] is the reserved null code point", key)
		}
	}
	return nil
}

// rangeKeysForPartialCompositeKey builds the scan bounds covering every
// key sharing the encoded prefix: the prefix itself (inclusive) and the
// prefix with the maximal code point appended (exclusive). No valid key
// content may contain that code point, so the upper bound sorts after
// every matching key.
func rangeKeysForPartialCompositeKey(objectType string, attributes []string) (string, string, error) {
	partialCompositeKey, err := CreateCompositeKey(objectType, attributes)
	if err != nil {
		return "", "", err
	}
	startKey := partialCompositeKey
	endKey := partialCompositeKey + string(rune(maxUnicodeRuneValue))
	return startKey, endKey, nil
}
