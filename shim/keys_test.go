package shim

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCompositeKeyRoundTrip(t *testing.T) {
	is := assert.New(t)

	cases := []struct {
		objectType string
		attributes []string
	}{
		{"marble", []string{"blue", "marble-1"}},
		{"owner~name", []string{"tom"}},
		{"noattrs", []string{}},
		{"unicode", []string{"価値", "clé"}},
		{"emptyattr", []string{"", "x"}},
	}
	for _, c := range cases {
		ck, err := CreateCompositeKey(c.objectType, c.attributes)
		is.NoError(err)
		objectType, attributes, err := SplitCompositeKey(ck)
		is.NoError(err)
		is.Equal(c.objectType, objectType)
		is.Equal(c.attributes, attributes)
	}
}

func TestCompositeKeyRejectsReservedRunes(t *testing.T) {
	is := assert.New(t)

	_, err := CreateCompositeKey("object\x00type", []string{"a"})
	is.Error(err)
	is.True(errors.Is(err, ErrInvalidKeyComponent))

	_, err = CreateCompositeKey("objectType", []string{"attr" + string(rune(utf8.MaxRune))})
	is.Error(err)
	is.True(errors.Is(err, ErrInvalidKeyComponent))

	// invalid utf8 can never be validated, reject it too
	_, err = CreateCompositeKey("objectType", []string{"\xff\xfe"})
	is.Error(err)
	is.True(errors.Is(err, ErrInvalidKeyComponent))
}

func TestSplitCompositeKeyRejectsMalformed(t *testing.T) {
	is := assert.New(t)

	_, _, err := SplitCompositeKey("plain-key-without-delimiter")
	is.Error(err)
	_, _, err = SplitCompositeKey("")
	is.Error(err)
}

func TestPartialCompositeKeyBounds(t *testing.T) {
	is := assert.New(t)

	startKey, endKey, err := rangeKeysForPartialCompositeKey("marble", []string{"blue"})
	is.NoError(err)

	// every key sharing the prefix must fall inside [startKey, endKey)
	for _, attrs := range [][]string{
		{"blue"},
		{"blue", "marble-1"},
		{"blue", "marble-1", "tom"},
		{"blue", "\x7fzz"},
	} {
		ck, err := CreateCompositeKey("marble", attrs)
		is.NoError(err)
		is.True(strings.HasPrefix(ck, startKey))
		is.True(strings.Compare(startKey, ck) <= 0)
		is.True(strings.Compare(ck, endKey) < 0)
	}

	// keys with a different prefix must fall outside
	other, err := CreateCompositeKey("marble", []string{"red", "marble-2"})
	is.NoError(err)
	is.False(strings.Compare(startKey, other) <= 0 && strings.Compare(other, endKey) < 0)
}

func TestValidateSimpleKeys(t *testing.T) {
	is := assert.New(t)

	is.NoError(ValidateSimpleKeys("plain", UnspecifiedKey))

	err := ValidateSimpleKeys("\x00composite-looking")
	is.Error(err)
	is.True(errors.Is(err, ErrInvalidArgument))
}
