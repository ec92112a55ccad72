// Package encoding provides the compact text form of integer ids used in node names.
//
// Base-63 Alphabet: A-Z (0-25), a-z (26-51), 0-9 (52-61), _ (62)
package encoding

import (
	"errors"
	"fmt"
	"strings"
)

// Base-63 encoding constants
const (
	Base63     = 63
	Alphabet63 = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_"
)

// Common errors for encoding operations
var (
	ErrEmptyString = errors.New("empty encoded string")
	ErrInvalidChar = errors.New("invalid character in encoded string")
	ErrOverflow    = errors.New("decoded value overflow")
	ErrBadNodeName = errors.New("malformed node name")
)

// Base63Encode encodes a uint64 value to a base-63 string.
// Returns "A" for zero (minimum non-empty encoding).
func Base63Encode(value uint64) string {
	if value == 0 {
		return "A"
	}

	// 11 chars max for uint64
	var buf [11]byte
	pos := len(buf)

	for value > 0 {
		pos--
		buf[pos] = Alphabet63[value%Base63]
		value /= Base63
	}

	return string(buf[pos:])
}

// Base63Decode decodes a base-63 string to a uint64 value.
// Returns error for empty strings or invalid characters.
func Base63Decode(encoded string) (uint64, error) {
	if encoded == "" {
		return 0, ErrEmptyString
	}

	var value uint64

	for _, c := range encoded {
		charVal, err := charValue(c)
		if err != nil {
			return 0, err
		}

		// Check for overflow before multiplication
		if value > (^uint64(0))/Base63 {
			return 0, ErrOverflow
		}
		value = value*Base63 + charVal
	}

	return value, nil
}

// charValue converts a character to its base-63 numeric value (0-62).
func charValue(c rune) (uint64, error) {
	switch {
	case c >= 'A' && c <= 'Z':
		return uint64(c - 'A'), nil
	case c >= 'a' && c <= 'z':
		return uint64(c-'a') + 26, nil
	case c >= '0' && c <= '9':
		return uint64(c-'0') + 52, nil
	case c == '_':
		return 62, nil
	default:
		return 0, fmt.Errorf("%w: %c", ErrInvalidChar, c)
	}
}

// NodeSuffix terminates every node name.
const NodeSuffix = ".index"

// nodeSeparator is outside the base-63 alphabet.
const nodeSeparator = "-"

// NodeName derives the storage name of a node from the string ids of its library
// source and unit source. Markup units pass their own id twice.
func NodeName(libraryID, unitID int32) string {
	var b strings.Builder
	b.Grow(24)
	b.WriteString(Base63Encode(uint64(uint32(libraryID))))
	b.WriteString(nodeSeparator)
	b.WriteString(Base63Encode(uint64(uint32(unitID))))
	b.WriteString(NodeSuffix)
	return b.String()
}

// ParseNodeName is the inverse of NodeName.
func ParseNodeName(name string) (libraryID, unitID int32, err error) {
	body, ok := strings.CutSuffix(name, NodeSuffix)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadNodeName, name)
	}
	lib, unit, ok := strings.Cut(body, nodeSeparator)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadNodeName, name)
	}
	libraryID, err = decodeID(lib)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrBadNodeName, name, err)
	}
	unitID, err = decodeID(unit)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrBadNodeName, name, err)
	}
	return libraryID, unitID, nil
}

// IsNodeName reports whether name was produced by NodeName.
func IsNodeName(name string) bool {
	_, _, err := ParseNodeName(name)
	return err == nil
}

func decodeID(s string) (int32, error) {
	v, err := Base63Decode(s)
	if err != nil {
		return 0, err
	}
	if v > uint64(^uint32(0)>>1) {
		return 0, ErrOverflow
	}
	return int32(v), nil
}
