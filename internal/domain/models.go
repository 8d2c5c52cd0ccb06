// Package domain holds the types shared by the upload, transport and workflow packages.
package domain

import (
	"fmt"
	"strings"
)

// Side identifies one of the two document image slots.
type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

// Sides lists both slots in display order.
var Sides = []Side{SideFront, SideBack}

// ParseSide converts user input into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideFront:
		return SideFront, nil
	case SideBack:
		return SideBack, nil
	}
	return "", ValidationError(fmt.Sprintf("unknown side %q (want front or back)", s), nil)
}

// Valid reports whether s is one of the known slots.
func (s Side) Valid() bool {
	return s == SideFront || s == SideBack
}

// OcrResult is the record returned by the OCR service. The client does not
// interpret any of its fields.
type OcrResult struct {
	Name        string `json:"name"`
	IDNumber    string `json:"aadhaarNumber"`
	DateOfBirth string `json:"dob"`
	Address     string `json:"address"`
}
