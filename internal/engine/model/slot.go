package model

import (
	"fmt"
	"strings"
)

// ItemSlot is an equipment category whose texture can be swapped at draw time.
type ItemSlot int

const (
	SlotNone ItemSlot = iota
	SlotHead
	SlotBody
	SlotLegs
	SlotFeet
	SlotHands
	SlotWeapon
	SlotShield
	SlotAccessory
)

var slotNames = [...]string{
	SlotNone:      "None",
	SlotHead:      "Head",
	SlotBody:      "Body",
	SlotLegs:      "Legs",
	SlotFeet:      "Feet",
	SlotHands:     "Hands",
	SlotWeapon:    "Weapon",
	SlotShield:    "Shield",
	SlotAccessory: "Accessory",
}

// String returns the slot name.
func (s ItemSlot) String() string {
	if s >= 0 && int(s) < len(slotNames) {
		return slotNames[s]
	}
	return fmt.Sprintf("Unknown(%d)", int(s))
}

// ItemSlots returns every real slot, excluding SlotNone.
func ItemSlots() []ItemSlot {
	slots := make([]ItemSlot, 0, len(slotNames)-1)
	for s := SlotHead; int(s) < len(slotNames); s++ {
		slots = append(slots, s)
	}
	return slots
}

// ParseItemSlot parses a slot name, ignoring case.
func ParseItemSlot(name string) (ItemSlot, error) {
	for _, s := range ItemSlots() {
		if strings.EqualFold(name, s.String()) {
			return s, nil
		}
	}
	return SlotNone, fmt.Errorf("unknown item slot %q", name)
}
