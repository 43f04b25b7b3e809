package model

import "strings"

// DefaultWeapon is the weapon descriptor used when a request omits one.
const DefaultWeapon = "None"

func normalizeWeapon(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}
