package variable

// CategoryCode identifies a well-known dictionary category.
// Lookups by category code key the dictionary cache with this value.
type CategoryCode string

const (
	// CodeState groups enabled/disabled style states.
	CodeState CategoryCode = "State"
	// CodeValueType groups the value types a dictionary entry can hold.
	CodeValueType CategoryCode = "ValueType"
	// CodeResourceType groups security resource kinds (menu, security).
	CodeResourceType CategoryCode = "ResourceType"
	// CodeGroupType groups organisational group kinds.
	CodeGroupType CategoryCode = "GroupType"
	// CodePortraitType groups portrait/avatar kinds.
	CodePortraitType CategoryCode = "PortraitType"
)

// String implements fmt.Stringer.
func (c CategoryCode) String() string {
	return string(c)
}

// KnownCategoryCodes lists the codes seeded on a fresh installation.
func KnownCategoryCodes() []CategoryCode {
	return []CategoryCode{CodeState, CodeValueType, CodeResourceType, CodeGroupType, CodePortraitType}
}
