package domain

import "time"

// AccessLevel orders object-level access by increasing power.
type AccessLevel string

const (
	AccessLevelRead  AccessLevel = "read"
	AccessLevelWrite AccessLevel = "write"
	AccessLevelAdmin AccessLevel = "admin"
	AccessLevelFull  AccessLevel = "full"
)

var accessLevelRank = map[AccessLevel]int{
	AccessLevelRead:  1,
	AccessLevelWrite: 2,
	AccessLevelAdmin: 3,
	AccessLevelFull:  4,
}

// Valid reports whether the level is one of the known access levels.
func (l AccessLevel) Valid() bool {
	_, ok := accessLevelRank[l]
	return ok
}

// AtLeast reports whether level l grants at least as much power as min.
// Unknown levels rank below everything.
func (l AccessLevel) AtLeast(min AccessLevel) bool {
	return accessLevelRank[l] >= accessLevelRank[min] && accessLevelRank[l] > 0
}

// GrantSubjectType discriminates who a resource grant targets. Team grants
// were removed from the product; the discriminator is retained so the stored
// rows stay forward compatible.
type GrantSubjectType string

const (
	GrantSubjectMembership GrantSubjectType = "membership"
	GrantSubjectTeam       GrantSubjectType = "team"
)

// ResourceGrant gives one subject an access level on one concrete resource
// instance. Lookup is always exact match; a grant on a container resource
// does not imply access to children.
type ResourceGrant struct {
	ID              string
	TenantID        string
	SubjectType     GrantSubjectType
	SubjectID       string
	ResourceType    string
	ResourceID      string
	AccessLevel     AccessLevel
	Conditions      Conditions
	CreatedByUserID *string
	CreatedAt       time.Time
	UpdatedAt       *time.Time
	DeletedAt       *time.Time
}

// Live reports whether the grant has not been soft deleted.
func (g ResourceGrant) Live() bool {
	return g.DeletedAt == nil
}
