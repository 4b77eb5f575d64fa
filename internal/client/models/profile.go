// Package models defines the tracker's domain entities: profiles,
// medications, intake occurrences and their value objects. Every syncable
// entity carries the same bookkeeping fields (RemoteId, Dirty, Deleted,
// UpdatedAt) consumed by the sync engine.
package models

import "time"

// Profile is a tracked person. A profile is owned by the identity that
// created it and may be shared with other identities through the membership
// map.
type Profile struct {
	Id        string
	RemoteId  string
	Name      string
	OwnerId   string
	Members   map[string]Role
	Shared    bool
	Deleted   bool
	Dirty     bool
	UpdatedAt time.Time
	CreatedAt time.Time
}

// NormalizeMembers enforces the owner invariant: the owning identity always
// holds RoleOwner, whatever the stored map says.
func (p *Profile) NormalizeMembers() {
	if p.Members == nil {
		p.Members = make(map[string]Role, 1)
	}
	if p.OwnerId != "" {
		p.Members[p.OwnerId] = RoleOwner
	}
}

// RoleOf returns the role the given identity holds on this profile, or
// RoleViewer with ok=false when the identity is not a member.
func (p *Profile) RoleOf(identity string) (Role, bool) {
	if identity == p.OwnerId {
		return RoleOwner, true
	}
	r, ok := p.Members[identity]
	if !ok {
		return RoleViewer, false
	}
	return r, true
}
