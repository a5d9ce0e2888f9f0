package link

import "mediahub/internal/domain/media"

// Role is the semantic purpose a linked asset serves for its owner. The set
// of valid roles is owner-type-specific and closed.
type Role string

// Venue roles.
const (
	RoleHero             Role = "hero"
	RoleGallery          Role = "gallery"
	RoleFloorplan        Role = "floorplan"
	RoleCapacityChart    Role = "capacity_chart"
	RoleMenu             Role = "menu"
	RoleAVDiagram        Role = "av_diagram"
	RoleSetupBanquet     Role = "setup_banquet"
	RoleSetupTheater     Role = "setup_theater"
	RoleSetupClassroom   Role = "setup_classroom"
	RoleSetupBoardroom   Role = "setup_boardroom"
	RoleSetupUShape      Role = "setup_ushape"
	RoleSetupReception   Role = "setup_reception"
	RoleVideoWalkthrough Role = "video_walkthrough"
	RolePreviousEvent    Role = "previous_event"
	Role360Tour          Role = "360_tour"
)

// Bookable content asset roles.
const (
	RolePrimary   Role = "primary"
	RoleThumbnail Role = "thumbnail"
	RolePreview   Role = "preview"
)

// Visit stop roles (hero/gallery shared with venues by name, plus documents).
const (
	RoleDocument Role = "document"
)

// PrimaryMode says how the is_primary flag behaves within a group.
type PrimaryMode int

const (
	// PrimaryNone: the role has no notion of a primary member; SetPrimary is
	// rejected.
	PrimaryNone PrimaryMode = iota
	// PrimaryOptional: at most one primary, possibly none.
	PrimaryOptional
	// PrimaryRequired: exactly one primary whenever the group is non-empty.
	PrimaryRequired
)

// RoleSpec is the explicit per-role configuration. Kinds nil means any media
// kind is acceptable for the role.
type RoleSpec struct {
	Primary PrimaryMode
	Kinds   []media.Kind
}

var imageOnly = []media.Kind{media.KindImage}
var imageOrVideo = []media.Kind{media.KindImage, media.KindVideo}
var imageOrDocument = []media.Kind{media.KindImage, media.KindDocument}
var videoOnly = []media.Kind{media.KindVideo}

// roleRegistry is the single source of truth for which roles exist per owner
// type, which require a primary, and which media kinds they accept.
var roleRegistry = map[OwnerType]map[Role]RoleSpec{
	OwnerVenue: {
		RoleHero:             {Primary: PrimaryRequired, Kinds: imageOrVideo},
		RoleGallery:          {Primary: PrimaryOptional},
		RoleFloorplan:        {Primary: PrimaryNone, Kinds: imageOrDocument},
		RoleCapacityChart:    {Primary: PrimaryNone, Kinds: imageOrDocument},
		RoleMenu:             {Primary: PrimaryNone, Kinds: imageOrDocument},
		RoleAVDiagram:        {Primary: PrimaryNone, Kinds: imageOrDocument},
		RoleSetupBanquet:     {Primary: PrimaryOptional, Kinds: imageOnly},
		RoleSetupTheater:     {Primary: PrimaryOptional, Kinds: imageOnly},
		RoleSetupClassroom:   {Primary: PrimaryOptional, Kinds: imageOnly},
		RoleSetupBoardroom:   {Primary: PrimaryOptional, Kinds: imageOnly},
		RoleSetupUShape:      {Primary: PrimaryOptional, Kinds: imageOnly},
		RoleSetupReception:   {Primary: PrimaryOptional, Kinds: imageOnly},
		RoleVideoWalkthrough: {Primary: PrimaryRequired, Kinds: videoOnly},
		RolePreviousEvent:    {Primary: PrimaryOptional},
		Role360Tour:          {Primary: PrimaryRequired},
	},
	OwnerAsset: {
		RolePrimary:   {Primary: PrimaryRequired},
		RoleThumbnail: {Primary: PrimaryRequired, Kinds: imageOnly},
		RolePreview:   {Primary: PrimaryOptional},
	},
	OwnerVisitStop: {
		RoleHero:     {Primary: PrimaryRequired, Kinds: imageOrVideo},
		RoleGallery:  {Primary: PrimaryOptional},
		RoleDocument: {Primary: PrimaryNone, Kinds: []media.Kind{media.KindDocument}},
	},
}

// SpecFor returns the role configuration for an owner type, or false when the
// role does not exist for that owner.
func SpecFor(owner OwnerType, role Role) (RoleSpec, bool) {
	roles, ok := roleRegistry[owner]
	if !ok {
		return RoleSpec{}, false
	}
	spec, ok := roles[role]
	return spec, ok
}

// KindAllowed reports whether a media kind may be linked in this role.
func (s RoleSpec) KindAllowed(k media.Kind) bool {
	if len(s.Kinds) == 0 {
		return true
	}
	for _, allowed := range s.Kinds {
		if allowed == k {
			return true
		}
	}
	return false
}
