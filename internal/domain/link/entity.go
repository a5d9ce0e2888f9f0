package link

import "time"

// OwnerType identifies the kind of entity a link belongs to.
type OwnerType string

const (
	OwnerAsset     OwnerType = "asset" // bookable content asset
	OwnerVenue     OwnerType = "venue"
	OwnerVisitStop OwnerType = "visit_stop"
)

func (o OwnerType) Valid() bool {
	switch o {
	case OwnerAsset, OwnerVenue, OwnerVisitStop:
		return true
	}
	return false
}

// Owner is one side of a polymorphic association.
type Owner struct {
	Type OwnerType
	ID   int64
}

// Link associates a media asset with an owning entity in a specific role.
// All ordering/primary/version invariants are scoped to the
// (owner_type, owner_id, role) group; pending links are excluded from every
// group invariant until activated.
type Link struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	MediaID      string    `gorm:"column:media_id;index;uniqueIndex:idx_links_no_duplicate_member" json:"media_id"`
	OwnerType    OwnerType `gorm:"column:owner_type;index:idx_media_links_group;uniqueIndex:idx_links_no_duplicate_member" json:"owner_type"`
	OwnerID      int64     `gorm:"column:owner_id;index:idx_media_links_group;uniqueIndex:idx_links_no_duplicate_member" json:"owner_id"`
	Role         Role      `gorm:"column:role;index:idx_media_links_group;uniqueIndex:idx_links_no_duplicate_member" json:"role"`
	DisplayOrder int       `gorm:"column:display_order" json:"display_order"`
	IsPrimary    bool      `gorm:"column:is_primary" json:"is_primary"`
	Language     string    `gorm:"column:language;uniqueIndex:idx_links_no_duplicate_member" json:"language"`
	Version      int       `gorm:"column:version;uniqueIndex:idx_links_no_duplicate_member" json:"version"`
	IsCurrent    bool      `gorm:"column:is_current" json:"is_current"`
	Caption      *string   `gorm:"column:caption" json:"caption,omitempty"`
	ShowInTour   bool      `gorm:"column:show_in_tour" json:"show_in_tour"`
	ShowPublic   bool      `gorm:"column:show_public" json:"show_public"`
	Pending      bool      `gorm:"column:pending;index" json:"pending"`
	// Supersede carries a pending row's intent to retire the lineage head
	// when it activates. Always false on active links.
	Supersede bool `gorm:"column:supersede" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Link) TableName() string { return "media_links" }

const DefaultLanguage = "en"
