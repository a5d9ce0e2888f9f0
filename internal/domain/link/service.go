package link

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"mediahub/internal/domain/media"
)

// MediaReader is the slice of the media service the link manager needs.
type MediaReader interface {
	Get(ctx context.Context, id string) (*media.Asset, error)
}

// Service is the only writer of link-group invariants: contiguous display
// orders, at-most/exactly-one primary, and one current version per lineage.
// Callers never touch is_primary or display_order directly.
type Service struct {
	repo   Repository
	assets MediaReader
}

func NewService(repo Repository, assets MediaReader) *Service {
	return &Service{repo: repo, assets: assets}
}

// AttachOptions tunes a single attach. Deferred stores the link as pending
// against a still-processing asset; it joins the group when ActivatePending
// runs after the asset becomes ready.
type AttachOptions struct {
	Language         string
	Caption          *string
	IsPrimary        bool
	DisplayOrder     *int
	Deferred         bool
	SupersedeCurrent bool
	ShowInTour       *bool
	ShowPublic       *bool
}

func (s *Service) Attach(ctx context.Context, owner Owner, role Role, mediaID string, opts AttachOptions) (*Link, error) {
	spec, err := s.validateTarget(owner, role)
	if err != nil {
		return nil, err
	}
	if opts.IsPrimary && spec.Primary == PrimaryNone {
		return nil, ErrPrimaryNotAllowed
	}

	asset, err := s.assets.Get(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	if !spec.KindAllowed(asset.Kind) {
		return nil, fmt.Errorf("%w: %s in role %s", ErrKindNotAllowed, asset.Kind, role)
	}

	l := newLink(owner, role, mediaID, opts)

	if asset.Status != media.StatusReady {
		if !opts.Deferred {
			return nil, ErrAssetNotReady
		}
		// Pre-declared link: parked outside every group invariant until the
		// processing webhook reports ready.
		l.Pending = true
		l.IsCurrent = false
		l.Supersede = opts.SupersedeCurrent
		if err := translateCreateErr(s.repo.Create(ctx, l)); err != nil {
			return nil, err
		}
		return l, nil
	}

	err = s.repo.Transaction(ctx, func(r Repository) error {
		return s.placeInGroup(ctx, r, spec, l, opts)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// placeInGroup assigns order, version, and primary for a new active link.
// Must run with the group locked.
func (s *Service) placeInGroup(ctx context.Context, r Repository, spec RoleSpec, l *Link, opts AttachOptions) error {
	owner := Owner{Type: l.OwnerType, ID: l.OwnerID}
	group, err := r.GroupLocked(ctx, owner, l.Role)
	if err != nil {
		return err
	}

	wantPrimary := l.IsPrimary

	if opts.SupersedeCurrent {
		head, err := r.CurrentLineage(ctx, owner, l.Role, l.Language)
		if err != nil {
			return err
		}
		if head != nil {
			// Retire the lineage head; the new version takes its slot.
			if err := r.Update(ctx, head.ID, map[string]interface{}{"is_current": false, "is_primary": false}); err != nil {
				return err
			}
			l.Version = head.Version + 1
			l.DisplayOrder = head.DisplayOrder
			if head.IsPrimary {
				wantPrimary = true
			}
			return s.insertLink(ctx, r, owner, l, wantPrimary)
		}
	}

	switch {
	case opts.DisplayOrder != nil:
		pos := *opts.DisplayOrder
		if pos < 0 {
			pos = 0
		}
		if pos > len(group) {
			pos = len(group)
		}
		// Shift siblings at and after the insertion point.
		for i := len(group) - 1; i >= pos; i-- {
			if err := r.Update(ctx, group[i].ID, map[string]interface{}{"display_order": group[i].DisplayOrder + 1}); err != nil {
				return err
			}
		}
		l.DisplayOrder = pos
	default:
		l.DisplayOrder = len(group)
	}

	if spec.Primary == PrimaryRequired && len(group) == 0 {
		wantPrimary = true
	}
	return s.insertLink(ctx, r, owner, l, wantPrimary)
}

func (s *Service) insertLink(ctx context.Context, r Repository, owner Owner, l *Link, wantPrimary bool) error {
	if wantPrimary {
		if err := r.ClearPrimary(ctx, owner, l.Role); err != nil {
			return err
		}
	}
	l.IsPrimary = wantPrimary
	return translateCreateErr(r.Create(ctx, l))
}

// translateCreateErr maps a duplicate-membership violation to the domain
// sentinel. The unique index covers (media, owner, role, language, version):
// the same asset cannot appear twice in one group.
func translateCreateErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" && pgErr.ConstraintName == "idx_links_no_duplicate_member" {
			return ErrGroupConflict
		}
		return err
	}
	// SQLite reports the violated columns, not the index name.
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed: media_links.media_id") {
		return ErrGroupConflict
	}
	return err
}

// ActivatePending promotes pending links for a now-ready asset into their
// groups. Invoked from the processing webhook; safe to call repeatedly.
func (s *Service) ActivatePending(ctx context.Context, mediaID string) (int, error) {
	asset, err := s.assets.Get(ctx, mediaID)
	if err != nil {
		return 0, err
	}
	if asset.Status != media.StatusReady {
		return 0, nil
	}

	pending, err := s.repo.ListPendingByMedia(ctx, mediaID)
	if err != nil {
		return 0, err
	}

	activated := 0
	for _, l := range pending {
		spec, ok := SpecFor(l.OwnerType, l.Role)
		if !ok {
			continue
		}
		err := s.repo.Transaction(ctx, func(r Repository) error {
			owner := Owner{Type: l.OwnerType, ID: l.OwnerID}
			group, err := r.GroupLocked(ctx, owner, l.Role)
			if err != nil {
				return err
			}

			fields := map[string]interface{}{
				"pending":       false,
				"is_current":    true,
				"supersede":     false,
				"version":       1,
				"display_order": len(group),
			}
			wantPrimary := l.IsPrimary || (spec.Primary == PrimaryRequired && len(group) == 0)

			if l.Supersede {
				head, err := r.CurrentLineage(ctx, owner, l.Role, l.Language)
				if err != nil {
					return err
				}
				if head != nil {
					// Same retire-and-replace as a direct supersede attach:
					// the activated link takes the head's slot and version.
					if err := r.Update(ctx, head.ID, map[string]interface{}{"is_current": false, "is_primary": false}); err != nil {
						return err
					}
					fields["version"] = head.Version + 1
					fields["display_order"] = head.DisplayOrder
					if head.IsPrimary {
						wantPrimary = true
					}
				}
			}

			if wantPrimary {
				if err := r.ClearPrimary(ctx, owner, l.Role); err != nil {
					return err
				}
			}
			fields["is_primary"] = wantPrimary
			return r.Update(ctx, l.ID, fields)
		})
		if err != nil {
			return activated, err
		}
		activated++
	}
	return activated, nil
}

// Reorder rewrites display_order to match ids exactly. The payload must be a
// full permutation of the group; partial reorders are rejected untouched.
func (s *Service) Reorder(ctx context.Context, owner Owner, role Role, ids []string) error {
	if _, err := s.validateTarget(owner, role); err != nil {
		return err
	}

	return s.repo.Transaction(ctx, func(r Repository) error {
		group, err := r.GroupLocked(ctx, owner, role)
		if err != nil {
			return err
		}
		if len(ids) != len(group) {
			return ErrInvalidReorder
		}
		byID := make(map[string]*Link, len(group))
		for _, l := range group {
			byID[l.ID] = l
		}
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if seen[id] || byID[id] == nil {
				return ErrInvalidReorder
			}
			seen[id] = true
		}
		for i, id := range ids {
			if byID[id].DisplayOrder == i {
				continue
			}
			if err := r.Update(ctx, id, map[string]interface{}{"display_order": i}); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetPrimary makes linkID the single primary of its group.
func (s *Service) SetPrimary(ctx context.Context, owner Owner, role Role, linkID string) error {
	spec, err := s.validateTarget(owner, role)
	if err != nil {
		return err
	}
	if spec.Primary == PrimaryNone {
		return ErrPrimaryNotAllowed
	}

	return s.repo.Transaction(ctx, func(r Repository) error {
		group, err := r.GroupLocked(ctx, owner, role)
		if err != nil {
			return err
		}
		var target *Link
		for _, l := range group {
			if l.ID == linkID {
				target = l
				break
			}
		}
		if target == nil {
			return ErrLinkNotFound
		}
		if err := r.ClearPrimary(ctx, owner, role); err != nil {
			return err
		}
		return r.Update(ctx, linkID, map[string]interface{}{"is_primary": true})
	})
}

// Visibility fields toggled independently per link.
const (
	VisibilityTour   = "show_in_tour"
	VisibilityPublic = "show_public"
)

func (s *Service) SetVisibility(ctx context.Context, linkID, field string, value bool) error {
	switch field {
	case VisibilityTour, VisibilityPublic:
	default:
		return ErrInvalidVisibility
	}
	return s.repo.Update(ctx, linkID, map[string]interface{}{field: value})
}

func (s *Service) SetCaption(ctx context.Context, linkID string, caption *string) error {
	return s.repo.Update(ctx, linkID, map[string]interface{}{"caption": caption})
}

// Detach removes a link, compacts the group's ordering, and promotes a new
// primary when a primary-required group would otherwise be left without one.
func (s *Service) Detach(ctx context.Context, linkID string) error {
	return s.repo.Transaction(ctx, func(r Repository) error {
		l, err := r.GetByID(ctx, linkID)
		if err != nil {
			return err
		}
		if l.Pending || !l.IsCurrent {
			// Outside every group invariant; plain delete.
			return r.Delete(ctx, linkID)
		}

		owner := Owner{Type: l.OwnerType, ID: l.OwnerID}
		spec, _ := SpecFor(l.OwnerType, l.Role)
		group, err := r.GroupLocked(ctx, owner, l.Role)
		if err != nil {
			return err
		}
		if err := r.Delete(ctx, linkID); err != nil {
			return err
		}

		survivors := make([]*Link, 0, len(group))
		for _, g := range group {
			if g.ID != linkID {
				survivors = append(survivors, g)
			}
		}
		for i, g := range survivors {
			if g.DisplayOrder != i {
				if err := r.Update(ctx, g.ID, map[string]interface{}{"display_order": i}); err != nil {
					return err
				}
			}
		}
		if l.IsPrimary && spec.Primary == PrimaryRequired && len(survivors) > 0 {
			return r.Update(ctx, survivors[0].ID, map[string]interface{}{"is_primary": true})
		}
		return nil
	})
}

// GroupEntry is one member of a bulk group replacement.
type GroupEntry struct {
	MediaID    string
	Language   string
	Caption    *string
	IsPrimary  bool
	ShowInTour bool
	ShowPublic bool
}

// ReplaceGroup swaps the whole (owner, role) group for the given entries in
// one transaction: on any error the old group survives intact.
func (s *Service) ReplaceGroup(ctx context.Context, owner Owner, role Role, entries []GroupEntry) ([]*Link, error) {
	spec, err := s.validateTarget(owner, role)
	if err != nil {
		return nil, err
	}

	// Validate every entry before touching the group.
	primaryIdx := -1
	for i, e := range entries {
		asset, err := s.assets.Get(ctx, e.MediaID)
		if err != nil {
			return nil, err
		}
		if asset.Status != media.StatusReady {
			return nil, ErrAssetNotReady
		}
		if !spec.KindAllowed(asset.Kind) {
			return nil, fmt.Errorf("%w: %s in role %s", ErrKindNotAllowed, asset.Kind, role)
		}
		if e.IsPrimary {
			if spec.Primary == PrimaryNone {
				return nil, ErrPrimaryNotAllowed
			}
			primaryIdx = i // last marked wins, matching sequential attach semantics
		}
	}
	if primaryIdx < 0 && spec.Primary == PrimaryRequired && len(entries) > 0 {
		primaryIdx = 0
	}

	created := make([]*Link, 0, len(entries))
	err = s.repo.Transaction(ctx, func(r Repository) error {
		if _, err := r.GroupLocked(ctx, owner, role); err != nil {
			return err
		}
		if err := r.DeleteGroup(ctx, owner, role); err != nil {
			return err
		}
		for i, e := range entries {
			lang := normalizeLanguage(e.Language)
			l := &Link{
				ID:           uuid.New().String(),
				MediaID:      e.MediaID,
				OwnerType:    owner.Type,
				OwnerID:      owner.ID,
				Role:         role,
				DisplayOrder: i,
				IsPrimary:    i == primaryIdx,
				Language:     lang,
				Version:      1,
				IsCurrent:    true,
				Caption:      e.Caption,
				ShowInTour:   e.ShowInTour,
				ShowPublic:   e.ShowPublic,
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			}
			if err := translateCreateErr(r.Create(ctx, l)); err != nil {
				return err
			}
			created = append(created, l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) ListGroup(ctx context.Context, owner Owner, role Role) ([]*Link, error) {
	if _, err := s.validateTarget(owner, role); err != nil {
		return nil, err
	}
	return s.repo.Group(ctx, owner, role)
}

func (s *Service) ListForOwner(ctx context.Context, owner Owner) ([]*Link, error) {
	if !owner.Type.Valid() {
		return nil, ErrInvalidOwner
	}
	return s.repo.ListForOwner(ctx, owner)
}

// DetachAllForOwner is the cascade hook for owner deletion.
func (s *Service) DetachAllForOwner(ctx context.Context, owner Owner) error {
	if !owner.Type.Valid() {
		return ErrInvalidOwner
	}
	return s.repo.DeleteForOwner(ctx, owner)
}

// CountForAsset satisfies the media service's LinkCounter.
func (s *Service) CountForAsset(ctx context.Context, mediaID string) (int64, error) {
	return s.repo.CountForAsset(ctx, mediaID)
}

func (s *Service) validateTarget(owner Owner, role Role) (RoleSpec, error) {
	if !owner.Type.Valid() {
		return RoleSpec{}, ErrInvalidOwner
	}
	spec, ok := SpecFor(owner.Type, role)
	if !ok {
		return RoleSpec{}, ErrInvalidRole
	}
	return spec, nil
}

func newLink(owner Owner, role Role, mediaID string, opts AttachOptions) *Link {
	now := time.Now()
	showInTour, showPublic := true, false
	if opts.ShowInTour != nil {
		showInTour = *opts.ShowInTour
	}
	if opts.ShowPublic != nil {
		showPublic = *opts.ShowPublic
	}
	return &Link{
		ID:         uuid.New().String(),
		MediaID:    mediaID,
		OwnerType:  owner.Type,
		OwnerID:    owner.ID,
		Role:       role,
		IsPrimary:  opts.IsPrimary,
		Language:   normalizeLanguage(opts.Language),
		Version:    1,
		IsCurrent:  true,
		Caption:    opts.Caption,
		ShowInTour: showInTour,
		ShowPublic: showPublic,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return DefaultLanguage
	}
	return lang
}
