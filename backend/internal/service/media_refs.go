package service

import "github.com/itchan-dev/mediable/shared/domain"

// ResolveIds flattens a media reference into ids. Duplicates and order are
// preserved as given.
func ResolveIds(ref domain.MediaRef) []domain.MediaId {
	switch ref.Kind {
	case domain.MediaRefKindId, domain.MediaRefKindIds:
		ids := make([]domain.MediaId, len(ref.Ids))
		copy(ids, ref.Ids)
		return ids
	case domain.MediaRefKindEntity, domain.MediaRefKindEntities:
		ids := make([]domain.MediaId, 0, len(ref.Entities))
		for _, m := range ref.Entities {
			ids = append(ids, m.Id)
		}
		return ids
	default:
		return []domain.MediaId{}
	}
}
