package domain

type MediaRefKind int

const (
	MediaRefNone MediaRefKind = iota
	MediaRefKindId
	MediaRefKindIds
	MediaRefKindEntity
	MediaRefKindEntities
)

// MediaRef is the input accepted by attach and detach operations: one id,
// a list of ids, one media record or a collection of media records.
type MediaRef struct {
	Kind     MediaRefKind
	Ids      []MediaId
	Entities []Media
}

func MediaRefId(id MediaId) MediaRef {
	return MediaRef{Kind: MediaRefKindId, Ids: []MediaId{id}}
}

func MediaRefIds(ids ...MediaId) MediaRef {
	return MediaRef{Kind: MediaRefKindIds, Ids: ids}
}

func MediaRefEntity(m Media) MediaRef {
	return MediaRef{Kind: MediaRefKindEntity, Entities: []Media{m}}
}

func MediaRefEntities(ms ...Media) MediaRef {
	return MediaRef{Kind: MediaRefKindEntities, Entities: ms}
}
