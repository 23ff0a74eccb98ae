package cache

// CollectionPattern builds the invalidation pattern covering every key of a collection,
// narrowed to one entity when identifier is not empty.
//
//	CollectionPattern("vendors", "")   // "vendors*"
//	CollectionPattern("vendors", "42") // "vendors*:42*"
func CollectionPattern(collection, identifier string) string {
	if identifier == "" {
		return collection + "*"
	}
	return collection + "*:" + identifier + "*"
}

// EntityTags returns the coarse (whole collection) and fine (one entity) tags for an entity,
// so a single InvalidateByTags call can target either granularity.
func EntityTags(collection, id string) []string {
	return []string{collection, collection + ":" + id}
}
