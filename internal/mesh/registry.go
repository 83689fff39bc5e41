package mesh

// registry is the authoritative peer-id to connection-record arena. It is
// a plain map on purpose: every access happens under the room mutex, the
// single mutual-exclusion discipline for all mesh state, so records need
// no locking of their own and registry-wide iterations always observe a
// consistent snapshot.
type registry struct {
	links map[string]*peerLink
}

func newRegistry() *registry {
	return &registry{links: make(map[string]*peerLink)}
}

// get looks up the record for a peer id.
func (r *registry) get(id string) *peerLink {
	return r.links[id]
}

// insert stores a record unless one already exists for the id; races to
// insert resolve to reusing the existing record. Returns the record that
// is now authoritative and whether it was freshly inserted.
func (r *registry) insert(link *peerLink) (*peerLink, bool) {
	if existing, ok := r.links[link.id]; ok {
		return existing, false
	}
	r.links[link.id] = link
	return link, true
}

// remove drops the record for a peer id and returns it, nil when absent.
func (r *registry) remove(id string) *peerLink {
	link, ok := r.links[id]
	if !ok {
		return nil
	}
	delete(r.links, id)
	return link
}

// snapshot returns the current records as a slice.
func (r *registry) snapshot() []*peerLink {
	out := make([]*peerLink, 0, len(r.links))
	for _, link := range r.links {
		out = append(out, link)
	}
	return out
}

// drain empties the registry and returns everything it held.
func (r *registry) drain() []*peerLink {
	out := r.snapshot()
	r.links = make(map[string]*peerLink)
	return out
}

// size returns the number of records.
func (r *registry) size() int {
	return len(r.links)
}
