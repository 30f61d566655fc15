package buffer

// scanBucket walks bucket j's list looking for a slot already carrying
// (dev, blockno). Caller must hold bucketLocks[j].
func (c *Cache) scanBucket(j int, dev, blockno uint64) (int, bool) {
	s := c.sentinel(j)
	for i := c.links[s].next; i != s; i = c.links[i].next {
		if c.buffers[i].matches(dev, blockno) {
			return i, true
		}
	}
	return -1, false
}

// scanVictim walks bucket j's list for the unpinned slot with the lowest
// timestamp. Caller must hold bucketLocks[j].
func (c *Cache) scanVictim(j int) (slot int, ts uint64, found bool) {
	s := c.sentinel(j)
	for i := c.links[s].next; i != s; i = c.links[i].next {
		if c.buffers[i].refcnt != 0 {
			continue
		}
		if !found || c.buffers[i].timestamp < ts {
			slot, ts, found = i, c.buffers[i].timestamp, true
		}
	}
	return
}

// get implements the lookup/admit engine: a fast path that only ever takes
// a single bucket lock, and a slow path, taken only on a miss, that takes
// the global arbiter lock, re-checks for a hit (another goroutine may have
// admitted the block while this one waited for the arbiter), and otherwise
// scans every bucket for an eviction victim before admitting the requested
// identity in its place. It returns the slot index with refcnt already
// incremented and the content lock already held.
func (c *Cache) get(dev, blockno uint64) int {
	i := c.bucketOf(dev, blockno)

	// Phase A: fast hit.
	c.bucketLocks[i].Lock()
	if slot, ok := c.scanBucket(i, dev, blockno); ok {
		c.buffers[slot].refcnt++
		c.bucketLocks[i].Unlock()
		c.buffers[slot].content.Lock()
		return slot
	}
	c.bucketLocks[i].Unlock()

	// Phase B: arbitrated miss.
	c.arbiter.Lock()

	c.bucketLocks[i].Lock()
	if slot, ok := c.scanBucket(i, dev, blockno); ok {
		c.buffers[slot].refcnt++
		c.bucketLocks[i].Unlock()
		c.arbiter.Unlock()
		c.buffers[slot].content.Lock()
		return slot
	}
	c.bucketLocks[i].Unlock()

	// Victim scan: walk every bucket in ascending order, retaining the lock
	// on whichever bucket currently holds the best (lowest-timestamp)
	// candidate and releasing every other bucket's lock as we go.
	victim, victimBucket, heldBucket := -1, -1, -1
	var bestTS uint64
	for j := 0; j < c.b; j++ {
		c.bucketLocks[j].Lock()
		slot, ts, found := c.scanVictim(j)
		if found && (victim == -1 || ts < bestTS) {
			if heldBucket != -1 {
				c.bucketLocks[heldBucket].Unlock()
			}
			victim, bestTS, victimBucket, heldBucket = slot, ts, j, j
		} else {
			c.bucketLocks[j].Unlock()
		}
	}

	if victim == -1 {
		c.arbiter.Unlock()
		fatal(ErrNoUnpinnedBuffers)
	}

	// heldBucket == victimBucket, and its lock is still held.
	if victimBucket != i {
		c.unlink(victim)
	}
	c.buffers[victim].dev = dev
	c.buffers[victim].blockno = blockno
	c.buffers[victim].valid = false
	c.buffers[victim].refcnt = 1
	c.bucketLocks[victimBucket].Unlock()

	if victimBucket != i {
		c.bucketLocks[i].Lock()
		c.insertAfter(c.sentinel(i), victim)
		c.bucketLocks[i].Unlock()
	}

	c.arbiter.Unlock()

	c.buffers[victim].content.Lock()
	return victim
}
