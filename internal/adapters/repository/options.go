package repository

// StoreOption applies a configuration option to the MemStore.
type StoreOption func(*MemStore)

// WithShardCount sets the number of shards in the store.
func WithShardCount(count int) StoreOption {
	return func(s *MemStore) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithHistoryLimit bounds the retained rating history per agent.
func WithHistoryLimit(limit int) StoreOption {
	return func(s *MemStore) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}
