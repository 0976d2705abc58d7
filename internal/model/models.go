package model

// All lists every model for migrations, in dependency order
func All() []interface{} {
	return []interface{}{
		&User{},
		&ContactEvent{},
		&ArchivedFile{},
		&Lead{},
		&StatusHistoryEntry{},
	}
}
