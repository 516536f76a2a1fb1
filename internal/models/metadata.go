package models

// Metadata keys shared between the indexing path and the consumers that
// filter or parse stored entries.
const (
	// MetadataKeyRecordType tags every index entry with its record variant.
	MetadataKeyRecordType = "record_type"
	// MetadataKeyUserID scopes transaction entries to their owner.
	MetadataKeyUserID = "user_id"
	// MetadataKeyCategory is the spending category of a transaction.
	MetadataKeyCategory = "category"
)
