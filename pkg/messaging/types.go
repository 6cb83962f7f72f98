package messaging

// ChangeTopic names one topic exchange carrying dataset changes between the
// ingest side and running browser instances.
type ChangeTopic string

const (
	RecordsUpserted ChangeTopic = "records_upserted"
	RecordsReloaded ChangeTopic = "records_reloaded"
)
