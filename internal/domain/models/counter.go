package models

// SequenceCounter is a per-category monotonic counter used to mint SAE IDs.
// The document key is the category key (e.g. "CS25", "FAC"). Count only
// ever increases, and only inside the approval transaction.
type SequenceCounter struct {
	ID    string `bson:"_id" json:"id"`
	Count int64  `bson:"count" json:"count"`
}
