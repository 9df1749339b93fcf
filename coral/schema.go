package coral

// Entity descriptors are owned by the service's schema layer. The client
// carries them opaquely; extra fields the service adds are tolerated and
// ignored on decode.

type EntityDescriptor struct {
	Collection    string             `json:"collection"`
	Fields        []*FieldDescriptor `json:"fields,omitempty"`
	PartitionKeys []string           `json:"partition_keys,omitempty"`
}

type FieldDescriptor struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`
}
