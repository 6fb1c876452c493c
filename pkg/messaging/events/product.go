package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/productcatalog/pkg/messaging"
)

// ProductEvent describes a catalog mutation. Kind selects the subject.
type ProductEvent struct {
	Kind          Kind      `json:"-"`
	ProductID     int64     `json:"product_id"`
	Name          string    `json:"name"`
	ImageFileName string    `json:"image_file_name"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Kind int

const (
	ProductCreated Kind = iota
	ProductUpdated
	ProductDeleted
)

func (k Kind) String() string {
	switch k {
	case ProductUpdated:
		return "updated"
	case ProductDeleted:
		return "deleted"
	default:
		return "created"
	}
}

func (e ProductEvent) Subject() string {
	switch e.Kind {
	case ProductUpdated:
		return messaging.ProductUpdatedSubject
	case ProductDeleted:
		return messaging.ProductDeletedSubject
	default:
		return messaging.ProductCreatedSubject
	}
}

func (e ProductEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
