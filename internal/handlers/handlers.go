package handlers

import (
	"time"

	"photo-catalog/internal/decode"
	"photo-catalog/internal/library"
)

type Handlers struct {
	registry  *library.Registry
	decoder   *decode.Decoder
	startTime time.Time
}

func New(registry *library.Registry, decoder *decode.Decoder) *Handlers {
	return &Handlers{
		registry:  registry,
		decoder:   decoder,
		startTime: time.Now(),
	}
}
