package graph

import "github.com/pkg/errors"

// Structural errors.
var (
	ErrCycle             = errors.New("graph contains a cycle")
	ErrDuplicateNode     = errors.New("duplicate node name")
	ErrDuplicateTensor   = errors.New("duplicate tensor name")
	ErrUnknownTensor     = errors.New("unknown tensor name")
	ErrUnknownNode       = errors.New("unknown node")
	ErrNoProducer        = errors.New("tensor has no producer")
	ErrMultipleProducers = errors.New("tensor has multiple producers")
	ErrSlotOutOfRange    = errors.New("input slot out of range")
)
