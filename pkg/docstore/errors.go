package docstore

import "errors"

var (
	ErrEmptyCollection  = errors.New("docstore: collection name is required")
	ErrEmptyBatch       = errors.New("docstore: batch must contain at least one write")
	ErrChannelClosed    = errors.New("docstore: channel is closed")
	ErrDocumentNotFound = errors.New("docstore: document not found")
	ErrFailedToConnect  = errors.New("docstore: failed to connect to mongo")
)
