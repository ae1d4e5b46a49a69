package storage

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Document is a typed JSON document kept under one blob key.
//
// Load returns Default when the key has never been written and ErrCorruptState
// when the stored bytes do not decode into T or fail Validate.
type Document[T any] struct {
	Blobs    BlobStore
	Key      string
	Default  func() T
	Validate func(T) error
}

func (d Document[T]) Load(ctx context.Context) (T, error) {
	var zero T
	raw, err := d.Blobs.Get(ctx, d.Key)
	if errors.Is(err, ErrBlobNotFound) {
		if d.Default != nil {
			return d.Default(), nil
		}
		return zero, nil
	}
	if err != nil {
		return zero, err
	}

	// An empty file is treated like a missing one.
	if len(bytes.TrimSpace(raw)) == 0 {
		if d.Default != nil {
			return d.Default(), nil
		}
		return zero, nil
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, errors.Mark(errors.Wrapf(err, "decode %s", d.Key), ErrCorruptState)
	}
	if d.Validate != nil {
		if err := d.Validate(v); err != nil {
			return zero, errors.Mark(errors.Wrapf(err, "validate %s", d.Key), ErrCorruptState)
		}
	}
	return v, nil
}

func (d Document[T]) Save(ctx context.Context, v T) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", d.Key)
	}
	return d.Blobs.Put(ctx, d.Key, raw)
}
